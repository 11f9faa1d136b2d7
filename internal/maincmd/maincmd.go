// Package maincmd wires the glox CLI: flag/environment parsing, exit-code
// mapping, and dispatch between the REPL and file-running modes.
//
// Grounded on mna-nenuphar/internal/maincmd/maincmd.go's Cmd shape
// (flag-tagged struct, mainer.Parser, mainer.CancelOnSignal), generalized
// from that teacher's parse/resolve/tokenize sub-command dispatch to
// glox's run/repl behavior, and on original_source/src/main.c for the
// exact exit-code-per-outcome mapping.
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "glox"

var shortUsage = fmt.Sprintf("usage: %s [-h|--help] [<path>]\n", binName)

// Cmd is the CLI's flag/argument surface. Trace and GCStress can also be
// set as GLOX_TRACE / GLOX_GC_STRESS environment variables, resolved by
// mainer.Parser's EnvVars/EnvPrefix binding rather than ad hoc os.Getenv
// calls, per SPEC_FULL.md's ambient-config section.
type Cmd struct {
	Help     bool `flag:"h,help"`
	Trace    bool `flag:"trace"`
	GCStress bool `flag:"gc-stress"`

	args []string
}

func (c *Cmd) SetArgs(args []string)      { c.args = args }
func (c *Cmd) SetFlags(_ map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("too many arguments")
	}
	return nil
}

// Main parses args, then runs the REPL (no positional argument) or
// compiles and runs the single file argument, returning a process exit
// code: 0 success, 64 usage error, 65 compile error, 70 runtime error, 74
// I/O error (original_source/src/main.c's contract).
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: true, EnvPrefix: "GLOX_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.ExitCode(64)
	}

	if c.Help {
		fmt.Fprint(stdio.Stdout, shortUsage)
		return mainer.ExitCode(0)
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if len(c.args) == 0 {
		runREPL(ctx, stdio, c.Trace, c.GCStress)
		return mainer.ExitCode(0)
	}
	return runFile(ctx, stdio, c.args[0], c.Trace, c.GCStress)
}
