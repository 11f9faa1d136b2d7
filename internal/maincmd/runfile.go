package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/glox/lang/vm"
	"github.com/mna/mainer"
)

// runFile compiles and interprets the single source file at path,
// mapping the outcome to an exit code per original_source/src/main.c:
// 74 if the file cannot be read, 65 on a compile error, 70 on a runtime
// (or internal) fault, 0 on success.
func runFile(ctx context.Context, stdio mainer.Stdio, path string, trace, gcStress bool) mainer.ExitCode {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "Cannot open '%s': %s.\n", path, err)
		return mainer.ExitCode(74)
	}

	machine := newVM(stdio, trace, gcStress, false)
	runErr := machine.Interpret(ctx, string(source))
	switch e := runErr.(type) {
	case nil:
		return mainer.ExitCode(0)
	case *vm.RuntimeError:
		printRuntimeError(stdio, e)
		return mainer.ExitCode(70)
	case *vm.InternalError:
		fmt.Fprintln(stdio.Stderr, e.Error())
		return mainer.ExitCode(70)
	default:
		fmt.Fprintln(stdio.Stderr, runErr.Error())
		return mainer.ExitCode(65)
	}
}

// printRuntimeError prints spec.md §7's one-line message followed by the
// frame-by-frame trace ("[line %d] in %s()\n" per function frame, "[line
// %d] in script\n" for the top-level frame), the format
// original_source/src/vm.c's runtime_error() writes to stderr for both
// repl() and run_file().
func printRuntimeError(stdio mainer.Stdio, e *vm.RuntimeError) {
	fmt.Fprintln(stdio.Stderr, e.Error())
	for _, fr := range e.Trace {
		name := "script"
		if fr.FuncName != "" {
			name = fr.FuncName + "()"
		}
		fmt.Fprintf(stdio.Stderr, "[line %d] in %s\n", fr.Line, name)
	}
}

func newVM(stdio mainer.Stdio, trace, gcStress, repl bool) *vm.VM {
	opts := vm.Options{Stdout: stdio.Stdout, GCStress: gcStress, REPL: repl}
	if trace {
		opts.Trace = stdio.Stderr
	}
	return vm.New(opts)
}
