package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/glox/lang/vm"
	"github.com/mna/mainer"
)

// runREPL reads one line at a time and interprets it against a single,
// persistent VM (so globals and classes declared on one line remain
// visible to the next), printing whatever error the line produced but
// never exiting non-zero for it (original_source/src/main.c's repl():
// a per-line interpret() result is never inspected).
func runREPL(ctx context.Context, stdio mainer.Stdio, trace, gcStress bool) {
	machine := newVM(stdio, trace, gcStress, true)
	scanner := bufio.NewScanner(stdio.Stdin)

	for {
		fmt.Fprint(stdio.Stdout, ">> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err := machine.Interpret(ctx, scanner.Text()); err != nil {
			if rerr, ok := err.(*vm.RuntimeError); ok {
				printRuntimeError(stdio, rerr)
			} else {
				fmt.Fprintln(stdio.Stderr, err.Error())
			}
		}
	}
}
