package vm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/mna/glox/lang/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run compiles and interprets src against a fresh VM, returning everything
// it printed to stdout and whatever error Interpret returned.
func run(t *testing.T, src string, opts vm.Options) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	opts.Stdout = &buf
	machine := vm.New(opts)
	err := machine.Interpret(context.Background(), src)
	return buf.String(), err
}

// TestEndToEndScenarios exercises spec.md §8's literal end-to-end
// input/output scenarios.
func TestEndToEndScenarios(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "arithmetic precedence",
			src:  `print 1 + 2 * 3;`,
			want: "7\n",
		},
		{
			name: "string concatenation",
			src:  `var a = "hi"; var b = "!"; print a + b;`,
			want: "hi!\n",
		},
		{
			name: "closure captures enclosing local",
			src:  `fun make(x) { fun inner() { return x; } return inner; } var f = make(42); print f();`,
			want: "42\n",
		},
		{
			name: "for loop with continue",
			src:  `var n = 0; for (var i = 0; i < 5; i = i + 1) { if (i == 3) continue; n = n + i; } print n;`,
			want: "7\n",
		},
		{
			name: "inherited method",
			src:  `class A { greet() { print "hi"; } } class B < A {} B().greet();`,
			want: "hi\n",
		},
		{
			name: "initializer and method call",
			src:  `class C { init(x) { this.x = x; } double() { return this.x * 2; } } print C(21).double();`,
			want: "42\n",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := run(t, c.src, vm.Options{})
			require.NoError(t, err)
			assert.Equal(t, c.want, out)
		})
	}
}

func TestAssignmentChainLeavesAllGlobalsEqual(t *testing.T) {
	src := `var a = 1; var b = 2; var c = 3; a = b = c = 0; print a + b + c;`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)
}

func TestStringInterningIdentity(t *testing.T) {
	src := `var a = "foo" + "bar"; var b = "foobar"; print a == b;`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true\n", out, "two strings with equal contents must be the same interned object")
}

func TestBoundMethodAndInvokeAgree(t *testing.T) {
	src := `
class Greeter {
  greet() { return "hi"; }
}
var g = Greeter();
var m = g.greet;
print m() == g.greet();
`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestSuperInvoke(t *testing.T) {
	src := `
class A { who() { return "A"; } }
class B < A { who() { return super.who() + "B"; } }
print B().who();
`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "AB\n", out)
}

func TestEmptyProgramsProduceNoOutput(t *testing.T) {
	cases := []string{
		``,
		`class Empty {}`,
		`fun noop() {}`,
	}
	for _, src := range cases {
		out, err := run(t, src, vm.Options{})
		require.NoError(t, err)
		assert.Empty(t, out)
	}
}

func TestRuntimeErrorOnTypeMismatch(t *testing.T) {
	out, err := run(t, `print 1 + "a";`, vm.Options{})
	require.Error(t, err)
	assert.Empty(t, out)
	rerr, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	require.Len(t, rerr.Trace, 1)
	assert.Equal(t, "", rerr.Trace[0].FuncName, "top-level frame has no function name")
}

func TestRuntimeErrorUndefinedGlobal(t *testing.T) {
	_, err := run(t, `print undefined_name;`, vm.Options{})
	require.Error(t, err)
	_, ok := err.(*vm.RuntimeError)
	assert.True(t, ok)
}

func TestRuntimeErrorArityMismatch(t *testing.T) {
	_, err := run(t, `fun f(a, b) { return a + b; } f(1);`, vm.Options{})
	require.Error(t, err)
}

func TestRuntimeErrorCallingNonCallable(t *testing.T) {
	_, err := run(t, `var a = 1; a();`, vm.Options{})
	require.Error(t, err)
}

func TestRuntimeErrorPropertyOnNonInstance(t *testing.T) {
	_, err := run(t, `var a = 1; print a.x;`, vm.Options{})
	require.Error(t, err)
}

func TestRuntimeErrorUndefinedProperty(t *testing.T) {
	_, err := run(t, `class A {} print A().missing;`, vm.Options{})
	require.Error(t, err)
}

func TestClockNative(t *testing.T) {
	out, err := run(t, `print clock() >= 0;`, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestHasAttrNative(t *testing.T) {
	src := `
class A { init() { this.x = 1; } }
var a = A();
print hasattr(a, "x");
print hasattr(a, "y");
print hasattr(1, "x");
`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true\nfalse\nfalse\n", out)
}

func TestGCStressDoesNotChangeObservableOutput(t *testing.T) {
	src := `
class Node {
  init(v, next) {
    this.v = v;
    this.next = next;
  }
}
fun build(n) {
  var head = nil;
  for (var i = 0; i < n; i = i + 1) {
    head = Node(i, head);
  }
  return head;
}
fun sum(node) {
  var total = 0;
  while (node != nil) {
    total = total + node.v;
    node = node.next;
  }
  return total;
}
print sum(build(50));
`
	normal, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	stressed, err := run(t, src, vm.Options{GCStress: true})
	require.NoError(t, err)
	assert.Equal(t, normal, stressed)
	assert.Equal(t, "1225\n", normal)
}

func TestREPLModePrintsBareExpressions(t *testing.T) {
	out, err := run(t, `1 + 1;`, vm.Options{REPL: true})
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

func TestBreakInNestedLoop(t *testing.T) {
	src := `
var seen = "";
for (var i = 0; i < 3; i = i + 1) {
  for (var j = 0; j < 3; j = j + 1) {
    if (j == 1) break;
    seen = seen + "x";
  }
}
print seen;
`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "xxx\n", out)
}

func TestWhileLoop(t *testing.T) {
	src := `var i = 0; var n = 0; while (i < 5) { n = n + i; i = i + 1; } print n;`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestAndOrShortCircuit(t *testing.T) {
	src := `
fun boom() { print "boom"; return true; }
print false and boom();
print true or boom();
`
	out, err := run(t, src, vm.Options{})
	require.NoError(t, err)
	assert.Equal(t, "false\ntrue\n", out, "short-circuited branches must never print 'boom'")
}

func TestDeepRecursionIsARuntimeStackOverflow(t *testing.T) {
	src := `
fun recurse(n) {
  return recurse(n + 1);
}
recurse(0);
`
	_, err := run(t, src, vm.Options{})
	require.Error(t, err)
	rerr, ok := err.(*vm.RuntimeError)
	require.True(t, ok)
	assert.Contains(t, rerr.Message, "Stack overflow")
}

func TestTraceOutputIsWrittenWhenEnabled(t *testing.T) {
	var stdout, trace bytes.Buffer
	machine := vm.New(vm.Options{Stdout: &stdout, Trace: &trace})
	err := machine.Interpret(context.Background(), `print 1;`)
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout.String())
	assert.NotEmpty(t, trace.String(), "GLOX_TRACE-style tracing should emit disassembly")
}
