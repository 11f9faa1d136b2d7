package compiler_test

import (
	"testing"

	"github.com/mna/glox/lang/compiler"
	"github.com/mna/glox/lang/vm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAllocator returns a fresh vm.VM, which satisfies compiler.Allocator;
// these tests only exercise compilation, never vm.Interpret.
func newAllocator() *vm.VM { return vm.New(vm.Options{}) }

func TestCompileValidPrograms(t *testing.T) {
	cases := []string{
		`print 1 + 2 * 3;`,
		`var a = 1; { var a = 2; print a; } print a;`,
		`fun f(a, b) { return a + b; } print f(1, 2);`,
		`fun make(x) { fun inner() { return x; } return inner; }`,
		`class A {} class B < A { init() { this.x = 1; } }`,
		`for (var i = 0; i < 10; i = i + 1) { if (i == 3) continue; if (i == 5) break; }`,
		`class A { greet() { print "hi"; } } class B < A { greet2() { super.greet(); } }`,
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			res, err := compiler.Compile(src, newAllocator(), false)
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.NotNil(t, res.Closure)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	cases := map[string]string{
		"redeclare in same scope":       `{ var a = 1; var a = 2; }`,
		"read local in own initializer": `{ var a = a; }`,
		"break outside loop":            `break;`,
		"continue outside loop":         `continue;`,
		"return from top-level":         `return 1;`,
		"return value from init":        `class A { init() { return 1; } }`,
		"invalid assignment target":     `1 + 2 = 3;`,
		"this outside method":           `print this;`,
		"super outside class":           `print super.x;`,
		"unterminated string":           "var a = \"unterminated;",
		"unexpected character":          "var a = 1 @ 2;",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := compiler.Compile(src, newAllocator(), false)
			assert.Error(t, err)
			assert.Nil(t, res)
		})
	}
}

func TestCompileSuperWithoutSuperclassIsError(t *testing.T) {
	_, err := compiler.Compile(`class A { m() { super.x(); } }`, newAllocator(), false)
	assert.Error(t, err)
}

func TestCompileTooManyLocals(t *testing.T) {
	src := "{\n"
	for i := 0; i < 257; i++ {
		src += "var v" + itoa(i) + " = 0;\n"
	}
	src += "}\n"
	_, err := compiler.Compile(src, newAllocator(), false)
	assert.Error(t, err, "257 locals in one scope must be a compile error")
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func TestREPLModePrintsBareExpression(t *testing.T) {
	res, err := compiler.Compile(`1 + 1;`, newAllocator(), true)
	require.NoError(t, err)
	require.NotNil(t, res)
}
