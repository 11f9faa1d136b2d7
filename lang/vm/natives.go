package vm

import (
	"fmt"
	"time"

	"github.com/mna/glox/lang/value"
)

// nativeClock implements the "clock" native (original_source/src/vm.c's
// clock_native): seconds elapsed since an arbitrary but fixed epoch, as a
// float, for timing Lox programs from within themselves.
func nativeClock(args []value.Value) (value.Value, error) {
	if len(args) != 0 {
		return value.Nil, fmt.Errorf("clock() takes 0 arguments but got %d.", len(args))
	}
	return value.Number(float64(time.Now().UnixNano()) / 1e9), nil
}

// nativeHasAttr implements the "hasattr" native
// (original_source/src/native_fns.c's native_fn_has_attribute /
// _has_attribute): reports whether its first argument is an instance
// carrying a field (not a method) named by its second, string argument.
// Any non-instance first argument reports false rather than erroring.
func nativeHasAttr(args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Nil, fmt.Errorf("hasattr() takes 2 arguments but got %d.", len(args))
	}
	obj, attrName := args[0], args[1]
	if !obj.Is(value.ObjInstance) {
		return value.Bool(false), nil
	}
	if !attrName.Is(value.ObjString) {
		return value.Nil, fmt.Errorf("hasattr() second argument must be a string.")
	}
	instance := obj.AsObject().(*value.Instance)
	name := attrName.AsObject().(*value.String)
	_, ok := instance.Fields.Get(name)
	return value.Bool(ok), nil
}
