package chunk

// OpCode identifies a bytecode instruction. The complete set matches
// spec.md §4.4 "Instruction semantics (complete set)".
type OpCode byte

const (
	OpConst     OpCode = iota // CONST short_offset
	OpConstLong               // CONST_LONG long_offset(3)
	OpTrue
	OpFalse
	OpNil
	OpPop
	OpNegate
	OpNot
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpEqual
	OpGreater
	OpLess
	OpPrint

	OpDefineGlobal
	OpDefineGlobalLong
	OpGetGlobal
	OpGetGlobalLong
	OpSetGlobal
	OpSetGlobalLong

	OpGetLocal
	OpGetLocalLong
	OpSetLocal
	OpSetLocalLong

	OpGetUpvalue
	OpGetUpvalueLong
	OpSetUpvalue
	OpSetUpvalueLong

	OpJump
	OpJumpIfFalse
	OpLoop

	OpCall

	OpClosure
	OpClosureLong
	OpCloseUpvalue

	OpReturn

	OpClass
	OpClassLong
	OpMethod
	OpMethodLong
	OpGetProperty
	OpGetPropertyLong
	OpSetProperty
	OpSetPropertyLong
	OpInherit
	OpGetSuper
	OpGetSuperLong
	OpInvoke
	OpInvokeLong
	OpSuperInvoke
	OpSuperInvokeLong

	OpExit
)

var names = [...]string{
	OpConst:            "CONST",
	OpConstLong:        "CONST_LONG",
	OpTrue:             "TRUE",
	OpFalse:            "FALSE",
	OpNil:              "NIL",
	OpPop:              "POP",
	OpNegate:           "NEGATE",
	OpNot:              "NOT",
	OpAdd:              "ADD",
	OpSubtract:         "SUBTRACT",
	OpMultiply:         "MULTIPLY",
	OpDivide:           "DIVIDE",
	OpEqual:            "EQUAL",
	OpGreater:          "GREATER",
	OpLess:             "LESS",
	OpPrint:            "PRINT",
	OpDefineGlobal:     "DEFINE_GLOBAL",
	OpDefineGlobalLong: "DEFINE_GLOBAL_LONG",
	OpGetGlobal:        "GET_GLOBAL",
	OpGetGlobalLong:    "GET_GLOBAL_LONG",
	OpSetGlobal:        "SET_GLOBAL",
	OpSetGlobalLong:    "SET_GLOBAL_LONG",
	OpGetLocal:         "GET_LOCAL",
	OpGetLocalLong:     "GET_LOCAL_LONG",
	OpSetLocal:         "SET_LOCAL",
	OpSetLocalLong:     "SET_LOCAL_LONG",
	OpGetUpvalue:       "GET_UPVALUE",
	OpGetUpvalueLong:   "GET_UPVALUE_LONG",
	OpSetUpvalue:       "SET_UPVALUE",
	OpSetUpvalueLong:   "SET_UPVALUE_LONG",
	OpJump:             "JMP",
	OpJumpIfFalse:      "JMP_IF_FALSE",
	OpLoop:             "LOOP",
	OpCall:             "CALL",
	OpClosure:          "CLOSURE",
	OpClosureLong:      "CLOSURE_LONG",
	OpCloseUpvalue:     "CLOSE_UPVALUE",
	OpReturn:           "RETURN",
	OpClass:            "CLASS",
	OpClassLong:        "CLASS_LONG",
	OpMethod:           "METHOD",
	OpMethodLong:       "METHOD_LONG",
	OpGetProperty:      "GET_PROPERTY",
	OpGetPropertyLong:  "GET_PROPERTY_LONG",
	OpSetProperty:      "SET_PROPERTY",
	OpSetPropertyLong:  "SET_PROPERTY_LONG",
	OpInherit:          "INHERIT",
	OpGetSuper:         "GET_SUPER",
	OpGetSuperLong:     "GET_SUPER_LONG",
	OpInvoke:           "INVOKE",
	OpInvokeLong:       "INVOKE_LONG",
	OpSuperInvoke:      "SUPER_INVOKE",
	OpSuperInvokeLong:  "SUPER_INVOKE_LONG",
	OpExit:             "EXIT",
}

func (op OpCode) String() string {
	if int(op) < 0 || int(op) >= len(names) || names[op] == "" {
		return "UNKNOWN"
	}
	return names[op]
}
