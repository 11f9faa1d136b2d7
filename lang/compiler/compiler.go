// Package compiler implements the single-pass Pratt compiler of spec.md
// §4.3: one compiler frame per script or function being compiled, the
// innermost of which is "current"; each frame resolves identifiers to
// locals, captured-upvalues or globals while emitting bytecode directly,
// with no intermediate AST.
//
// Grounded on original_source/src/compiler.c for exact emission semantics
// (parse_precedence, the ParseRule table, scope/upvalue resolution, for-loop
// desugaring) and on mna-nenuphar/lang/resolver/{resolver,binding}.go for
// the Go shape of a per-function binding table that promotes a Local to a
// Cell (here: "captured") on first reference from a nested function.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/mna/glox/lang/chunk"
	"github.com/mna/glox/lang/scanner"
	"github.com/mna/glox/lang/token"
	"github.com/mna/glox/lang/value"
)

// Allocator is the set of heap-construction operations the compiler needs
// from its host. The VM implements it; defining it here (rather than
// importing lang/vm) keeps compiler free of any dependency on vm, which
// itself depends on compiler.
type Allocator interface {
	// InternString returns the single, shared *value.String for the given
	// contents, allocating it if this is the first occurrence.
	InternString(s string) *value.String
	// NewFunction allocates a fresh, not-yet-populated function object.
	NewFunction(name *value.String, arity int) *value.Function
	// NewClosure wraps fn in a closure with fn.UpvalueCount nil upvalue
	// slots.
	NewClosure(fn *value.Function) *value.Closure
	// PinRoot keeps v reachable from the VM's GC roots until the matching
	// Unpin call, for objects under construction that are not yet reachable
	// any other way (spec.md §5, §9's "construction pin" alternative).
	PinRoot(v value.Value)
	Unpin()
}

// Result is the outcome of a successful compile: the closure wrapping the
// synthesized top-level function (spec.md §4.3 "Output").
type Result struct {
	Closure *value.Closure
}

type funcType uint8

const (
	typeScript funcType = iota
	typeFunction
	typeMethod
	typeInitializer
)

// localVar is one entry in a frame's fixed-size locals array (spec.md
// §4.3: "a locals array (fixed maximum 256) with {name_token, depth,
// captured} entries").
type localVar struct {
	name     string
	depth    int // -1 while declared but not yet defined
	captured bool
	isConst  bool
}

// upvalueRef is one entry in a frame's upvalues array (spec.md §4.3).
type upvalueRef struct {
	index   int
	isLocal bool
}

const maxLocals = 256
const maxUpvalues = 256

// frame is one nested Compiler: one per script and per function being
// compiled (spec.md §4.3).
type frame struct {
	enclosing *frame
	fn        *value.Function
	fnType    funcType

	locals     []localVar
	scopeDepth int
	upvalues   []upvalueRef
}

// classState tracks the class currently being compiled, if any, so `this`
// and `super` can be validated and resolved (spec.md §4.3 "Classes").
type classState struct {
	enclosing      *classState
	hasSuperclass  bool
}

// loopState tracks the pending break/continue jump bookkeeping for one
// enclosing loop (spec.md §4.3 "Loops and control flow").
type loopState struct {
	enclosing     *loopState
	breakJumps    []int // placeholder OpJump offsets to patch past the loop
	continueTo    int   // absolute bytecode offset continue should jump back to
}

type parser struct {
	sc   scanner.Scanner
	prev scanner.Token
	cur  scanner.Token

	alloc  Allocator
	isREPL bool

	hadError  bool
	panicMode bool
	errs      scanner.ErrorList
	filename  string

	cc *frame      // current compiler frame
	cl *classState // current class, or nil
	lp *loopState  // current loop, or nil
}

// Compile compiles source in one pass and returns the closure wrapping the
// synthesized top-level script function. If any lexical or compile error
// was seen, it returns a nil Result together with the accumulated errors
// (spec.md §4.3 "Output": "compile(source) → closure | null").
func Compile(source string, alloc Allocator, isREPL bool) (*Result, error) {
	p := &parser{alloc: alloc, isREPL: isREPL}
	p.sc.Init(source, func(pos scanner.Position, msg string) {
		p.errs.Add(pos, msg)
	})

	scriptFn := alloc.NewFunction(nil, 0)
	p.cc = &frame{fn: scriptFn, fnType: typeScript}
	// Slot 0 is reserved for the callee/receiver; reserve it as a hidden,
	// unnamed local so subsequent local indices line up with runtime stack
	// slots (spec.md §4.3 "Functions and closures").
	p.cc.locals = append(p.cc.locals, localVar{name: "", depth: 0})

	p.advance()
	for !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.EOF, "expect end of expression")
	fn := p.endCompiler()

	if p.hadError || p.errs.Err() != nil {
		p.errs.Sort()
		return nil, p.errs.Err()
	}
	closure := alloc.NewClosure(fn)
	return &Result{Closure: closure}, nil
}

// --- token stream plumbing -------------------------------------------------

func (p *parser) advance() {
	p.prev = p.cur
	p.cur = p.sc.Scan()
	if p.cur.Kind == token.ILLEGAL {
		// The scanner already recorded a human-readable diagnostic through
		// errh (p.cur.Lexeme carries that message, not raw source text);
		// enter panic mode directly instead of routing it through
		// errorAtCurrent, which would just report the message a second
		// time as if it were a token's lexeme.
		p.hadError = true
		p.panicMode = true
	}
}

func (p *parser) check(k token.Kind) bool { return p.cur.Kind == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(k token.Kind, msg string) {
	if p.cur.Kind == k {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// errorAt reports a compile error at tok, formatted "On line N, at token
// 'x': message" per spec.md §7, suppressing all but the first error in a
// panic window until synchronize() recovers.
func (p *parser) errorAt(line int, lexeme string, atEOF bool, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	var where string
	switch {
	case atEOF:
		where = "at end"
	default:
		where = fmt.Sprintf("at token '%s'", lexeme)
	}
	p.errs.Add(scanner.Position{Line: line, Column: 1}, fmt.Sprintf("On line %d, %s: %s", line, where, msg))
}

func (p *parser) errorAtCurrent(msg string) {
	p.errorAt(p.cur.Line, p.cur.Lexeme, p.cur.Kind == token.EOF, msg)
}

func (p *parser) error(msg string) {
	p.errorAt(p.prev.Line, p.prev.Lexeme, p.prev.Kind == token.EOF, msg)
}

// synchronize skips tokens until a likely statement boundary, so a single
// syntax error does not cascade into a flood of spurious diagnostics
// (spec.md §4.3 "Error handling").
func (p *parser) synchronize() {
	p.panicMode = false
	for p.cur.Kind != token.EOF {
		if p.prev.Kind == token.SEMI {
			return
		}
		switch p.cur.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.BREAK, token.CONTINUE:
			return
		}
		p.advance()
	}
}

// --- emission ---------------------------------------------------------

func (p *parser) currentChunk() *chunk.Chunk { return &p.cc.fn.Chunk }

func (p *parser) emitByte(b byte) {
	p.currentChunk().Append(b, p.prev.Line)
}

func (p *parser) emitOp(op chunk.OpCode) { p.emitByte(byte(op)) }

func (p *parser) emitOps(ops ...chunk.OpCode) {
	for _, op := range ops {
		p.emitOp(op)
	}
}

// emitU24 emits a 3-byte little-endian operand.
func (p *parser) emitU24(n int) {
	p.emitByte(byte(n))
	p.emitByte(byte(n >> 8))
	p.emitByte(byte(n >> 16))
}

// emitU16 emits a 2-byte little-endian operand.
func (p *parser) emitU16(n int) {
	p.emitByte(byte(n))
	p.emitByte(byte(n >> 8))
}

// emitShortOrLong emits short if n fits in one byte (and any short
// variant exists for it), else emits long with a 3-byte operand
// (spec.md §4.1's 1-vs-3-byte constant/field/global/local offsets).
func (p *parser) emitShortOrLong(short, long chunk.OpCode, n int) {
	if n < 256 {
		p.emitOp(short)
		p.emitByte(byte(n))
		return
	}
	p.emitOp(long)
	p.emitU24(n)
}

// emitUpvalue emits short if n fits in one byte, else long with a 2-byte
// operand (spec.md §4.1's 1-vs-2-byte upvalue index).
func (p *parser) emitUpvalue(short, long chunk.OpCode, n int) {
	if n < 256 {
		p.emitOp(short)
		p.emitByte(byte(n))
		return
	}
	p.emitOp(long)
	p.emitU16(n)
}

// emitConstant adds v to the current chunk's constant pool and emits a
// load instruction sized to the resulting offset. v is pinned across the
// pool append per spec.md §4.1.
func (p *parser) emitConstant(v value.Value) int {
	p.alloc.PinRoot(v)
	off, err := p.currentChunk().AddConstant(v)
	p.alloc.Unpin()
	if err != nil {
		p.error(err.Error())
		return 0
	}
	p.emitShortOrLong(chunk.OpConst, chunk.OpConstLong, off)
	return off
}

// emitJump emits a two-byte-operand jump placeholder and returns its
// operand's offset, to be patched once the target is known.
func (p *parser) emitJump(op chunk.OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return p.currentChunk().Len() - 2
}

// patchJump backfills the 2-byte displacement at offset so that it lands
// on the current bytecode position.
func (p *parser) patchJump(offset int) {
	jump := p.currentChunk().Len() - offset - 2
	if jump > 0xffff {
		p.error("too much code to jump over")
		return
	}
	p.currentChunk().Code[offset] = byte(jump)
	p.currentChunk().Code[offset+1] = byte(jump >> 8)
}

// emitLoop emits a backward jump (LOOP) to loopStart.
func (p *parser) emitLoop(loopStart int) {
	p.emitOp(chunk.OpLoop)
	offset := p.currentChunk().Len() - loopStart + 2
	if offset > 0xffff {
		p.error("loop body too large")
	}
	p.emitByte(byte(offset))
	p.emitByte(byte(offset >> 8))
}

func (p *parser) emitReturn() {
	if p.cc.fnType == typeInitializer {
		// `init` always returns `this`, which lives in slot 0.
		p.emitOp(chunk.OpGetLocal)
		p.emitByte(0)
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.emitOp(chunk.OpReturn)
}

func (p *parser) endCompiler() *value.Function {
	p.emitReturn()
	fn := p.cc.fn
	p.cc = p.cc.enclosing
	return fn
}

// --- scopes -------------------------------------------------------------

func (p *parser) beginScope() { p.cc.scopeDepth++ }

// endScope pops every local declared at the scope being left, emitting
// CLOSE_UPVALUE for locals that were captured and POP otherwise (spec.md
// §4.3 "Scopes").
func (p *parser) endScope() {
	p.cc.scopeDepth--
	locals := p.cc.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > p.cc.scopeDepth {
		if locals[len(locals)-1].captured {
			p.emitOp(chunk.OpCloseUpvalue)
		} else {
			p.emitOp(chunk.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	p.cc.locals = locals
}

func numberLiteral(lexeme string) (float64, error) {
	return strconv.ParseFloat(lexeme, 64)
}
