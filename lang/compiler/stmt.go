package compiler

import (
	"github.com/mna/glox/lang/chunk"
	"github.com/mna/glox/lang/token"
	"github.com/mna/glox/lang/value"
)

// declaration parses one declaration-or-statement and resynchronizes on
// error (spec.md §4.3 "Statements"). This is the loop body Compile drives
// until EOF.
func (p *parser) declaration() {
	switch {
	case p.match(token.CLASS):
		p.classDeclaration()
	case p.match(token.FUN):
		p.funDeclaration()
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(token.PRINT):
		p.printStatement()
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.BREAK):
		p.breakStatement()
	case p.match(token.CONTINUE):
		p.continueStatement()
	case p.match(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "expect '}' after block")
}

// expressionStatement compiles `expr ;`. In REPL mode, a bare top-level
// expression statement prints its value instead of discarding it, so
// typing `1 + 2` at the prompt shows `3` (supplemented REPL behavior,
// original_source/src/main.c's `vm_init(argc == 1)` flag threaded through
// to the compiler here instead of the VM).
func (p *parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMI, "expect ';' after expression")
	if p.isREPL && p.cc.fnType == typeScript && p.cc.scopeDepth == 0 {
		p.emitOp(chunk.OpPrint)
		return
	}
	p.emitOp(chunk.OpPop)
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(token.SEMI, "expect ';' after value")
	p.emitOp(chunk.OpPrint)
}

// ifStatement compiles:
//
//	JMP_IF_FALSE else
//	POP
//	<then>
//	JMP end
//	else: POP
//	<else, if present>
//	end:
func (p *parser) ifStatement() {
	p.consume(token.LPAREN, "expect '(' after 'if'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	thenJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()

	elseJump := p.emitJump(chunk.OpJump)
	p.patchJump(thenJump)
	p.emitOp(chunk.OpPop)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) returnStatement() {
	if p.cc.fnType == typeScript {
		p.error("can't return from top-level code")
	}
	if p.match(token.SEMI) {
		p.emitReturn()
		return
	}
	if p.cc.fnType == typeInitializer {
		p.error("can't return a value from an initializer")
	}
	p.expression()
	p.consume(token.SEMI, "expect ';' after return value")
	p.emitOp(chunk.OpReturn)
}

// whileStatement compiles:
//
//	loopStart: <cond>
//	JMP_IF_FALSE exit
//	POP
//	<body>
//	LOOP loopStart
//	exit: POP
func (p *parser) whileStatement() {
	loopStart := p.currentChunk().Len()
	p.pushLoop(loopStart)

	p.consume(token.LPAREN, "expect '(' after 'while'")
	p.expression()
	p.consume(token.RPAREN, "expect ')' after condition")

	exitJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(chunk.OpPop)
	p.popLoop()
}

// forStatement desugars `for (init; cond; incr) body` into a while loop,
// per spec.md §4.3 "Loops": init runs once outside any loop jump; if incr
// is present, the loop body jumps over it on the way in and LOOPs to it
// on the way back, so continue's target (set to the increment's start, or
// the condition's start if there is no increment) always runs the
// increment before re-testing cond.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "expect '(' after 'for'")

	switch {
	case p.match(token.SEMI):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.currentChunk().Len()

	exitJump := -1
	if !p.check(token.SEMI) {
		p.expression()
		p.consume(token.SEMI, "expect ';' after loop condition")
		exitJump = p.emitJump(chunk.OpJumpIfFalse)
		p.emitOp(chunk.OpPop)
	} else {
		p.advance() // consume ';'
	}

	continueTo := loopStart
	if !p.check(token.RPAREN) {
		bodyJump := p.emitJump(chunk.OpJump)
		incrStart := p.currentChunk().Len()
		p.expression()
		p.emitOp(chunk.OpPop)
		p.consume(token.RPAREN, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrStart
		continueTo = incrStart
		p.patchJump(bodyJump)
	} else {
		p.consume(token.RPAREN, "expect ')' after for clauses")
	}

	p.pushLoop(continueTo)
	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(chunk.OpPop)
	}
	p.popLoop()
	p.endScope()
}

func (p *parser) pushLoop(continueTo int) {
	p.lp = &loopState{enclosing: p.lp, continueTo: continueTo}
}

// popLoop patches every pending break jump to land here, past the loop.
func (p *parser) popLoop() {
	for _, off := range p.lp.breakJumps {
		p.patchJump(off)
	}
	p.lp = p.lp.enclosing
}

func (p *parser) breakStatement() {
	if p.lp == nil {
		p.error("can't use 'break' outside of a loop")
		return
	}
	p.consume(token.SEMI, "expect ';' after 'break'")
	jump := p.emitJump(chunk.OpJump)
	p.lp.breakJumps = append(p.lp.breakJumps, jump)
}

func (p *parser) continueStatement() {
	if p.lp == nil {
		p.error("can't use 'continue' outside of a loop")
		return
	}
	p.consume(token.SEMI, "expect ';' after 'continue'")
	p.emitLoop(p.lp.continueTo)
}

// --- variable declaration & resolution ----------------------------------

func (p *parser) varDeclaration() {
	global := p.parseVariable("expect variable name")

	if p.match(token.EQ) {
		p.expression()
	} else {
		p.emitOp(chunk.OpNil)
	}
	p.consume(token.SEMI, "expect ';' after variable declaration")
	p.defineVariable(global)
}

// parseVariable consumes a name, declares it (as a local if inside a
// scope), and returns the global-table constant offset to use if it
// turns out to be global; the returned value is meaningless for locals.
func (p *parser) parseVariable(errMsg string) int {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.cc.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.prev.Lexeme)
}

func (p *parser) identifierConstant(name string) int {
	s := p.alloc.InternString(name)
	p.alloc.PinRoot(value.Object(s))
	off, err := p.currentChunk().AddConstant(value.Object(s))
	p.alloc.Unpin()
	if err != nil {
		p.error(err.Error())
		return 0
	}
	return off
}

// declareVariable adds prev's lexeme as a new local in the current scope,
// rejecting a redeclaration at the same depth (spec.md §4.3 "Locals").
// At global scope (depth 0) it is a no-op: globals resolve by name at
// runtime, not by compile-time slot.
func (p *parser) declareVariable() {
	if p.cc.scopeDepth == 0 {
		return
	}
	name := p.prev.Lexeme
	for i := len(p.cc.locals) - 1; i >= 0; i-- {
		l := p.cc.locals[i]
		if l.depth != -1 && l.depth < p.cc.scopeDepth {
			break
		}
		if l.name == name {
			p.error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

func (p *parser) addLocal(name string) {
	if len(p.cc.locals) >= maxLocals {
		p.error("too many local variables in function")
		return
	}
	p.cc.locals = append(p.cc.locals, localVar{name: name, depth: -1})
}

// defineVariable marks the most recently declared local as initialized,
// or emits the bytecode to bind a global (spec.md §4.3).
func (p *parser) defineVariable(global int) {
	if p.cc.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitShortOrLong(chunk.OpDefineGlobal, chunk.OpDefineGlobalLong, global)
}

func (p *parser) markInitialized() {
	if p.cc.scopeDepth == 0 {
		return
	}
	p.cc.locals[len(p.cc.locals)-1].depth = p.cc.scopeDepth
}

// variable resolves an identifier read or write: local slot, captured
// upvalue, or global by name, per spec.md §4.3 "Variable resolution".
func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.prev.Lexeme, canAssign)
}

// variableFromName resolves name as if it had just been scanned as an
// identifier token, for synthetic lookups of `this` and `super`.
func (p *parser) variableFromName(name string, canAssign bool) {
	p.namedVariable(name, canAssign)
}

func (p *parser) namedVariable(name string, canAssign bool) {
	var getOp, getOpLong, setOp, setOpLong chunk.OpCode
	var isUpvalue bool

	arg, ok := p.resolveLocal(p.cc, name)
	switch {
	case ok:
		getOp, getOpLong = chunk.OpGetLocal, chunk.OpGetLocalLong
		setOp, setOpLong = chunk.OpSetLocal, chunk.OpSetLocalLong
	default:
		if arg, ok = p.resolveUpvalue(p.cc, name); ok {
			getOp, getOpLong = chunk.OpGetUpvalue, chunk.OpGetUpvalueLong
			setOp, setOpLong = chunk.OpSetUpvalue, chunk.OpSetUpvalueLong
			isUpvalue = true
		} else {
			arg = p.identifierConstant(name)
			getOp, getOpLong = chunk.OpGetGlobal, chunk.OpGetGlobalLong
			setOp, setOpLong = chunk.OpSetGlobal, chunk.OpSetGlobalLong
		}
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		if isUpvalue {
			p.emitUpvalue(setOp, setOpLong, arg)
		} else {
			p.emitShortOrLong(setOp, setOpLong, arg)
		}
		return
	}
	if isUpvalue {
		p.emitUpvalue(getOp, getOpLong, arg)
	} else {
		p.emitShortOrLong(getOp, getOpLong, arg)
	}
}

// resolveLocal walks fr.locals top-down looking for name, reporting a
// compile error if it is found but not yet initialized (reading a local
// in its own initializer, e.g. `var a = a;`).
func (p *parser) resolveLocal(fr *frame, name string) (int, bool) {
	for i := len(fr.locals) - 1; i >= 0; i-- {
		if fr.locals[i].name == name {
			if fr.locals[i].depth == -1 {
				p.error("can't read local variable in its own initializer")
			}
			return i, true
		}
	}
	return 0, false
}

// resolveUpvalue recursively searches enclosing frames for name. If found
// as a local in an ancestor frame, that local is marked captured and an
// upvalue chain is threaded through every intermediate frame down to fr
// (spec.md §4.3 "Upvalues").
func (p *parser) resolveUpvalue(fr *frame, name string) (int, bool) {
	if fr.enclosing == nil {
		return 0, false
	}
	if local, ok := p.resolveLocal(fr.enclosing, name); ok {
		fr.enclosing.locals[local].captured = true
		return p.addUpvalue(fr, local, true), true
	}
	if up, ok := p.resolveUpvalue(fr.enclosing, name); ok {
		return p.addUpvalue(fr, up, false), true
	}
	return 0, false
}

// addUpvalue records (index, isLocal) in fr's upvalues array, reusing an
// existing identical entry if one is already there.
func (p *parser) addUpvalue(fr *frame, index int, isLocal bool) int {
	for i, u := range fr.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(fr.upvalues) >= maxUpvalues {
		p.error("too many closure variables in function")
		return 0
	}
	fr.upvalues = append(fr.upvalues, upvalueRef{index: index, isLocal: isLocal})
	fr.fn.UpvalueCount = len(fr.upvalues)
	return len(fr.upvalues) - 1
}

// --- functions -----------------------------------------------------------

func (p *parser) funDeclaration() {
	global := p.parseVariable("expect function name")
	p.markInitialized()
	p.function(typeFunction)
	p.defineVariable(global)
}

// function compiles a function body in a fresh frame, then emits CLOSURE
// with one (isLocal, index) pair per upvalue trailing the instruction, as
// spec.md §4.1 describes.
func (p *parser) function(ft funcType) {
	name := p.alloc.InternString(p.prev.Lexeme)
	fn := p.alloc.NewFunction(name, 0)

	enclosing := p.cc
	p.cc = &frame{enclosing: enclosing, fn: fn, fnType: ft}
	// Slot 0: `this` for methods/initializers, unnamed/unused otherwise.
	receiverName := ""
	if ft == typeMethod || ft == typeInitializer {
		receiverName = "this"
	}
	p.cc.locals = append(p.cc.locals, localVar{name: receiverName, depth: 0})

	p.beginScope()
	p.consume(token.LPAREN, "expect '(' after function name")
	if !p.check(token.RPAREN) {
		for {
			p.cc.fn.Arity++
			if p.cc.fn.Arity > 255 {
				p.errorAtCurrent("can't have more than 255 parameters")
			}
			constant := p.parseVariable("expect parameter name")
			p.defineVariable(constant)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after parameters")
	p.consume(token.LBRACE, "expect '{' before function body")
	p.block()

	// Capture the finished frame's upvalue descriptors before endCompiler
	// pops it back to enclosing.
	upvalues := p.cc.upvalues
	compiled := p.endCompiler()

	p.alloc.PinRoot(value.Object(compiled))
	off, err := enclosing.fn.Chunk.AddConstant(value.Object(compiled))
	p.alloc.Unpin()
	if err != nil {
		p.error(err.Error())
		return
	}
	p.emitShortOrLong(chunk.OpClosure, chunk.OpClosureLong, off)
	for _, u := range upvalues {
		if u.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(byte(u.index))
	}
}

// --- classes ---------------------------------------------------------------

func (p *parser) classDeclaration() {
	p.consume(token.IDENT, "expect class name")
	nameTok := p.prev
	nameConstant := p.identifierConstant(nameTok.Lexeme)
	p.declareVariable()

	p.emitShortOrLong(chunk.OpClass, chunk.OpClassLong, nameConstant)
	p.defineVariable(nameConstant)

	cls := &classState{enclosing: p.cl}
	p.cl = cls

	if p.match(token.LT) {
		p.consume(token.IDENT, "expect superclass name")
		p.variable(false)
		if nameTok.Lexeme == p.prev.Lexeme {
			p.error("a class can't inherit from itself")
		}

		p.beginScope()
		p.addLocal("super")
		p.defineVariable(0)

		p.namedVariable(nameTok.Lexeme, false)
		p.emitOp(chunk.OpInherit)
		cls.hasSuperclass = true
	}

	p.namedVariable(nameTok.Lexeme, false)
	p.consume(token.LBRACE, "expect '{' before class body")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "expect '}' after class body")
	p.emitOp(chunk.OpPop) // pop the class value pushed for method binding

	if cls.hasSuperclass {
		p.endScope()
	}
	p.cl = cls.enclosing
}

func (p *parser) method() {
	p.consume(token.IDENT, "expect method name")
	name := p.prev.Lexeme
	constant := p.identifierConstant(name)

	ft := typeMethod
	if name == "init" {
		ft = typeInitializer
	}
	p.function(ft)
	p.emitShortOrLong(chunk.OpMethod, chunk.OpMethodLong, constant)
}
