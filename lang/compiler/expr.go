package compiler

import (
	"github.com/mna/glox/lang/chunk"
	"github.com/mna/glox/lang/token"
	"github.com/mna/glox/lang/value"
)

// precedence levels, low to high (spec.md §4.3 "Pratt table").
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type rule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules map[token.Kind]rule

func init() {
	rules = map[token.Kind]rule{
		token.LPAREN:   {prefix: (*parser).grouping, infix: (*parser).call, prec: precCall},
		token.DOT:      {infix: (*parser).dot, prec: precCall},
		token.MINUS:    {prefix: (*parser).unary, infix: (*parser).binary, prec: precTerm},
		token.PLUS:     {infix: (*parser).binary, prec: precTerm},
		token.SLASH:    {infix: (*parser).binary, prec: precFactor},
		token.STAR:     {infix: (*parser).binary, prec: precFactor},
		token.BANG:     {prefix: (*parser).unary},
		token.BANG_EQ:  {infix: (*parser).binary, prec: precEquality},
		token.EQ_EQ:    {infix: (*parser).binary, prec: precEquality},
		token.GT:       {infix: (*parser).binary, prec: precComparison},
		token.GT_EQ:    {infix: (*parser).binary, prec: precComparison},
		token.LT:       {infix: (*parser).binary, prec: precComparison},
		token.LT_EQ:    {infix: (*parser).binary, prec: precComparison},
		token.IDENT:    {prefix: (*parser).variable},
		token.STRING:   {prefix: (*parser).stringLiteral},
		token.NUMBER:   {prefix: (*parser).number},
		token.AND:      {infix: (*parser).and, prec: precAnd},
		token.OR:       {infix: (*parser).or, prec: precOr},
		token.FALSE:    {prefix: (*parser).literal},
		token.TRUE:     {prefix: (*parser).literal},
		token.NIL:      {prefix: (*parser).literal},
		token.THIS:     {prefix: (*parser).this},
		token.SUPER:    {prefix: (*parser).super},
	}
}

func getRule(k token.Kind) rule { return rules[k] }

func (p *parser) expression() {
	p.parsePrecedence(precAssignment)
}

// parsePrecedence implements spec.md §4.3's parse_precedence: consume the
// next token as prefix, dispatch its prefix handler, then keep consuming
// and dispatching infix handlers while the current token binds at least as
// tightly as prec. Assignment is just the infix handler of '=' that
// refuses to fire if the parsed left-hand side's precedence was above
// ASSIGNMENT, which is how canAssign threads through.
func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := getRule(p.prev.Kind).prefix
	if prefix == nil {
		p.error("expect expression")
		return
	}

	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.cur.Kind).prec {
		p.advance()
		infix := getRule(p.prev.Kind).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("invalid assignment target")
	}
}

func (p *parser) number(canAssign bool) {
	f, err := numberLiteral(p.prev.Lexeme)
	if err != nil {
		p.error("invalid number literal")
		return
	}
	p.emitConstant(value.Number(f))
}

func (p *parser) stringLiteral(canAssign bool) {
	s := p.alloc.InternString(p.prev.Literal)
	p.emitConstant(value.Object(s))
}

func (p *parser) literal(canAssign bool) {
	switch p.prev.Kind {
	case token.FALSE:
		p.emitOp(chunk.OpFalse)
	case token.TRUE:
		p.emitOp(chunk.OpTrue)
	case token.NIL:
		p.emitOp(chunk.OpNil)
	}
}

func (p *parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RPAREN, "expect ')' after expression")
}

func (p *parser) unary(canAssign bool) {
	opKind := p.prev.Kind
	p.parsePrecedence(precUnary)
	switch opKind {
	case token.MINUS:
		p.emitOp(chunk.OpNegate)
	case token.BANG:
		p.emitOp(chunk.OpNot)
	}
}

func (p *parser) binary(canAssign bool) {
	opKind := p.prev.Kind
	r := getRule(opKind)
	p.parsePrecedence(r.prec + 1)

	switch opKind {
	case token.PLUS:
		p.emitOp(chunk.OpAdd)
	case token.MINUS:
		p.emitOp(chunk.OpSubtract)
	case token.STAR:
		p.emitOp(chunk.OpMultiply)
	case token.SLASH:
		p.emitOp(chunk.OpDivide)
	case token.EQ_EQ:
		p.emitOp(chunk.OpEqual)
	case token.BANG_EQ:
		p.emitOps(chunk.OpEqual, chunk.OpNot)
	case token.GT:
		p.emitOp(chunk.OpGreater)
	case token.GT_EQ:
		p.emitOps(chunk.OpLess, chunk.OpNot)
	case token.LT:
		p.emitOp(chunk.OpLess)
	case token.LT_EQ:
		p.emitOps(chunk.OpGreater, chunk.OpNot)
	}
}

// and implements short-circuit evaluation: JMP_IF_FALSE past the RHS,
// POP, evaluate RHS, patch (spec.md §4.3 "Loops and control flow").
func (p *parser) and(canAssign bool) {
	endJump := p.emitJump(chunk.OpJumpIfFalse)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

// or: JMP_IF_FALSE to RHS, JMP past RHS, patch first, POP, evaluate RHS,
// patch second.
func (p *parser) or(canAssign bool) {
	elseJump := p.emitJump(chunk.OpJumpIfFalse)
	endJump := p.emitJump(chunk.OpJump)
	p.patchJump(elseJump)
	p.emitOp(chunk.OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOp(chunk.OpCall)
	p.emitByte(byte(argc))
}

func (p *parser) argumentList() int {
	argc := 0
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if argc == 255 {
				p.error("can't have more than 255 arguments")
			}
			argc++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "expect ')' after arguments")
	return argc
}

// dot compiles `.` at call-or-dot precedence, per spec.md §4.3, so
// property chains and method invocation interleave correctly. It emits
// the INVOKE fast path when the property access is immediately called.
func (p *parser) dot(canAssign bool) {
	p.consume(token.IDENT, "expect property name after '.'")
	name := p.identifierConstant(p.prev.Lexeme)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitShortOrLong(chunk.OpSetProperty, chunk.OpSetPropertyLong, name)
	case p.match(token.LPAREN):
		argc := p.argumentList()
		p.emitInvoke(chunk.OpInvoke, chunk.OpInvokeLong, name, argc)
	default:
		p.emitShortOrLong(chunk.OpGetProperty, chunk.OpGetPropertyLong, name)
	}
}

// emitInvoke emits an INVOKE/INVOKE_LONG instruction: the constant offset
// of the property name, sized short or long, followed by the argument
// count byte.
func (p *parser) emitInvoke(short, long chunk.OpCode, nameOffset, argc int) {
	p.emitShortOrLong(short, long, nameOffset)
	p.emitByte(byte(argc))
}

func (p *parser) this(canAssign bool) {
	if p.cl == nil {
		p.error("can't use 'this' outside of a method")
		return
	}
	p.variableFromName("this", false)
}

func (p *parser) super(canAssign bool) {
	if p.cl == nil {
		p.error("can't use 'super' outside of a class")
		return
	} else if !p.cl.hasSuperclass {
		p.error("can't use 'super' in a class with no superclass")
	}
	p.consume(token.DOT, "expect '.' after 'super'")
	p.consume(token.IDENT, "expect superclass method name")
	name := p.identifierConstant(p.prev.Lexeme)

	p.variableFromName("this", false)
	if p.match(token.LPAREN) {
		argc := p.argumentList()
		p.variableFromName("super", false)
		p.emitInvoke(chunk.OpSuperInvoke, chunk.OpSuperInvokeLong, name, argc)
		return
	}
	p.variableFromName("super", false)
	p.emitShortOrLong(chunk.OpGetSuper, chunk.OpGetSuperLong, name)
}
