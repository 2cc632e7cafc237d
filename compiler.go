package lox

import (
	"strconv"

	"golang.org/x/exp/slices"
)

// funcType distinguishes the kind of function body a Compiler is
// currently emitting, since the top-level script, a method, and
// `init` each need slightly different implicit-return and synthetic-
// local behavior (spec.md §4.3).
type funcType int

const (
	funcTypeScript funcType = iota
	funcTypeFunction
	funcTypeMethod
	funcTypeInitializer
)

// local tracks one compile-time local-variable slot: its name, the
// scope depth it was declared at (-1 while mid-declaration, see
// "read a local in its own initializer"), and whether a later
// function nested inside this scope captures it by reference.
type local struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalueRef is a compile-time record of one captured variable: either
// a direct reference to an enclosing function's local slot, or a
// transitive reference to one of that function's own upvalues.
type upvalueRef struct {
	index   int
	isLocal bool
}

// classCompiler threads class-body compile state: whether the class
// currently being compiled has a superclass, which makes `super`
// resolvable as a synthetic upvalue (spec.md §4.3).
type classCompiler struct {
	enclosing     *classCompiler
	hasSuperclass bool
}

// Compiler is one function body's compile-time state: its locals,
// upvalues, scope depth, and the enclosing Compiler for the function
// it's nested inside (nil at the top level). The chain of enclosing
// Compilers is itself a GC root while compilation is in progress (see
// gc.go's markRoots), since each holds a half-built ObjFunction.
type Compiler struct {
	enclosing *Compiler
	function  *ObjFunction
	fnType    funcType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

// parser holds scanning/token state shared across the whole compile:
// one scanner, the current and previous token, and accumulated
// diagnostics. Distinct from Compiler, which is one per function body;
// parser is one per Compile call.
type parser struct {
	vm        *VM
	sc        *scanner
	cur       token
	prev      token
	errs      []*CompileError
	panicking bool

	current *Compiler
	class   *classCompiler
}

// precedence mirrors clox's single enum used both to decide whether an
// infix operator binds tighter than the expression so far and as the
// "parse everything at least this tight" argument to parsePrecedence.
type precedence int

const (
	precNone precedence = iota
	precAssignment // =
	precOr         // or
	precAnd        // and
	precEquality   // == !=
	precComparison // < > <= >=
	precTerm       // + -
	precFactor     // * /
	precUnary      // ! -
	precCall       // . ()
	precPrimary
)

type parseFn func(p *parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[tokenType]parseRule

func init() {
	rules = map[tokenType]parseRule{
		tokenLeftParen:    {(*parser).grouping, (*parser).call, precCall},
		tokenDot:          {nil, (*parser).dot, precCall},
		tokenMinus:        {(*parser).unary, (*parser).binary, precTerm},
		tokenPlus:         {nil, (*parser).binary, precTerm},
		tokenSlash:        {nil, (*parser).binary, precFactor},
		tokenStar:         {nil, (*parser).binary, precFactor},
		tokenBang:         {(*parser).unary, nil, precNone},
		tokenBangEqual:    {nil, (*parser).binary, precEquality},
		tokenEqualEqual:   {nil, (*parser).binary, precEquality},
		tokenGreater:      {nil, (*parser).binary, precComparison},
		tokenGreaterEqual: {nil, (*parser).binary, precComparison},
		tokenLess:         {nil, (*parser).binary, precComparison},
		tokenLessEqual:    {nil, (*parser).binary, precComparison},
		tokenIdentifier:   {(*parser).variable, nil, precNone},
		tokenString:       {(*parser).stringLiteral, nil, precNone},
		tokenNumber:       {(*parser).number, nil, precNone},
		tokenAnd:          {nil, (*parser).and, precAnd},
		tokenOr:           {nil, (*parser).or, precOr},
		tokenFalse:        {(*parser).literal, nil, precNone},
		tokenTrue:         {(*parser).literal, nil, precNone},
		tokenNil:          {(*parser).literal, nil, precNone},
		tokenThis:         {(*parser).this, nil, precNone},
		tokenSuper:        {(*parser).super, nil, precNone},
	}
}

func (p *parser) ruleFor(t tokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{nil, nil, precNone}
}

// Compile compiles source into a top-level ObjFunction ready to wrap
// in a closure and call, or a *CompileErrors aggregating every
// diagnostic if compilation failed. This is the sole entry point
// vm.go's Interpret calls.
func Compile(vm *VM, source string) (*ObjFunction, error) {
	p := &parser{vm: vm, sc: newScanner(source)}
	p.current = newFunctionCompiler(nil, funcTypeScript)
	vm.compiler = p.current

	p.advance()
	for !p.match(tokenEOF) {
		p.declaration()
	}
	fn := p.endCompiler()

	if len(p.errs) > 0 {
		return nil, &CompileErrors{Errors: p.errs}
	}
	return fn, nil
}

func newFunctionCompiler(enclosing *Compiler, fnType funcType) *Compiler {
	c := &Compiler{enclosing: enclosing, fnType: fnType}
	c.function = &ObjFunction{Chunk: newChunk()}

	// Slot 0 of every frame is reserved: `this` for methods, the
	// function's own ObjClosure for everything else (spec.md §4.3).
	slotName := ""
	if fnType == funcTypeMethod || fnType == funcTypeInitializer {
		slotName = "this"
	}
	c.locals = append(c.locals, local{name: slotName, depth: 0})
	return c
}

// --- token stream -----------------------------------------------------

func (p *parser) advance() {
	p.prev = p.cur
	for {
		p.cur = p.sc.scanToken()
		if p.cur.typ != tokenError {
			break
		}
		p.errorAtCurrent(p.cur.message)
	}
}

func (p *parser) check(t tokenType) bool {
	return p.cur.typ == t
}

func (p *parser) match(t tokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t tokenType, message string) {
	if p.cur.typ == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *parser) errorAtCurrent(message string) {
	p.errorAt(p.cur, message)
}

func (p *parser) error(message string) {
	p.errorAt(p.prev, message)
}

func (p *parser) errorAt(t token, message string) {
	if p.panicking {
		return
	}
	p.panicking = true

	where := "'" + t.lexeme + "'"
	if t.typ == tokenEOF {
		where = "end"
	} else if t.typ == tokenError {
		where = t.lexeme
		message = t.message
	}
	p.errs = append(p.errs, &CompileError{Line: t.line, Where: where, Message: message})
}

// synchronize discards tokens until it reaches a statement boundary,
// so one malformed statement doesn't cascade into a wall of spurious
// diagnostics (spec.md §7).
var syncStarters = []tokenType{
	tokenClass, tokenFun, tokenVar, tokenFor, tokenIf, tokenWhile, tokenPrint, tokenReturn,
}

func (p *parser) synchronize() {
	p.panicking = false
	for p.cur.typ != tokenEOF {
		if p.prev.typ == tokenSemicolon {
			return
		}
		if slices.Contains(syncStarters, p.cur.typ) {
			return
		}
		p.advance()
	}
}

// --- emission helpers ---------------------------------------------------

func (p *parser) chunk() *Chunk {
	return &p.current.function.Chunk
}

func (p *parser) emitByte(b byte) {
	p.chunk().WriteByte(b, p.prev.line)
}

func (p *parser) emitOp(op OpCode) {
	p.chunk().WriteOp(op, p.prev.line)
}

func (p *parser) emitOps(a, b OpCode) {
	p.emitOp(a)
	p.emitOp(b)
}

func (p *parser) emitOpByte(op OpCode, b byte) {
	p.emitOp(op)
	p.emitByte(b)
}

func (p *parser) emitLoop(loopStart int) {
	p.emitOp(OpLoop)
	offset := p.chunk().Len() - loopStart + 2
	if offset > 0xffff {
		p.error("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// emitJump emits op followed by a 16-bit placeholder operand, returning
// the operand's offset so patchJump can backfill it once the jump
// target is known.
func (p *parser) emitJump(op OpCode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return p.chunk().Len() - 2
}

func (p *parser) patchJump(offset int) {
	jump := p.chunk().Len() - offset - 2
	if jump > 0xffff {
		p.error("Too much code to jump over.")
	}
	p.chunk().code[offset] = byte(jump >> 8)
	p.chunk().code[offset+1] = byte(jump)
}

func (p *parser) emitConstant(v Value) {
	p.emitOpByte(OpConstant, p.makeConstant(v))
}

func (p *parser) makeConstant(v Value) byte {
	maxConstants := p.vm.cfg.GetInt("compiler.max_constants")
	idx := p.chunk().AddConstant(v)
	if idx >= maxConstants {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *parser) emitReturn() {
	if p.current.fnType == funcTypeInitializer {
		p.emitOpByte(OpGetLocal, 0)
	} else {
		p.emitOp(OpNil)
	}
	p.emitOp(OpReturn)
}

func (p *parser) endCompiler() *ObjFunction {
	p.emitReturn()
	fn := p.current.function
	fn.UpvalueCount = len(p.current.upvalues)
	// Link the finished function while it is still on the rooted
	// compiler chain, so a collection triggered by link keeps its
	// constants alive.
	p.vm.link(fn)
	p.current = p.current.enclosing
	p.vm.compiler = p.current
	return fn
}

// --- scopes and locals --------------------------------------------------

func (p *parser) beginScope() {
	p.current.scopeDepth++
}

func (p *parser) endScope() {
	p.current.scopeDepth--
	c := p.current
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		if c.locals[len(c.locals)-1].isCaptured {
			p.emitOp(OpCloseUpvalue)
		} else {
			p.emitOp(OpPop)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

func (p *parser) identifierConstant(t token) byte {
	return p.makeConstant(ObjValue(p.vm.copyString(t.lexeme)))
}

func identifiersEqual(a, b token) bool {
	return a.lexeme == b.lexeme
}

func (p *parser) addLocal(name token) {
	maxLocals := p.vm.cfg.GetInt("compiler.max_locals")
	if len(p.current.locals) >= maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.current.locals = append(p.current.locals, local{name: name.lexeme, depth: -1})
}

func (p *parser) declareVariable() {
	if p.current.scopeDepth == 0 {
		return
	}
	name := p.prev
	for i := len(p.current.locals) - 1; i >= 0; i-- {
		l := p.current.locals[i]
		if l.depth != -1 && l.depth < p.current.scopeDepth {
			break
		}
		if identifiersEqual(token{lexeme: l.name}, name) {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *parser) parseVariable(message string) byte {
	p.consume(tokenIdentifier, message)
	p.declareVariable()
	if p.current.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.prev)
}

func (p *parser) markInitialized() {
	if p.current.scopeDepth == 0 {
		return
	}
	p.current.locals[len(p.current.locals)-1].depth = p.current.scopeDepth
}

func (p *parser) defineVariable(global byte) {
	if p.current.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(OpDefineGlobal, global)
}

func resolveLocal(c *Compiler, name token) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if identifiersEqual(token{lexeme: c.locals[i].name}, name) {
			if c.locals[i].depth == -1 {
				return -2 // sentinel: read in own initializer
			}
			return i
		}
	}
	return -1
}

func addUpvalue(c *Compiler, p *parser, index int, isLocal bool) int {
	for i, u := range c.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	maxUpvalues := p.vm.cfg.GetInt("compiler.max_upvalues")
	if len(c.upvalues) >= maxUpvalues {
		p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(c.upvalues) - 1
}

func resolveUpvalue(c *Compiler, p *parser, name token) int {
	if c.enclosing == nil {
		return -1
	}
	if local := resolveLocal(c.enclosing, name); local >= 0 {
		c.enclosing.locals[local].isCaptured = true
		return addUpvalue(c, p, local, true)
	}
	if upvalue := resolveUpvalue(c.enclosing, p, name); upvalue >= 0 {
		return addUpvalue(c, p, upvalue, false)
	}
	return -1
}

// --- expressions ----------------------------------------------------

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	prefix := p.ruleFor(p.prev.typ).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(p, canAssign)

	for prec <= p.ruleFor(p.cur.typ).precedence {
		p.advance()
		infix := p.ruleFor(p.prev.typ).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(tokenEqual) {
		p.error("Invalid assignment target.")
	}
}

func (p *parser) expression() {
	p.parsePrecedence(precAssignment)
}

func (p *parser) number(canAssign bool) {
	n, _ := strconv.ParseFloat(p.prev.lexeme, 64)
	p.emitConstant(NumberValue(n))
}

func (p *parser) stringLiteral(canAssign bool) {
	raw := p.prev.lexeme
	s := raw[1 : len(raw)-1] // strip the surrounding quotes
	p.emitConstant(ObjValue(p.vm.copyString(s)))
}

func (p *parser) literal(canAssign bool) {
	switch p.prev.typ {
	case tokenFalse:
		p.emitOp(OpFalse)
	case tokenTrue:
		p.emitOp(OpTrue)
	case tokenNil:
		p.emitOp(OpNil)
	}
}

func (p *parser) grouping(canAssign bool) {
	p.expression()
	p.consume(tokenRightParen, "Expect ')' after expression.")
}

func (p *parser) unary(canAssign bool) {
	opType := p.prev.typ
	p.parsePrecedence(precUnary)
	switch opType {
	case tokenBang:
		p.emitOp(OpNot)
	case tokenMinus:
		p.emitOp(OpNegate)
	}
}

func (p *parser) binary(canAssign bool) {
	opType := p.prev.typ
	rule := p.ruleFor(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case tokenBangEqual:
		p.emitOps(OpEqual, OpNot)
	case tokenEqualEqual:
		p.emitOp(OpEqual)
	case tokenGreater:
		p.emitOp(OpGreater)
	case tokenGreaterEqual:
		p.emitOps(OpLess, OpNot)
	case tokenLess:
		p.emitOp(OpLess)
	case tokenLessEqual:
		p.emitOps(OpGreater, OpNot)
	case tokenPlus:
		p.emitOp(OpAdd)
	case tokenMinus:
		p.emitOp(OpSubtract)
	case tokenStar:
		p.emitOp(OpMultiply)
	case tokenSlash:
		p.emitOp(OpDivide)
	}
}

func (p *parser) and(canAssign bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *parser) or(canAssign bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitOp(OpPop)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *parser) variable(canAssign bool) {
	p.namedVariable(p.prev, canAssign)
}

func (p *parser) namedVariable(name token, canAssign bool) {
	var getOp, setOp OpCode
	arg := resolveLocal(p.current, name)
	switch {
	case arg == -2:
		p.error("Can't read local variable in its own initializer.")
		return
	case arg != -1:
		getOp, setOp = OpGetLocal, OpSetLocal
	default:
		if arg = resolveUpvalue(p.current, p, name); arg != -1 {
			getOp, setOp = OpGetUpvalue, OpSetUpvalue
		} else {
			arg = int(p.identifierConstant(name))
			getOp, setOp = OpGetGlobal, OpSetGlobal
		}
	}

	if canAssign && p.match(tokenEqual) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func syntheticToken(name string) token {
	return token{typ: tokenIdentifier, lexeme: name}
}

func (p *parser) this(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *parser) super(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'super' outside of a class.")
	} else if !p.class.hasSuperclass {
		p.error("Can't use 'super' in a class with no superclass.")
	}

	p.consume(tokenDot, "Expect '.' after 'super'.")
	p.consume(tokenIdentifier, "Expect superclass method name.")
	name := p.identifierConstant(p.prev)

	p.namedVariable(syntheticToken("this"), false)
	if p.match(tokenLeftParen) {
		argCount := p.argumentList()
		p.namedVariable(syntheticToken("super"), false)
		p.emitOp(OpSuperInvoke)
		p.emitByte(name)
		p.emitByte(argCount)
		return
	}
	p.namedVariable(syntheticToken("super"), false)
	p.emitOpByte(OpGetSuper, name)
}

func (p *parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitOpByte(OpCall, argCount)
}

func (p *parser) argumentList() byte {
	var count int
	if !p.check(tokenRightParen) {
		for {
			p.expression()
			if count == 255 {
				p.error("Can't have more than 255 arguments.")
			}
			count++
			if !p.match(tokenComma) {
				break
			}
		}
	}
	p.consume(tokenRightParen, "Expect ')' after arguments.")
	return byte(count)
}

func (p *parser) dot(canAssign bool) {
	p.consume(tokenIdentifier, "Expect property name after '.'.")
	name := p.identifierConstant(p.prev)

	switch {
	case canAssign && p.match(tokenEqual):
		p.expression()
		p.emitOpByte(OpSetProperty, name)
	case p.match(tokenLeftParen):
		argCount := p.argumentList()
		p.emitOp(OpInvoke)
		p.emitByte(name)
		p.emitByte(argCount)
	default:
		p.emitOpByte(OpGetProperty, name)
	}
}

// --- statements ----------------------------------------------------

func (p *parser) declaration() {
	switch {
	case p.match(tokenClass):
		p.classDeclaration()
	case p.match(tokenFun):
		p.funDeclaration()
	case p.match(tokenVar):
		p.varDeclaration()
	default:
		p.statement()
	}

	if p.panicking {
		p.synchronize()
	}
}

func (p *parser) statement() {
	switch {
	case p.match(tokenPrint):
		p.printStatement()
	case p.match(tokenFor):
		p.forStatement()
	case p.match(tokenIf):
		p.ifStatement()
	case p.match(tokenReturn):
		p.returnStatement()
	case p.match(tokenWhile):
		p.whileStatement()
	case p.match(tokenLeftBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *parser) printStatement() {
	p.expression()
	p.consume(tokenSemicolon, "Expect ';' after value.")
	p.emitOp(OpPrint)
}

func (p *parser) expressionStatement() {
	p.expression()
	p.consume(tokenSemicolon, "Expect ';' after expression.")
	p.emitOp(OpPop)
}

func (p *parser) block() {
	for !p.check(tokenRightBrace) && !p.check(tokenEOF) {
		p.declaration()
	}
	p.consume(tokenRightBrace, "Expect '}' after block.")
}

func (p *parser) ifStatement() {
	p.consume(tokenLeftParen, "Expect '(' after 'if'.")
	p.expression()
	p.consume(tokenRightParen, "Expect ')' after condition.")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emitOp(OpPop)

	if p.match(tokenElse) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *parser) whileStatement() {
	loopStart := p.chunk().Len()
	p.consume(tokenLeftParen, "Expect '(' after 'while'.")
	p.expression()
	p.consume(tokenRightParen, "Expect ')' after condition.")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(OpPop)
}

// forStatement desugars entirely into while's primitives: an optional
// initializer, a condition that defaults to `true`, an optional
// increment spliced in after the body via an extra jump/loop pair,
// exactly as clox's compiler.c does it.
func (p *parser) forStatement() {
	p.beginScope()
	p.consume(tokenLeftParen, "Expect '(' after 'for'.")

	switch {
	case p.match(tokenSemicolon):
		// no initializer
	case p.match(tokenVar):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := p.chunk().Len()
	exitJump := -1
	if !p.match(tokenSemicolon) {
		p.expression()
		p.consume(tokenSemicolon, "Expect ';' after loop condition.")
		exitJump = p.emitJump(OpJumpIfFalse)
		p.emitOp(OpPop)
	}

	if !p.match(tokenRightParen) {
		bodyJump := p.emitJump(OpJump)
		incrementStart := p.chunk().Len()
		p.expression()
		p.emitOp(OpPop)
		p.consume(tokenRightParen, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrementStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(OpPop)
	}

	p.endScope()
}

func (p *parser) returnStatement() {
	if p.current.fnType == funcTypeScript {
		p.error("Can't return from top-level code.")
	}
	if p.match(tokenSemicolon) {
		p.emitReturn()
		return
	}
	if p.current.fnType == funcTypeInitializer {
		p.error("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(tokenSemicolon, "Expect ';' after return value.")
	p.emitOp(OpReturn)
}

func (p *parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.match(tokenEqual) {
		p.expression()
	} else {
		p.emitOp(OpNil)
	}
	p.consume(tokenSemicolon, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	p.function(funcTypeFunction)
	p.defineVariable(global)
}

func (p *parser) function(fnType funcType) {
	name := p.prev.lexeme
	child := newFunctionCompiler(p.current, fnType)
	child.function.Name = p.vm.copyString(name)
	p.current = child
	p.vm.compiler = child

	p.beginScope()
	p.consume(tokenLeftParen, "Expect '(' after function name.")
	if !p.check(tokenRightParen) {
		for {
			p.current.function.Arity++
			maxParams := p.vm.cfg.GetInt("compiler.max_params")
			if p.current.function.Arity > maxParams {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := p.parseVariable("Expect parameter name.")
			p.defineVariable(constant)
			if !p.match(tokenComma) {
				break
			}
		}
	}
	p.consume(tokenRightParen, "Expect ')' after parameters.")
	p.consume(tokenLeftBrace, "Expect '{' before function body.")
	p.block()

	fn := p.endCompiler()
	upvalues := child.upvalues
	p.emitOpByte(OpClosure, p.makeConstant(ObjValue(fn)))
	for _, u := range upvalues {
		if u.isLocal {
			p.emitByte(1)
		} else {
			p.emitByte(0)
		}
		p.emitByte(byte(u.index))
	}
}

func (p *parser) method() {
	p.consume(tokenIdentifier, "Expect method name.")
	name := p.identifierConstant(p.prev)

	fnType := funcTypeMethod
	if p.prev.lexeme == "init" {
		fnType = funcTypeInitializer
	}
	p.function(fnType)
	p.emitOpByte(OpMethod, name)
}

func (p *parser) classDeclaration() {
	p.consume(tokenIdentifier, "Expect class name.")
	className := p.prev
	nameConstant := p.identifierConstant(className)
	p.declareVariable()

	p.emitOpByte(OpClass, nameConstant)
	p.defineVariable(nameConstant)

	cc := &classCompiler{enclosing: p.class}
	p.class = cc

	if p.match(tokenLess) {
		p.consume(tokenIdentifier, "Expect superclass name.")
		p.variable(false)
		if identifiersEqual(className, p.prev) {
			p.error("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal(syntheticToken("super"))
		p.defineVariable(0)

		p.namedVariable(className, false)
		p.emitOp(OpInherit)
		cc.hasSuperclass = true
	}

	p.namedVariable(className, false)
	p.consume(tokenLeftBrace, "Expect '{' before class body.")
	for !p.check(tokenRightBrace) && !p.check(tokenEOF) {
		p.method()
	}
	p.consume(tokenRightBrace, "Expect '}' after class body.")
	p.emitOp(OpPop)

	if cc.hasSuperclass {
		p.endScope()
	}
	p.class = p.class.enclosing
}
