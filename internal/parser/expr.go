package parser

import (
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/lexer"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// parseExpr parses a full expression, including assignment, which binds
// loosest of all (spec §4.2's StoreExpr is itself an expression so it can
// be used as an ordinary statement via Expression).
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expr, error) {
	lhs, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.at(lexer.ASSIGN) {
		return lhs, nil
	}
	pos := p.pos2()
	switch lhs.(type) {
	case *ast.Identifier, *ast.Field, *ast.Indexed:
	default:
		return nil, p.errf("invalid assignment target")
	}
	p.advance()
	rhs, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return ast.NewStoreExpr(pos, lhs.ResolvedType(), lhs, rhs), nil
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.OR) {
		pos := p.pos2()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinop(pos, types.Bool(), "||", left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.AND) {
		pos := p.pos2()
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinop(pos, types.Bool(), "&&", left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.at(lexer.NOT) {
		pos := p.pos2()
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, types.Bool(), "!", operand), nil
	}
	return p.parseComparison()
}

var comparisonOps = map[lexer.Kind]string{
	lexer.EQ: "==", lexer.NE: "!=",
	lexer.LT: "<", lexer.LE: "<=", lexer.GT: ">", lexer.GE: ">=",
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.cur().Kind]; ok {
		pos := p.pos2()
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinop(pos, types.Bool(), op, left, right)
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.PLUS) || p.at(lexer.MINUS) {
		op := "+"
		if p.at(lexer.MINUS) {
			op = "-"
		}
		pos := p.pos2()
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinop(pos, left.ResolvedType(), op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(lexer.STAR) || p.at(lexer.SLASH) || p.at(lexer.PERCENT) {
		var op string
		switch p.cur().Kind {
		case lexer.STAR:
			op = "*"
		case lexer.SLASH:
			op = "/"
		case lexer.PERCENT:
			op = "%"
		}
		pos := p.pos2()
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinop(pos, left.ResolvedType(), op, left, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.at(lexer.MINUS) {
		pos := p.pos2()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, operand.ResolvedType(), "-", operand), nil
	}
	if p.at(lexer.BANG) {
		pos := p.pos2()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, types.Bool(), "!", operand), nil
	}
	return p.parsePostfix()
}

// parsePostfix handles the left-recursive suffixes: call, index, slice and
// field access. A statement-level postfix '!' (unwrap) is parsed by
// parseExprOrUnwrapStmt.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case lexer.LPAREN:
			expr, err = p.parseCallSuffix(expr)
		case lexer.DOT:
			expr, err = p.parseFieldSuffix(expr)
		case lexer.LBRACKET:
			expr, err = p.parseIndexOrSliceSuffix(expr)
		default:
			return expr, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for !p.at(lexer.RPAREN) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// builtinFuncs are the natives native.Standard() registers that source code
// may call directly by their unmangled name, resolved the same way a
// top-level function is: codegen's compileCall falls back to its native
// registry by the exact mangled name this table and types.Mangle produce
// together (e.g. "println" on a String argument mangles to
// "println_String", matching the registry entry). list_len is deliberately
// absent: it's an implementation detail of indexing/foreach/comprehension
// lowering, not a function this language's programs call directly.
var builtinFuncs = map[string]types.Type{
	"println":    types.Function([]types.Type{types.Str()}, types.Void()),
	"uuid":       types.Function(nil, types.Str()),
	"heap_stats": types.Function(nil, types.Str()),
}

// parseCallSuffix resolves the callee the way compileCall expects: a known
// top-level function/constructor/builtin name becomes a pre-mangled Callee
// string with Target nil; anything else (a closure held in a local,
// parameter, or nested expression) is called through Target (spec §4.2
// DCALL vs CALL).
func (p *Parser) parseCallSuffix(callee ast.Expr) (ast.Expr, error) {
	pos := p.pos2()
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}

	ident, isIdent := callee.(*ast.Identifier)
	if isIdent {
		if _, isLocal := p.lookupLocal(ident.Name); !isLocal {
			if sig, ok := p.funcs[ident.Name]; ok {
				mangled := types.Mangle(ident.Name, sig.ttype.Params)
				return ast.NewCall(pos, *sig.ttype.Ret, mangled, nil, args), nil
			}
			if _, ok := p.structs[ident.Name]; ok {
				return ast.NewCall(pos, types.Custom(ident.Name, nil), ident.Name, nil, args), nil
			}
			if enumName, ok := p.armEnum[ident.Name]; ok {
				return ast.NewCall(pos, types.Custom(enumName, nil), ident.Name, nil, args), nil
			}
			if bt, ok := builtinFuncs[ident.Name]; ok {
				mangled := types.Mangle(ident.Name, bt.Params)
				return ast.NewCall(pos, *bt.Ret, mangled, nil, args), nil
			}
			return nil, p.errf("call to unknown function or constructor %q", ident.Name)
		}
	}

	// Any other callee (a local/parameter closure value, or a more general
	// expression) is invoked through Target; its type's Ret gives the call
	// its resolved type.
	t := callee.ResolvedType()
	ret := types.Void()
	if t.Kind == types.KindFunction && t.Ret != nil {
		ret = *t.Ret
	}
	return ast.NewCall(pos, ret, "", callee, args), nil
}

func (p *Parser) parseFieldSuffix(target ast.Expr) (ast.Expr, error) {
	pos := p.pos2()
	p.advance() // '.'
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	structName := target.ResolvedType().Name
	fields := p.structs[structName]
	var ft types.Type = types.Any()
	for _, f := range fields {
		if f.Name == nameTok.Lit {
			ft = f.Ttype
			break
		}
	}
	return ast.NewField(pos, ft, target, nameTok.Lit), nil
}

func (p *Parser) parseIndexOrSliceSuffix(target ast.Expr) (ast.Expr, error) {
	pos := p.pos2()
	p.advance() // '['
	var start ast.Expr
	var err error
	if !p.at(lexer.COLON) {
		start, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if p.at(lexer.COLON) {
		p.advance()
		var end ast.Expr
		if !p.at(lexer.RBRACKET) {
			end, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return nil, err
		}
		return ast.NewSliced(pos, target.ResolvedType(), target, start, end), nil
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return ast.NewIndexed(pos, elemTypeOf(target.ResolvedType()), target, start), nil
}

func elemTypeOf(t types.Type) types.Type {
	if t.Kind == types.KindList && t.Elem != nil {
		return *t.Elem
	}
	return types.Any()
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.INT:
		p.advance()
		v, err := parseIntLit(tok.Lit)
		if err != nil {
			return nil, p.errf("invalid integer literal %q", tok.Lit)
		}
		return ast.NewLiteral(tok.Pos, types.Int(), v), nil
	case lexer.FLOAT:
		p.advance()
		v, err := parseFloatLit(tok.Lit)
		if err != nil {
			return nil, p.errf("invalid float literal %q", tok.Lit)
		}
		return ast.NewLiteral(tok.Pos, types.Float(), v), nil
	case lexer.STRING:
		p.advance()
		return ast.NewLiteral(tok.Pos, types.Str(), tok.Lit), nil
	case lexer.CHAR:
		p.advance()
		return ast.NewLiteral(tok.Pos, types.Char(), []rune(tok.Lit)[0]), nil
	case lexer.TRUE:
		p.advance()
		return ast.NewLiteral(tok.Pos, types.Bool(), true), nil
	case lexer.FALSE:
		p.advance()
		return ast.NewLiteral(tok.Pos, types.Bool(), false), nil
	case lexer.NONE:
		p.advance()
		return ast.NewLiteral(tok.Pos, types.Option(types.Any()), nil), nil
	case lexer.LPAREN:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.LBRACKET:
		return p.parseListLiteral()
	case lexer.PIPE:
		return p.parseClosure()
	case lexer.IDENT:
		p.advance()
		return p.identifierExpr(tok)
	default:
		return nil, p.errf("unexpected token %s in expression", tok.Kind)
	}
}

// identifierExpr resolves a bare name reference to its type: a local
// (variable, parameter or capture), otherwise a top-level function or
// constructor referenced as a first-class value.
func (p *Parser) identifierExpr(tok lexer.Token) (ast.Expr, error) {
	if t, ok := p.lookupLocal(tok.Lit); ok {
		return ast.NewIdentifier(tok.Pos, t, tok.Lit), nil
	}
	if sig, ok := p.funcs[tok.Lit]; ok {
		return ast.NewIdentifier(tok.Pos, sig.ttype, tok.Lit), nil
	}
	if fields, ok := p.structs[tok.Lit]; ok {
		paramTypes := make([]types.Type, len(fields))
		for i, f := range fields {
			paramTypes[i] = f.Ttype
		}
		ctor := types.Function(paramTypes, types.Custom(tok.Lit, nil))
		return ast.NewIdentifier(tok.Pos, ctor, tok.Lit), nil
	}
	if enumName, ok := p.armEnum[tok.Lit]; ok {
		var params []types.Type
		if payload := p.armPayld[tok.Lit]; payload != nil {
			params = []types.Type{*payload}
		}
		ctor := types.Function(params, types.Custom(enumName, nil))
		return ast.NewIdentifier(tok.Pos, ctor, tok.Lit), nil
	}
	if bt, ok := builtinFuncs[tok.Lit]; ok {
		return ast.NewIdentifier(tok.Pos, bt, tok.Lit), nil
	}
	return nil, p.errf("unknown identifier %q", tok.Lit)
}

// parseListLiteral parses either `[e1, e2, ...]` or the comprehension form
// `[for Var in Iterable if Cond: Element]` (spec §9 supplemented feature).
// The "for" clause comes first, deliberately: Element may reference Var, so
// Var's type (derived from Iterable's element type) must already be in
// scope by the time Element is parsed, and this order needs no
// backtracking to achieve that.
func (p *Parser) parseListLiteral() (ast.Expr, error) {
	pos := p.pos2()
	p.advance() // '['
	if p.at(lexer.FOR) {
		return p.parseListComp(pos)
	}
	if p.at(lexer.RBRACKET) {
		p.advance()
		return ast.NewListConstructor(pos, types.List(types.Any()), nil), nil
	}

	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	elems := []ast.Expr{first}
	for p.at(lexer.COMMA) {
		p.advance()
		if p.at(lexer.RBRACKET) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	elemType := types.Any()
	if len(elems) > 0 {
		elemType = elems[0].ResolvedType()
	}
	return ast.NewListConstructor(pos, types.List(elemType), elems), nil
}

// parseListComp parses `for Var in Iterable [if Cond]: Element]` once the
// leading '[' has already been consumed.
func (p *Parser) parseListComp(pos token.Position) (ast.Expr, error) {
	p.advance() // 'for'
	varTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	p.pushScope()
	defer p.popScope()
	p.declareLocal(varTok.Lit, elemTypeOf(iterable.ResolvedType()))

	var cond ast.Expr
	if p.at(lexer.IF) {
		p.advance()
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.COLON); err != nil {
		return nil, err
	}
	elem, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBRACKET); err != nil {
		return nil, err
	}
	return ast.NewListCompConstructor(pos, types.List(elem.ResolvedType()), elem, varTok.Lit, iterable, cond), nil
}

// parseClosure parses `|param: Type, ...| -> Type { body }`.
func (p *Parser) parseClosure() (ast.Expr, error) {
	pos := p.pos2()
	p.advance() // '|'
	var params []ast.Param
	for !p.at(lexer.PIPE) {
		nameTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: nameTok.Lit, Ttype: t})
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.PIPE); err != nil {
		return nil, err
	}
	ret := types.Void()
	if p.at(lexer.ARROW) {
		p.advance()
		var err error
		ret, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	paramTypes := make([]types.Type, len(params))
	for i, prm := range params {
		paramTypes[i] = prm.Ttype
	}
	ft := types.Function(paramTypes, ret)

	p.pushScope()
	for _, prm := range params {
		p.declareLocal(prm.Name, prm.Ttype)
	}
	body, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}
	return ast.NewClosure(pos, ft, params, body), nil
}
