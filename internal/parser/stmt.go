package parser

import (
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/lexer"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

func (p *Parser) parseBlockBody() ([]ast.Stmt, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var body []ast.Stmt
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return body, nil
}

// parseStmt parses one statement inside a function/closure body or block.
func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case lexer.LET:
		return p.parseLet(false)
	case lexer.FN:
		return p.parseFunctionDecl()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.IF:
		if p.peekIsLet() {
			return p.parseIfLet()
		}
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.MATCH:
		return p.parseMatch()
	case lexer.BREAK:
		pos := p.pos2()
		p.advance()
		if _, err := p.expect(lexer.SEMI); err != nil {
			return nil, err
		}
		return ast.NewBreak(pos), nil
	case lexer.CONTINUE:
		pos := p.pos2()
		p.advance()
		if _, err := p.expect(lexer.SEMI); err != nil {
			return nil, err
		}
		return ast.NewContinue(pos), nil
	case lexer.PASS:
		pos := p.pos2()
		p.advance()
		if _, err := p.expect(lexer.SEMI); err != nil {
			return nil, err
		}
		return ast.NewPass(pos), nil
	case lexer.LBRACE:
		pos := p.pos2()
		p.pushScope()
		body, err := p.parseBlockBody()
		p.popScope()
		if err != nil {
			return nil, err
		}
		return ast.NewBlock(pos, body), nil
	default:
		return p.parseExprOrUnwrapStmt()
	}
}

// peekIsLet reports whether the token right after the current 'if' is
// 'let', distinguishing an IfLet from an ordinary If without consuming
// anything.
func (p *Parser) peekIsLet() bool {
	return p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].Kind == lexer.LET
}

func (p *Parser) parseLet(global bool) (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'let'
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	var declared *types.Type
	if p.at(lexer.COLON) {
		p.advance()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		declared = &t
	}
	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	t := value.ResolvedType()
	if declared != nil {
		t = *declared
	}
	p.declareLocal(nameTok.Lit, t)
	return ast.NewLet(pos, global, nameTok.Lit, value, t), nil
}

// parseExprOrUnwrapStmt parses an expression used in statement position;
// `expr!` at statement level is lowered to ast.Unwrap rather than a Call to
// a postfix operator, matching spec §3's dedicated UNWRAP node.
func (p *Parser) parseExprOrUnwrapStmt() (ast.Stmt, error) {
	pos := p.pos2()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.BANG) {
		p.advance()
		if _, err := p.expect(lexer.SEMI); err != nil {
			return nil, err
		}
		return ast.NewUnwrap(pos, e), nil
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return ast.NewExpression(pos, e), nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'return'
	if p.at(lexer.SEMI) {
		p.advance()
		return ast.NewReturn(pos, nil), nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return ast.NewReturn(pos, value), nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'if'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.pushScope()
	then, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}

	var elifs []ast.ElifClause
	var els []ast.Stmt
	for p.at(lexer.ELIF) {
		p.advance()
		econd, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.pushScope()
		ebody, err := p.parseBlockBody()
		p.popScope()
		if err != nil {
			return nil, err
		}
		elifs = append(elifs, ast.ElifClause{Cond: econd, Body: ebody})
	}
	if p.at(lexer.ELSE) {
		p.advance()
		p.pushScope()
		els, err = p.parseBlockBody()
		p.popScope()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewIf(pos, cond, then, elifs, els), nil
}

func (p *Parser) parseIfLet() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'if'
	p.advance() // 'let'
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	p.pushScope()
	p.declareLocal(nameTok.Lit, elemTypeOf(value.ResolvedType()))
	then, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}

	var els []ast.Stmt
	if p.at(lexer.ELSE) {
		p.advance()
		p.pushScope()
		els, err = p.parseBlockBody()
		p.popScope()
		if err != nil {
			return nil, err
		}
	}
	return ast.NewIfLet(pos, nameTok.Lit, value, then, els), nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'while'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.pushScope()
	body, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}
	return ast.NewWhile(pos, cond, body), nil
}

// parseFor disambiguates the three loop forms on the token right after
// 'for': '(' starts a C-style for, otherwise an identifier followed by
// 'in' starts either a foreach or a range loop, told apart by whether a
// '..'/'..=' follows the iterable/start expression.
func (p *Parser) parseFor() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'for'

	if p.at(lexer.LPAREN) {
		return p.parseCFor(pos)
	}

	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	start, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if p.at(lexer.DOTDOT) || p.at(lexer.DOTDOTEQ) {
		inclusive := p.at(lexer.DOTDOTEQ)
		p.advance()
		end, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		var step ast.Expr
		if p.at(lexer.STEP) {
			p.advance()
			step, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		p.pushScope()
		p.declareLocal(nameTok.Lit, types.Int())
		body, err := p.parseBlockBody()
		p.popScope()
		if err != nil {
			return nil, err
		}
		return ast.NewForRange(pos, nameTok.Lit, start, end, step, inclusive, body), nil
	}

	p.pushScope()
	p.declareLocal(nameTok.Lit, elemTypeOf(start.ResolvedType()))
	body, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}
	return ast.NewForeach(pos, nameTok.Lit, start, body), nil
}

// parseCFor parses the C-style `for (init; cond; post) { body }` form.
func (p *Parser) parseCFor(pos token.Position) (ast.Stmt, error) {
	p.advance() // '('
	p.pushScope()

	var init ast.Stmt
	if !p.at(lexer.SEMI) {
		var err error
		init, err = p.parseForClauseStmt()
		if err != nil {
			p.popScope()
			return nil, err
		}
	} else {
		p.advance()
	}

	var cond ast.Expr
	if !p.at(lexer.SEMI) {
		var err error
		cond, err = p.parseExpr()
		if err != nil {
			p.popScope()
			return nil, err
		}
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		p.popScope()
		return nil, err
	}

	var post ast.Stmt
	if !p.at(lexer.RPAREN) {
		var err error
		post, err = p.parseForClauseExprStmt()
		if err != nil {
			p.popScope()
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		p.popScope()
		return nil, err
	}

	body, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}
	return ast.NewFor(pos, init, cond, post, body), nil
}

// parseForClauseStmt parses a for-loop init clause: either `let ...;` or a
// bare expression statement, both semicolon-terminated.
func (p *Parser) parseForClauseStmt() (ast.Stmt, error) {
	if p.at(lexer.LET) {
		return p.parseLet(false)
	}
	pos := p.pos2()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.SEMI); err != nil {
		return nil, err
	}
	return ast.NewExpression(pos, e), nil
}

// parseForClauseExprStmt parses a for-loop post clause: a bare expression
// with no terminating semicolon (the loop's ')' follows directly).
func (p *Parser) parseForClauseExprStmt() (ast.Stmt, error) {
	pos := p.pos2()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.NewExpression(pos, e), nil
}

// parseMatch parses `match Subject { Arm -> { ... } Arm(bind) -> { ... }
// default -> { ... } }` (spec §4.2 "Match" dispatches on the enum tag
// pushed by the arm's own synthetic constructor).
func (p *Parser) parseMatch() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'match'
	subject, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}

	var arms []ast.MatchArm
	var def []ast.Stmt
	for !p.at(lexer.RBRACE) {
		if p.at(lexer.DEFAULT) {
			p.advance()
			if _, err := p.expect(lexer.ARROW); err != nil {
				return nil, err
			}
			p.pushScope()
			def, err = p.parseBlockBody()
			p.popScope()
			if err != nil {
				return nil, err
			}
			continue
		}

		tagTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		var bind string
		if p.at(lexer.LPAREN) {
			p.advance()
			bindTok, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			bind = bindTok.Lit
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.ARROW); err != nil {
			return nil, err
		}

		p.pushScope()
		if bind != "" {
			payload := p.armPayld[tagTok.Lit]
			t := types.Any()
			if payload != nil {
				t = *payload
			}
			p.declareLocal(bind, t)
		}
		body, err := p.parseBlockBody()
		p.popScope()
		if err != nil {
			return nil, err
		}
		arms = append(arms, ast.MatchArm{Tag: tagTok.Lit, Bind: bind, Body: body})
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return ast.NewMatch(pos, subject, arms, def), nil
}

// parseFunctionDecl parses a nested named function declaration (spec §4.3:
// named functions never capture; a nested function needing a free variable
// must be written as a closure instead).
func (p *Parser) parseFunctionDecl() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'fn'
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	ret := types.Void()
	if p.at(lexer.ARROW) {
		p.advance()
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
	p.declareLocal(nameTok.Lit, ft)

	p.pushScope()
	for _, prm := range params {
		p.declareLocal(prm.Name, prm.Ttype)
	}
	body, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}
	return ast.NewFunction(pos, nameTok.Lit, params, body, ft), nil
}
