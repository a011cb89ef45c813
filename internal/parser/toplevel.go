package parser

import (
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/lexer"
	"github.com/ash-lang/ash/internal/types"
)

// parseProgram is pass two: the real, type-checking parse over the whole
// token stream, now that declarePass has registered every top-level
// function/struct/enum signature.
func (p *Parser) parseProgram() ([]ast.Stmt, error) {
	p.pushScope()
	defer p.popScope()

	var prog []ast.Stmt
	for !p.at(lexer.EOF) {
		s, err := p.parseTopLevelStmt()
		if err != nil {
			return nil, err
		}
		prog = append(prog, s)
	}
	return prog, nil
}

func (p *Parser) parseTopLevelStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case lexer.LET:
		return p.parseLet(true)
	case lexer.FN:
		return p.parseTopLevelFunc()
	case lexer.STRUCT:
		return p.parseStructDecl()
	case lexer.ENUM:
		return p.parseEnumDecl()
	default:
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
}

func (p *Parser) parseTopLevelFunc() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'fn'
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	sig, ok := p.funcs[nameTok.Lit]
	if !ok {
		return nil, diag.New(diag.KindCompile, pos, "internal error: %q missing from signature table", nameTok.Lit)
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.ARROW) {
		p.advance()
		if _, err := p.parseType(); err != nil {
			return nil, err
		}
	}

	p.pushScope()
	for _, prm := range params {
		p.declareLocal(prm.Name, prm.Ttype)
	}
	body, err := p.parseBlockBody()
	p.popScope()
	if err != nil {
		return nil, err
	}
	return ast.NewFunction(pos, nameTok.Lit, params, body, sig.ttype), nil
}

func (p *Parser) parseStructDecl() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'struct'
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	fields := p.structs[nameTok.Lit]
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	for !p.at(lexer.RBRACE) {
		p.advance()
	}
	p.advance() // '}'
	return ast.NewStruct(pos, nameTok.Lit, fields), nil
}

func (p *Parser) parseEnumDecl() (ast.Stmt, error) {
	pos := p.pos2()
	p.advance() // 'enum'
	nameTok, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	info := p.enums[nameTok.Lit]
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var arms []ast.EnumArm
	// Re-derive arm order from the token stream (map iteration order is
	// unspecified) while skipping the tokens themselves, already recorded
	// by declareEnum.
	for !p.at(lexer.RBRACE) {
		armTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		var payload *types.Type
		if info != nil {
			payload = info.arms[armTok.Lit]
		}
		if p.at(lexer.LPAREN) {
			p.advance()
			if _, err := p.parseType(); err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return nil, err
			}
		}
		arms = append(arms, ast.EnumArm{Name: armTok.Lit, Payload: payload})
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return ast.NewEnum(pos, nameTok.Lit, arms), nil
}
