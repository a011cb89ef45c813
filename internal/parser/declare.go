package parser

import (
	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/lexer"
	"github.com/ash-lang/ash/internal/types"
)

// declarePass walks the whole top-level token stream once, registering
// every function/struct/enum header so the real parse (pass two) can
// resolve forward references and mutually recursive calls. Bodies are
// skipped by brace-balance counting; declarePass never builds AST nodes.
func (p *Parser) declarePass() error {
	for !p.at(lexer.EOF) {
		switch p.cur().Kind {
		case lexer.FN:
			if err := p.declareFunc(); err != nil {
				return err
			}
		case lexer.STRUCT:
			if err := p.declareStruct(); err != nil {
				return err
			}
		case lexer.ENUM:
			if err := p.declareEnum(); err != nil {
				return err
			}
		case lexer.LET:
			// Globals are declared lazily during the real pass, once their
			// initialiser's type is known; the signature pass only needs to
			// skip past them.
			p.skipSimpleStmt()
		default:
			p.skipSimpleStmt()
		}
	}
	return nil
}

// skipSimpleStmt advances past one top-level statement it doesn't need to
// register, to keep declarePass resilient to whatever else appears at top
// level (expression statements, for instance).
func (p *Parser) skipSimpleStmt() {
	if p.at(lexer.LBRACE) {
		p.skipBlock()
		return
	}
	for !p.at(lexer.SEMI) && !p.at(lexer.EOF) {
		if p.at(lexer.LBRACE) {
			p.skipBlock()
			continue
		}
		p.advance()
	}
	if p.at(lexer.SEMI) {
		p.advance()
	}
}

// skipBlock consumes a balanced '{' ... '}' group, assuming the current
// token is '{'.
func (p *Parser) skipBlock() {
	depth := 0
	for {
		switch p.cur().Kind {
		case lexer.LBRACE:
			depth++
		case lexer.RBRACE:
			depth--
			p.advance()
			if depth == 0 {
				return
			}
			continue
		case lexer.EOF:
			return
		}
		p.advance()
	}
}

func (p *Parser) declareFunc() error {
	p.advance() // 'fn'
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return err
	}
	params, err := p.parseParamList()
	if err != nil {
		return err
	}
	ret := types.Void()
	if p.at(lexer.ARROW) {
		p.advance()
		ret, err = p.parseType()
		if err != nil {
			return err
		}
	}
	paramTypes := make([]types.Type, len(params))
	for i, prm := range params {
		paramTypes[i] = prm.Ttype
	}
	p.funcs[name.Lit] = funcSig{ttype: types.Function(paramTypes, ret)}

	if p.at(lexer.LBRACE) {
		p.skipBlock()
	}
	return nil
}

// parseParamList parses '(' [IDENT ':' Type {',' IDENT ':' Type}] ')'.
func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.at(lexer.RPAREN) {
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
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) declareStruct() error {
	p.advance() // 'struct'
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return err
	}
	var fields []ast.Param
	for !p.at(lexer.RBRACE) {
		fname, err := p.expect(lexer.IDENT)
		if err != nil {
			return err
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return err
		}
		t, err := p.parseType()
		if err != nil {
			return err
		}
		fields = append(fields, ast.Param{Name: fname.Lit, Ttype: t})
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return err
	}
	p.structs[name.Lit] = fields
	return nil
}

func (p *Parser) declareEnum() error {
	p.advance() // 'enum'
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return err
	}
	info := &enumInfo{arms: make(map[string]*types.Type)}
	for !p.at(lexer.RBRACE) {
		armTok, err := p.expect(lexer.IDENT)
		if err != nil {
			return err
		}
		var payload *types.Type
		if p.at(lexer.LPAREN) {
			p.advance()
			t, err := p.parseType()
			if err != nil {
				return err
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return err
			}
			payload = &t
		}
		info.arms[armTok.Lit] = payload
		p.armEnum[armTok.Lit] = name.Lit
		p.armPayld[armTok.Lit] = payload
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return err
	}
	p.enums[name.Lit] = info
	return nil
}
