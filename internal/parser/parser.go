// Package parser is a minimal but real recursive-descent front end: it
// turns source text into the typed tree internal/ast defines, resolving
// every identifier and assigning every expression its types.Type as it
// goes, so internal/codegen never has to infer anything (spec §4.2, "every
// Expr carries its resolved Type, already computed by whatever front end
// built the tree").
//
// Its grammar is a concrete syntax invented for this toolchain — the
// distilled spec this repo implements treats "the lexer and parser" as
// external collaborators and only fixes the typed-AST shape they must
// produce, not their source syntax. The two-pass structure (a signature
// pass over top-level declarations before the real parse) mirrors
// internal/codegen's own two-pass function compilation: mutually
// recursive top-level functions must resolve regardless of declaration
// order, so every function/struct/enum header is registered before any
// body is type-checked.
package parser

import (
	"strconv"

	"github.com/ash-lang/ash/internal/ast"
	"github.com/ash-lang/ash/internal/diag"
	"github.com/ash-lang/ash/internal/lexer"
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// funcSig is a registered top-level function signature.
type funcSig struct {
	ttype types.Type
}

// enumInfo records one enum declaration's arms, keyed by enum name.
type enumInfo struct {
	arms map[string]*types.Type // arm name -> payload type (nil if none)
}

// Parser holds the full token stream for file plus the declaration tables
// built by the signature pass.
type Parser struct {
	file   string
	tokens []lexer.Token

	pos int

	funcs    map[string]funcSig          // bare function name -> signature (no source-level overloading)
	structs  map[string][]ast.Param      // struct name -> fields, declaration order
	enums    map[string]*enumInfo        // enum name -> arms
	armEnum  map[string]string           // enum arm name -> owning enum name
	armPayld map[string]*types.Type      // enum arm name -> payload type

	scopes []map[string]types.Type // local variable type scopes, innermost last
}

// Parse lexes and parses a whole source file into the statement list
// internal/codegen's Compiler.Compile consumes.
func Parse(file, src string) ([]ast.Stmt, error) {
	toks, err := tokenize(file, src)
	if err != nil {
		return nil, err
	}

	p := &Parser{
		file:     file,
		tokens:   toks,
		funcs:    make(map[string]funcSig),
		structs:  make(map[string][]ast.Param),
		enums:    make(map[string]*enumInfo),
		armEnum:  make(map[string]string),
		armPayld: make(map[string]*types.Type),
	}
	if err := p.declarePass(); err != nil {
		return nil, err
	}
	p.pos = 0
	p.scopes = nil
	return p.parseProgram()
}

func tokenize(file, src string) ([]lexer.Token, error) {
	lx := lexer.New(file, src)
	var toks []lexer.Token
	for {
		t, err := lx.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.Kind == lexer.EOF {
			return toks, nil
		}
	}
}

// ---- token stream helpers ----

func (p *Parser) cur() lexer.Token  { return p.tokens[p.pos] }
func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() lexer.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) pos2() token.Position { return p.cur().Pos }

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	if !p.at(k) {
		return lexer.Token{}, p.errf("expected %s, found %s", k, p.cur().Kind)
	}
	return p.advance(), nil
}

func (p *Parser) errf(format string, args ...interface{}) error {
	return diag.New(diag.KindSyntax, p.pos2(), format, args...)
}

// ---- scope helpers (type-checking only; codegen redoes capture analysis) ----

func (p *Parser) pushScope()         { p.scopes = append(p.scopes, make(map[string]types.Type)) }
func (p *Parser) popScope()          { p.scopes = p.scopes[:len(p.scopes)-1] }
func (p *Parser) declareLocal(name string, t types.Type) {
	p.scopes[len(p.scopes)-1][name] = t
}

func (p *Parser) lookupLocal(name string) (types.Type, bool) {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if t, ok := p.scopes[i][name]; ok {
			return t, true
		}
	}
	return types.Type{}, false
}

// ---- types ----

func (p *Parser) parseType() (types.Type, error) {
	switch {
	case p.at(lexer.LBRACKET):
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return types.Type{}, err
		}
		if _, err := p.expect(lexer.RBRACKET); err != nil {
			return types.Type{}, err
		}
		return types.List(elem), nil
	case p.at(lexer.IDENT):
		name := p.advance().Lit
		switch name {
		case "Int":
			return types.Int(), nil
		case "Float":
			return types.Float(), nil
		case "Bool":
			return types.Bool(), nil
		case "Char":
			return types.Char(), nil
		case "String":
			return types.Str(), nil
		case "Void":
			return types.Void(), nil
		case "Any":
			return types.Any(), nil
		case "Option":
			if _, err := p.expect(lexer.LPAREN); err != nil {
				return types.Type{}, err
			}
			elem, err := p.parseType()
			if err != nil {
				return types.Type{}, err
			}
			if _, err := p.expect(lexer.RPAREN); err != nil {
				return types.Type{}, err
			}
			return types.Option(elem), nil
		default:
			return types.Custom(name, nil), nil
		}
	default:
		return types.Type{}, p.errf("expected a type, found %s", p.cur().Kind)
	}
}

func parseIntLit(lit string) (int64, error) {
	return strconv.ParseInt(lit, 10, 64)
}

func parseFloatLit(lit string) (float64, error) {
	return strconv.ParseFloat(lit, 64)
}
