package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

func TestNewLiteralCarriesPositionAndType(t *testing.T) {
	pos := token.Position{Line: 3, Column: 5}
	lit := NewLiteral(pos, types.Int(), int64(42))
	assert.Equal(t, pos, lit.Pos())
	assert.True(t, types.Equal(types.Int(), lit.ResolvedType()))
	assert.Equal(t, int64(42), lit.Value)
}

func TestNewIdentifierCarriesName(t *testing.T) {
	id := NewIdentifier(token.Position{}, types.Str(), "name")
	assert.Equal(t, "name", id.Name)
	assert.True(t, types.Equal(types.Str(), id.ResolvedType()))
}

func TestStmtNodesSatisfyStmtInterface(t *testing.T) {
	var stmts []Stmt
	stmts = append(stmts,
		&Let{Identifier: "x"},
		&Function{Identifier: "f"},
		&Struct{Name: "Point"},
		&Enum{Name: "Color"},
		&Return{},
		&Expression{},
		&If{},
		&While{},
		&For{},
		&Foreach{},
		&ForRange{},
		&Block{},
		&Match{},
		&Unwrap{},
		&IfLet{},
		&Break{},
		&Continue{},
		&Pass{},
	)
	assert.Len(t, stmts, 18)
}

func newTyped(p token.Position, t types.Type) typedBase {
	return typedBase{base{p}, t}
}

func TestExprNodesSatisfyExprInterfaceAndCarryType(t *testing.T) {
	boolT := types.Bool()
	tb := newTyped(token.Position{}, boolT)
	exprs := []Expr{
		&Literal{tb, true},
		&Binop{typedBase: tb, Op: "&&"},
		&Unary{typedBase: tb, Op: "!"},
		&Call{typedBase: tb, Callee: "f"},
		&Closure{typedBase: tb},
		&ListConstructor{typedBase: tb},
		&ListCompConstructor{typedBase: tb},
		&Field{typedBase: tb, Name: "x"},
		&Indexed{typedBase: tb},
		&Sliced{typedBase: tb},
		&StoreExpr{typedBase: tb},
		&Identifier{typedBase: tb, Name: "x"},
	}
	for _, e := range exprs {
		assert.True(t, types.Equal(boolT, e.ResolvedType()))
	}
}

func TestBasePosReturnsEmbeddedPosition(t *testing.T) {
	pos := token.Position{Line: 7, Column: 1}
	b := base{pos}
	assert.Equal(t, pos, b.Pos())
}
