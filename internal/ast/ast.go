// Package ast defines the typed abstract syntax tree consumed by the
// codegen package (spec §6, "AST consumed"). The lexer and parser that
// produce it are external collaborators to the core pipeline; ast only
// fixes the shape they must agree on.
//
// Every Expr carries its resolved Type, already computed by whatever
// front end built the tree — codegen does not infer types, it only
// dispatches on them (spec §4.2).
package ast

import (
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// Node is implemented by every statement and expression node.
type Node interface {
	Pos() token.Position
}

// Stmt is implemented by every statement node listed in spec §6.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression node listed in spec §6. Every
// expression carries its resolved type.
type Expr interface {
	Node
	exprNode()
	ResolvedType() types.Type
}

// base embeds a position in every node so concrete types need not repeat
// Pos() boilerplate.
type base struct{ P token.Position }

func (b base) Pos() token.Position { return b.P }

// typedBase additionally carries a resolved type, shared by every Expr.
type typedBase struct {
	base
	T types.Type
}

func (t typedBase) ResolvedType() types.Type { return t.T }

// ---- Statements ----

type (
	// Let binds expr's value to identifier, either as a global (top-level) or
	// local declaration.
	Let struct {
		base
		Global     bool
		Identifier string
		Expr       Expr
		Ttype      types.Type
	}

	// Function declares a named function. Captures lists the free variables
	// resolved during codegen (populated by the front end's resolver pass,
	// or discovered on the fly by codegen itself — see spec §4.3).
	Function struct {
		base
		Identifier string
		Parameters []Param
		Body       []Stmt
		Captures   []string
		Ttype      types.Type // Function type: params + return
	}

	// Param is a single formal parameter.
	Param struct {
		Name  string
		Ttype types.Type
	}

	// Struct declares a product type with named, typed fields.
	Struct struct {
		base
		Name   string
		Fields []Param
	}

	// Enum declares a sum type; each arm optionally carries one payload type.
	Enum struct {
		base
		Name string
		Arms []EnumArm
	}

	// EnumArm is one variant of an Enum declaration.
	EnumArm struct {
		Name    string
		Payload *types.Type // nil if the arm carries no payload
	}

	Return struct {
		base
		Value Expr // nil for a bare `return`
	}

	// Expression wraps an expression used in statement position (its value,
	// if any, is discarded).
	Expression struct {
		base
		Expr Expr
	}

	If struct {
		base
		Cond Expr
		Then []Stmt
		Elif []ElifClause
		Else []Stmt // nil if no else clause
	}

	ElifClause struct {
		Cond Expr
		Body []Stmt
	}

	While struct {
		base
		Cond Expr
		Body []Stmt
	}

	// For is the C-style three-part for loop.
	For struct {
		base
		Init Stmt // may be nil
		Cond Expr // may be nil
		Post Stmt // may be nil
		Body []Stmt
	}

	// Foreach iterates the elements of a list.
	Foreach struct {
		base
		Identifier string
		Iterable   Expr
		Body       []Stmt
	}

	// ForRange iterates an inclusive or exclusive integer range with an
	// optional step.
	ForRange struct {
		base
		Identifier string
		Start      Expr
		End        Expr
		Step       Expr // nil implies 1
		Inclusive  bool
		Body       []Stmt
	}

	Block struct {
		base
		Body []Stmt
	}

	Match struct {
		base
		Subject Expr
		Arms    []MatchArm
		Default []Stmt // nil if no default arm
	}

	MatchArm struct {
		Tag     string
		Bind    string // identifier bound to the payload, "" if unused
		Body    []Stmt
	}

	// Unwrap forcibly unwraps an Option-typed expression, aborting with a
	// runtime error on None (spec §3 UNWRAP, §7).
	Unwrap struct {
		base
		Expr Expr
	}

	// IfLet binds the payload of a Some(...) value into a new scope.
	IfLet struct {
		base
		Identifier string
		Expr       Expr
		Then       []Stmt
		Else       []Stmt
	}

	Break    struct{ base }
	Continue struct{ base }
	Pass     struct{ base }
)

func (*Let) stmtNode()        {}
func (*Function) stmtNode()   {}
func (*Struct) stmtNode()     {}
func (*Enum) stmtNode()       {}
func (*Return) stmtNode()     {}
func (*Expression) stmtNode() {}
func (*If) stmtNode()         {}
func (*While) stmtNode()      {}
func (*For) stmtNode()        {}
func (*Foreach) stmtNode()    {}
func (*ForRange) stmtNode()   {}
func (*Block) stmtNode()      {}
func (*Match) stmtNode()      {}
func (*Unwrap) stmtNode()     {}
func (*IfLet) stmtNode()      {}
func (*Break) stmtNode()      {}
func (*Continue) stmtNode()   {}
func (*Pass) stmtNode()       {}

// ---- Expressions ----

type (
	// Literal is a constant value of one of Int, Float, Bool, Char, String or
	// None.
	Literal struct {
		typedBase
		Value interface{}
	}

	Binop struct {
		typedBase
		Op          string
		Left, Right Expr
	}

	Unary struct {
		typedBase
		Op      string
		Operand Expr
	}

	// Call invokes Callee (an identifier or any expression evaluating to a
	// function/closure) with Args.
	Call struct {
		typedBase
		Callee string // resolved callee name (monomorphised or bare); "" if Target is set
		Target Expr   // set when the callee is not a simple identifier
		Args   []Expr
	}

	// Closure is a function literal; Captures is filled by codegen's capture
	// discovery during compilation of Body (spec §4.3).
	Closure struct {
		typedBase
		Parameters []Param
		Body       []Stmt
		Captures   []string
	}

	ListConstructor struct {
		typedBase
		Elements []Expr
	}

	// ListCompConstructor is a list comprehension: `[for Var in Iterable
	// if Cond: Element]`.
	ListCompConstructor struct {
		typedBase
		Element  Expr
		Var      string
		Iterable Expr
		Cond     Expr // nil if unconditional
	}

	// Field accesses a named field of a struct-typed expression.
	Field struct {
		typedBase
		Target Expr
		Name   string
	}

	Indexed struct {
		typedBase
		Target Expr
		Index  Expr
	}

	Sliced struct {
		typedBase
		Target     Expr
		Start, End Expr // either may be nil
	}

	// StoreExpr is the left-hand side of an assignment when used as a value
	// producing a reference (spec §4.2 "Assignment"): identifier, field or
	// index target.
	StoreExpr struct {
		typedBase
		Target Expr // the reference target: Identifier wrapped as Literal-like lvalue, Field, or Indexed
		Value  Expr
	}

	// Identifier is a variable, parameter, function or constructor reference.
	Identifier struct {
		typedBase
		Name string
	}
)

func (*Literal) exprNode()              {}
func (*Binop) exprNode()                {}
func (*Unary) exprNode()                {}
func (*Call) exprNode()                 {}
func (*Closure) exprNode()              {}
func (*ListConstructor) exprNode()      {}
func (*ListCompConstructor) exprNode()  {}
func (*Field) exprNode()                {}
func (*Indexed) exprNode()              {}
func (*Sliced) exprNode()               {}
func (*StoreExpr) exprNode()            {}
func (*Identifier) exprNode()           {}

// NewLiteral, NewIdentifier, etc. are small convenience constructors used by
// the parser and by tests that hand-build typed ASTs without going through
// source text.

func NewLiteral(p token.Position, t types.Type, v interface{}) *Literal {
	return &Literal{typedBase{base{p}, t}, v}
}

func NewIdentifier(p token.Position, t types.Type, name string) *Identifier {
	return &Identifier{typedBase{base{p}, t}, name}
}
