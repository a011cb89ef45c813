package ast

import (
	"github.com/ash-lang/ash/internal/token"
	"github.com/ash-lang/ash/internal/types"
)

// The constructors in this file extend NewLiteral/NewIdentifier with the
// rest of the node set, so a front end (or a test) can hand-build a typed
// tree without reaching into ast's unexported base/typedBase fields.

func NewBinop(p token.Position, t types.Type, op string, left, right Expr) *Binop {
	return &Binop{typedBase{base{p}, t}, op, left, right}
}

func NewUnary(p token.Position, t types.Type, op string, operand Expr) *Unary {
	return &Unary{typedBase{base{p}, t}, op, operand}
}

func NewCall(p token.Position, t types.Type, callee string, target Expr, args []Expr) *Call {
	return &Call{typedBase{base{p}, t}, callee, target, args}
}

func NewClosure(p token.Position, t types.Type, params []Param, body []Stmt) *Closure {
	return &Closure{typedBase{base{p}, t}, params, body, nil}
}

func NewListConstructor(p token.Position, t types.Type, elems []Expr) *ListConstructor {
	return &ListConstructor{typedBase{base{p}, t}, elems}
}

func NewListCompConstructor(p token.Position, t types.Type, elem Expr, v string, iter, cond Expr) *ListCompConstructor {
	return &ListCompConstructor{typedBase{base{p}, t}, elem, v, iter, cond}
}

func NewField(p token.Position, t types.Type, target Expr, name string) *Field {
	return &Field{typedBase{base{p}, t}, target, name}
}

func NewIndexed(p token.Position, t types.Type, target, index Expr) *Indexed {
	return &Indexed{typedBase{base{p}, t}, target, index}
}

func NewSliced(p token.Position, t types.Type, target, start, end Expr) *Sliced {
	return &Sliced{typedBase{base{p}, t}, target, start, end}
}

func NewStoreExpr(p token.Position, t types.Type, target, value Expr) *StoreExpr {
	return &StoreExpr{typedBase{base{p}, t}, target, value}
}

func NewLet(p token.Position, global bool, identifier string, expr Expr, t types.Type) *Let {
	return &Let{base{p}, global, identifier, expr, t}
}

func NewFunction(p token.Position, identifier string, params []Param, body []Stmt, t types.Type) *Function {
	return &Function{base{p}, identifier, params, body, nil, t}
}

func NewStruct(p token.Position, name string, fields []Param) *Struct {
	return &Struct{base{p}, name, fields}
}

func NewEnum(p token.Position, name string, arms []EnumArm) *Enum {
	return &Enum{base{p}, name, arms}
}

func NewReturn(p token.Position, value Expr) *Return {
	return &Return{base{p}, value}
}

func NewExpression(p token.Position, expr Expr) *Expression {
	return &Expression{base{p}, expr}
}

func NewIf(p token.Position, cond Expr, then []Stmt, elif []ElifClause, els []Stmt) *If {
	return &If{base{p}, cond, then, elif, els}
}

func NewWhile(p token.Position, cond Expr, body []Stmt) *While {
	return &While{base{p}, cond, body}
}

func NewFor(p token.Position, init Stmt, cond Expr, post Stmt, body []Stmt) *For {
	return &For{base{p}, init, cond, post, body}
}

func NewForeach(p token.Position, identifier string, iterable Expr, body []Stmt) *Foreach {
	return &Foreach{base{p}, identifier, iterable, body}
}

func NewForRange(p token.Position, identifier string, start, end, step Expr, inclusive bool, body []Stmt) *ForRange {
	return &ForRange{base{p}, identifier, start, end, step, inclusive, body}
}

func NewBlock(p token.Position, body []Stmt) *Block {
	return &Block{base{p}, body}
}

func NewMatch(p token.Position, subject Expr, arms []MatchArm, def []Stmt) *Match {
	return &Match{base{p}, subject, arms, def}
}

func NewUnwrap(p token.Position, expr Expr) *Unwrap {
	return &Unwrap{base{p}, expr}
}

func NewIfLet(p token.Position, identifier string, expr Expr, then, els []Stmt) *IfLet {
	return &IfLet{base{p}, identifier, expr, then, els}
}

func NewBreak(p token.Position) *Break       { return &Break{base{p}} }
func NewContinue(p token.Position) *Continue { return &Continue{base{p}} }
func NewPass(p token.Position) *Pass         { return &Pass{base{p}} }
