package ast

import (
	"github.com/walteh/encapgen/pkg/position"
)

// Expr is an unresolved variant value expression.
type Expr interface {
	Position() position.Position
	String() string
	expr()
}

// Literal is an integer literal as written (decimal, 0x, 0o, 0b, with
// optional underscores).
type Literal struct {
	Pos  position.Position
	Text string
}

// Ref names a variant declared earlier in the same enum.
type Ref struct {
	Pos  position.Position
	Name string
}

// Unary is "-" (two's complement negation) or "!" (bitwise complement).
type Unary struct {
	Pos position.Position
	Op  string
	X   Expr
}

// Binary applies one of | & ^ + - * / % << >>.
type Binary struct {
	Pos position.Position
	Op  string
	X   Expr
	Y   Expr
}

// Cast is "(Type) CONST": a constant supplied by a constants.Resolver.
// Const may be package qualified ("unix.O_RDONLY").
type Cast struct {
	Pos   position.Position
	Type  string
	Const string
}

// Paren keeps explicit grouping so the expression reprints as written.
type Paren struct {
	Pos position.Position
	X   Expr
}

func (e *Literal) Position() position.Position { return e.Pos }
func (e *Ref) Position() position.Position     { return e.Pos }
func (e *Unary) Position() position.Position   { return e.Pos }
func (e *Binary) Position() position.Position  { return e.Pos }
func (e *Cast) Position() position.Position    { return e.Pos }
func (e *Paren) Position() position.Position   { return e.Pos }

func (e *Literal) String() string { return e.Text }
func (e *Ref) String() string     { return e.Name }
func (e *Unary) String() string   { return e.Op + e.X.String() }
func (e *Binary) String() string  { return e.X.String() + " " + e.Op + " " + e.Y.String() }
func (e *Cast) String() string    { return "(" + e.Type + ") " + e.Const }
func (e *Paren) String() string   { return "(" + e.X.String() + ")" }

func (*Literal) expr() {}
func (*Ref) expr()     {}
func (*Unary) expr()   {}
func (*Binary) expr()  {}
func (*Cast) expr()    {}
func (*Paren) expr()   {}

// Refs returns every variant name referenced by e, in source order.
func Refs(e Expr) []*Ref {
	var out []*Ref
	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *Ref:
			out = append(out, e)
		case *Unary:
			walk(e.X)
		case *Binary:
			walk(e.X)
			walk(e.Y)
		case *Paren:
			walk(e.X)
		}
	}
	if e != nil {
		walk(e)
	}
	return out
}
