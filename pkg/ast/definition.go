package ast

import (
	"math/big"
	"strings"

	"github.com/walteh/encapgen/pkg/position"
)

// Attribute is an opaque attribute or doc comment attached to an enum or
// a variant. Text excludes the "#[" "]" or "///" markers.
type Attribute struct {
	Pos  position.Position
	Doc  bool
	Text string
}

// IsLayout reports whether the attribute is a repr(...) layout request.
func (a Attribute) IsLayout() bool {
	return !a.Doc && strings.HasPrefix(strings.TrimSpace(a.Text), "repr(")
}

// LayoutArgs returns the comma separated arguments of a repr(...) attribute.
func (a Attribute) LayoutArgs() []string {
	if !a.IsLayout() {
		return nil
	}
	text := strings.TrimSpace(a.Text)
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "repr("), ")")
	var args []string
	for _, arg := range strings.Split(inner, ",") {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	return args
}

func (a Attribute) String() string {
	if a.Doc {
		return "///" + a.Text
	}
	return "#[" + a.Text + "]"
}

type Attributes []Attribute

// Docs returns the doc comment lines with one leading space trimmed.
func (as Attributes) Docs() []string {
	var out []string
	for _, a := range as {
		if a.Doc {
			out = append(out, strings.TrimPrefix(a.Text, " "))
		}
	}
	return out
}

// Meta returns every non-doc attribute in order.
func (as Attributes) Meta() []Attribute {
	var out []Attribute
	for _, a := range as {
		if !a.Doc {
			out = append(out, a)
		}
	}
	return out
}

type Variant struct {
	Pos        position.Position
	Name       string
	Attributes Attributes
	// Value is nil for an implicit value (previous variant + 1, or 0).
	Value Expr
	// Resolved is set by the validator.
	Resolved *big.Int
}

type EnumDefinition struct {
	Pos             position.Position
	Name            string
	Visibility      Visibility
	FieldVisibility Visibility
	Type            IntType
	// TypeExplicit is false when the definition omitted ": type".
	TypeExplicit bool
	Attributes   Attributes
	Variants     []*Variant
}

// Lookup returns the variant with the given name.
func (d *EnumDefinition) Lookup(name string) (*Variant, bool) {
	for _, v := range d.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Resolved reports whether every variant carries a resolved value.
func (d *EnumDefinition) Resolved() bool {
	for _, v := range d.Variants {
		if v.Resolved == nil {
			return false
		}
	}
	return len(d.Variants) > 0
}

// File is the parsed content of one .encap file.
type File struct {
	Filename string
	// Package is empty when the file has no package clause.
	Package string
	Enums   []*EnumDefinition
}
