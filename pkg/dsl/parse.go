package dsl

import (
	"context"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/position"
)

// Parse parses every enum definition in src. Errors are *diagnostic.Diagnostic
// values of kind diagnostic.ErrSyntax.
func Parse(ctx context.Context, filename string, src string) (*ast.File, error) {
	node, err := definitionParser.ParseString(filename, src)
	if err != nil {
		return nil, syntaxError(filename, err)
	}

	file := &ast.File{Filename: filename}
	if node.Package != nil {
		file.Package = *node.Package
	}

	for _, en := range node.Enums {
		def, err := lowerEnum(en)
		if err != nil {
			return nil, err
		}
		file.Enums = append(file.Enums, def)
	}

	zerolog.Ctx(ctx).Debug().Str("file", filename).Int("enums", len(file.Enums)).Msg("parsed definitions")

	return file, nil
}

// ParseEnum parses src, which must hold exactly one enum definition.
func ParseEnum(ctx context.Context, filename string, src string) (*ast.EnumDefinition, error) {
	file, err := Parse(ctx, filename, src)
	if err != nil {
		return nil, err
	}
	if len(file.Enums) != 1 {
		return nil, diagnostic.New(diagnostic.ErrSyntax, position.Position{Filename: filename, Line: 1, Column: 1},
			"expected exactly one enum definition, found %d", len(file.Enums))
	}
	return file.Enums[0], nil
}

func syntaxError(filename string, err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		d := diagnostic.New(diagnostic.ErrSyntax, position.FromLexer(perr.Position()), "%s", perr.Message())
		if d.Pos.Filename == "" {
			d.Pos.Filename = filename
		}
		var uerr *participle.UnexpectedTokenError
		if errors.As(err, &uerr) {
			d.WithLength(len(uerr.Unexpected.Value))
		}
		return d
	}
	return errors.Errorf("parsing %s: %w", filename, err)
}

func pos(p lexer.Position) position.Position {
	return position.FromLexer(p)
}

// namePos finds the position of the identifier name among tokens, skipping
// everything up to and including the token after.
func namePos(tokens []lexer.Token, after string, name string, fallback lexer.Position) position.Position {
	seen := after == ""
	for _, tok := range tokens {
		if tok.Type != identToken {
			continue
		}
		if !seen {
			seen = tok.Value == after
			continue
		}
		if tok.Value == name {
			return pos(tok.Pos)
		}
	}
	return pos(fallback)
}

func lowerMeta(metas []*metaNode) ast.Attributes {
	var out ast.Attributes
	for _, m := range metas {
		switch {
		case m.Doc != nil:
			// four or more slashes is an ordinary comment
			if strings.HasPrefix(*m.Doc, "////") {
				continue
			}
			out = append(out, ast.Attribute{Pos: pos(m.Pos), Doc: true, Text: strings.TrimPrefix(*m.Doc, "///")})
		case m.Attr != nil:
			text := strings.TrimSuffix(strings.TrimPrefix(*m.Attr, "#["), "]")
			out = append(out, ast.Attribute{Pos: pos(m.Pos), Text: text})
		}
	}
	return out
}

func lowerVisibility(v *visNode) ast.Visibility {
	if v == nil {
		return ast.Visibility{Level: ast.Private}
	}
	out := ast.Visibility{Pos: pos(v.Pos), Level: ast.Pub}
	r := v.Restricted
	if r == nil {
		return out
	}
	switch {
	case len(r.In) > 0:
		out.Level = ast.PubIn
		out.Path = r.In
	case r.Scope != nil && *r.Scope == "crate":
		out.Level = ast.PubCrate
	case r.Scope != nil && *r.Scope == "super":
		out.Level = ast.PubSuper
	default:
		// pub(self) is the same as no modifier
		out.Level = ast.Private
	}
	return out
}

func lowerEnum(en *enumNode) (*ast.EnumDefinition, error) {
	def := &ast.EnumDefinition{
		Pos:        namePos(en.Tokens, "enum", en.Name, en.Pos),
		Name:       en.Name,
		Visibility: lowerVisibility(en.Vis),
		Type:       ast.DefaultIntType,
		Attributes: lowerMeta(en.Meta),
	}
	def.FieldVisibility = ast.Visibility{Pos: def.Pos, Level: ast.Private}

	if en.Repr != nil {
		typ, ok := ast.LookupIntType(en.Repr.Type)
		if !ok {
			return nil, diagnostic.New(diagnostic.ErrSyntax, pos(en.Repr.Pos),
				"%q is not an integer type; expected one of %s", en.Repr.Type, strings.Join(ast.IntTypeNames(), ", ")).
				WithSubject(en.Name, "").
				WithLength(len(en.Repr.Type))
		}
		def.Type = typ
		def.TypeExplicit = true
		if en.Repr.Vis != nil {
			def.FieldVisibility = lowerVisibility(en.Repr.Vis)
		}
	}

	for _, vn := range en.Variants {
		v := &ast.Variant{
			Pos:        namePos(vn.Tokens, "", vn.Name, vn.Pos),
			Name:       vn.Name,
			Attributes: lowerMeta(vn.Meta),
		}
		if vn.Value != nil {
			v.Value = lowerExpr(vn.Value)
		}
		def.Variants = append(def.Variants, v)
	}

	return def, nil
}

// precedence follows the usual systems-language order: multiplicative
// binds tightest, then additive, shifts, &, ^ and finally |.
var precedence = map[string]int{
	"|":  1,
	"^":  2,
	"&":  3,
	"<<": 4,
	">>": 4,
	"+":  5,
	"-":  5,
	"*":  6,
	"/":  6,
	"%":  6,
}

func lowerExpr(e *exprNode) ast.Expr {
	c := &climber{ops: e.Tail}
	return c.climb(lowerUnary(e.Head), 1)
}

type climber struct {
	ops []*opNode
	i   int
}

func (c *climber) climb(lhs ast.Expr, minPrec int) ast.Expr {
	for c.i < len(c.ops) && precedence[c.ops[c.i].Op] >= minPrec {
		op := c.ops[c.i]
		c.i++
		rhs := lowerUnary(op.X)
		for c.i < len(c.ops) && precedence[c.ops[c.i].Op] > precedence[op.Op] {
			rhs = c.climb(rhs, precedence[op.Op]+1)
		}
		lhs = &ast.Binary{Pos: lhs.Position(), Op: op.Op, X: lhs, Y: rhs}
	}
	return lhs
}

func lowerUnary(u *unaryNode) ast.Expr {
	x := lowerPrimary(u.Primary)
	for i := len(u.Ops) - 1; i >= 0; i-- {
		x = &ast.Unary{Pos: pos(u.Pos), Op: u.Ops[i], X: x}
	}
	return x
}

func lowerPrimary(p *primaryNode) ast.Expr {
	switch {
	case p.Cast != nil:
		return &ast.Cast{Pos: pos(p.Cast.Pos), Type: p.Cast.Type, Const: strings.Join(p.Cast.Const, ".")}
	case p.Int != nil:
		return &ast.Literal{Pos: pos(p.Pos), Text: *p.Int}
	case p.Ref != nil:
		return &ast.Ref{Pos: pos(p.Pos), Name: *p.Ref}
	default:
		return &ast.Paren{Pos: pos(p.Pos), X: lowerExpr(p.Paren)}
	}
}
