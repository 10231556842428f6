package lsp

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/emitter"
	"github.com/walteh/encapgen/pkg/position"
)

// Hover describes the enum or variant whose name is under the cursor.
// Variants show their resolved value and what String prints for it.
func (s *Server) Hover(ctx context.Context, params *HoverParams) (*Hover, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}
	if doc.File == nil {
		return nil, nil
	}

	offset := position.OffsetOf(doc.Content, params.Position.Line, params.Position.Character)

	for _, def := range doc.File.Enums {
		if within(def.Pos, def.Name, offset) {
			return s.hover(doc, def.Pos, def.Name, describeEnum(def)), nil
		}
		for _, v := range def.Variants {
			if within(v.Pos, v.Name, offset) {
				return s.hover(doc, v.Pos, v.Name, s.describeVariant(def, v)), nil
			}
		}
	}
	return nil, nil
}

func within(pos position.Position, name string, offset int) bool {
	return pos.IsValid() && position.NewBasicPosition(name, pos.Offset).Contains(offset)
}

func (s *Server) hover(doc *Document, pos position.Position, name, text string) *Hover {
	r := spanRange(doc.Content, pos, len(name))
	return &Hover{
		Contents: MarkupContent{Kind: "markdown", Value: text},
		Range:    &r,
	}
}

func describeEnum(def *ast.EnumDefinition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**enum %s**: `%s` (%d variants)", def.Name, def.Type.Name, len(def.Variants))
	if docs := def.Attributes.Docs(); len(docs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(docs, "\n"))
	}
	return b.String()
}

func (s *Server) describeVariant(def *ast.EnumDefinition, v *ast.Variant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s::%s**", def.Name, v.Name)
	if v.Resolved == nil {
		b.WriteString("\n\nvalue unresolved")
		return b.String()
	}

	fmt.Fprintf(&b, " = `%s`", hexValue(def.Type, def.Type.Bits64(v.Resolved)))
	if def.Resolved() {
		fmt.Fprintf(&b, "\n\nString(): `%s`", emitter.Render(def, v.Resolved, s.opts.Emit))
	}
	if docs := v.Attributes.Docs(); len(docs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(docs, "\n"))
	}
	return b.String()
}

// hexValue prints the bit pattern at the type's full width.
func hexValue(t ast.IntType, bits uint64) string {
	return fmt.Sprintf("0x%0*x", int(t.Bits/4), bits)
}
