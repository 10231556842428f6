// Package format reprints .encap files in canonical layout.
package format

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/dsl"
	"github.com/walteh/encapgen/pkg/position"
)

type Style struct {
	Indent  string
	Newline string
}

func DefaultStyle() Style {
	return Style{Indent: "    ", Newline: "\n"}
}

// StyleFor reads the .editorconfig files that apply to path. Missing or
// unset properties keep the default style.
func StyleFor(ctx context.Context, path string) (Style, error) {
	style := DefaultStyle()

	def, err := editorconfig.GetDefinitionForFilename(path)
	if err != nil {
		return style, errors.Errorf("reading editorconfig for %s: %w", path, err)
	}

	switch def.IndentStyle {
	case editorconfig.IndentStyleTab:
		style.Indent = "\t"
	case editorconfig.IndentStyleSpaces:
		if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
			style.Indent = strings.Repeat(" ", n)
		}
	}
	if def.EndOfLine == editorconfig.EndOfLineCrLf {
		style.Newline = "\r\n"
	}

	zerolog.Ctx(ctx).Trace().Str("path", path).Str("indent", strconv.Quote(style.Indent)).Msg("resolved format style")

	return style, nil
}

// Source parses src and returns it in canonical layout. Plain comments
// would be lost by reprinting, so files containing them are rejected.
func Source(ctx context.Context, filename string, src string, style Style) ([]byte, error) {
	comments, err := dsl.Comments(filename, src)
	if err != nil {
		return nil, errors.Errorf("scanning %s: %w", filename, err)
	}
	if len(comments) > 0 {
		return nil, diagnostic.New(diagnostic.ErrSyntax, position.FromLexer(comments[0]),
			"cannot reformat a file with plain comments; use /// doc comments instead")
	}

	file, err := dsl.Parse(ctx, filename, src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Print(&buf, file, style); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Print writes file in canonical layout.
func Print(w io.Writer, file *ast.File, style Style) error {
	p := &printer{style: style}
	if style.Indent == "" {
		p.style.Indent = DefaultStyle().Indent
	}
	if style.Newline == "" {
		p.style.Newline = "\n"
	}

	if file.Package != "" {
		p.line("package " + file.Package)
	}
	for i, def := range file.Enums {
		if i > 0 || file.Package != "" {
			p.line("")
		}
		p.enum(def)
	}

	_, err := io.WriteString(w, p.buf.String())
	return err
}

type printer struct {
	style Style
	buf   strings.Builder
}

func (p *printer) line(s string) {
	p.buf.WriteString(s)
	p.buf.WriteString(p.style.Newline)
}

func (p *printer) attrs(indent string, attrs ast.Attributes) {
	for _, a := range attrs {
		p.line(indent + a.String())
	}
}

func (p *printer) enum(def *ast.EnumDefinition) {
	p.attrs("", def.Attributes)

	header := "enum " + def.Name
	if v := def.Visibility.String(); v != "" {
		header = v + " " + header
	}
	if def.TypeExplicit || def.FieldVisibility.Level != ast.Private {
		header += ": "
		if v := def.FieldVisibility.String(); v != "" {
			header += v + " "
		}
		header += def.Type.Name
	}
	p.line(header + " {")

	for _, v := range def.Variants {
		p.attrs(p.style.Indent, v.Attributes)
		entry := p.style.Indent + v.Name
		if v.Value != nil {
			entry += " = " + v.Value.String()
		}
		p.line(entry + ",")
	}

	p.line("}")
}
