package lsp

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/dsl"
	"github.com/walteh/encapgen/pkg/generate"
	"github.com/walteh/encapgen/pkg/position"
	"github.com/walteh/encapgen/pkg/validator"
)

// analyze parses and validates content. The returned file is nil when the
// content does not parse; otherwise its variants carry whatever values
// could be resolved.
func (s *Server) analyze(ctx context.Context, uri, content string) (*ast.File, []Diagnostic) {
	filename := normalizeURI(uri)

	file, err := dsl.Parse(ctx, filename, content)
	if err != nil {
		return nil, toLSP(content, diagnostic.Collect(err))
	}

	var diags []*diagnostic.Diagnostic
	if err := generate.Check(ctx, file, s.opts); err != nil {
		diags = append(diags, diagnostic.Collect(err)...)
	}
	for _, def := range file.Enums {
		diags = append(diags, validator.Aliases(def)...)
	}

	zerolog.Ctx(ctx).Debug().Str("uri", uri).Int("enums", len(file.Enums)).Int("diagnostics", len(diags)).Msg("analyzed document")
	return file, toLSP(content, diags)
}

func toLSP(content string, diags []*diagnostic.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, 0, len(diags))
	for _, d := range diags {
		ld := Diagnostic{
			Range:    spanRange(content, d.Pos, d.Length),
			Severity: d.Severity.LSP(),
			Source:   "encapgen",
			Message:  d.Detail(),
		}
		if d.Kind != nil {
			ld.Code = d.KindName()
		}
		out = append(out, ld)
	}
	return out
}

// spanRange converts a byte span starting at pos into an editor range.
func spanRange(content string, pos position.Position, length int) Range {
	if !pos.IsValid() {
		return Range{}
	}
	start := pointAt(content, pos.Offset)
	end := pointAt(content, pos.Offset+length)
	return Range{Start: start, End: end}
}

func pointAt(content string, offset int) Position {
	if offset > len(content) {
		offset = len(content)
	}
	line := strings.Count(content[:offset], "\n")
	lineStart := strings.LastIndexByte(content[:offset], '\n') + 1
	return Position{
		Line:      line,
		Character: position.UTF16Column(position.LineText(content, offset), offset-lineStart),
	}
}
