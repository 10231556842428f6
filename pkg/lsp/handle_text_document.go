package lsp

import (
	"context"
	"strings"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/format"
)

type DidSaveTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

func (s *Server) DidOpen(ctx context.Context, params *DidOpenTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", params.TextDocument.URI).Msg("document opened")
	return s.update(ctx, params.TextDocument.URI, params.TextDocument.Version, params.TextDocument.Text)
}

// DidChange applies full-document changes; the last change wins.
func (s *Server) DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", params.TextDocument.URI).Int("version", params.TextDocument.Version).Msg("document changed")
	if len(params.ContentChanges) == 0 {
		return nil
	}
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	return s.update(ctx, params.TextDocument.URI, params.TextDocument.Version, text)
}

func (s *Server) DidSave(ctx context.Context, params *DidSaveTextDocumentParams) error {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return errors.Errorf("document not found: %s", params.TextDocument.URI)
	}
	return s.update(ctx, doc.URI, doc.Version, doc.Content)
}

// DidClose forgets the document and clears its diagnostics.
func (s *Server) DidClose(ctx context.Context, params *DidCloseTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", params.TextDocument.URI).Msg("document closed")
	s.documents.Delete(params.TextDocument.URI)
	return s.publish(ctx, &PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) update(ctx context.Context, uri string, version int, content string) error {
	file, diags := s.analyze(ctx, uri, content)
	s.documents.Store(uri, &Document{
		URI:     uri,
		Version: version,
		Content: content,
		File:    file,
	})
	return s.publish(ctx, &PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diags,
	})
}

func (s *Server) publish(ctx context.Context, params *PublishDiagnosticsParams) error {
	srv := jrpc2.ServerFromContext(ctx)
	if srv == nil {
		return nil
	}
	if err := srv.Notify(ctx, "textDocument/publishDiagnostics", params); err != nil {
		return errors.Errorf("publishing diagnostics for %s: %w", params.URI, err)
	}
	return nil
}

// Formatting replaces the whole document with its canonical layout. The
// editor's indentation settings win over .editorconfig.
func (s *Server) Formatting(ctx context.Context, params *DocumentFormattingParams) ([]TextEdit, error) {
	doc, ok := s.documents.Get(params.TextDocument.URI)
	if !ok {
		return nil, errors.Errorf("document not found: %s", params.TextDocument.URI)
	}

	path := normalizeURI(doc.URI)
	style, err := format.StyleFor(ctx, path)
	if err != nil {
		return nil, err
	}
	if params.Options.TabSize > 0 {
		if params.Options.InsertSpaces {
			style.Indent = strings.Repeat(" ", params.Options.TabSize)
		} else {
			style.Indent = "\t"
		}
	}

	out, err := format.Source(ctx, path, doc.Content, style)
	if err != nil {
		return nil, err
	}
	if string(out) == doc.Content {
		return []TextEdit{}, nil
	}

	return []TextEdit{{
		Range: Range{
			Start: Position{},
			End:   pointAt(doc.Content, len(doc.Content)),
		},
		NewText: string(out),
	}}, nil
}
