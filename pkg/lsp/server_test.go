package lsp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/encapgen/pkg/constants"
	"github.com/walteh/encapgen/pkg/generate"
	"github.com/walteh/encapgen/pkg/lsp"
)

const uri = "file:///work/win/styles.encap"

const styles = `package win

/// Window style bits.
pub enum WindowStyle: pub uint32 {
    None = 0,
    ByteAlignClient = 0x1000,
    ByteAlignWindow = 0x2000,
    Both = ByteAlignClient | ByteAlignWindow,
    External = (WindowStyle) EXTERNAL_CONST,
    Literal = 0x00000008,
}
`

type session struct {
	client *jrpc2.Client
	server *jrpc2.Server
	diags  chan lsp.PublishDiagnosticsParams
}

func start(t *testing.T) *session {
	t.Helper()
	ctx := context.Background()

	opts := generate.DefaultOptions()
	consts, err := constants.ParseMap(map[string]string{"EXTERNAL_CONST": "0x00000008"})
	require.NoError(t, err)
	opts.Constants = consts

	s := lsp.NewServer(opts, "test")
	cch, sch := channel.Direct()

	sess := &session{diags: make(chan lsp.PublishDiagnosticsParams, 16)}
	sess.server = jrpc2.NewServer(s.Methods(), s.ServerOptions(ctx)).Start(sch)
	sess.client = jrpc2.NewClient(cch, &jrpc2.ClientOptions{
		OnNotify: func(req *jrpc2.Request) {
			if req.Method() != "textDocument/publishDiagnostics" {
				return
			}
			var p lsp.PublishDiagnosticsParams
			if err := req.UnmarshalParams(&p); err == nil {
				sess.diags <- p
			}
		},
	})
	t.Cleanup(func() {
		sess.client.Close()
		sess.server.Stop()
	})

	var res lsp.InitializeResult
	require.NoError(t, sess.client.CallResult(ctx, "initialize", &lsp.InitializeParams{RootURI: "file:///work"}, &res))
	assert.True(t, res.Capabilities.HoverProvider)
	assert.True(t, res.Capabilities.DocumentFormattingProvider)
	assert.Equal(t, lsp.SyncFull, res.Capabilities.TextDocumentSync)
	require.NoError(t, sess.client.Notify(ctx, "initialized", &lsp.InitializedParams{}))

	return sess
}

func (s *session) open(t *testing.T, text string) lsp.PublishDiagnosticsParams {
	t.Helper()
	require.NoError(t, s.client.Notify(context.Background(), "textDocument/didOpen", &lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{URI: uri, LanguageID: "encap", Version: 1, Text: text},
	}))
	return s.next(t)
}

func (s *session) next(t *testing.T) lsp.PublishDiagnosticsParams {
	t.Helper()
	select {
	case p := <-s.diags:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("no diagnostics published")
		return lsp.PublishDiagnosticsParams{}
	}
}

func TestDiagnostics(t *testing.T) {
	s := start(t)

	got := s.open(t, styles)
	assert.Equal(t, uri, got.URI)
	require.Len(t, got.Diagnostics, 1, "alias hint only")
	assert.Equal(t, 4, got.Diagnostics[0].Severity)
	assert.Contains(t, got.Diagnostics[0].Message, "Literal has the same value as External")
	assert.Equal(t, lsp.Range{
		Start: lsp.Position{Line: 9, Character: 4},
		End:   lsp.Position{Line: 9, Character: 11},
	}, got.Diagnostics[0].Range)

	require.NoError(t, s.client.Notify(context.Background(), "textDocument/didChange", &lsp.DidChangeTextDocumentParams{
		TextDocument:   lsp.VersionedTextDocumentIdentifier{URI: uri, Version: 2},
		ContentChanges: []lsp.TextDocumentContentChangeEvent{{Text: "enum E: uint8 {\n    A = 256,\n    B = A,\n}\n"}},
	}))
	got = s.next(t)
	assert.Equal(t, 2, got.Version)
	require.Len(t, got.Diagnostics, 1, "dependent error is suppressed")
	assert.Equal(t, 1, got.Diagnostics[0].Severity)
	assert.Equal(t, "value out of range", got.Diagnostics[0].Code)
	assert.Equal(t, 1, got.Diagnostics[0].Range.Start.Line)

	require.NoError(t, s.client.Notify(context.Background(), "textDocument/didClose", &lsp.DidCloseTextDocumentParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
	}))
	got = s.next(t)
	assert.Empty(t, got.Diagnostics)
}

func TestDiagnosticsSyntaxError(t *testing.T) {
	s := start(t)

	got := s.open(t, "enum E {\n    A = ,\n}\n")
	require.NotEmpty(t, got.Diagnostics)
	assert.Equal(t, "syntax error", got.Diagnostics[0].Code)
	assert.Equal(t, 1, got.Diagnostics[0].Range.Start.Line)
}

func TestHover(t *testing.T) {
	s := start(t)
	s.open(t, styles)

	tests := []struct {
		name     string
		pos      lsp.Position
		contains []string
	}{
		{
			name:     "combined variant",
			pos:      lsp.Position{Line: 7, Character: 6},
			contains: []string{"**WindowStyle::Both** = `0x00003000`", "String(): `ByteAlignClient | ByteAlignWindow | Both`"},
		},
		{
			name:     "cast variant",
			pos:      lsp.Position{Line: 8, Character: 4},
			contains: []string{"= `0x00000008`", "String(): `External`"},
		},
		{
			name:     "zero variant",
			pos:      lsp.Position{Line: 4, Character: 5},
			contains: []string{"String(): `None`"},
		},
		{
			name:     "enum name",
			pos:      lsp.Position{Line: 3, Character: 12},
			contains: []string{"**enum WindowStyle**: `uint32` (6 variants)", "Window style bits."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h *lsp.Hover
			require.NoError(t, s.client.CallResult(context.Background(), "textDocument/hover", &lsp.HoverParams{
				TextDocument: lsp.TextDocumentIdentifier{URI: uri},
				Position:     tt.pos,
			}, &h))
			require.NotNil(t, h)
			assert.Equal(t, "markdown", h.Contents.Kind)
			for _, want := range tt.contains {
				assert.Contains(t, h.Contents.Value, want)
			}
		})
	}

	t.Run("whitespace", func(t *testing.T) {
		rsp, err := s.client.Call(context.Background(), "textDocument/hover", &lsp.HoverParams{
			TextDocument: lsp.TextDocumentIdentifier{URI: uri},
			Position:     lsp.Position{Line: 1, Character: 0},
		})
		require.NoError(t, err)
		var raw json.RawMessage
		require.NoError(t, rsp.UnmarshalResult(&raw))
		assert.Equal(t, "null", string(raw))
	})
}

func TestFormatting(t *testing.T) {
	s := start(t)
	s.open(t, "enum E { A=1, B }")

	var edits []lsp.TextEdit
	require.NoError(t, s.client.CallResult(context.Background(), "textDocument/formatting", &lsp.DocumentFormattingParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri},
		Options:      lsp.FormattingOptions{TabSize: 2, InsertSpaces: true},
	}, &edits))
	require.Len(t, edits, 1)
	assert.Equal(t, "enum E {\n  A = 1,\n  B,\n}\n", edits[0].NewText)
	assert.Equal(t, lsp.Position{Line: 0, Character: 17}, edits[0].Range.End)
}

func TestShutdownAndExit(t *testing.T) {
	ctx := context.Background()
	s := lsp.NewServer(generate.DefaultOptions(), "test")
	cch, sch := channel.Direct()

	done := make(chan error, 1)
	srv := jrpc2.NewServer(s.Methods(), s.ServerOptions(ctx)).Start(sch)
	go func() { done <- srv.Wait() }()

	cli := jrpc2.NewClient(cch, nil)
	defer cli.Close()

	_, err := cli.Call(ctx, "shutdown", nil)
	require.NoError(t, err)
	require.NoError(t, cli.Notify(ctx, "exit", nil))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after exit")
	}
}
