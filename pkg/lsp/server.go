// Package lsp is a language server for .encap files. It reports
// diagnostics while editing, formats documents and shows resolved variant
// values on hover.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/generate"
)

// ErrExitWithoutShutdown is returned by Serve when the client sent exit
// before shutdown.
var ErrExitWithoutShutdown = errors.Base("exit received before shutdown")

type Server struct {
	id        string
	version   string
	documents *DocumentManager
	opts      generate.Options

	mu          sync.Mutex
	initialized bool
	shutdown    bool
	exited      bool
	rootURI     string
}

// NewServer returns a server that analyses documents with opts. Only the
// constant resolver and the emit options of opts are used.
func NewServer(opts generate.Options, version string) *Server {
	return &Server{
		id:        xid.New().String(),
		version:   version,
		documents: NewDocumentManager(),
		opts:      opts,
	}
}

func (s *Server) ID() string {
	return s.id
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

// Methods maps every supported LSP method to its handler.
func (s *Server) Methods() handler.Map {
	return handler.Map{
		"initialize":              handler.New(s.Initialize),
		"initialized":             handler.New(s.Initialized),
		"shutdown":                handler.New(s.Shutdown),
		"exit":                    handler.New(s.Exit),
		"textDocument/didOpen":    handler.New(s.DidOpen),
		"textDocument/didChange":  handler.New(s.DidChange),
		"textDocument/didClose":   handler.New(s.DidClose),
		"textDocument/didSave":    handler.New(s.DidSave),
		"textDocument/hover":      handler.New(s.Hover),
		"textDocument/formatting": handler.New(s.Formatting),
		"$/cancelRequest":         handler.New(s.ignore),
		"$/setTrace":              handler.New(s.ignore),
	}
}

// ServerOptions are the jrpc2 options Serve runs with. Requests are handled
// one at a time so document changes apply in order.
func (s *Server) ServerOptions(ctx context.Context) *jrpc2.ServerOptions {
	return &jrpc2.ServerOptions{
		AllowPush:   true,
		Concurrency: 1,
		RPCLog:      &RPCLogger{},
		NewContext: func() context.Context {
			return ctx
		},
	}
}

// Serve speaks LSP framing over r and w until the client exits or the
// stream closes.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.WriteCloser) error {
	logger := zerolog.Ctx(ctx).With().Str("server_id", s.id).Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Msg("starting language server")

	srv := jrpc2.NewServer(s.Methods(), s.ServerOptions(ctx)).Start(channel.LSP(r, w))
	st := srv.WaitStatus()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exited && !s.shutdown {
		return ErrExitWithoutShutdown
	}
	if !st.Success() {
		return errors.Errorf("language server: %w", st.Err)
	}
	logger.Info().Msg("language server stopped")
	return nil
}

func (s *Server) ignore(ctx context.Context, _ json.RawMessage) error {
	return nil
}

// RPCLogger traces every request and response at trace level.
type RPCLogger struct{}

func (me *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Trace().Str("rpc_params", req.ParamString()).Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (me *RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Trace().Str("rpc_result", res.ResultString()).Str("rpc_id", res.ID()).Msg("server response")
}
