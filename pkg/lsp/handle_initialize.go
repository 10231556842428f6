package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
)

type InitializedParams struct{}

func (s *Server) Initialize(ctx context.Context, params *InitializeParams) (*InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("root_uri", params.RootURI).Int("process_id", params.ProcessID).Msg("initializing server")

	s.mu.Lock()
	s.rootURI = params.RootURI
	s.mu.Unlock()

	return &InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:           SyncFull,
			HoverProvider:              true,
			DocumentFormattingProvider: true,
		},
		ServerInfo: &ServerInfo{
			Name:    "encapgen",
			Version: s.version,
		},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, _ *InitializedParams) error {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Msg("server initialized")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Int("open_documents", s.documents.Len()).Msg("shutdown requested")
	return nil
}

// Exit stops the jrpc2 server that delivered the notification.
func (s *Server) Exit(ctx context.Context) error {
	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Msg("exit received")
	if srv := jrpc2.ServerFromContext(ctx); srv != nil {
		go srv.Stop()
	}
	return nil
}
