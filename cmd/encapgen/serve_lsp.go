package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/lsp"
)

type serveLSPHandler struct {
	g       *globals
	options optionFlags
	version string
}

func newServeLSPCommand(g *globals, version string) *cobra.Command {
	me := &serveLSPHandler{g: g, version: version}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin and stdout",
	}

	me.options.bind(cmd.Flags(), false)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

func (me *serveLSPHandler) Run(ctx context.Context) error {
	opts, err := me.options.resolve(ctx, me.g.fs, ".")
	if err != nil {
		return err
	}

	server := lsp.NewServer(opts, me.version)

	if err := server.Serve(ctx, me.g.stdin, nopWriteCloser{me.g.stdout}); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
