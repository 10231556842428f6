package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/generate"
)

type generateHandler struct {
	g       *globals
	options optionFlags
	dryRun  bool
	jobs    int
}

func newGenerateCommand(g *globals) *cobra.Command {
	me := &generateHandler{g: g}

	cmd := &cobra.Command{
		Use:   "generate [files, dirs or globs...]",
		Short: "generate *_encap.go files from .encap definitions",
		Long: `generate reads every matching .encap file and writes one Go file per input.
Nothing is written unless every input generates cleanly. With no arguments
the .encap files of the current directory are used, which suits

    //go:generate go run github.com/walteh/encapgen/cmd/encapgen generate`,
	}

	me.options.bind(cmd.Flags(), true)
	cmd.Flags().BoolVar(&me.dryRun, "dry-run", false, "check and print the output paths without writing")
	cmd.Flags().IntVarP(&me.jobs, "jobs", "j", 0, "files generated in parallel (default GOMAXPROCS)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		return me.Run(cmd.Context(), args)
	}

	return cmd
}

func (me *generateHandler) Run(ctx context.Context, patterns []string) error {
	opts, err := me.options.resolve(ctx, me.g.fs, ".")
	if err != nil {
		return err
	}
	opts.DryRun = me.dryRun
	opts.Concurrency = me.jobs

	results, err := generate.Files(ctx, me.g.fs, patterns, opts)
	if err != nil {
		return report(me.g, me.g.stderr, "text", err)
	}

	for _, res := range results {
		if len(res.Hints) > 0 {
			if err := printDiagnostics(me.g, me.g.stderr, "text", res.Hints); err != nil {
				return err
			}
		}
		if me.dryRun {
			fmt.Fprintf(me.g.stdout, "%s -> %s\n", res.Input, res.Output)
		}
	}
	return nil
}

// report prints the diagnostics carried by err to w. Errors that are not
// diagnostics are returned unchanged.
func report(g *globals, w io.Writer, format string, err error) error {
	diags := diagnostic.Collect(err)
	for _, d := range diags {
		if d.Kind == nil && !d.Pos.IsValid() {
			return err
		}
	}
	if perr := printDiagnostics(g, w, format, diags); perr != nil {
		return perr
	}
	return errReported
}

func printDiagnostics(g *globals, w io.Writer, format string, diags []*diagnostic.Diagnostic) error {
	sources := make(map[string][]byte)
	for _, d := range diags {
		name := d.Pos.Filename
		if _, ok := sources[name]; ok || name == "" {
			continue
		}
		if data, err := afero.ReadFile(g.fs, name); err == nil {
			sources[name] = data
		}
	}

	f, err := diagnostic.NewFormatter(format, sources, g.colorize())
	if err != nil {
		return err
	}
	out, err := f.Format(diags)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
