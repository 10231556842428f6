package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/dsl"
	"github.com/walteh/encapgen/pkg/generate"
	"github.com/walteh/encapgen/pkg/validator"
)

type checkHandler struct {
	g       *globals
	options optionFlags
	format  string
	hints   bool
}

func newCheckCommand(g *globals) *cobra.Command {
	me := &checkHandler{g: g}

	cmd := &cobra.Command{
		Use:   "check [files, dirs or globs...]",
		Short: "report diagnostics for .encap files without generating",
	}

	me.options.bind(cmd.Flags(), false)
	cmd.Flags().StringVar(&me.format, "format", "text", "diagnostic format (text, json, vscode)")
	cmd.Flags().BoolVar(&me.hints, "hints", true, "include hints such as aliased values")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			args = []string{"."}
		}
		return me.Run(cmd.Context(), args)
	}

	return cmd
}

func (me *checkHandler) Run(ctx context.Context, patterns []string) error {
	opts, err := me.options.resolve(ctx, me.g.fs, ".")
	if err != nil {
		return err
	}

	inputs, err := generate.Expand(me.g.fs, patterns)
	if err != nil {
		return err
	}

	var failed *multierror.Error
	all := make([]*diagnostic.Diagnostic, 0)
	for _, input := range inputs {
		diags, err := me.checkFile(ctx, me.g.fs, input, opts)
		if err != nil && len(diags) == 0 {
			return err
		}
		if err != nil {
			failed = multierror.Append(failed, err)
		}
		all = append(all, diags...)
	}

	if err := printDiagnostics(me.g, me.g.stdout, me.format, all); err != nil {
		return err
	}
	if me.format == "text" && len(all) > 0 {
		me.summary(all)
	}
	if failed.ErrorOrNil() != nil {
		return errReported
	}
	return nil
}

// checkFile returns every diagnostic for one input and a non-nil error when
// any of them blocks generation.
func (me *checkHandler) checkFile(ctx context.Context, fsys afero.Fs, input string, opts generate.Options) ([]*diagnostic.Diagnostic, error) {
	src, err := afero.ReadFile(fsys, input)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", input, err)
	}

	file, err := dsl.Parse(ctx, input, string(src))
	if err != nil {
		return diagnostic.Collect(err), err
	}

	var diags []*diagnostic.Diagnostic
	checkErr := generate.Check(ctx, file, opts)
	if checkErr != nil {
		diags = append(diags, diagnostic.Collect(checkErr)...)
	}
	if me.hints {
		for _, def := range file.Enums {
			diags = append(diags, validator.Aliases(def)...)
		}
	}
	return diags, checkErr
}

// summary writes one line of counts to stderr.
func (me *checkHandler) summary(diags []*diagnostic.Diagnostic) {
	groups := diagnostic.Group(diags)
	c := color.New(color.Bold)
	if len(groups.Errors) > 0 {
		c.Add(color.FgRed)
	}
	if me.g.colorize() {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	c.Fprintf(me.g.stderr, "%d errors, %d warnings, %d hints\n", len(groups.Errors), len(groups.Warnings), len(groups.Hints))
}
