package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/diff"
	"github.com/walteh/encapgen/pkg/format"
	"github.com/walteh/encapgen/pkg/generate"
)

type fmtHandler struct {
	g     *globals
	write bool
	list  bool
	diff  bool
}

func newFmtCommand(g *globals) *cobra.Command {
	me := &fmtHandler{g: g}

	cmd := &cobra.Command{
		Use:   "fmt [files, dirs or globs...]",
		Short: "rewrite .encap files in canonical layout",
		Long: `fmt prints each file in canonical layout. Indentation follows .editorconfig.
With no arguments it formats standard input.`,
	}

	cmd.Flags().BoolVarP(&me.write, "write", "w", false, "write the result back to the source file")
	cmd.Flags().BoolVarP(&me.list, "list", "l", false, "list files whose layout differs")
	cmd.Flags().BoolVarP(&me.diff, "diff", "d", false, "print diffs instead of the formatted source")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), args)
	}

	return cmd
}

func (me *fmtHandler) Run(ctx context.Context, patterns []string) error {
	if len(patterns) == 0 {
		src, err := io.ReadAll(me.g.stdin)
		if err != nil {
			return errors.Errorf("reading stdin: %w", err)
		}
		out, err := format.Source(ctx, "<stdin>", string(src), format.DefaultStyle())
		if err != nil {
			return report(me.g, me.g.stderr, "text", err)
		}
		_, err = me.g.stdout.Write(out)
		return err
	}

	inputs, err := generate.Expand(me.g.fs, patterns)
	if err != nil {
		return err
	}

	failed := false
	for _, input := range inputs {
		if err := me.file(ctx, input); err != nil {
			if errors.Is(err, errReported) {
				failed = true
				continue
			}
			return err
		}
	}
	if failed {
		return errReported
	}
	return nil
}

func (me *fmtHandler) file(ctx context.Context, path string) error {
	src, err := afero.ReadFile(me.g.fs, path)
	if err != nil {
		return errors.Errorf("reading %s: %w", path, err)
	}

	style, err := format.StyleFor(ctx, path)
	if err != nil {
		return err
	}

	out, err := format.Source(ctx, path, string(src), style)
	if err != nil {
		return report(me.g, me.g.stderr, "text", err)
	}

	changed := string(out) != string(src)
	if me.list && changed {
		fmt.Fprintln(me.g.stdout, path)
	}
	if me.diff {
		fmt.Fprint(me.g.stdout, diff.Text(path, string(src), string(out)))
	}
	if me.write {
		if changed {
			info, err := me.g.fs.Stat(path)
			if err != nil {
				return errors.Errorf("stat %s: %w", path, err)
			}
			if err := afero.WriteFile(me.g.fs, path, out, info.Mode().Perm()); err != nil {
				return errors.Errorf("writing %s: %w", path, err)
			}
		}
		return nil
	}
	if !me.list && !me.diff {
		_, err = me.g.stdout.Write(out)
	}
	return err
}
