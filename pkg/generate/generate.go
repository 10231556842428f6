// Package generate runs the parse, validate and emit pipeline over .encap
// sources and writes the generated Go files.
package generate

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/dsl"
	"github.com/walteh/encapgen/pkg/emitter"
	"github.com/walteh/encapgen/pkg/validator"
)

// Stage is a step of the pipeline. A file moves through them in order and
// stops at the first stage that reports an error.
type Stage int

const (
	Parsing Stage = iota
	Validating
	Emitting
	Done
)

func (s Stage) String() string {
	switch s {
	case Parsing:
		return "parsing"
	case Validating:
		return "validating"
	case Emitting:
		return "emitting"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Result is the outcome of generating one input file.
type Result struct {
	Input  string
	Output string
	Code   []byte
	File   *ast.File
	// Hints are non-blocking notes, such as aliased variant values.
	Hints []*diagnostic.Diagnostic
}

// Source runs the pipeline over a single in-memory file. Every enum is
// validated independently and all of their errors are returned together;
// any error means no code.
func Source(ctx context.Context, filename string, src string, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("file", filename).Logger()
	ctx = logger.WithContext(ctx)

	logger.Debug().Stringer("stage", Parsing).Msg("pipeline stage")
	file, err := dsl.Parse(ctx, filename, src)
	if err != nil {
		return nil, err
	}

	return sourceFile(ctx, filename, file, opts)
}

// sourceFile runs every stage after parsing.
func sourceFile(ctx context.Context, filename string, file *ast.File, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx)

	logger.Debug().Stringer("stage", Validating).Int("enums", len(file.Enums)).Msg("pipeline stage")
	if err := Check(ctx, file, opts); err != nil {
		return nil, err
	}

	res := &Result{Input: filename, File: file}
	for _, def := range file.Enums {
		res.Hints = append(res.Hints, validator.Aliases(def)...)
	}

	logger.Debug().Stringer("stage", Emitting).Msg("pipeline stage")
	emitOpts := opts.Emit
	if emitOpts.Source == "" {
		emitOpts.Source = filepath.Base(filename)
	}
	code, err := emitter.Emit(ctx, file, emitOpts)
	if err != nil {
		return nil, errors.Errorf("emitting %s: %w", filename, err)
	}
	res.Code = code

	logger.Debug().Stringer("stage", Done).Int("bytes", len(code)).Msg("pipeline stage")
	return res, nil
}

// Check validates every definition of file concurrently and resolves
// their values in place. Definitions share nothing, so each goroutine owns
// its definition.
func Check(ctx context.Context, file *ast.File, opts Options) error {
	errs := make([]error, len(file.Enums))

	var g errgroup.Group
	for i, def := range file.Enums {
		g.Go(func() error {
			_, errs[i] = validator.Validate(ctx, def, validator.Options{
				Constants:      opts.Constants,
				PrefixVariants: opts.Emit.PrefixVariants,
			})
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := validator.Declarations(file, validator.Options{PrefixVariants: opts.Emit.PrefixVariants}); err != nil {
		merr = multierror.Append(merr, err)
	}
	return merr.ErrorOrNil()
}

// Expand resolves doublestar patterns against fsys. A directory stands for
// the .encap files directly inside it and plain paths are kept as given;
// the result is sorted and free of duplicates.
func Expand(fsys afero.Fs, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, pattern := range patterns {
		clean := filepath.ToSlash(filepath.Clean(pattern))
		if !doublestar.ValidatePattern(clean) {
			return nil, errors.Errorf("invalid pattern %q", pattern)
		}

		if !strings.ContainsAny(clean, "*?[{") {
			if ok, err := afero.IsDir(fsys, clean); err == nil && ok {
				clean = path.Join(clean, "*.encap")
			} else {
				if !seen[pattern] {
					seen[pattern] = true
					out = append(out, pattern)
				}
				continue
			}
		}

		base, _ := doublestar.SplitPattern(clean)
		err := afero.Walk(fsys, base, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			slashed := filepath.ToSlash(p)
			ok, err := doublestar.Match(clean, slashed)
			if err != nil {
				return err
			}
			if ok && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Errorf("expanding %q: %w", pattern, err)
		}
	}

	sort.Strings(out)
	return out, nil
}

// OutputPath is where the code generated from input is written.
func OutputPath(input string, opts Options) string {
	suffix := opts.OutputSuffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	dir := filepath.Dir(input)
	if opts.OutputDir != "" {
		dir = opts.OutputDir
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+suffix)
}

// Files generates every file matched by patterns. Nothing is written unless
// every file generated cleanly; the returned error then aggregates every
// file's diagnostics.
func Files(ctx context.Context, fsys afero.Fs, patterns []string, opts Options) ([]*Result, error) {
	logger := zerolog.Ctx(ctx)

	inputs, err := Expand(fsys, patterns)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, errors.Errorf("no .encap files match %v", patterns)
	}

	results := make([]*Result, len(inputs))
	errs := make([]error, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i, input := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := generateFile(gctx, fsys, input, opts)
			results[i], errs[i] = res, err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		logger.Debug().Int("failed", len(merr.Errors)).Int("files", len(inputs)).Msg("generation failed, nothing written")
		return nil, err
	}

	if opts.DryRun {
		logger.Info().Int("files", len(results)).Msg("dry run, nothing written")
		return results, nil
	}

	if err := writeAll(fsys, results); err != nil {
		return nil, err
	}
	for _, res := range results {
		logger.Info().Str("input", res.Input).Str("output", res.Output).Msg("wrote generated file")
	}

	return results, nil
}

// writeAll stages every output in a temporary file next to its target and
// renames them into place only once all of them were written. A failed
// rename can still leave the earlier outputs replaced.
func writeAll(fsys afero.Fs, results []*Result) (err error) {
	staged := make([]string, 0, len(results))
	defer func() {
		if err == nil {
			return
		}
		for _, tmp := range staged {
			err = multierr.Append(err, removeIfExists(fsys, tmp))
		}
	}()

	for _, res := range results {
		tmp, err := stageFile(fsys, res.Output, res.Code)
		if tmp != "" {
			staged = append(staged, tmp)
		}
		if err != nil {
			return err
		}
	}

	for i, res := range results {
		if err := fsys.Rename(staged[i], res.Output); err != nil {
			return errors.Errorf("moving %s into place: %w", res.Output, err)
		}
	}
	return nil
}

func generateFile(ctx context.Context, fsys afero.Fs, input string, opts Options) (*Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("file", input).Logger()
	ctx = logger.WithContext(ctx)

	src, err := afero.ReadFile(fsys, input)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", input, err)
	}

	out := OutputPath(input, opts)

	fileOpts := opts
	if fileOpts.Emit.IterStyle == emitter.IterAuto || fileOpts.Emit.IterStyle == "" {
		fileOpts.Emit.IterStyle = IterStyleFor(ctx, fsys, filepath.Dir(out))
	}

	logger.Debug().Stringer("stage", Parsing).Msg("pipeline stage")
	file, err := dsl.Parse(ctx, input, string(src))
	if err != nil {
		return nil, err
	}
	if fileOpts.Emit.Package == "" && file.Package == "" {
		fileOpts.Emit.Package = PackageName(ctx, fsys, filepath.Dir(out))
	}

	res, err := sourceFile(ctx, input, file, fileOpts)
	if err != nil {
		return nil, err
	}
	res.Output = out
	return res, nil
}

// stageFile writes data to a new temporary file in the directory of path
// and returns its name.
func stageFile(fsys afero.Fs, path string, data []byte) (tmp string, err error) {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", errors.Errorf("creating %s: %w", path, err)
	}
	tmp = f.Name()
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	if _, err := f.Write(data); err != nil {
		return tmp, errors.Errorf("writing %s: %w", path, err)
	}
	if err := fsys.Chmod(tmp, 0o644); err != nil {
		return tmp, errors.Errorf("setting mode of %s: %w", path, err)
	}
	return tmp, nil
}

func removeIfExists(fsys afero.Fs, name string) error {
	if err := fsys.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Errorf("removing %s: %w", name, err)
	}
	return nil
}
