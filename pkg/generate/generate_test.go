package generate_test

import (
	"context"
	goast "go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/encapgen/pkg/config"
	"github.com/walteh/encapgen/pkg/constants"
	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/dsl"
	"github.com/walteh/encapgen/pkg/emitter"
	"github.com/walteh/encapgen/pkg/generate"
	"github.com/walteh/encapgen/pkg/validator"
)

const styles = `package win

pub enum WindowStyle: pub uint32 {
    None = 0,
    ByteAlignClient = 0x1000,
    ByteAlignWindow = 0x2000,
    Both = ByteAlignClient | ByteAlignWindow,
    External = (WindowStyle) EXTERNAL_CONST,
    Literal = 0x00000008,
}
`

func testOptions(t *testing.T) generate.Options {
	t.Helper()
	opts := generate.DefaultOptions()
	consts, err := constants.ParseMap(map[string]string{"EXTERNAL_CONST": "8"})
	require.NoError(t, err)
	opts.Constants = consts
	return opts
}

func TestSource(t *testing.T) {
	res, err := generate.Source(context.Background(), "win/styles.encap", styles, testOptions(t))
	require.NoError(t, err)

	code := string(res.Code)
	assert.True(t, strings.HasPrefix(code, "// Code generated by encapgen from styles.encap. DO NOT EDIT."))
	assert.Contains(t, code, "package win")
	assert.Contains(t, code, "type WindowStyle struct")

	require.Len(t, res.File.Enums, 1)
	assert.True(t, res.File.Enums[0].Resolved())

	// Literal and External share a bit pattern.
	require.Len(t, res.Hints, 1)
	assert.Equal(t, "Literal", res.Hints[0].Variant)
}

func TestSourceErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kinds []error
	}{
		{
			name:  "syntax",
			src:   "enum E {",
			kinds: []error{diagnostic.ErrSyntax},
		},
		{
			name: "errors from several enums are reported together",
			src: `enum A: uint8 { X = 256 }
enum B: uint8 { Y = Missing }`,
			kinds: []error{diagnostic.ErrValueRange, diagnostic.ErrForwardReference},
		},
		{
			name:  "duplicate enum",
			src:   "enum A { X }\nenum A { Y }",
			kinds: []error{diagnostic.ErrSyntax},
		},
		{
			name:  "unknown constant",
			src:   "enum A: uint8 { X = (A) NOPE }",
			kinds: []error{diagnostic.ErrUnresolvedConstant},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(t)
			opts.Emit.Package = "p"
			res, err := generate.Source(context.Background(), "x.encap", tt.src, opts)
			require.Error(t, err)
			assert.Nil(t, res)
			for _, kind := range tt.kinds {
				assert.ErrorIs(t, err, kind)
			}
		})
	}
}

// typeErrors returns every go/types error of a generated file.
func typeErrors(t *testing.T, code []byte) []string {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "gen.go", code, 0)
	require.NoError(t, err, string(code))

	var out []string
	conf := types.Config{
		GoVersion: "go1.23",
		Error:     func(err error) { out = append(out, err.Error()) },
	}
	_, _ = conf.Check("example.com/p", fset, []*goast.File{f}, nil)
	return out
}

func TestSourceRejectsCollidingIdentifiers(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		prefix bool
		ident  string
	}{
		{
			name:   "variants differing in case",
			src:    "pub enum S: uint8 { A = 1, a = 2 }",
			prefix: true,
			ident:  "SA",
		},
		{
			name:   "enum names differing in case",
			src:    "pub enum foo { A }\npub enum Foo { B }",
			prefix: true,
			ident:  "Foo",
		},
		{
			name:  "same unprefixed variant in two enums",
			src:   "pub enum S { A }\npub enum T { A }",
			ident: "A",
		},
		{
			name:  "unprefixed variant named like another enum",
			src:   "pub enum S { T }\npub enum T { X }",
			ident: "T",
		},
		{
			name:   "prefixed variant named like another enum",
			src:    "pub enum S { Foo }\npub enum SFoo { X }",
			prefix: true,
			ident:  "SFoo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			opts := testOptions(t)
			opts.Emit.Package = "p"
			opts.Emit.PrefixVariants = tt.prefix

			res, err := generate.Source(ctx, "x.encap", tt.src, opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, diagnostic.ErrSyntax)
			assert.Contains(t, err.Error(), "generated name "+tt.ident+" ")

			// emitted anyway, the same definitions do not compile
			file, err := dsl.Parse(ctx, "x.encap", tt.src)
			require.NoError(t, err)
			for _, def := range file.Enums {
				_, _ = validator.Validate(ctx, def, validator.Options{PrefixVariants: tt.prefix})
			}
			code, err := emitter.Emit(ctx, file, opts.Emit)
			require.NoError(t, err)

			errs := typeErrors(t, code)
			require.NotEmpty(t, errs)
			assert.Contains(t, strings.Join(errs, "\n"), tt.ident+" redeclared")
		})
	}
}

func TestSourceAcceptsDistinctIdentifiers(t *testing.T) {
	src := `pub enum Foo { A, B }
enum bar { A, B }
enum E { S, F }
enum rest { Yield, V }
`
	for _, prefix := range []bool{true, false} {
		opts := testOptions(t)
		opts.Emit.Package = "p"
		opts.Emit.PrefixVariants = prefix
		if !prefix {
			// unprefixed, Foo and bar would both declare A and B
			src = strings.ReplaceAll(src, "enum bar { A, B }", "enum bar { C, D }")
		}

		res, err := generate.Source(context.Background(), "x.encap", src, opts)
		require.NoError(t, err, "prefix=%v", prefix)
		assert.Empty(t, typeErrors(t, res.Code), string(res.Code))
	}
}

func TestFiles(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/repo/go.mod", []byte("module example.com/repo\n\ngo 1.21\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/win/styles.encap", []byte(styles), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/win/doc.go", []byte("package win\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/flags/mode.encap", []byte("enum Mode: uint8 { Read = 1, Write = 2 }\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/flags/flags.go", []byte("// Package flags.\npackage flags\n"), 0o644))

	results, err := generate.Files(ctx, fs, []string{"/repo/**/*.encap"}, testOptions(t))
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "/repo/flags/mode_encap.go", results[0].Output)
	assert.Equal(t, "/repo/win/styles_encap.go", results[1].Output)

	mode, err := afero.ReadFile(fs, "/repo/flags/mode_encap.go")
	require.NoError(t, err)
	assert.Contains(t, string(mode), "package flags")
	// go 1.21 predates range-over-func.
	assert.Contains(t, string(mode), "Next() (mode, bool)")

	win, err := afero.ReadFile(fs, "/repo/win/styles_encap.go")
	require.NoError(t, err)
	assert.Contains(t, string(win), "package win")
}

func TestFilesWritesNothingOnError(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(fs, "/repo/good.encap", []byte("package p\nenum Good { A }\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/repo/bad.encap", []byte("package p\nenum Bad: uint8 { A = 300 }\n"), 0o644))

	_, err := generate.Files(ctx, fs, []string{"/repo"}, testOptions(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, diagnostic.ErrValueRange)

	ok, err := afero.Exists(fs, "/repo/good_encap.go")
	require.NoError(t, err)
	assert.False(t, ok)
}

// createFailFs refuses to create files under dir.
type createFailFs struct {
	afero.Fs
	dir string
}

func (f createFailFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 && strings.HasPrefix(name, f.dir) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestFilesWriteFailureLeavesNoPartialOutput(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()

	require.NoError(t, afero.WriteFile(mem, "/repo/a/a.encap", []byte("package a\nenum A { X }\n"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/repo/z/z.encap", []byte("package z\nenum Z { X }\n"), 0o644))

	fs := createFailFs{Fs: mem, dir: "/repo/z/"}
	_, err := generate.Files(ctx, fs, []string{"/repo/**/*.encap"}, testOptions(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)

	for _, out := range []string{"/repo/a/a_encap.go", "/repo/z/z_encap.go"} {
		ok, err := afero.Exists(mem, out)
		require.NoError(t, err)
		assert.False(t, ok, out)
	}

	var leftover []string
	require.NoError(t, afero.Walk(mem, "/repo", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".tmp") {
			leftover = append(leftover, path)
		}
		return nil
	}))
	assert.Empty(t, leftover)
}

func TestFilesDryRunAndOutputDir(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.encap", []byte("package p\nenum A { X }\n"), 0o644))

	opts := testOptions(t)
	opts.OutputDir = "/out"
	opts.OutputSuffix = ".gen.go"
	opts.DryRun = true

	results, err := generate.Files(ctx, fs, []string{"/src/a.encap"}, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/out/a.gen.go", results[0].Output)
	assert.NotEmpty(t, results[0].Code)

	ok, err := afero.Exists(fs, "/out/a.gen.go")
	require.NoError(t, err)
	assert.False(t, ok)

	opts.DryRun = false
	_, err = generate.Files(ctx, fs, []string{"/src/a.encap"}, opts)
	require.NoError(t, err)
	ok, err = afero.Exists(fs, "/out/a.gen.go")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilesNoMatch(t *testing.T) {
	_, err := generate.Files(context.Background(), afero.NewMemMapFs(), []string{"/none/**/*.encap"}, testOptions(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no .encap files")
}

func TestExpand(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/r/a.encap", "/r/b.encap", "/r/sub/c.encap", "/r/sub/d.txt"} {
		require.NoError(t, afero.WriteFile(fs, p, nil, 0o644))
	}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{name: "directory", patterns: []string{"/r"}, want: []string{"/r/a.encap", "/r/b.encap"}},
		{name: "recursive", patterns: []string{"/r/**/*.encap"}, want: []string{"/r/a.encap", "/r/b.encap", "/r/sub/c.encap"}},
		{name: "duplicates", patterns: []string{"/r/a.encap", "/r/*.encap"}, want: []string{"/r/a.encap", "/r/b.encap"}},
		{name: "plain path kept", patterns: []string{"/r/missing.encap"}, want: []string{"/r/missing.encap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := generate.Expand(fs, tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIterStyleFor(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/old/go.mod", []byte("module old\n\ngo 1.22.5\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/new/go.mod", []byte("module new\n\ngo 1.23\n"), 0o644))
	require.NoError(t, fs.MkdirAll("/old/deep/pkg", 0o755))

	assert.Equal(t, emitter.IterLegacy, generate.IterStyleFor(ctx, fs, "/old/deep/pkg"))
	assert.Equal(t, emitter.IterSeq, generate.IterStyleFor(ctx, fs, "/new"))
	assert.Equal(t, emitter.IterSeq, generate.IterStyleFor(ctx, fs, "/nowhere"))
}

func TestPackageName(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a/x_test.go", []byte("package a_test\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/a/y.go", []byte("package alpha\n"), 0o644))
	require.NoError(t, fs.MkdirAll("/my-Pkg2", 0o755))

	assert.Equal(t, "alpha", generate.PackageName(ctx, fs, "/a"))
	assert.Equal(t, "mypkg2", generate.PackageName(ctx, fs, "/my-Pkg2"))
}

func TestFromConfig(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	prefix := false
	sep := ", "
	cfg := &config.Config{
		Path:           "/repo/.encapgen.yaml",
		Package:        "win",
		OutputDir:      "gen",
		AliasPolicy:    "all",
		Iterator:       "legacy",
		PrefixVariants: &prefix,
		Separator:      &sep,
		Constants:      map[string]string{"EXTERNAL_CONST": "0x8"},
	}

	opts, err := generate.FromConfig(ctx, fs, cfg)
	require.NoError(t, err)
	assert.Equal(t, "win", opts.Emit.Package)
	assert.Equal(t, "/repo/gen", opts.OutputDir)
	assert.Equal(t, emitter.AliasAll, opts.Emit.AliasPolicy)
	assert.Equal(t, emitter.IterLegacy, opts.Emit.IterStyle)
	assert.False(t, opts.Emit.PrefixVariants)
	assert.Equal(t, ", ", opts.Emit.Separator)
	assert.Equal(t, "(empty)", opts.Emit.EmptyToken)
	assert.Equal(t, generate.DefaultSuffix, opts.OutputSuffix)

	require.NotNil(t, opts.Constants)
	v, ok, err := opts.Constants.ResolveConstant(ctx, "EXTERNAL_CONST")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(8), v.Int64())

	_, err = generate.FromConfig(ctx, fs, &config.Config{AliasPolicy: "some"})
	assert.Error(t, err)

	opts, err = generate.FromConfig(ctx, fs, nil)
	require.NoError(t, err)
	assert.Nil(t, opts.Constants)
}
