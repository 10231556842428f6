package generate

import (
	"context"
	"go/parser"
	"go/token"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/emitter"
)

// seqVersion is the first Go release with range-over-func.
const seqVersion = "v1.23"

// IterStyleFor picks the iterator style for code written to dir from the
// go directive of the nearest go.mod. Without a go.mod the seq style is
// used.
func IterStyleFor(ctx context.Context, fsys afero.Fs, dir string) emitter.IterStyle {
	logger := zerolog.Ctx(ctx)

	path, data, ok := findGoMod(fsys, dir)
	if !ok {
		return emitter.IterSeq
	}

	mf, err := modfile.ParseLax(path, data, nil)
	if err != nil || mf.Go == nil {
		logger.Debug().Str("go.mod", path).Err(err).Msg("no usable go directive, assuming seq iterators")
		return emitter.IterSeq
	}

	v := "v" + mf.Go.Version
	if !semver.IsValid(v) {
		return emitter.IterSeq
	}

	style := emitter.IterSeq
	if semver.Compare(semver.MajorMinor(v), seqVersion) < 0 {
		style = emitter.IterLegacy
	}
	logger.Debug().Str("go.mod", path).Str("go", mf.Go.Version).Str("iterator", string(style)).Msg("resolved iterator style")
	return style
}

func findGoMod(fsys afero.Fs, dir string) (string, []byte, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	for d := abs; ; d = filepath.Dir(d) {
		p := filepath.Join(d, "go.mod")
		if data, err := afero.ReadFile(fsys, p); err == nil {
			return p, data, true
		}
		if parent := filepath.Dir(d); parent == d {
			return "", nil, false
		}
	}
}

// PackageName returns the package of the Go files already in dir, skipping
// tests and files generated by this tool. An empty or missing directory
// falls back to its base name.
func PackageName(ctx context.Context, fsys afero.Fs, dir string) string {
	names, _ := afero.Glob(fsys, filepath.Join(dir, "*.go"))
	sort.Strings(names)

	fset := token.NewFileSet()
	for _, name := range names {
		if strings.HasSuffix(name, "_test.go") || strings.HasSuffix(name, DefaultSuffix) {
			continue
		}
		src, err := afero.ReadFile(fsys, name)
		if err != nil {
			continue
		}
		f, err := parser.ParseFile(fset, name, src, parser.PackageClauseOnly)
		if err != nil {
			continue
		}
		zerolog.Ctx(ctx).Debug().Str("file", name).Str("package", f.Name.Name).Msg("package name from sibling file")
		return f.Name.Name
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return sanitizePackage(filepath.Base(abs))
}

func sanitizePackage(base string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9' && b.Len() > 0:
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" || !ast.IsIdent(name) {
		return "main"
	}
	return name
}
