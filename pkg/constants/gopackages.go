package constants

import (
	"context"
	"go/constant"
	"go/types"
	"math/big"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/tools/go/packages"
)

// GoPackages resolves constants declared at package scope in Go packages.
// "pkg.NAME" selects by package name or last import path element; a bare
// "NAME" is looked up in every package, first match wins.
type GoPackages struct {
	pkgs []*types.Package
}

// NewGoPackages wraps already type-checked packages.
func NewGoPackages(pkgs ...*types.Package) *GoPackages {
	return &GoPackages{pkgs: pkgs}
}

// LoadGoPackages loads patterns relative to dir with go/packages.
func LoadGoPackages(ctx context.Context, dir string, patterns ...string) (*GoPackages, error) {
	if len(patterns) == 0 {
		return NewGoPackages(), nil
	}

	cfg := &packages.Config{
		Context: ctx,
		Dir:     dir,
		Mode:    packages.NeedName | packages.NeedTypes,
	}

	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Errorf("loading go packages %v: %w", patterns, err)
	}

	out := &GoPackages{}
	var loadErrs []string
	for _, p := range pkgs {
		for _, e := range p.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
		if p.Types != nil {
			out.pkgs = append(out.pkgs, p.Types)
		}
	}
	if len(loadErrs) > 0 {
		return nil, errors.Errorf("loading go packages: %s", strings.Join(loadErrs, "; "))
	}

	zerolog.Ctx(ctx).Debug().Strs("patterns", patterns).Int("packages", len(out.pkgs)).Msg("loaded go packages for constant resolution")

	return out, nil
}

func (g *GoPackages) ResolveConstant(ctx context.Context, name string) (*big.Int, bool, error) {
	qual, ident := "", name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		qual, ident = name[:i], name[i+1:]
	}

	for _, p := range g.pkgs {
		if qual != "" && p.Name() != qual && path.Base(p.Path()) != qual {
			continue
		}
		obj := p.Scope().Lookup(ident)
		if obj == nil {
			continue
		}
		c, ok := obj.(*types.Const)
		if !ok {
			return nil, false, errors.Errorf("%s.%s is a %T, not a constant", p.Path(), ident, obj)
		}
		v := constant.ToInt(c.Val())
		if v.Kind() != constant.Int {
			return nil, false, errors.Errorf("%s.%s is not an integer constant", p.Path(), ident)
		}
		out, ok := new(big.Int).SetString(v.ExactString(), 10)
		if !ok {
			return nil, false, errors.Errorf("%s.%s: unexpected constant %s", p.Path(), ident, v.ExactString())
		}
		return out, true, nil
	}

	return nil, false, nil
}
