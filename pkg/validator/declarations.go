package validator

import (
	"github.com/hashicorp/go-multierror"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/diagnostic"
)

type declaration struct {
	def     *ast.EnumDefinition
	variant *ast.Variant
}

func (d declaration) String() string {
	if d.variant != nil {
		return "variant " + d.variant.Name + " of " + d.def.Name
	}
	return "enum " + d.def.Name
}

// Declarations checks that the enums of one file turn into distinct
// package-level Go identifiers. Collisions inside a single enum are
// reported by Validate.
func Declarations(file *ast.File, opts Options) error {
	var merr *multierror.Error
	owners := make(map[string]declaration)
	byName := make(map[string]*ast.EnumDefinition, len(file.Enums))

	for _, def := range file.Enums {
		if first, ok := byName[def.Name]; ok {
			merr = multierror.Append(merr, diagnostic.New(diagnostic.ErrSyntax, def.Pos,
				"enum %s is already declared at %s", def.Name, first.Pos).
				WithSubject(def.Name, "").
				WithLength(len(def.Name)))
			continue
		}
		byName[def.Name] = def

		mine := make(map[string]declaration)

		// one report per enum for its own declarations; they share a stem
		for _, ident := range def.PackageIdents() {
			if other, ok := owners[ident]; ok {
				merr = multierror.Append(merr, diagnostic.New(diagnostic.ErrSyntax, def.Pos,
					"enum %s: generated name %s is already declared by %s", def.Name, ident, other).
					WithSubject(def.Name, "").
					WithLength(len(def.Name)))
				break
			}
		}
		for _, ident := range def.PackageIdents() {
			mine[ident] = declaration{def: def}
		}

		for _, v := range def.Variants {
			ident := def.VariantIdent(v, opts.PrefixVariants)
			if _, ok := mine[ident]; ok {
				continue
			}
			mine[ident] = declaration{def: def, variant: v}
			if other, ok := owners[ident]; ok {
				merr = multierror.Append(merr, diagnostic.New(diagnostic.ErrSyntax, v.Pos,
					"variant %s: generated name %s is already declared by %s", v.Name, ident, other).
					WithSubject(def.Name, v.Name).
					WithLength(len(v.Name)))
			}
		}

		for ident, d := range mine {
			if _, ok := owners[ident]; !ok {
				owners[ident] = d
			}
		}
	}

	return merr.ErrorOrNil()
}
