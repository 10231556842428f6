// Package validator checks enum definitions and resolves their values.
package validator

import (
	"context"
	"go/token"
	"go/types"
	"math/big"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/constants"
	"github.com/walteh/encapgen/pkg/diagnostic"
	"github.com/walteh/encapgen/pkg/resolver"
)

type Options struct {
	// Constants resolves "(T) NAME" casts. Nil means no external constants.
	Constants constants.Resolver
	// PrefixVariants must match the emitter option of the same name; it
	// decides which Go identifiers the variants turn into.
	PrefixVariants bool
}

// layout arguments Go can honour: the wrapper already has the layout of
// its single field
var acceptedLayouts = map[string]bool{
	"C":           true,
	"transparent": true,
}

// integer names from other languages that people put in repr(...)
var foreignIntNames = map[string]bool{
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
}

// Validate checks def and resolves every variant value in declaration
// order, storing the result in Variant.Resolved. Every independent problem
// is reported; the returned error is a *multierror.Error of
// *diagnostic.Diagnostic values.
func Validate(ctx context.Context, def *ast.EnumDefinition, opts Options) (*ast.EnumDefinition, error) {
	if def == nil {
		return nil, errors.New("nil enum definition")
	}

	logger := zerolog.Ctx(ctx).With().Str("enum", def.Name).Logger()

	var merr *multierror.Error
	report := func(err error) {
		merr = multierror.Append(merr, err)
	}

	checkName(def, report)
	checkVisibility(def, report)
	checkLayout(def, report)

	if len(def.Variants) == 0 {
		report(diagnostic.New(diagnostic.ErrEmptyEnum, def.Pos,
			"enum %s has no variants", def.Name).
			WithSubject(def.Name, "").
			WithLength(len(def.Name)))
		return def, merr.ErrorOrNil()
	}

	checkVariantNames(def, opts, report)
	resolveValues(ctx, def, opts, report)

	if err := merr.ErrorOrNil(); err != nil {
		logger.Debug().Int("errors", len(merr.Errors)).Msg("definition is invalid")
		return def, err
	}

	logger.Debug().Int("variants", len(def.Variants)).Msg("definition validated")
	return def, nil
}

func usable(ident string) (string, bool) {
	switch {
	case !ast.IsIdent(ident):
		return "is not a valid identifier", false
	case token.IsKeyword(ident):
		return "is a Go keyword", false
	case types.Universe.Lookup(ident) != nil:
		return "shadows the predeclared identifier " + ident, false
	}
	return "", true
}

func checkName(def *ast.EnumDefinition, report func(error)) {
	if why, ok := usable(def.TypeIdent()); !ok {
		report(diagnostic.New(diagnostic.ErrSyntax, def.Pos, "enum name %s %s", def.Name, why).
			WithSubject(def.Name, "").
			WithLength(len(def.Name)))
	}
}

func checkVisibility(def *ast.EnumDefinition, report func(error)) {
	if def.FieldVisibility.AtMost(def.Visibility) {
		return
	}
	report(diagnostic.New(diagnostic.ErrVisibilityConflict, def.FieldVisibility.Pos,
		"raw value of %s is %s but the type is only %s; the raw value cannot be more visible than its type",
		def.Name, describe(def.FieldVisibility), describe(def.Visibility)).
		WithSubject(def.Name, "").
		WithLength(len(def.FieldVisibility.String())))
}

func describe(v ast.Visibility) string {
	if s := v.String(); s != "" {
		return s
	}
	return "private"
}

func checkLayout(def *ast.EnumDefinition, report func(error)) {
	for _, attr := range def.Attributes {
		if !attr.IsLayout() {
			continue
		}
		for _, arg := range attr.LayoutArgs() {
			if acceptedLayouts[arg] {
				continue
			}
			d := diagnostic.New(diagnostic.ErrSyntax, attr.Pos, "unsupported layout %s", attr.String()).
				WithSubject(def.Name, "").
				WithLength(len(attr.String()))
			if _, isInt := ast.LookupIntType(arg); isInt || foreignIntNames[arg] {
				d.Message = "repr(" + arg + ") cannot select the storage type; declare it after the name instead: enum " + def.Name + ": <type> { ... }"
			}
			report(d)
		}
	}
}

func checkVariantNames(def *ast.EnumDefinition, opts Options, report func(error)) {
	reserved := make(map[string]bool)
	for _, id := range def.PackageIdents() {
		reserved[id] = true
	}

	seen := make(map[string]*ast.Variant, len(def.Variants))
	idents := make(map[string]*ast.Variant, len(def.Variants))
	for _, v := range def.Variants {
		if first, dup := seen[v.Name]; dup {
			report(diagnostic.New(diagnostic.ErrDuplicateVariant, v.Pos,
				"%s is declared more than once in %s (first at %s)", v.Name, def.Name, first.Pos).
				WithSubject(def.Name, v.Name).
				WithLength(len(v.Name)))
			continue
		}
		seen[v.Name] = v

		ident := def.VariantIdent(v, opts.PrefixVariants)
		if why, ok := usable(ident); !ok {
			report(diagnostic.New(diagnostic.ErrSyntax, v.Pos, "variant %s: generated name %s %s", v.Name, ident, why).
				WithSubject(def.Name, v.Name).
				WithLength(len(v.Name)))
			continue
		}
		if reserved[ident] {
			report(diagnostic.New(diagnostic.ErrSyntax, v.Pos,
				"variant %s: generated name %s collides with a generated declaration of %s", v.Name, ident, def.Name).
				WithSubject(def.Name, v.Name).
				WithLength(len(v.Name)))
			continue
		}
		if first, ok := idents[ident]; ok {
			report(diagnostic.New(diagnostic.ErrSyntax, v.Pos,
				"variant %s: generated name %s is also the name of variant %s (at %s)", v.Name, ident, first.Name, first.Pos).
				WithSubject(def.Name, v.Name).
				WithLength(len(v.Name)))
			continue
		}
		idents[ident] = v
	}
}

func resolveValues(ctx context.Context, def *ast.EnumDefinition, opts Options, report func(error)) {
	scope := resolver.NewScope(def)
	r := resolver.New(def, opts.Constants)

	var prev *big.Int
	prevFailed := false

	for _, v := range def.Variants {
		var (
			val *big.Int
			err error
		)
		switch {
		case v.Value != nil:
			val, err = r.Resolve(ctx, v.Value, scope)
		case prevFailed:
			err = resolver.ErrDependency
		default:
			val, err = r.Next(v, prev)
		}

		if err != nil {
			scope.Fail(v.Name)
			prev, prevFailed = nil, true
			if errors.Is(err, resolver.ErrDependency) {
				continue
			}
			var d *diagnostic.Diagnostic
			if errors.As(err, &d) && d.Variant == "" {
				d.WithSubject(def.Name, v.Name)
			}
			report(err)
			continue
		}

		v.Resolved = val
		scope.Define(v.Name, val)
		prev, prevFailed = val, false
	}
}

// Aliases returns a hint for every variant whose bit pattern equals an
// earlier variant's. Aliasing is legal; the hints only make it visible.
func Aliases(def *ast.EnumDefinition) []*diagnostic.Diagnostic {
	var out []*diagnostic.Diagnostic
	first := make(map[string]*ast.Variant)
	for _, v := range def.Variants {
		if v.Resolved == nil {
			continue
		}
		key := v.Resolved.String()
		if orig, ok := first[key]; ok {
			d := diagnostic.New(nil, v.Pos, "%s has the same value as %s", v.Name, orig.Name).
				WithSubject(def.Name, v.Name).
				WithLength(len(v.Name))
			d.Severity = diagnostic.Hint
			out = append(out, d)
			continue
		}
		first[key] = v
	}
	return out
}
