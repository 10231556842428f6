package ast

import (
	"go/token"
	"unicode"
	"unicode/utf8"
)

// Exported returns name with its first letter upper cased when export is
// true and lower cased otherwise. Go derives visibility from case, so this
// is how a requested visibility reaches the generated identifiers.
func Exported(name string, export bool) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return name
	}
	if export {
		return string(unicode.ToUpper(r)) + name[size:]
	}
	return string(unicode.ToLower(r)) + name[size:]
}

// IsIdent reports whether name is usable as a Go identifier.
func IsIdent(name string) bool {
	return token.IsIdentifier(name)
}

func upperFirst(name string) string {
	return Exported(name, true)
}

// TypeIdent is the Go name of the generated wrapper type.
func (d *EnumDefinition) TypeIdent() string {
	return Exported(d.Name, d.Visibility.Exported())
}

// VariantIdent is the Go name of the package-level value for v. With
// prefix set the type name is prepended, which keeps the variants of
// several enums in one package apart.
func (d *EnumDefinition) VariantIdent(v *Variant, prefix bool) string {
	if prefix {
		return d.TypeIdent() + upperFirst(v.Name)
	}
	return Exported(v.Name, d.Visibility.Exported())
}

// ConstructorIdent follows the raw field visibility: NewT or newT.
func (d *EnumDefinition) ConstructorIdent() string {
	if d.FieldVisibility.Exported() {
		return "New" + upperFirst(d.Name)
	}
	return "new" + upperFirst(d.Name)
}

// VariantsIdent names the function listing every declared variant.
func (d *EnumDefinition) VariantsIdent() string {
	return d.TypeIdent() + "Variants"
}

// HelperIdent names an unexported, type-scoped helper such as _T_flags.
func (d *EnumDefinition) HelperIdent(suffix string) string {
	return "_" + d.Name + "_" + suffix
}

// HelperSuffixes lists the helpers generated for every enum.
var HelperSuffixes = []string{"flags", "names", "hex", "iter"}

// PackageIdents returns every package-level name the generated code for d
// declares besides its variants.
func (d *EnumDefinition) PackageIdents() []string {
	out := []string{d.TypeIdent(), d.ConstructorIdent(), d.VariantsIdent()}
	for _, s := range HelperSuffixes {
		out = append(out, d.HelperIdent(s))
	}
	return out
}
