// Package emitter renders validated enum definitions as Go source.
package emitter

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"go/format"
	"math/big"
	"strconv"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/ast"
)

//go:embed templates/*.gotmpl
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"comment": comment,
}).ParseFS(templatesFS, "templates/*.gotmpl"))

func comment(line string) string {
	if strings.TrimSpace(line) == "" {
		return "//"
	}
	return "// " + line
}

type fileView struct {
	Source  string
	Package string
	Enums   []*enumView
}

type enumView struct {
	Docs       []string
	Directives []string

	Type        string
	Raw         string
	RawUnsigned string
	Signed      bool
	Constructor string
	RawAccessor bool

	Variants     []*variantView
	Table        []*variantView
	VariantsFunc string

	Zero      string
	Separator string

	Flags string
	Names string
	Hex   string
	Iter  string

	IterSeq    bool
	Arithmetic bool

	L locals
}

// locals names the receivers, parameters and variables of the generated
// methods. They are picked per enum so that none shadows a package-level
// name the method body refers to.
type locals struct {
	Recv, Other, Raw, N, It, Yield, V, F, I, S, Rest string
}

func pickLocals(taken map[string]bool) locals {
	pick := func(name string) string {
		candidate := name
		for i := 0; taken[candidate]; i++ {
			candidate = name + strconv.Itoa(i)
		}
		taken[candidate] = true
		return candidate
	}
	return locals{
		Recv:  pick("e"),
		Other: pick("other"),
		Raw:   pick("raw"),
		N:     pick("n"),
		It:    pick("it"),
		Yield: pick("yield"),
		V:     pick("v"),
		F:     pick("f"),
		I:     pick("i"),
		S:     pick("s"),
		Rest:  pick("rest"),
	}
}

type variantView struct {
	Ident      string
	Name       string
	Value      string
	Docs       []string
	Directives []string
}

// Emit renders every enum of file into one formatted Go source file. Every
// variant must already carry its resolved value.
func Emit(ctx context.Context, file *ast.File, opts Options) ([]byte, error) {
	view := &fileView{
		Source:  opts.Source,
		Package: opts.Package,
	}
	if view.Package == "" {
		view.Package = file.Package
	}
	if view.Package == "" {
		return nil, errors.Errorf("no package name for %s: set one with a package clause or an option", file.Filename)
	}
	if view.Source == "" {
		view.Source = file.Filename
	}

	for _, def := range file.Enums {
		ev, err := newEnumView(def, opts)
		if err != nil {
			return nil, err
		}
		view.Enums = append(view.Enums, ev)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "file.go.gotmpl", view); err != nil {
		return nil, errors.Errorf("executing template for %s: %w", file.Filename, err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Errorf("formatting generated code for %s: %w\n%s", file.Filename, err, buf.String())
	}

	zerolog.Ctx(ctx).Debug().Str("file", file.Filename).Int("enums", len(view.Enums)).Int("bytes", len(formatted)).Msg("emitted go source")

	return formatted, nil
}

func newEnumView(def *ast.EnumDefinition, opts Options) (*enumView, error) {
	if !def.Resolved() {
		return nil, errors.Errorf("enum %s has unresolved variants", def.Name)
	}

	sep := opts.Separator
	if sep == "" {
		sep = " | "
	}
	empty := opts.EmptyToken
	if empty == "" {
		empty = "(empty)"
	}

	ev := &enumView{
		Docs:         docLines(def.Attributes, def.TypeIdent()+" is a set of "+def.Name+" flags backed by "+def.Type.Name+"."),
		Directives:   directives(def.Attributes),
		Type:         def.TypeIdent(),
		Raw:          def.Type.Name,
		RawUnsigned:  def.Type.Unsigned().Name,
		Signed:       def.Type.Signed,
		Constructor:  def.ConstructorIdent(),
		RawAccessor:  def.FieldVisibility.Exported(),
		VariantsFunc: def.VariantsIdent(),
		Separator:    strconv.Quote(sep),
		Flags:        def.HelperIdent("flags"),
		Names:        def.HelperIdent("names"),
		Hex:          def.HelperIdent("hex"),
		Iter:         def.HelperIdent("iter"),
		IterSeq:      opts.IterStyle != IterLegacy,
		Arithmetic:   opts.Arithmetic,
	}

	zero := ""
	seen := make(map[string]bool, len(def.Variants))
	for _, v := range def.Variants {
		vv := &variantView{
			Ident:      def.VariantIdent(v, opts.PrefixVariants),
			Name:       v.Name,
			Value:      literal(def.Type, v.Resolved),
			Docs:       docLines(v.Attributes, ""),
			Directives: directives(v.Attributes),
		}
		ev.Variants = append(ev.Variants, vv)

		if v.Resolved.Sign() == 0 {
			if zero == "" {
				zero = v.Name
			}
			continue
		}

		key := v.Resolved.String()
		if opts.AliasPolicy != AliasAll && seen[key] {
			continue
		}
		seen[key] = true
		ev.Table = append(ev.Table, vv)
	}

	if zero == "" {
		zero = empty
	}

	taken := make(map[string]bool)
	for _, id := range def.PackageIdents() {
		taken[id] = true
	}
	for _, vv := range ev.Variants {
		taken[vv.Ident] = true
	}
	ev.L = pickLocals(taken)
	ev.Zero = strconv.Quote(zero)

	return ev, nil
}

// literal prints v the way a reader of the definition expects it: padded
// hex for unsigned types, decimal for signed ones.
func literal(t ast.IntType, v *big.Int) string {
	if t.Signed {
		return v.String()
	}
	return fmt.Sprintf("0x%0*x", int(t.Bits/4), v)
}

func docLines(attrs ast.Attributes, fallback string) []string {
	docs := attrs.Docs()
	if len(docs) == 0 && fallback != "" {
		return []string{fallback}
	}
	return docs
}

// directives renders non-doc attributes as //encap: comment directives so
// go doc hides them and tools can still read them.
func directives(attrs ast.Attributes) []string {
	var out []string
	for _, a := range attrs.Meta() {
		out = append(out, "encap:"+strings.TrimSpace(a.Text))
	}
	return out
}
