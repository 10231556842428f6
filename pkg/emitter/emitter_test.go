package emitter_test

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"math/big"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	encapast "github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/constants"
	"github.com/walteh/encapgen/pkg/dsl"
	"github.com/walteh/encapgen/pkg/emitter"
	"github.com/walteh/encapgen/pkg/validator"
)

const windowStyles = `package win

/// Window style bits.
#[repr(C)]
pub enum WindowStyle: pub uint32 {
    /// No style at all.
    None = 0,
    ByteAlignClient = 0x1000,
    ByteAlignWindow = 0x2000,
    #[deprecated]
    External = (WindowStyle) EXTERNAL_CONST,
    Literal = 0x00000008,
}
`

func build(t *testing.T, src string, opts emitter.Options) string {
	t.Helper()
	ctx := context.Background()

	file, err := dsl.Parse(ctx, "styles.encap", src)
	require.NoError(t, err)

	consts, err := constants.ParseMap(map[string]string{"EXTERNAL_CONST": "0x00000008"})
	require.NoError(t, err)

	for _, def := range file.Enums {
		_, err := validator.Validate(ctx, def, validator.Options{Constants: consts, PrefixVariants: opts.PrefixVariants})
		require.NoError(t, err)
	}

	out, err := emitter.Emit(ctx, file, opts)
	require.NoError(t, err)

	typeCheck(t, string(out))
	return string(out)
}

// typeCheck fails the test when the generated code does not compile.
// Generated code imports nothing, so no importer is needed.
func typeCheck(t *testing.T, src string) *types.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "gen.go", src, parser.ParseComments)
	require.NoError(t, err, src)
	assert.Empty(t, f.Imports)

	conf := types.Config{GoVersion: "go1.23"}
	pkg, err := conf.Check("example.com/gen", fset, []*ast.File{f}, nil)
	require.NoError(t, err, src)
	return pkg
}

var spaces = regexp.MustCompile(`[ \t]+`)

func squash(s string) string {
	return spaces.ReplaceAllString(s, " ")
}

func TestEmitWindowStyle(t *testing.T) {
	out := build(t, windowStyles, emitter.DefaultOptions())
	flat := squash(out)

	assert.True(t, strings.HasPrefix(out, "// Code generated by encapgen from styles.encap. DO NOT EDIT.\n"))
	assert.Contains(t, out, "package win\n")

	for _, want := range []string{
		"// Window style bits.\n//\n//encap:repr(C)\ntype WindowStyle struct {\n raw uint32\n}",
		"// No style at all.\n WindowStyleNone = WindowStyle{raw: 0x00000000}",
		"WindowStyleByteAlignClient = WindowStyle{raw: 0x00001000}",
		"WindowStyleByteAlignWindow = WindowStyle{raw: 0x00002000}",
		"//encap:deprecated\n WindowStyleExternal = WindowStyle{raw: 0x00000008}",
		"WindowStyleLiteral = WindowStyle{raw: 0x00000008}",
		"func NewWindowStyle(raw uint32) WindowStyle {",
		"func (e WindowStyle) Raw() uint32 {",
		"func (e WindowStyle) Iter() func(yield func(WindowStyle) bool) {",
		"func WindowStyleVariants() func(yield func(WindowStyle) bool) {",
		"func (e *WindowStyle) OrAssign(other WindowStyle) {",
		"func (e WindowStyle) Shl(n uint) WindowStyle {",
		`return "None"`,
		`s += " | "`,
		"func _WindowStyle_hex(v uint32) string {",
	} {
		assert.Contains(t, flat, want)
	}

	// the external constant and the literal share a value, so only the
	// first-declared name is listed
	assert.Contains(t, flat, `var _WindowStyle_names = [...]string{
 "ByteAlignClient",
 "ByteAlignWindow",
 "External",
}`)
	assert.NotContains(t, out, "_WindowStyle_iter")
}

func TestEmitAliasAll(t *testing.T) {
	opts := emitter.DefaultOptions()
	opts.AliasPolicy = emitter.AliasAll
	out := squash(build(t, windowStyles, opts))

	assert.Contains(t, out, `"External",
 "Literal",
}`)
}

func TestEmitLegacyIterator(t *testing.T) {
	opts := emitter.DefaultOptions()
	opts.IterStyle = emitter.IterLegacy
	out := squash(build(t, windowStyles, opts))

	assert.Contains(t, out, "type _WindowStyle_iter struct {")
	assert.Contains(t, out, "func (e WindowStyle) Iter() *_WindowStyle_iter {")
	assert.Contains(t, out, "func (it *_WindowStyle_iter) Next() (WindowStyle, bool) {")
	assert.Contains(t, out, "func WindowStyleVariants() []WindowStyle {")
	assert.NotContains(t, out, "yield")
}

func TestEmitVisibility(t *testing.T) {
	opts := emitter.DefaultOptions()
	opts.Arithmetic = false
	out := build(t, `package internal

enum mode: int8 {
    Off,
    Low = -128,
    High = 127,
}
`, opts)

	pkg := typeCheck(t, out)
	scope := pkg.Scope()

	for _, name := range []string{"mode", "newMode", "modeOff", "modeLow", "modeHigh", "modeVariants", "_mode_flags"} {
		assert.NotNil(t, scope.Lookup(name), name)
	}
	for _, name := range []string{"Mode", "NewMode", "ModeOff"} {
		assert.Nil(t, scope.Lookup(name), name)
	}

	flat := squash(out)
	assert.Contains(t, flat, "modeLow = mode{raw: -128}")
	assert.Contains(t, flat, "modeHigh = mode{raw: 127}")
	assert.NotContains(t, out, "Raw()")
	assert.NotContains(t, out, "func (e mode) Add(")
	// signed residual bits are printed through the unsigned type
	assert.Contains(t, out, "_mode_hex(uint8(rest))")
}

func TestEmitUnprefixed(t *testing.T) {
	opts := emitter.DefaultOptions()
	opts.PrefixVariants = false
	out := build(t, `pub enum Access: uint8 { Read = 1, Write = 2, ReadWrite = Read | Write }`+"\n", emitter.Options{
		Package:        "access",
		AliasPolicy:    opts.AliasPolicy,
		IterStyle:      emitter.IterSeq,
		PrefixVariants: false,
	})

	flat := squash(out)
	assert.Contains(t, flat, "Read = Access{raw: 0x01}")
	assert.Contains(t, flat, "ReadWrite = Access{raw: 0x03}")
	assert.Contains(t, flat, "func newAccess(raw uint8) Access {")
	assert.Contains(t, flat, `return "(empty)"`)
	assert.Contains(t, out, "package access\n")
}

func TestEmitZeroFallsBackToEmptyToken(t *testing.T) {
	opts := emitter.DefaultOptions()
	opts.EmptyToken = "<none>"
	opts.Separator = ", "
	out := build(t, "package p\n\npub enum Bits: uint16 { A = 1, B = 2 }\n", opts)

	assert.Contains(t, out, `return "<none>"`)
	assert.Contains(t, out, `s += ", "`)
}

func TestEmitSeveralEnums(t *testing.T) {
	out := build(t, `package p

pub enum A: uint8 { X = 1 }

pub enum B: int64 { X = 1, Min = -9223372036854775808 }
`, emitter.DefaultOptions())

	assert.Equal(t, 1, strings.Count(out, "DO NOT EDIT"))
	flat := squash(out)
	assert.Contains(t, flat, "AX = A{raw: 0x01}")
	assert.Contains(t, flat, "BX = B{raw: 1}")
	assert.Contains(t, flat, "BMin = B{raw: -9223372036854775808}")
}

func TestEmitErrors(t *testing.T) {
	ctx := context.Background()

	file, err := dsl.Parse(ctx, "x.encap", "pub enum A: uint8 { X = 1 }")
	require.NoError(t, err)

	_, err = emitter.Emit(ctx, file, emitter.DefaultOptions())
	assert.ErrorContains(t, err, "no package name")

	opts := emitter.DefaultOptions()
	opts.Package = "p"
	_, err = emitter.Emit(ctx, file, opts)
	assert.ErrorContains(t, err, "unresolved")

	_, err = emitter.Emit(ctx, &encapast.File{Filename: "empty.encap"}, opts)
	assert.NoError(t, err)
}

func TestParseOptions(t *testing.T) {
	p, err := emitter.ParseAliasPolicy("")
	require.NoError(t, err)
	assert.Equal(t, emitter.AliasFirst, p)

	p, err = emitter.ParseAliasPolicy("all")
	require.NoError(t, err)
	assert.Equal(t, emitter.AliasAll, p)

	_, err = emitter.ParseAliasPolicy("some")
	assert.Error(t, err)

	s, err := emitter.ParseIterStyle("legacy")
	require.NoError(t, err)
	assert.Equal(t, emitter.IterLegacy, s)

	_, err = emitter.ParseIterStyle("channels")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	file, err := dsl.Parse(ctx, "r.encap", `enum Style: uint16 {
    None = 0,
    A = 0x1,
    B = 0x2,
    AB = A | B,
    Alias = 0x1,
}`)
	require.NoError(t, err)
	def := file.Enums[0]
	_, err = validator.Validate(ctx, def, validator.Options{PrefixVariants: true})
	require.NoError(t, err)

	tests := []struct {
		name  string
		value int64
		opts  func(*emitter.Options)
		want  string
	}{
		{name: "zero variant", value: 0, want: "None"},
		{name: "single", value: 2, want: "B"},
		{name: "combined includes composite", value: 3, want: "A | B | AB"},
		{name: "unknown bits", value: 0x31, want: "A | 0x30"},
		{name: "all aliases", value: 1, opts: func(o *emitter.Options) { o.AliasPolicy = emitter.AliasAll }, want: "A | Alias"},
		{name: "separator", value: 3, opts: func(o *emitter.Options) { o.Separator = "," }, want: "A,B,AB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := emitter.DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			assert.Equal(t, tt.want, emitter.Render(def, big.NewInt(tt.value), opts))
		})
	}
}

func TestEmitByteAlignScenario(t *testing.T) {
	src := `package win

pub enum WindowStyle: pub uint32 {
    ByteAlignClient = 0x00001000,
    ByteAlignWindow = 0x00002000,
}
`
	out := squash(build(t, src, emitter.DefaultOptions()))
	assert.Contains(t, out, `var _WindowStyle_names = [...]string{
 "ByteAlignClient",
 "ByteAlignWindow",
}`)
	assert.Contains(t, out, `return "(empty)"`)

	file, err := dsl.Parse(context.Background(), "win.encap", src)
	require.NoError(t, err)
	def := file.Enums[0]
	_, err = validator.Validate(context.Background(), def, validator.Options{PrefixVariants: true})
	require.NoError(t, err)

	assert.Equal(t, "ByteAlignClient | ByteAlignWindow", emitter.Render(def, big.NewInt(0x00003000), emitter.DefaultOptions()))
	assert.Equal(t, "0x00003000", emitter.Literal(def, big.NewInt(0x00003000)))
}

func TestEmitLocalsDoNotShadowDeclarations(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		prefix bool
		want   []string
	}{
		{
			name:   "single letter private enum",
			src:    "package p\n\nenum E: uint8 { A = 1, B = 2 }\n",
			prefix: true,
			want:   []string{"func (e0 e) Or(other e) e {", "func newE(raw uint8) e {"},
		},
		{
			name: "variants named like locals",
			src:  "package p\n\nenum Flags: uint16 { F = 1, V = 2, Yield = 4, S = 8, I = 16, Rest = 32 }\n",
			want: []string{"for i0, f0 := range _Flags_flags {", "rest0 := e.raw", "func(yield0 func(flags) bool)"},
		},
		{
			name:   "enum named like the constructor parameter",
			src:    "package p\n\nenum Raw: uint8 { A = 1 }\nenum Other: uint8 { A = 1 }\nenum N: uint8 { A = 1 }\n",
			prefix: true,
			want: []string{
				"func newRaw(raw0 uint8) raw {",
				"func (e other) And(other0 other) other {",
				"func (e n) Shl(n0 uint) n {",
			},
		},
	}

	for _, tt := range tests {
		for _, style := range []emitter.IterStyle{emitter.IterSeq, emitter.IterLegacy} {
			t.Run(tt.name+"/"+string(style), func(t *testing.T) {
				opts := emitter.DefaultOptions()
				opts.PrefixVariants = tt.prefix
				opts.IterStyle = style
				out := squash(build(t, tt.src, opts))
				for _, want := range tt.want {
					if strings.Contains(want, "yield") && style == emitter.IterLegacy {
						continue
					}
					assert.Contains(t, out, want)
				}
			})
		}
	}
}
