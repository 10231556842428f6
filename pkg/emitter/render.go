package emitter

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/walteh/encapgen/pkg/ast"
)

// Render returns what the generated String method prints for value. It
// works on the definition directly so tools can show the rendering
// without compiling the output.
func Render(def *ast.EnumDefinition, value *big.Int, opts Options) string {
	ev, err := newEnumView(def, opts)
	if err != nil {
		return ""
	}

	raw := def.Type.Bits64(value)
	if raw == 0 {
		zero, _ := strconv.Unquote(ev.Zero)
		return zero
	}

	sep, _ := strconv.Unquote(ev.Separator)
	var parts []string
	rest := raw
	for _, vv := range ev.Table {
		v, _ := def.Lookup(vv.Name)
		bits := def.Type.Bits64(v.Resolved)
		if raw&bits != bits {
			continue
		}
		parts = append(parts, vv.Name)
		rest &^= bits
	}
	if rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(rest, 16))
	}
	return strings.Join(parts, sep)
}

// Literal is the Go literal the generated code uses for value.
func Literal(def *ast.EnumDefinition, value *big.Int) string {
	return literal(def.Type, value)
}
