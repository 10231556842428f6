// Package resolver folds variant value expressions into integers of the
// enum's underlying type.
package resolver

import (
	"context"
	"math/big"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/constants"
	"github.com/walteh/encapgen/pkg/diagnostic"
)

// ErrDependency is returned when an expression references a variant that
// itself failed to resolve. The original failure has already been
// reported, so callers should not report this one.
var ErrDependency = errors.Base("depends on an unresolved variant")

// Resolver evaluates expressions for one enum definition.
type Resolver struct {
	// Enum is the enum name as written; it is the only valid cast target
	// besides the underlying type name.
	Enum      string
	Type      ast.IntType
	Constants constants.Resolver
}

func New(def *ast.EnumDefinition, consts constants.Resolver) *Resolver {
	if consts == nil {
		consts = constants.None
	}
	return &Resolver{
		Enum:      def.Name,
		Type:      def.Type,
		Constants: consts,
	}
}

// Resolve folds e using the variants already defined in scope. The result
// always fits r.Type.
func (r *Resolver) Resolve(ctx context.Context, e ast.Expr, scope *Scope) (*big.Int, error) {
	v, err := r.eval(ctx, e, scope, false)
	if err != nil {
		return nil, err
	}
	if !r.Type.Fits(v) {
		return nil, r.rangeErr(e, "%s = %s does not fit %s", e.String(), v.String(), r.describeRange())
	}
	return v, nil
}

// Next returns the implicit value of a variant declared without "= expr":
// zero for the first variant, otherwise the previous value plus one.
func (r *Resolver) Next(v *ast.Variant, prev *big.Int) (*big.Int, error) {
	if prev == nil {
		return new(big.Int), nil
	}
	next := new(big.Int).Add(prev, big.NewInt(1))
	if !r.Type.Fits(next) {
		return nil, diagnostic.New(diagnostic.ErrValueRange, v.Pos,
			"implicit value of %s (%s + 1) overflows %s", v.Name, prev.String(), r.Type.Name).
			WithSubject(r.Enum, v.Name).
			WithLength(len(v.Name))
	}
	return next, nil
}

func (r *Resolver) describeRange() string {
	return r.Type.Name + " [" + r.Type.Min().String() + ", " + r.Type.Max().String() + "]"
}

func (r *Resolver) rangeErr(e ast.Expr, format string, args ...any) error {
	return diagnostic.New(diagnostic.ErrValueRange, e.Position(), format, args...).
		WithLength(len(e.String()))
}

// wrap reduces v modulo 2^bits into the type's range.
func (r *Resolver) wrap(v *big.Int) *big.Int {
	m := new(big.Int).Mod(v, r.Type.Modulus())
	if r.Type.Signed && m.Cmp(r.Type.Max()) > 0 {
		m.Sub(m, r.Type.Modulus())
	}
	return m
}

// eval returns the exact value of e. underNeg is true when e is the direct
// operand of a unary minus, which lets a signed literal reach MaxInt+1 so
// that the minimum value can be written.
func (r *Resolver) eval(ctx context.Context, e ast.Expr, scope *Scope, underNeg bool) (*big.Int, error) {
	switch e := e.(type) {
	case *ast.Literal:
		return r.literal(e, underNeg)

	case *ast.Paren:
		return r.eval(ctx, e.X, scope, underNeg)

	case *ast.Ref:
		return r.ref(e, scope)

	case *ast.Cast:
		return r.cast(ctx, e)

	case *ast.Unary:
		x, err := r.eval(ctx, e.X, scope, e.Op == "-")
		if err != nil {
			return nil, err
		}
		return r.unary(e, x)

	case *ast.Binary:
		x, err := r.eval(ctx, e.X, scope, false)
		if err != nil {
			return nil, err
		}
		y, err := r.eval(ctx, e.Y, scope, false)
		if err != nil {
			return nil, err
		}
		return r.binary(e, x, y)

	case nil:
		return nil, errors.New("nil expression")

	default:
		return nil, errors.Errorf("unsupported expression %T", e)
	}
}

func (r *Resolver) literal(e *ast.Literal, underNeg bool) (*big.Int, error) {
	v, err := constants.ParseLiteral(e.Text)
	if err != nil {
		return nil, diagnostic.New(diagnostic.ErrSyntax, e.Pos, "invalid integer literal %q", e.Text).
			WithLength(len(e.Text))
	}
	if r.Type.Fits(v) {
		return v, nil
	}
	if underNeg && r.Type.Signed && new(big.Int).Neg(v).Cmp(r.Type.Min()) == 0 {
		return v, nil
	}
	return nil, r.rangeErr(e, "literal %s does not fit %s", e.Text, r.describeRange())
}

func (r *Resolver) ref(e *ast.Ref, scope *Scope) (*big.Int, error) {
	if v, ok := scope.Lookup(e.Name); ok {
		return v, nil
	}
	if scope.Failed(e.Name) {
		return nil, ErrDependency
	}
	if at, ok := scope.Declared(e.Name); ok {
		return nil, diagnostic.New(diagnostic.ErrForwardReference, e.Pos,
			"%s is declared later (line %d); a value may only use variants declared before it", e.Name, at.Line).
			WithLength(len(e.Name))
	}
	return nil, diagnostic.New(diagnostic.ErrForwardReference, e.Pos,
		"%s is not a variant of %s", e.Name, r.Enum).
		WithLength(len(e.Name))
}

func (r *Resolver) cast(ctx context.Context, e *ast.Cast) (*big.Int, error) {
	if e.Type != r.Enum && e.Type != r.Type.Name {
		return nil, diagnostic.New(diagnostic.ErrSyntax, e.Pos,
			"cannot cast to %s; external constants must be cast to (%s)", e.Type, r.Enum).
			WithLength(len(e.String()))
	}

	v, ok, err := r.Constants.ResolveConstant(ctx, e.Const)
	if err != nil {
		return nil, diagnostic.New(diagnostic.ErrUnresolvedConstant, e.Pos, "resolving %s: %v", e.Const, err).
			WithLength(len(e.String()))
	}
	if !ok {
		return nil, diagnostic.New(diagnostic.ErrUnresolvedConstant, e.Pos,
			"%s is not defined by any constant source", e.Const).
			WithLength(len(e.String()))
	}

	zerolog.Ctx(ctx).Trace().Str("constant", e.Const).Str("value", v.String()).Msg("resolved external constant")

	if !r.Type.Fits(v) {
		return nil, r.rangeErr(e, "constant %s = %s does not fit %s", e.Const, v.String(), r.describeRange())
	}
	return v, nil
}

func (r *Resolver) unary(e *ast.Unary, x *big.Int) (*big.Int, error) {
	switch e.Op {
	case "-":
		if !r.Type.Signed {
			// two's complement negation wraps for unsigned types
			return new(big.Int).Mod(new(big.Int).Neg(x), r.Type.Modulus()), nil
		}
		out := new(big.Int).Neg(x)
		if !r.Type.Fits(out) {
			return nil, r.rangeErr(e, "negating %s overflows %s", x.String(), r.describeRange())
		}
		return out, nil

	case "!":
		if !r.Type.Signed {
			return new(big.Int).Sub(r.Type.Max(), x), nil
		}
		return new(big.Int).Not(x), nil

	default:
		return nil, diagnostic.New(diagnostic.ErrSyntax, e.Pos, "unknown unary operator %q", e.Op)
	}
}

func (r *Resolver) binary(e *ast.Binary, x, y *big.Int) (*big.Int, error) {
	out := new(big.Int)

	switch e.Op {
	case "|":
		return out.Or(x, y), nil
	case "&":
		return out.And(x, y), nil
	case "^":
		return out.Xor(x, y), nil

	case "+":
		out.Add(x, y)
	case "-":
		out.Sub(x, y)
	case "*":
		out.Mul(x, y)

	case "/", "%":
		if y.Sign() == 0 {
			return nil, r.rangeErr(e, "division by zero in %s", e.String())
		}
		if e.Op == "/" {
			out.Quo(x, y)
		} else {
			out.Rem(x, y)
		}

	case "<<", ">>":
		if y.Sign() < 0 || y.Cmp(big.NewInt(int64(r.Type.Bits))) >= 0 {
			return nil, r.rangeErr(e, "shift count %s out of range for %s", y.String(), r.Type.Name)
		}
		n := uint(y.Uint64())
		if e.Op == ">>" {
			return out.Rsh(x, n), nil
		}
		// bits shifted past the width are dropped, as on the machine
		return r.wrap(out.Lsh(x, n)), nil

	default:
		return nil, diagnostic.New(diagnostic.ErrSyntax, e.Pos, "unknown binary operator %q", e.Op)
	}

	if !r.Type.Fits(out) {
		return nil, r.rangeErr(e, "%s = %s overflows %s", e.String(), out.String(), r.describeRange())
	}
	return out, nil
}
