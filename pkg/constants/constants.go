// Package constants provides the name resolution services that give
// "(Enum) NAME" casts their integer value at generation time.
package constants

import (
	"context"
	"math/big"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Resolver maps an identifier to an integer constant. A missing name is
// reported with ok == false and a nil error; err is reserved for failures
// of the backing source itself.
type Resolver interface {
	ResolveConstant(ctx context.Context, name string) (value *big.Int, ok bool, err error)
}

// ParseInt parses a Go integer literal: decimal, 0x, 0o, 0b, legacy octal,
// underscores and an optional leading sign.
func ParseInt(text string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(text), 0)
	if !ok {
		return nil, errors.Errorf("invalid integer literal %q", text)
	}
	return v, nil
}

// ParseLiteral parses an integer literal of the definition language. It
// accepts what ParseInt accepts except that a leading zero never selects
// octal: 010 is ten and 09 is nine. Octal needs the 0o prefix.
func ParseLiteral(text string) (*big.Int, error) {
	t := strings.TrimSpace(text)
	if len(t) > 1 && t[0] == '0' && !strings.ContainsAny(t[1:2], "xXoObB") {
		t = strings.TrimLeft(t, "0_")
		if t == "" {
			t = "0"
		}
	}
	v, err := ParseInt(t)
	if err != nil {
		return nil, errors.Errorf("invalid integer literal %q", text)
	}
	return v, nil
}

// Map is a fixed table of constants, usually filled from configuration or
// command line flags.
type Map map[string]*big.Int

// ParseMap builds a Map from name -> integer literal pairs.
func ParseMap(raw map[string]string) (Map, error) {
	m := make(Map, len(raw))
	for name, text := range raw {
		v, err := ParseInt(text)
		if err != nil {
			return nil, errors.Errorf("constant %s: %w", name, err)
		}
		m[name] = v
	}
	return m, nil
}

func (m Map) ResolveConstant(ctx context.Context, name string) (*big.Int, bool, error) {
	v, ok := m[name]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(v), true, nil
}

// Names returns the sorted constant names.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain asks each resolver in order and returns the first hit.
type Chain []Resolver

func (c Chain) ResolveConstant(ctx context.Context, name string) (*big.Int, bool, error) {
	for _, r := range c {
		if r == nil {
			continue
		}
		v, ok, err := r.ResolveConstant(ctx, name)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// None resolves nothing. It is the default when no source is configured.
var None Resolver = Chain(nil)
