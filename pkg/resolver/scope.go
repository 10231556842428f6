package resolver

import (
	"math/big"

	"github.com/walteh/encapgen/pkg/ast"
	"github.com/walteh/encapgen/pkg/position"
)

// Scope tracks which sibling variants are visible to a value expression.
// Only variants defined before the current one resolve; the full
// declaration list is kept so a later declaration can be reported as a
// forward reference instead of an unknown name.
type Scope struct {
	resolved map[string]*big.Int
	order    []string
	declared map[string]position.Position
	failed   map[string]bool
}

// NewScope prepares a scope for def. No variant is resolved yet.
func NewScope(def *ast.EnumDefinition) *Scope {
	s := &Scope{
		resolved: make(map[string]*big.Int),
		declared: make(map[string]position.Position),
		failed:   make(map[string]bool),
	}
	if def != nil {
		for _, v := range def.Variants {
			if _, dup := s.declared[v.Name]; !dup {
				s.declared[v.Name] = v.Pos
			}
		}
	}
	return s
}

// Define records the value of a variant once it has been resolved. A name
// that is already defined keeps its first value.
func (s *Scope) Define(name string, v *big.Int) {
	if _, ok := s.resolved[name]; ok {
		return
	}
	s.resolved[name] = new(big.Int).Set(v)
	s.order = append(s.order, name)
}

// Fail marks a variant whose value could not be resolved, so expressions
// that depend on it are not reported a second time.
func (s *Scope) Fail(name string) {
	s.failed[name] = true
}

func (s *Scope) Failed(name string) bool {
	return s.failed[name]
}

func (s *Scope) Lookup(name string) (*big.Int, bool) {
	v, ok := s.resolved[name]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(v), true
}

// Declared reports where name is declared in the definition, if anywhere.
func (s *Scope) Declared(name string) (position.Position, bool) {
	p, ok := s.declared[name]
	return p, ok
}

// Names returns the resolved names in definition order.
func (s *Scope) Names() []string {
	return append([]string(nil), s.order...)
}
