package ast

import (
	"strings"

	"github.com/walteh/encapgen/pkg/position"
)

// VisibilityLevel orders how far an item is visible. Higher is more permissive.
type VisibilityLevel int

const (
	Private VisibilityLevel = iota
	PubIn
	PubSuper
	PubCrate
	Pub
)

func (l VisibilityLevel) String() string {
	switch l {
	case Private:
		return "private"
	case PubIn:
		return "pub(in)"
	case PubSuper:
		return "pub(super)"
	case PubCrate:
		return "pub(crate)"
	case Pub:
		return "pub"
	default:
		return "unknown"
	}
}

// Visibility is one of the two visibility annotations an enum carries.
// Path is only set for PubIn.
type Visibility struct {
	Pos   position.Position
	Level VisibilityLevel
	Path  []string
}

// Exported reports whether items with this visibility leave the Go package.
// Every level narrower than pub stays unexported.
func (v Visibility) Exported() bool {
	return v.Level == Pub
}

// AtMost reports whether v is as narrow as, or narrower than, other.
func (v Visibility) AtMost(other Visibility) bool {
	return v.Level <= other.Level
}

func (v Visibility) String() string {
	switch v.Level {
	case Private:
		return ""
	case PubIn:
		return "pub(in " + strings.Join(v.Path, "::") + ")"
	default:
		return v.Level.String()
	}
}
