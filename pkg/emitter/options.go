package emitter

import (
	"gitlab.com/tozd/go/errors"
)

// AliasPolicy decides which names Iter and String report when several
// variants share one bit pattern.
type AliasPolicy string

const (
	// AliasFirst reports only the first-declared name of each bit pattern.
	AliasFirst AliasPolicy = "first"
	// AliasAll reports every matching name.
	AliasAll AliasPolicy = "all"
)

// IterStyle selects the shape of the generated Iter method.
type IterStyle string

const (
	// IterAuto is resolved by the caller from the target module's go
	// version; the emitter treats it as IterSeq.
	IterAuto IterStyle = "auto"
	// IterSeq returns a range-over-func iterator (go1.23).
	IterSeq IterStyle = "seq"
	// IterLegacy returns a state struct with a Next method.
	IterLegacy IterStyle = "legacy"
)

type Options struct {
	// Package is the package clause of the output. When empty the file's
	// own package clause is used.
	Package string
	// Source is the input name written into the generated header.
	Source         string
	AliasPolicy    AliasPolicy
	IterStyle      IterStyle
	PrefixVariants bool
	EmptyToken     string
	Separator      string
	// Arithmetic adds Add, Sub, Mul, Div, Rem, Shl and Shr.
	Arithmetic bool
}

func DefaultOptions() Options {
	return Options{
		AliasPolicy:    AliasFirst,
		IterStyle:      IterAuto,
		PrefixVariants: true,
		EmptyToken:     "(empty)",
		Separator:      " | ",
		Arithmetic:     true,
	}
}

// ParseAliasPolicy accepts "first" and "all"; the empty string is AliasFirst.
func ParseAliasPolicy(s string) (AliasPolicy, error) {
	switch AliasPolicy(s) {
	case "", AliasFirst:
		return AliasFirst, nil
	case AliasAll:
		return AliasAll, nil
	}
	return "", errors.Errorf("unknown alias policy %q (want %q or %q)", s, AliasFirst, AliasAll)
}

// ParseIterStyle accepts "auto", "seq" and "legacy"; the empty string is IterAuto.
func ParseIterStyle(s string) (IterStyle, error) {
	switch IterStyle(s) {
	case "", IterAuto:
		return IterAuto, nil
	case IterSeq:
		return IterSeq, nil
	case IterLegacy:
		return IterLegacy, nil
	}
	return "", errors.Errorf("unknown iterator style %q (want %q, %q or %q)", s, IterAuto, IterSeq, IterLegacy)
}
