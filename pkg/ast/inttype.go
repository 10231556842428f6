package ast

import (
	"math/big"
	"sort"
)

// IntType is one of Go's fixed-width integer types usable as the raw
// storage of a generated enum.
type IntType struct {
	Name   string
	Bits   uint
	Signed bool
}

// DefaultIntType is used when a definition omits the underlying type.
var DefaultIntType = intTypes["int"]

// int, uint and uintptr are generated for 64 bit targets.
var intTypes = map[string]IntType{
	"int8":    {Name: "int8", Bits: 8, Signed: true},
	"int16":   {Name: "int16", Bits: 16, Signed: true},
	"int32":   {Name: "int32", Bits: 32, Signed: true},
	"int64":   {Name: "int64", Bits: 64, Signed: true},
	"int":     {Name: "int", Bits: 64, Signed: true},
	"rune":    {Name: "rune", Bits: 32, Signed: true},
	"uint8":   {Name: "uint8", Bits: 8},
	"uint16":  {Name: "uint16", Bits: 16},
	"uint32":  {Name: "uint32", Bits: 32},
	"uint64":  {Name: "uint64", Bits: 64},
	"uint":    {Name: "uint", Bits: 64},
	"uintptr": {Name: "uintptr", Bits: 64},
	"byte":    {Name: "byte", Bits: 8},
}

func LookupIntType(name string) (IntType, bool) {
	t, ok := intTypes[name]
	return t, ok
}

// IntTypeNames lists every accepted type name, sorted.
func IntTypeNames() []string {
	names := make([]string, 0, len(intTypes))
	for name := range intTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t IntType) String() string {
	return t.Name
}

func (t IntType) Min() *big.Int {
	if !t.Signed {
		return new(big.Int)
	}
	return new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), t.Bits-1))
}

func (t IntType) Max() *big.Int {
	if t.Signed {
		return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), t.Bits-1), big.NewInt(1))
	}
	return new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), t.Bits), big.NewInt(1))
}

// Modulus is 2^Bits.
func (t IntType) Modulus() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), t.Bits)
}

func (t IntType) Fits(v *big.Int) bool {
	return v.Cmp(t.Min()) >= 0 && v.Cmp(t.Max()) <= 0
}

// Unsigned returns the unsigned type of the same width.
func (t IntType) Unsigned() IntType {
	if !t.Signed {
		return t
	}
	switch t.Name {
	case "int":
		return intTypes["uint"]
	case "rune":
		return intTypes["uint32"]
	default:
		return intTypes["u"+t.Name]
	}
}

// Bits64 returns the two's complement bit pattern of v truncated to the
// type's width.
func (t IntType) Bits64(v *big.Int) uint64 {
	m := new(big.Int).Mod(v, t.Modulus())
	return m.Uint64()
}
