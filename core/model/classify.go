package model

import (
	"strconv"
	"strings"
)

// ProductClass is the curing class used to group similar lots on one entry day.
type ProductClass int

const (
	ClassOther ProductClass = iota
	ClassIberico
	ClassBlanco
)

// String returns a human-readable representation of the class.
func (c ProductClass) String() string {
	switch c {
	case ClassIberico:
		return "iberico"
	case ClassBlanco:
		return "blanco"
	default:
		return "other"
	}
}

// MarshalText encodes the class as text.
func (c ProductClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText classifies the text with ClassifyProduct.
func (c *ProductClass) UnmarshalText(b []byte) error {
	*c = ClassifyProduct(string(b))
	return nil
}

// ClassifyProduct maps the free-text type column onto a class.
// "IBER" anywhere means Ibérico, "BLAN" means Blanco.
func ClassifyProduct(text string) ProductClass {
	s := strings.ToUpper(strings.TrimSpace(text))
	switch {
	case strings.Contains(s, "IBER"), strings.Contains(s, "IBÉR"):
		return ClassIberico
	case strings.Contains(s, "BLAN"):
		return ClassBlanco
	default:
		return ClassOther
	}
}

// ParseNitrification reads an integer nitrification level. Blank or
// non-numeric text yields nil.
func ParseNitrification(text string) *int {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return nil
		}
		n = int(f)
	}
	return &n
}

// Family splits products into hams and shoulders for occupancy reporting.
type Family int

const (
	FamilyOther Family = iota
	FamilyHam
	FamilyShoulder
)

// String returns a human-readable representation of the family.
func (f Family) String() string {
	switch f {
	case FamilyHam:
		return "ham"
	case FamilyShoulder:
		return "shoulder"
	default:
		return "other"
	}
}

// FamilyOf derives the family from the code prefix: J for ham, P for shoulder.
func FamilyOf(code string) Family {
	switch {
	case strings.HasPrefix(code, "J"):
		return FamilyHam
	case strings.HasPrefix(code, "P"):
		return FamilyShoulder
	default:
		return FamilyOther
	}
}
