package pkg

import (
	"math"
	"strconv"
	"strings"
)

// ParseOptionalFloat maps raw form input to a nullable numeric value.
// Empty or unparseable input means "no value" and yields nil, never
// zero or NaN. Zero itself is a valid value and is kept.
func ParseOptionalFloat(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return nil
	}
	return &val
}

// ParseOptionalInt is ParseOptionalFloat for integer fields (e.g. order index).
func ParseOptionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &val
}

// Float64Ptr is a small helper for literals in tests and request seeding.
func Float64Ptr(val float64) *float64 {
	return &val
}

func StringPtr(val string) *string {
	return &val
}
