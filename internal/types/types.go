// Package types maps Fortran intrinsic types and kind parameters to HIP C++
// types and byte widths.
package types

import (
	"strconv"
	"strings"

	"fortio.org/safecast"

	"fort2hip/internal/diag"
)

// Base type names as stored in index variables.
const (
	Integer         = "integer"
	Real            = "real"
	Logical         = "logical"
	Complex         = "complex"
	Character       = "character"
	Derived         = "type"
	DoublePrecision = "doubleprecision"
)

var cTypes = map[string]map[string]string{
	Character: {"": "char", "c_char": "char"},
	Complex: {
		"":                      "hipFloatComplex",
		"4":                     "hipFloatComplex",
		"8":                     "hipDoubleComplex",
		"c_float_complex":       "hipFloatComplex",
		"c_double_complex":      "hipDoubleComplex",
		"c_long_double_complex": "long double _Complex",
	},
	DoublePrecision: {"": "double"},
	Real: {
		"":              "float",
		"2":             "_Float16",
		"4":             "float",
		"8":             "double",
		"16":            "long double",
		"c_float":       "float",
		"c_double":      "double",
		"c_long_double": "long double",
		"c_float128":    "__float128",
	},
	Integer: {
		"":            "int",
		"1":           "char",
		"2":           "short",
		"4":           "int",
		"8":           "long",
		"c_char":      "char",
		"c_int":       "int",
		"c_short":     "short int",
		"c_long":      "long int",
		"c_long_long": "long long int",
		"c_size_t":    "size_t",
		"c_int8_t":    "int8_t",
		"c_int16_t":   "int16_t",
		"c_int32_t":   "int32_t",
		"c_int64_t":   "int64_t",
		"c_intptr_t":  "intptr_t",
		"c_ptrdiff_t": "ptrdiff_t",
	},
	Logical: {"": "int", "4": "int", "1": "bool", "c_bool": "bool"},
	Derived: {"dim3": "dim3"},
}

var byteWidths = map[string]map[string]int{
	Character:       {"": 1, "c_char": 1},
	Complex:         {"": 8, "2": 4, "4": 8, "8": 16, "16": 32, "c_float_complex": 8, "c_double_complex": 16, "c_long_double_complex": 32},
	DoublePrecision: {"": 8},
	Real:            {"": 4, "2": 2, "4": 4, "8": 8, "16": 16, "c_float": 4, "c_double": 8, "c_long_double": 16, "c_float128": 16},
	Integer: {
		"": 4, "1": 1, "2": 2, "4": 4, "8": 8, "16": 16,
		"c_char": 1, "c_int": 4, "c_short": 2, "c_long": 8, "c_long_long": 8, "c_size_t": 8,
		"c_int8_t": 1, "c_int16_t": 2, "c_int32_t": 4, "c_int64_t": 8, "c_intptr_t": 8, "c_ptrdiff_t": 8,
	},
	Logical: {"": 4, "1": 1, "4": 4, "c_bool": 1},
}

// Normalize folds spelling variants: "double precision" becomes
// doubleprecision, "kind=8" and "8" are the same kind.
func Normalize(base, kind string) (string, string) {
	base = strings.ToLower(strings.ReplaceAll(base, " ", ""))
	kind = strings.ToLower(strings.ReplaceAll(kind, " ", ""))
	kind = strings.TrimPrefix(kind, "kind=")
	kind = strings.TrimPrefix(kind, "len=")
	if base == DoublePrecision {
		return Real, "8"
	}
	return base, kind
}

// CType returns the HIP C++ spelling of a Fortran type.
// Derived types map to their own name.
func CType(base, kind string) (string, error) {
	base, kind = Normalize(base, kind)
	if base == Derived {
		if c, ok := cTypes[Derived][kind]; ok {
			return c, nil
		}
		if kind == "" {
			return "", unsupported(base, kind)
		}
		return kind, nil
	}
	byKind, ok := cTypes[base]
	if !ok {
		return "", unsupported(base, kind)
	}
	if base == Character {
		kind = "" // len parameters do not change the element type
	}
	if c, ok := byKind[kind]; ok {
		return c, nil
	}
	return "", unsupported(base, kind)
}

// Bytes returns the storage width of one element.
func Bytes(base, kind string) (int, error) {
	base, kind = Normalize(base, kind)
	byKind, ok := byteWidths[base]
	if !ok {
		return 0, unsupported(base, kind)
	}
	if base == Character {
		kind = ""
	}
	if n, ok := byKind[kind]; ok {
		return n, nil
	}
	return 0, unsupported(base, kind)
}

// ParseKind extracts an integer kind from literal spellings such as "8",
// "kind=8" or a literal suffix "_8". Named kinds return ok=false.
func ParseKind(kind string) (int, bool) {
	_, kind = Normalize("", strings.TrimPrefix(kind, "_"))
	n, err := strconv.ParseUint(kind, 10, 8)
	if err != nil {
		return 0, false
	}
	v, err := safecast.Conv[int](n)
	if err != nil {
		return 0, false
	}
	return v, true
}

// IsNumeric reports integer, real and complex types.
func IsNumeric(base string) bool {
	base, _ = Normalize(base, "")
	return base == Integer || base == Real || base == Complex
}

func unsupported(base, kind string) error {
	if kind == "" {
		return diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType, "no HIP type for %s", base)
	}
	return diag.Errorf(diag.KindUnsupportedKind, diag.KindUnsupportedType, "no HIP type for %s(kind=%s)", base, kind)
}
