package types

import (
	"errors"
	"testing"

	"fort2hip/internal/diag"
)

func TestCType(t *testing.T) {
	cases := []struct {
		base, kind, want string
	}{
		{"real", "", "float"},
		{"real", "8", "double"},
		{"REAL", "kind=8", "double"},
		{"double precision", "", "double"},
		{"integer", "8", "long"},
		{"integer", "c_int", "int"},
		{"logical", "", "int"},
		{"complex", "8", "hipDoubleComplex"},
		{"character", "len=*", "char"},
		{"type", "cell_t", "cell_t"},
		{"type", "dim3", "dim3"},
	}
	for _, tc := range cases {
		got, err := CType(tc.base, tc.kind)
		if err != nil {
			t.Fatalf("CType(%q,%q): %v", tc.base, tc.kind, err)
		}
		if got != tc.want {
			t.Errorf("CType(%q,%q) = %q, want %q", tc.base, tc.kind, got, tc.want)
		}
	}
}

func TestUnsupported(t *testing.T) {
	for _, tc := range [][2]string{{"real", "3"}, {"class", ""}, {"complex", "1"}} {
		if _, err := CType(tc[0], tc[1]); !errors.Is(err, diag.ErrUnsupportedKind) {
			t.Errorf("CType(%q,%q) err = %v", tc[0], tc[1], err)
		}
	}
	if _, err := Bytes("real", "dp"); !errors.Is(err, diag.ErrUnsupportedKind) {
		t.Errorf("named kinds must be resolved before Bytes")
	}
}

func TestBytesAndParseKind(t *testing.T) {
	if n, _ := Bytes("double precision", ""); n != 8 {
		t.Fatalf("double precision bytes = %d", n)
	}
	if n, _ := Bytes("integer", "c_long"); n != 8 {
		t.Fatalf("c_long bytes = %d", n)
	}
	if k, ok := ParseKind("_8"); !ok || k != 8 {
		t.Fatalf("ParseKind(_8) = %d, %v", k, ok)
	}
	if _, ok := ParseKind("dp"); ok {
		t.Fatalf("ParseKind(dp) must fail")
	}
}
