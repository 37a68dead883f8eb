package linemap

import (
	"errors"
	"testing"

	"fort2hip/internal/diag"
)

func TestFromSourceJoinsAndSplits(t *testing.T) {
	src := `program p
  integer :: a, &  ! trailing comment
       ! interleaved comment
     & b
  a = 1; b = 2 ! two statements
  print *, 'it''s ; not a split' ! ok
!$acc parallel loop gang &
!$acc& vector
  do i = 1, n
  end do
end program p
`
	stmts, err := FromSource("p.f90", src)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	want := []struct {
		body string
		line int
	}{
		{"program p", 1},
		{"integer :: a, b", 2},
		{"a = 1", 5},
		{"b = 2", 5},
		{"print *, 'it''s ; not a split'", 6},
		{"!$acc parallel loop gang vector", 7},
		{"do i = 1, n", 9},
		{"end do", 10},
		{"end program p", 11},
	}
	if len(stmts) != len(want) {
		t.Fatalf("got %d statements: %#v", len(stmts), stmts)
	}
	for i, w := range want {
		if stmts[i].Body != w.body || stmts[i].Line != w.line || !stmts[i].Active {
			t.Errorf("stmt %d = %q@%d, want %q@%d", i, stmts[i].Body, stmts[i].Line, w.body, w.line)
		}
	}
}

func TestFromSourceStringContinuation(t *testing.T) {
	stmts, err := FromSource("s.f90", "s = 'abc&\n  &def'\n")
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Body != "s = 'abcdef'" {
		t.Fatalf("got %#v", stmts)
	}
}

func TestFromSourceErrors(t *testing.T) {
	for _, src := range []string{"a = 'open\n", "a = b + &\n"} {
		_, err := FromSource("bad.f90", src)
		if !errors.Is(err, diag.ErrSyntax) {
			t.Errorf("%q: expected syntax error, got %v", src, err)
		}
		var de *diag.Error
		if errors.As(err, &de) && de.Loc.File != "bad.f90" {
			t.Errorf("%q: location lost: %+v", src, de.Loc)
		}
	}
}
