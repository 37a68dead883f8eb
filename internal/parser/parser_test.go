package parser

import (
	"errors"
	"slices"
	"testing"

	"fort2hip/internal/ast"
	"fort2hip/internal/diag"
	"fort2hip/internal/index"
	"fort2hip/internal/linemap"
)

func statements(t *testing.T, src string) []linemap.Statement {
	t.Helper()
	stmts, err := linemap.FromSource("t.f90", src)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	return stmts
}

func TestParseExprRendering(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"a + b*c", "a+(b*c)"},
		{"-a*b + c", "(-(a*b))+c"},
		{"a**b**c", "a**(b**c)"},
		{"x .eq. 1 .and. .not. y", "(x==1) .and. (.not. y)"},
		{"a(i, 2:n)", "a(i,2:n)"},
		{"t%v(i)%w", "t%v(i)%w"},
		{"f(x, dim=2)", "f(x,dim=2)"},
		{"a - b - c", "a-b-c"},
	}
	for _, tt := range tests {
		e, err := ParseExpr(tt.src)
		if err != nil {
			t.Errorf("ParseExpr(%q): %v", tt.src, err)
			continue
		}
		if got := ast.Fortran(e); got != tt.want {
			t.Errorf("ParseExpr(%q) renders %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, src := range []string{"(1.0, 2.0)", "a +", "a b", "f(1,"} {
		if _, err := ParseExpr(src); !errors.Is(err, diag.ErrSyntax) {
			t.Errorf("ParseExpr(%q): expected syntax error, got %v", src, err)
		}
	}
}

func TestParseStatementsIfChain(t *testing.T) {
	body, err := ParseStatements(statements(t, `
do i = 1, n
  if (a(i) > 0) then
    b(i) = 1
  else if (a(i) < 0) then
    b(i) = -1
  else
    b(i) = 0
  end if
end do
`))
	if err != nil {
		t.Fatalf("ParseStatements: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("got %d statements", len(body))
	}
	loop, ok := body[0].(*ast.DoLoop)
	if !ok || loop.Index.Name != "i" || loop.Step != nil {
		t.Fatalf("expected do loop over i, got %#v", body[0])
	}
	blk, ok := loop.Body[0].(*ast.IfBlock)
	if !ok || len(blk.Branches) != 3 || blk.Branches[2].Cond != nil {
		t.Fatalf("unexpected if block %#v", loop.Body[0])
	}
}

func TestParseStatementsSharedLabel(t *testing.T) {
	body, err := ParseStatements(statements(t, `
do 10 i = 1, n
do 10 j = 1, m
  c(i,j) = 0
10 continue
x = 1
`))
	if err != nil {
		t.Fatalf("ParseStatements: %v", err)
	}
	if len(body) != 2 {
		t.Fatalf("got %d top-level statements", len(body))
	}
	outer := body[0].(*ast.DoLoop)
	if len(outer.Body) != 1 {
		t.Fatalf("outer body has %d statements", len(outer.Body))
	}
	inner := outer.Body[0].(*ast.DoLoop)
	if inner.Index.Name != "j" || len(inner.Body) != 3 {
		t.Fatalf("unexpected inner loop %#v", inner)
	}
	if nest := outer.Nest(2); len(nest) != 2 {
		t.Errorf("Nest(2) = %d loops", len(nest))
	}
}

func TestParseStatementsSelectAndInline(t *testing.T) {
	body, err := ParseStatements(statements(t, `
select case (k)
case (1, 2)
  x = 1
case (3:5)
  x = 2
case default
  x = 3
end select
if (x > 0) y = 1
outer: do while (x < 10)
  x = x + 1
  if (x == 5) exit outer
end do outer
`))
	if err != nil {
		t.Fatalf("ParseStatements: %v", err)
	}
	sc := body[0].(*ast.SelectCase)
	if len(sc.Cases) != 3 || len(sc.Cases[0].Values) != 2 || sc.Cases[2].Values != nil {
		t.Fatalf("unexpected select %#v", sc)
	}
	if _, ok := sc.Cases[1].Values[0].(*ast.Slice); !ok {
		t.Errorf("case range is %T", sc.Cases[1].Values[0])
	}
	if blk := body[1].(*ast.IfBlock); !blk.Inline {
		t.Errorf("logical if not inline")
	}
	w := body[2].(*ast.DoWhile)
	if w.Name != "outer" {
		t.Errorf("do while name %q", w.Name)
	}
	exit := w.Body[1].(*ast.IfBlock).Branches[0].Body[0].(*ast.Exit)
	if exit.Construct != "outer" {
		t.Errorf("exit construct %q", exit.Construct)
	}
}

func TestParseStatementsAttachesDirective(t *testing.T) {
	body, err := ParseStatements(statements(t, `
!$acc parallel num_gangs(4)
!$acc loop gang reduction(+:s)
do i = 1, n
  s = s + a(i)
end do
!$acc end parallel
`))
	if err != nil {
		t.Fatalf("ParseStatements: %v", err)
	}
	loop := body[0].(*ast.DoLoop)
	d := loop.Directive
	if d == nil || d.Construct != "parallel loop" {
		t.Fatalf("directive %#v", d)
	}
	if d.NumGangs() != "4" || !d.Gang() {
		t.Errorf("merged clauses lost: %#v", d.Clauses)
	}
	if r := d.Reductions(); len(r) != 1 || r[0].Op != "add" || !slices.Equal(r[0].Vars, []string{"s"}) {
		t.Errorf("reductions %#v", r)
	}
}

func TestParseStatementsUnbalanced(t *testing.T) {
	for _, src := range []string{"do i = 1, n\nx = 1\n", "end do\n", "if (x) then\n"} {
		if _, err := ParseStatements(statements(t, src)); !errors.Is(err, diag.ErrSyntax) {
			t.Errorf("%q: expected syntax error, got %v", src, err)
		}
	}
}

func TestParseDeclaration(t *testing.T) {
	tests := []struct {
		src   string
		names []string
		base  string
		kind  string
		rank  []int
		quals []string
	}{
		{"real(8), dimension(:,:), allocatable :: a, b(n)", []string{"a", "b"}, "real", "8", []int{2, 1}, []string{"allocatable"}},
		{"integer*8 n", []string{"n"}, "integer", "8", []int{0}, nil},
		{"double precision, intent(in) :: x", []string{"x"}, "real", "8", []int{0}, []string{"intent(in)"}},
		{"type(vec), device :: v(3)", []string{"v"}, "type", "vec", []int{1}, []string{"device"}},
		{"character(len=*), parameter :: s = 'a,b'", []string{"s"}, "character", "", []int{0}, []string{"parameter"}},
		{"complex*16 :: z", []string{"z"}, "complex", "8", []int{0}, nil},
		{"real(kind=dp) :: r", []string{"r"}, "real", "dp", []int{0}, nil},
	}
	for _, tt := range tests {
		vars, err := ParseDeclaration(tt.src)
		if err != nil {
			t.Errorf("%q: %v", tt.src, err)
			continue
		}
		if len(vars) != len(tt.names) {
			t.Errorf("%q: got %d variables", tt.src, len(vars))
			continue
		}
		for i, v := range vars {
			if v.Name != tt.names[i] || v.BaseType != tt.base || v.KindParam != tt.kind || v.Rank != tt.rank[i] {
				t.Errorf("%q: var %d = %+v", tt.src, i, v)
			}
			if !slices.Equal(v.Qualifiers, tt.quals) {
				t.Errorf("%q: qualifiers %v, want %v", tt.src, v.Qualifiers, tt.quals)
			}
		}
	}
	vars, _ := ParseDeclaration("character(len=*), parameter :: s = 'a,b'")
	if vars[0].Initializer != "'a,b'" {
		t.Errorf("initializer %q", vars[0].Initializer)
	}
}

func TestParseDeclarationErrors(t *testing.T) {
	for _, src := range []string{"real :: ", "integer :: a b", "x = 1"} {
		_, err := ParseDeclaration(src)
		var de *diag.Error
		if !errors.As(err, &de) || de.Kind != diag.KindSyntax {
			t.Errorf("%q: expected syntax error, got %v", src, err)
		}
	}
}

func TestParseUse(t *testing.T) {
	tests := []struct {
		src  string
		want index.UsedModule
	}{
		{"use m", index.UsedModule{Name: "m"}},
		{"use, intrinsic :: iso_c_binding", index.UsedModule{Name: "iso_c_binding", Qualifiers: []string{"intrinsic"}}},
		{"use m, only: a, lb => b", index.UsedModule{Name: "m", Only: []index.Rename{{Original: "a", Renamed: "a"}, {Original: "b", Renamed: "lb"}}}},
		{"use m, x => y", index.UsedModule{Name: "m", Renamings: []index.Rename{{Original: "y", Renamed: "x"}}}},
	}
	for _, tt := range tests {
		got, err := ParseUse(tt.src)
		if err != nil {
			t.Errorf("%q: %v", tt.src, err)
			continue
		}
		if got.Name != tt.want.Name || !slices.Equal(got.Qualifiers, tt.want.Qualifiers) ||
			!slices.Equal(got.Only, tt.want.Only) || !slices.Equal(got.Renamings, tt.want.Renamings) {
			t.Errorf("%q = %+v, want %+v", tt.src, got, tt.want)
		}
	}
	_, err := ParseUse("use m, only a")
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.SynBadUse {
		t.Errorf("expected SynBadUse, got %v", err)
	}
}

func TestParseAttributeStatement(t *testing.T) {
	st, ok, err := ParseAttributeStatement("parameter (n = 10, m = 2*n)")
	if err != nil || !ok {
		t.Fatalf("parameter statement: ok=%v err=%v", ok, err)
	}
	if st.Values["m"] != "2*n" || !slices.Equal(st.Names, []string{"n", "m"}) {
		t.Errorf("parameter values %v", st.Values)
	}
	st, ok, err = ParseAttributeStatement("dimension :: a(n), b(2,2)")
	if err != nil || !ok || len(st.Bounds["b"]) != 2 {
		t.Fatalf("dimension statement: %+v ok=%v err=%v", st, ok, err)
	}
	if _, ok, _ := ParseAttributeStatement("device = 1"); ok {
		t.Errorf("assignment taken for attribute statement")
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		src  string
		kind index.Kind
		name string
		args []string
		attr []string
		res  string
	}{
		{"module m", index.KindModule, "m", nil, nil, ""},
		{"program main", index.KindProgram, "main", nil, nil, ""},
		{"attributes(global) subroutine k(a, n)", index.KindSubroutine, "k", []string{"a", "n"}, []string{"global"}, ""},
		{"pure recursive function f(x) result(y)", index.KindFunction, "f", []string{"x"}, []string{"pure", "recursive"}, "y"},
		{"real(8) function g()", index.KindFunction, "g", nil, nil, "g"},
		{"type, public :: vec", index.KindType, "vec", nil, []string{"public"}, ""},
		{"type node", index.KindType, "node", nil, nil, ""},
	}
	for _, tt := range tests {
		h, ok, err := ParseHeader(tt.src)
		if err != nil || !ok {
			t.Errorf("%q: ok=%v err=%v", tt.src, ok, err)
			continue
		}
		if h.Kind != tt.kind || h.Name != tt.name || !slices.Equal(h.DummyArgs, tt.args) ||
			!slices.Equal(h.Attributes, tt.attr) || h.ResultName != tt.res {
			t.Errorf("%q = %+v", tt.src, h)
		}
	}
	for _, src := range []string{"type(vec) :: v", "integer :: n", "module procedure foo", "x = 1", "attributes(device) :: a"} {
		if _, ok, err := ParseHeader(src); ok || err != nil {
			t.Errorf("%q taken for a header (err %v)", src, err)
		}
	}
}

func TestUnits(t *testing.T) {
	units, err := Units(statements(t, `
module m
  implicit none
  type vec
    real :: x, y
  end type vec
  interface
    subroutine ext(a)
      real :: a
    end subroutine
  end interface
  real, device :: d(10)
contains
  attributes(global) subroutine k(a)
    real :: a(*)
    a(1) = 0
  end subroutine k
  function f(x)
    real :: x, f
    f = x
  end
end module m
program main
  use m
end program
`))
	if err != nil {
		t.Fatalf("Units: %v", err)
	}
	if len(units) != 2 || units[0].Name != "m" || units[1].Kind != index.KindProgram {
		t.Fatalf("roots %+v", units)
	}
	m := units[0]
	var tags []string
	m.Walk(func(u *Unit) { tags = append(tags, u.Tag) })
	if want := []string{"m", "m:vec", "m:k", "m:f"}; !slices.Equal(tags, want) {
		t.Errorf("tags %v, want %v", tags, want)
	}
	if len(m.Stmts) != 2 {
		t.Errorf("module body has %d statements, want 2", len(m.Stmts))
	}
	if len(m.Children[0].Stmts) != 1 {
		t.Errorf("type body %v", m.Children[0].Stmts)
	}
}

func TestUnitsUnclosed(t *testing.T) {
	_, err := Units(statements(t, "module m\nsubroutine s\nend subroutine\n"))
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.SynUnbalancedBlock {
		t.Fatalf("expected unbalanced block, got %v", err)
	}
}

func TestLoopNests(t *testing.T) {
	nests, err := LoopNests(statements(t, `
x = 1
!$acc parallel
!$acc loop gang
do i = 1, n
  !$acc loop vector
  do j = 1, m
    a(i,j) = 0
  end do
end do
!$acc end parallel
!$cuf kernel do(2) <<<*, *>>>
do 20 j = 1, m
do 20 i = 1, n
  b(i,j) = 1
20 continue
y = 2
`))
	if err != nil {
		t.Fatalf("LoopNests: %v", err)
	}
	if len(nests) != 2 {
		t.Fatalf("got %d nests", len(nests))
	}
	if nests[0].Directive.Construct != "parallel loop" || len(nests[0].Stmts) != 7 {
		t.Errorf("acc nest: %q with %d statements", nests[0].Directive.Construct, len(nests[0].Stmts))
	}
	if len(nests[1].Stmts) != 5 || nests[1].Line != 12 {
		t.Errorf("cuf nest: %d statements at line %d", len(nests[1].Stmts), nests[1].Line)
	}
	body, err := ParseStatements(nests[1].Stmts)
	if err != nil {
		t.Fatalf("ParseStatements(cuf nest): %v", err)
	}
	if n, _ := body[0].(*ast.DoLoop).Directive.NumLoops(); n != 2 {
		t.Errorf("cuf NumLoops = %d", n)
	}

	if _, err := LoopNests(statements(t, "!$acc loop\nx = 1\n")); !errors.Is(err, diag.ErrSyntax) {
		t.Errorf("directive without loop: %v", err)
	}
}
