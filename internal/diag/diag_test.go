package diag

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"fort2hip/internal/source"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	err := fmt.Errorf("scope build: %w", Errorf(KindLookup, LookupModuleNotFound, "module %q not found", "mesh"))
	if !errors.Is(err, ErrLookup) {
		t.Fatalf("expected lookup error, got %v", err)
	}
	if errors.Is(err, ErrSyntax) {
		t.Fatalf("lookup error must not match syntax sentinel")
	}
	if KindOf(err) != KindLookup {
		t.Fatalf("KindOf = %v", KindOf(err))
	}
}

func TestLocateKeepsStatementContext(t *testing.T) {
	base := Errorf(KindArity, LoopTileArity, "2 tile sizes for 3 loops")
	err := Locate(base, Location{File: "k.f90", Line: 12, Stmt: "!$acc loop tile(4,4)"})
	d := FromError(err)
	if d.Primary.File != "k.f90" || d.Primary.Line != 12 || d.Stmt == "" {
		t.Fatalf("location lost: %+v", d)
	}
	if !strings.HasPrefix(err.Error(), "k.f90:12: arity error") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	plain := Locate(errors.New("boom"), Location{Line: 3})
	if KindOf(plain) != KindSyntax {
		t.Fatalf("unclassified errors become syntax errors")
	}
}

func TestBagSortDedup(t *testing.T) {
	b := NewBag(10)
	r := BagReporter{Bag: b}
	r.Report(LookupModuleNotFound, SevWarning, source.Pos{File: "b.f90", Line: 2}, "m", nil)
	r.Report(LookupModuleNotFound, SevWarning, source.Pos{File: "b.f90", Line: 2}, "m", nil)
	r.Report(SynBadUse, SevError, source.Pos{File: "a.f90", Line: 9}, "x", nil)
	b.Dedup()
	b.Sort()
	items := b.Items()
	if len(items) != 2 || items[0].Primary.File != "a.f90" {
		t.Fatalf("unexpected items %+v", items)
	}
	if !b.HasErrors() || b.Count(SevWarning) != 1 {
		t.Fatalf("counts wrong")
	}
}
