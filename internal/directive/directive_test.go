package directive

import (
	"errors"
	"slices"
	"testing"

	"fort2hip/internal/diag"
)

func TestParseCombinedLoop(t *testing.T) {
	d, err := Parse("!$acc parallel loop gang vector collapse(2) reduction(+:s, t) private(tmp)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Construct != "parallel loop" || !d.IsLoop() || !d.IsCompute() {
		t.Fatalf("construct = %q", d.Construct)
	}
	if !d.Gang() || !d.Vector() || d.Worker() {
		t.Fatalf("partitioning flags wrong: %+v", d.Clauses)
	}
	n, err := d.NumLoops()
	if err != nil || n != 2 {
		t.Fatalf("NumLoops = %d, %v", n, err)
	}
	red := d.Reductions()
	if len(red) != 1 || red[0].Op != "add" || !slices.Equal(red[0].Vars, []string{"s", "t"}) {
		t.Fatalf("reductions = %+v", red)
	}
	if !slices.Equal(d.Private(), []string{"tmp"}) {
		t.Fatalf("private = %v", d.Private())
	}
}

func TestParseReductionOperators(t *testing.T) {
	cases := map[string]string{
		"+": "add", "*": "mult", "max": "max", "min": "min",
		".and.": "and", ".or.": "or", "iand": "iand", "ior": "ior", "ieor": "ieor",
	}
	for op, want := range cases {
		d, err := Parse("!$acc loop reduction(" + op + ":x)")
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if got := d.Reductions()[0].Op; got != want {
			t.Errorf("%s: op = %q, want %q", op, got, want)
		}
	}
	if _, err := Parse("!$acc loop reduction(-:x)"); !errors.Is(err, diag.ErrSyntax) {
		t.Fatalf("expected syntax error for '-', got %v", err)
	}
}

func TestParseRejectsUnknownClause(t *testing.T) {
	_, err := Parse("!$acc serial num_gangs(4)")
	var de *diag.Error
	if !errors.As(err, &de) || de.Code != diag.SynUnknownClause {
		t.Fatalf("expected SynUnknownClause, got %v", err)
	}
	if _, err := Parse("!$acc kernels loop private(a)"); err != nil {
		// loop contributes private to the combined construct
		t.Fatalf("kernels loop private: %v", err)
	}
}

func TestParseTileAndResources(t *testing.T) {
	d, err := Parse("!$ACC PARALLEL LOOP TILE(4, 8) NUM_GANGS(n/2) VECTOR_LENGTH(128)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !slices.Equal(d.Tile(), []string{"4", "8"}) {
		t.Fatalf("tile = %v", d.Tile())
	}
	if d.NumGangs() != "n/2" || d.VectorLength() != "128" || d.NumWorkers() != "" {
		t.Fatalf("resources: %q %q %q", d.NumGangs(), d.VectorLength(), d.NumWorkers())
	}
	if n, _ := d.NumLoops(); n != 2 {
		t.Fatalf("NumLoops = %d", n)
	}
}

func TestParseCUFKernel(t *testing.T) {
	d, err := Parse("!$cuf kernel do(2) <<<*, (16,16)>>>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Sentinel != SentinelCUF || d.Construct != "kernel do" {
		t.Fatalf("got %+v", d)
	}
	if d.Grid != "*" || d.Block != "(16,16)" {
		t.Fatalf("launch config = %q %q", d.Grid, d.Block)
	}
	if n, _ := d.NumLoops(); n != 2 {
		t.Fatalf("NumLoops = %d", n)
	}
	if _, err := Parse("!$cuf kernel do <<<grid, block"); err == nil {
		t.Fatalf("expected error for unterminated launch config")
	}
}

func TestMergeRegionAndLoop(t *testing.T) {
	region, _ := Parse("!$acc parallel num_workers(4)")
	loop, _ := Parse("!$acc loop worker")
	m := Merge(region, loop)
	if m.Construct != "parallel loop" || m.NumWorkers() != "4" || !m.Worker() {
		t.Fatalf("merged = %+v", m)
	}
	if loop.Construct != "loop" {
		t.Fatalf("Merge must not modify its inputs")
	}
}

func TestEndAndRoutine(t *testing.T) {
	d, err := Parse("!$acc end parallel loop")
	if err != nil || !d.IsEnd() || d.IsLoop() {
		t.Fatalf("end directive: %+v %v", d, err)
	}
	r, err := Parse("!$acc routine(saxpy) seq")
	if err != nil || r.Construct != "routine" || !r.Seq() || r.ConstructArgs[0] != "saxpy" {
		t.Fatalf("routine: %+v %v", r, err)
	}
	if IsDirective("x = 1 ! acc") || !IsDirective("  !$acc loop") {
		t.Fatalf("IsDirective misclassified")
	}
}
