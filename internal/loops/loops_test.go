package loops

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"fort2hip/internal/diag"
)

func TestLabelerMintsPerKind(t *testing.T) {
	lb := NewLabeler()
	got := []string{lb.Unique("len"), lb.Unique("len"), lb.Unique("idx"), lb.Unique("local_res")}
	want := []string{"_len0", "_len1", "_idx0", "_local_res0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(lb.Minted(), want) {
		t.Fatalf("Minted = %v", lb.Minted())
	}
	if !lb.owns("_len1") || lb.owns("_len2") || lb.owns("_rem0") || lb.owns("len0") {
		t.Fatalf("owns reports foreign names")
	}
	if n := NewLabeler().Unique("len"); n != "_len0" {
		t.Fatalf("fresh labeler minted %s", n)
	}
}

func TestBoundConversions(t *testing.T) {
	tests := []struct {
		name               string
		loop               *Loop
		last, excl, length string
		normalized         bool
		recovery           string
	}{
		{"last", ByLast("i", "1", "n", ""), "n", "(n + 1)", "gpufort::loop_len(1,n)", false, "1 + _i"},
		{"last step", ByLast("i", "1", "n", "2"), "n", "(n + 1)", "gpufort::loop_len(1,n,2)", false, "1 + (2)*_i"},
		{"length zero based", ByLength("i", "0", "n", "2"), "(0 + n - 1)", "(2)*n", "n", false, "(2)*_i"},
		{"length", ByLength("i", "1", "n", ""), "(1 + n - 1)", "(1 + n)", "n", false, "1 + _i"},
		{"length unit step", ByLength("i", "0", "n", "1"), "(0 + n - 1)", "n", "n", true, "(1)*_i"},
		{"excl", ByExclUbound("i", "0", "n", ""), "(n - 1)", "n", "gpufort::loop_len(0,(n - 1))", true, "_i"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loop.Last(); got != tt.last {
				t.Errorf("Last = %q, want %q", got, tt.last)
			}
			if got := tt.loop.ExclUbound(); got != tt.excl {
				t.Errorf("ExclUbound = %q, want %q", got, tt.excl)
			}
			if got := tt.loop.Length(); got != tt.length {
				t.Errorf("Length = %q, want %q", got, tt.length)
			}
			if got := tt.loop.Normalized(); got != tt.normalized {
				t.Errorf("Normalized = %v", got)
			}
			if got := tt.loop.IndexRecovery("_i"); got != tt.recovery {
				t.Errorf("IndexRecovery = %q, want %q", got, tt.recovery)
			}
		})
	}
}

func TestCollapseText(t *testing.T) {
	lb := NewLabeler()
	nest := NewLoopnest(ByLast("i", "1", "n", ""), ByLast("j", "1", "m", "2"))
	nest.Loops[0].Gang = true
	c, err := nest.Collapse(lb)
	if err != nil {
		t.Fatal(err)
	}
	wantProlog := "const int _len0 = gpufort::loop_len(1,n);\n" +
		"const int _len1 = gpufort::loop_len(1,m,2);\n" +
		"const int _total_len0 = _len0*_len1;\n" +
		"int _idx0;\n"
	if c.Prolog != wantProlog {
		t.Errorf("prolog:\n%s\nwant:\n%s", c.Prolog, wantProlog)
	}
	wantBody := "int _rem0 = $idx$;\n" +
		"int _denom0 = _total_len0;\n" +
		"i = gpufort::outermost_index(_rem0/*inout*/,_denom0/*inout*/,1,_len0);\n" +
		"j = gpufort::outermost_index(_rem0/*inout*/,_denom0/*inout*/,1,_len1,2);\n"
	if c.BodyProlog != wantBody {
		t.Errorf("body prolog:\n%s\nwant:\n%s", c.BodyProlog, wantBody)
	}
	if c.Index != "_idx0" || c.First != "0" || c.ExclUbound() != "_total_len0" || !c.Gang {
		t.Errorf("collapsed loop = %+v", c)
	}
}

// Decoding every linear index of a collapsed nest must enumerate the
// original index tuples in nest order.
func TestCollapseRoundTrip(t *testing.T) {
	type dim struct{ first, length, step int }
	nests := [][]dim{
		{{1, 3, 1}, {0, 4, 2}, {-2, 5, 3}},
		{{5, 1, 1}, {1, 7, 1}},
		{{0, 6, -1}},
	}
	for _, dims := range nests {
		total := 1
		for _, d := range dims {
			total *= d.length
		}
		var want [][]int
		var walk func(level int, prefix []int)
		walk = func(level int, prefix []int) {
			if level == len(dims) {
				want = append(want, append([]int(nil), prefix...))
				return
			}
			d := dims[level]
			for k := 0; k < d.length; k++ {
				walk(level+1, append(prefix, d.first+k*d.step))
			}
		}
		walk(0, nil)
		for idx := 0; idx < total; idx++ {
			rem, denom := idx, total
			got := make([]int, len(dims))
			for k, d := range dims {
				got[k] = DecodeIndex(&rem, &denom, d.first, d.length, d.step)
			}
			if !reflect.DeepEqual(got, want[idx]) {
				t.Fatalf("dims %v idx %d: got %v, want %v", dims, idx, got, want[idx])
			}
		}
	}
}

func TestTileArity(t *testing.T) {
	nest := NewLoopnest(ByLast("i", "1", "n", ""), ByLast("j", "1", "m", ""))
	for _, sizes := range [][]string{{"16"}, {"16", "16", "4"}, nil} {
		_, err := nest.Tile(NewLabeler(), sizes, true, true)
		if !errors.Is(err, diag.ErrArity) {
			t.Errorf("sizes %v: err = %v, want arity error", sizes, err)
		}
	}
}

func TestTileNest(t *testing.T) {
	mk := func() *Loopnest {
		n := NewLoopnest(ByLast("i", "1", "n", ""), ByLast("j", "1", "m", ""))
		n.Loops[0].Gang, n.Loops[0].Vector = true, true
		n.Loops[1].Gang = true
		return n
	}
	tiled, err := mk().Tile(NewLabeler(), []string{"16", "8"}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if tiled.Len() != 4 {
		t.Fatalf("Len = %d, want 4", tiled.Len())
	}
	tile0, tile1, elem0, elem1 := tiled.Loops[0], tiled.Loops[1], tiled.Loops[2], tiled.Loops[3]
	if !tile0.Gang || tile0.Vector || elem0.Gang || !elem0.Vector {
		t.Errorf("first tile/element loops lost their partitioning: %+v %+v", tile0, elem0)
	}
	if tile1.Gang || elem1.Gang || elem1.Vector {
		t.Errorf("inner loops kept partitioning")
	}
	if !strings.Contains(elem0.BodyProlog, "if ( _idx0 < _len0 ) {") || !strings.Contains(elem0.BodyProlog, "  i = 1 + _idx0;") {
		t.Errorf("element body prolog:\n%s", elem0.BodyProlog)
	}
	if elem0.Step != "" || !elem0.Normalized() {
		t.Errorf("element loop is not normalized: %+v", elem0)
	}

	collapsed, err := mk().Tile(NewLabeler(), []string{"16", "8"}, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if collapsed.Len() != 2 || !collapsed.Loops[0].Gang || !collapsed.Loops[1].Vector {
		t.Fatalf("collapsed tiling = %+v", collapsed.Loops)
	}
}

func TestMixedPartitioning(t *testing.T) {
	flags := []struct {
		name string
		set  func(*Loop)
	}{
		{"gang", func(l *Loop) { l.Gang = true }},
		{"worker", func(l *Loop) { l.Worker = true }},
		{"vector", func(l *Loop) { l.Vector = true }},
		{"gang vector", func(l *Loop) { l.Gang, l.Vector = true, true }},
	}
	for _, f := range flags {
		for _, grid := range GridDims {
			for _, gridFirst := range []bool{true, false} {
				a, b := ByLast("i", "1", "n", ""), ByLast("j", "1", "m", "")
				if gridFirst {
					a.Grid = grid
					f.set(b)
				} else {
					f.set(a)
					b.Grid = grid
				}
				_, err := NewLoopnest(a, b).MapToHIP(NewLabeler())
				if !errors.Is(err, diag.ErrMixedPartitioning) {
					t.Errorf("%s with grid %s: err = %v", f.name, grid, err)
				}
			}
			same := ByLast("i", "1", "n", "")
			same.Grid = grid
			f.set(same)
			if _, err := same.MapToHIP(NewLabeler()); !errors.Is(err, diag.ErrMixedPartitioning) {
				t.Errorf("single loop %s with grid %s: err = %v", f.name, grid, err)
			}
		}
	}
	a, b := ByLast("i", "1", "n", ""), ByLast("j", "1", "m", "")
	a.Grid, b.Grid = GridY, GridX
	if _, err := NewLoopnest(a, b).MapToHIP(NewLabeler()); err != nil {
		t.Errorf("grid-only nest: %v", err)
	}
}

func TestGridMapping(t *testing.T) {
	l := ByLast("i", "1", "10", "")
	l.Grid = GridX
	m, err := NewLoopnest(l).MapToHIP(NewLabeler())
	if err != nil {
		t.Fatal(err)
	}
	wantOpen := "const int _len0 = gpufort::loop_len(1,10);\n" +
		"const int _worker_tile_size0 = gpufort::div_round_up(_len0,gridDim.x);\n" +
		"int _idx0;\n" +
		"for (_idx0 = threadIdx.x + blockIdx.x*_worker_tile_size0; _idx0 < (min(_len0,(blockIdx.x+1)*_worker_tile_size0)); _idx0 += blockDim.x) {\n" +
		"  i = 1 + _idx0;\n"
	if m.Open != wantOpen {
		t.Errorf("open:\n%s\nwant:\n%s", m.Open, wantOpen)
	}
	if m.Close != "} // _idx0\n" || m.Indent != "  " || !m.Filter.Empty() {
		t.Errorf("close %q indent %q filter %+v", m.Close, m.Indent, m.Filter)
	}
}

func TestAccMapping(t *testing.T) {
	l := ByLast("i", "1", "n", "")
	l.Gang, l.Vector = true, true
	m, err := l.MapToHIP(NewLabeler())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(m.Open, "const gpufort::acc_grid _local_res0(gpufort::acc_resource_all,1,gpufort::acc_resource_all);\nif ( true ) {\n") {
		t.Errorf("open:\n%s", m.Open)
	}
	if !strings.HasSuffix(m.Close, "} // _local_res0\n") {
		t.Errorf("close:\n%s", m.Close)
	}
	if !strings.Contains(m.Open, "  const int _worker_id0 = _coords.worker_id(_local_res0);\n") {
		t.Errorf("missing worker id:\n%s", m.Open)
	}
	if got := m.Filter.StatementSelectionCondition(); got != "_coords.worker == 0" {
		t.Errorf("StatementSelectionCondition = %q", got)
	}
	if got := m.Filter.LoopEntryCondition(); got != "true" {
		t.Errorf("LoopEntryCondition = %q", got)
	}

	w := ByLast("j", "1", "m", "")
	w.Gang, w.Worker, w.NumGangs = true, true, "4"
	m, err = w.MapToHIP(NewLabeler())
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Filter.LoopEntryCondition(); got != "_coords.gang < _local_res0.gangs" {
		t.Errorf("LoopEntryCondition = %q", got)
	}
	for _, frag := range []string{
		"const gpufort::acc_grid _local_res0(4,gpufort::acc_resource_all,1);",
		"for (_elem0 = 0; _elem0 < _worker_tile_size0; _elem0++) {",
		"if ( _idx0 < _len1 ) {",
		"j = 1 + _idx0;",
	} {
		if !strings.Contains(m.Open, frag) {
			t.Errorf("open lacks %q:\n%s", frag, m.Open)
		}
	}
}

func TestResourceFilter(t *testing.T) {
	outer := ResourceFilter{NumGangs: []string{"4"}, NumWorkers: []string{"w"}}
	sum := outer.Add(ResourceFilter{NumGangs: []string{"8"}, VectorLength: []string{Wildcard}})
	want := ResourceFilter{NumGangs: []string{"8"}, NumWorkers: []string{"w"}, VectorLength: []string{Wildcard}}
	if !reflect.DeepEqual(sum, want) {
		t.Fatalf("Add = %+v, want %+v", sum, want)
	}
	if err := sum.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := sum.LoopEntryCondition(); got != "_coords.gang < 8 && _coords.worker < w" {
		t.Errorf("LoopEntryCondition = %q", got)
	}
	if got := sum.StatementSelectionCondition(); got != "true" {
		t.Errorf("StatementSelectionCondition = %q", got)
	}
	if got := (ResourceFilter{}).StatementSelectionCondition(); got != "_coords.worker == 0 && _coords.vector_lane == 0" {
		t.Errorf("empty StatementSelectionCondition = %q", got)
	}
	if got := sum.LaneIndex(); got != "_coords.vector_lane_id(_res)" {
		t.Errorf("LaneIndex = %q", got)
	}
	outerLoop := ByLast("j", "1", "m", "")
	outerLoop.Gang, outerLoop.NumGangs = true, "4"
	innerLoop := ByLast("i", "1", "n", "")
	innerLoop.Gang, innerLoop.Vector, innerLoop.NumGangs = true, true, "8"
	m, err := NewLoopnest(outerLoop, innerLoop).MapToHIP(NewLabeler())
	if err != nil {
		t.Fatalf("MapToHIP: %v", err)
	}
	if len(m.Filter.NumGangs) != 1 || !strings.HasSuffix(m.Filter.NumGangs[0], ".gangs") {
		t.Errorf("nested filter keeps one gang constraint, got %v", m.Filter.NumGangs)
	}

	bad := ResourceFilter{NumGangs: []string{"1", "2"}}
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted two gang constraints")
	}
}

func TestRemoveUnusedHelpers(t *testing.T) {
	lb := NewLabeler()
	for _, k := range []string{"len", "len", "len", "worker_tile_size", "tile", "num_tiles"} {
		lb.Unique(k)
	}
	code := "const int _len0 = gpufort::loop_len(1,n);\n" +
		"const int _worker_tile_size0 = gpufort::div_round_up(_len0,gridDim.x);\n" +
		"int _tile0;\n" +
		"const int _len1 = 5;\n" +
		"const int _len2 = 7;\n" +
		"const int _foo0 = 3;\n" +
		"for (i = 0; i < _worker_tile_size0; i++) {\n" +
		"  y = _len1 + _len0;\n"
	close := "} // _len2\n"
	want := "const int _len0 = gpufort::loop_len(1,n);\n" +
		"const int _len2 = 7;\n" +
		"const int _foo0 = 3;\n" +
		"for (i = 0; i < (gpufort::div_round_up(_len0,gridDim.x)); i++) {\n" +
		"  y = 5 + _len0;\n"
	got := RemoveUnusedHelpers(lb, code, close)
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
	if again := RemoveUnusedHelpers(lb, got, close); again != got {
		t.Fatalf("second pass changed the code:\n%s", again)
	}
}

func TestKernelPrologAndReductions(t *testing.T) {
	p := KernelProlog("")
	if !strings.Contains(p, "_res(gridDim.x,gpufort::div_round_up(blockDim.x,warpSize),warpSize);") ||
		!strings.Contains(p, "_coords(blockIdx.x,threadIdx.x/warpSize,threadIdx.x%warpSize);") {
		t.Errorf("prolog:\n%s", p)
	}
	if p := KernelProlog("64"); !strings.Contains(p, "warpSize),64);") {
		t.Errorf("prolog with vector length:\n%s", p)
	}
	red := []Reduction{{Op: "add", Vars: []string{"s", "t"}}, {Op: "max", Vars: []string{"m"}}}
	if got := ReductionPreamble(red, "L", true); got != "reduce_op_add::init(s(L));\nreduce_op_add::init(t(L));\nreduce_op_max::init(m(L));\n" {
		t.Errorf("fortran style = %q", got)
	}
	if got := ReductionPreamble(red[1:], "L", false); got != "reduce_op_max::init(m[L]);\n" {
		t.Errorf("c style = %q", got)
	}
}

var (
	constLiteral  = regexp.MustCompile(`(?m)^const int (\w+) = (-?\d+);$`)
	constProduct  = regexp.MustCompile(`(?m)^const int (\w+) = (\w+(?:\*\w+)+);$`)
	outermostCall = regexp.MustCompile(`(?m)^(\w+) = gpufort::outermost_index\(([^;]*)\);$`)
)

// TestCollapseEmitsDecodeArguments evaluates the emitted index recovery
// with DecodeIndex, so the argument order of the generated calls is
// checked against the host reference.
func TestCollapseEmitsDecodeArguments(t *testing.T) {
	type dim struct{ first, length, step int }
	dims := []dim{{1, 3, 1}, {0, 4, 2}, {-2, 5, 3}}
	names := []string{"i", "j", "k"}
	nest := &Loopnest{}
	for n, d := range dims {
		nest.Loops = append(nest.Loops, ByLength(names[n], strconv.Itoa(d.first), strconv.Itoa(d.length), strconv.Itoa(d.step)))
	}
	c, err := nest.Collapse(NewLabeler())
	if err != nil {
		t.Fatal(err)
	}
	env := map[string]int{}
	for _, m := range constLiteral.FindAllStringSubmatch(c.Prolog, -1) {
		env[m[1]], _ = strconv.Atoi(m[2])
	}
	total := 0
	for _, m := range constProduct.FindAllStringSubmatch(c.Prolog, -1) {
		total = 1
		for _, f := range strings.Split(m[2], "*") {
			total *= env[f]
		}
	}
	if total != 3*4*5 {
		t.Fatalf("total length %d from prolog:\n%s", total, c.Prolog)
	}
	calls := outermostCall.FindAllStringSubmatch(c.BodyProlog, -1)
	if len(calls) != len(dims) {
		t.Fatalf("%d outermost_index calls in:\n%s", len(calls), c.BodyProlog)
	}

	for idx := 0; idx < total; idx++ {
		rem, denom := idx, total
		var got []int
		for n, call := range calls {
			if call[1] != names[n] {
				t.Fatalf("call %d assigns %s, want %s", n, call[1], names[n])
			}
			args := strings.Split(strings.ReplaceAll(call[2], "/*inout*/", ""), ",")
			if len(args) != 5 {
				t.Fatalf("call %d args = %v, want rem, denom, first, len, step", n, args)
			}
			if !strings.HasPrefix(args[0], "_rem") || !strings.HasPrefix(args[1], "_denom") {
				t.Fatalf("call %d starts with %v, want the rem and denom helpers", n, args[:2])
			}
			first, _ := strconv.Atoi(args[2])
			step, _ := strconv.Atoi(args[4])
			length, ok := env[args[3]]
			if !ok {
				t.Fatalf("call %d length %q is not a declared constant", n, args[3])
			}
			got = append(got, DecodeIndex(&rem, &denom, first, length, step))
		}
		var want []int
		r := idx
		for n := len(dims) - 1; n >= 0; n-- {
			d := dims[n]
			want = append([]int{d.first + (r%d.length)*d.step}, want...)
			r /= d.length
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("idx %d: got %v, want %v", idx, got, want)
		}
	}
}
