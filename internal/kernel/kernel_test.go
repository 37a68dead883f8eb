package kernel

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"fort2hip/internal/diag"
	"fort2hip/internal/index"
	"fort2hip/internal/linemap"
	"fort2hip/internal/parser"
	"fort2hip/internal/scope"
	"fort2hip/internal/trace"
)

func resolveScope(t *testing.T, tag string, recs ...index.Record) *scope.Scope {
	t.Helper()
	idx := index.New()
	for _, r := range recs {
		idx.Insert(r)
	}
	sc, err := scope.NewResolver(idx, scope.Options{Strict: true}).Resolve(tag)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", tag, err)
	}
	return sc
}

func nest(t *testing.T, src string) LoopNest {
	t.Helper()
	stmts, err := linemap.FromSource("k.f90", src)
	if err != nil {
		t.Fatalf("FromSource: %v", err)
	}
	nests, err := parser.LoopNests(stmts)
	if err != nil {
		t.Fatalf("LoopNests: %v", err)
	}
	if len(nests) != 1 {
		t.Fatalf("got %d loop nests", len(nests))
	}
	ln, err := NestFrom(nests[0])
	if err != nil {
		t.Fatalf("NestFrom: %v", err)
	}
	return ln
}

func names(vars []Var) string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = v.Name
	}
	return strings.Join(out, ",")
}

func program(vars ...index.Variable) index.Record {
	p := index.NewRecord(index.KindProgram, "p")
	p.ImplicitNone = true
	for _, v := range vars {
		p.AddVariable(v)
	}
	return p
}

func TestGridMappedLoop(t *testing.T) {
	sc := resolveScope(t, "p", program(
		index.NewVariable("x", "integer", "", nil, []string{"10"}, ""),
		index.NewVariable("y", "integer", "", nil, nil, ""),
		index.NewVariable("i", "integer", "", nil, nil, ""),
	))
	src := nest(t, `
!$cuf kernel do(1) <<<*, *>>>
do i = 1, 10
  y = x(i)
end do
`)
	ctx, err := Build("k", src, sc, DefaultOptions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "const int _len0 = gpufort::loop_len(1,10);\n" +
		"const int _worker_tile_size0 = gpufort::div_round_up(_len0,gridDim.x);\n" +
		"int _idx0;\n" +
		"for (_idx0 = threadIdx.x + blockIdx.x*_worker_tile_size0; _idx0 < (min(_len0,(blockIdx.x+1)*_worker_tile_size0)); _idx0 += blockDim.x) {\n" +
		"  i = 1 + _idx0;\n" +
		"  y = x(i);\n" +
		"} // _idx0\n"
	if ctx.CBody != want {
		t.Errorf("CBody:\n%s\nwant:\n%s", ctx.CBody, want)
	}
	if got := names(ctx.GlobalVars); got != "x,y" {
		t.Errorf("global vars = %s", got)
	}
	if got := names(ctx.LocalVars); got != "i" {
		t.Errorf("local vars = %s", got)
	}
	if len(ctx.GlobalReducedVars)+len(ctx.SharedVars) != 0 {
		t.Errorf("unexpected reduced/shared vars")
	}
	if ctx.GlobalVars[0].CType != "int" || ctx.GlobalVars[0].Rank != 1 {
		t.Errorf("x = %+v", ctx.GlobalVars[0])
	}
	if strings.Join(ctx.ProblemSize, ";") != "gpufort::loop_len(1,10)" ||
		strings.Join(ctx.Block, ";") != "128" ||
		strings.Join(ctx.Grid, ";") != "gpufort::div_round_up(gpufort::loop_len(1,10),128)" ||
		ctx.LaunchBounds != "128" {
		t.Errorf("launch config: problem %v block %v grid %v bounds %q", ctx.ProblemSize, ctx.Block, ctx.Grid, ctx.LaunchBounds)
	}
	for _, kind := range []string{"hip", "hip_ps", "cpu"} {
		if _, ok := ctx.Launcher(kind); !ok {
			t.Errorf("missing %s launcher", kind)
		}
	}
	if l, _ := ctx.Launcher("hip_ps"); l.Name != "launch_k_ps" {
		t.Errorf("hip_ps launcher = %q", l.Name)
	}
	if len(ctx.Hash) != 16 || !ctx.CPU || ctx.Kind != KindLoopNest {
		t.Errorf("hash %q cpu %v kind %v", ctx.Hash, ctx.CPU, ctx.Kind)
	}
}

func reductionScope(t *testing.T) *scope.Scope {
	return resolveScope(t, "p", program(
		index.NewVariable("n", "integer", "", nil, nil, ""),
		index.NewVariable("a", "real", "8", nil, []string{"n"}, ""),
		index.NewVariable("s", "real", "8", nil, nil, ""),
		index.NewVariable("i", "integer", "", nil, nil, ""),
	))
}

func TestReduction(t *testing.T) {
	const loop = `
do i = 1, n
  s = s + a(i)
end do
`
	ctx, err := Build("red", nest(t, "!$acc parallel loop reduction(+:s)"+loop), reductionScope(t), DefaultOptions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n := strings.Count(ctx.CBody, "reduce_op_add::init("); n != 1 {
		t.Errorf("%d reduction initializations in:\n%s", n, ctx.CBody)
	}
	if !strings.Contains(ctx.CBody, "reduce_op_add::init(s(_coords.vector_lane_id(_res)));\n") {
		t.Errorf("CBody:\n%s", ctx.CBody)
	}
	if strings.Index(ctx.CBody, "reduce_op_add") > strings.Index(ctx.CBody, "for (") {
		t.Errorf("initialization follows the loop head:\n%s", ctx.CBody)
	}
	if !strings.Contains(ctx.CBody, "if ( _coords.worker == 0 ) {") {
		t.Errorf("missing worker selection:\n%s", ctx.CBody)
	}
	if got := names(ctx.GlobalVars); got != "n,a" {
		t.Errorf("global vars = %s", got)
	}
	if len(ctx.GlobalReducedVars) != 1 || ctx.GlobalReducedVars[0].Name != "s" || ctx.GlobalReducedVars[0].Op != "add" {
		t.Errorf("reduced vars = %+v", ctx.GlobalReducedVars)
	}
	if got := names(ctx.Args()); got != "n,a,s" {
		t.Errorf("args = %s", got)
	}

	plain, err := Build("red", nest(t, "!$acc parallel loop"+loop), reductionScope(t), DefaultOptions)
	if err != nil {
		t.Fatalf("Build without reduction: %v", err)
	}
	if strings.Contains(plain.CBody, "reduce_op_") {
		t.Errorf("initialization without reduction clause:\n%s", plain.CBody)
	}
	if got := names(plain.GlobalVars); got != "n,a,s" {
		t.Errorf("global vars = %s", got)
	}
	if plain.Hash == ctx.Hash {
		t.Error("hash ignores the directive")
	}
}

func TestGridStrategies(t *testing.T) {
	sc := resolveScope(t, "p", program(
		index.NewVariable("b", "real", "4", nil, []string{"n", "m"}, ""),
		index.NewVariable("n", "integer", "", nil, nil, ""),
		index.NewVariable("m", "integer", "", nil, nil, ""),
		index.NewVariable("i", "integer", "", nil, nil, ""),
		index.NewVariable("j", "integer", "", nil, nil, ""),
	))
	const src = `
!$cuf kernel do(2) <<<*, *>>>
do j = 1, m
  do i = 1, n
    b(i,j) = 1.0
  end do
end do
`
	grid, err := Build("g", nest(t, src), sc, DefaultOptions)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if got := strings.Join(grid.ProblemSize, ";"); got != "gpufort::loop_len(1,n);gpufort::loop_len(1,m)" {
		t.Errorf("grid problem size = %s", got)
	}
	if !strings.Contains(grid.CBody, "blockIdx.y") || !strings.Contains(grid.CBody, "threadIdx.x") {
		t.Errorf("grid body:\n%s", grid.CBody)
	}
	if strings.Join(grid.Block, ";") != "128;1" {
		t.Errorf("grid block = %v", grid.Block)
	}

	opts := DefaultOptions
	opts.Strategy = StrategyCollapse
	coll, err := Build("c", nest(t, src), sc, opts)
	if err != nil {
		t.Fatalf("collapse: %v", err)
	}
	if got := strings.Join(coll.ProblemSize, ";"); got != "gpufort::loop_len(1,m)*gpufort::loop_len(1,n)" {
		t.Errorf("collapse problem size = %s", got)
	}
	if !strings.Contains(coll.CBody, "gpufort::outermost_index(") || strings.Contains(coll.CBody, "blockIdx.y") {
		t.Errorf("collapse body:\n%s", coll.CBody)
	}
	if got := names(coll.LocalVars); got != "j,i" {
		t.Errorf("local vars = %s", got)
	}
}

func TestNotPerfectlyNested(t *testing.T) {
	sc := reductionScope(t)
	src := nest(t, `
!$acc parallel loop collapse(2)
do i = 1, n
  s = 0
  do j = 1, n
    s = s + a(j)
  end do
end do
`)
	if _, err := Build("bad", src, sc, DefaultOptions); !errors.Is(err, diag.ErrSyntax) {
		t.Fatalf("err = %v, want syntax error", err)
	}
}

func TestGlobalProcedure(t *testing.T) {
	m := index.NewRecord(index.KindModule, "m")
	p := index.NewRecord(index.KindSubroutine, "saxpy")
	p.Attributes = []string{"global"}
	p.DummyArgs = []string{"n", "a", "x", "y"}
	p.ImplicitNone = true
	p.AddVariable(index.NewVariable("n", "integer", "", []string{"value"}, nil, ""))
	p.AddVariable(index.NewVariable("a", "real", "", []string{"value"}, nil, ""))
	p.AddVariable(index.NewVariable("x", "real", "", []string{"device"}, []string{"n"}, ""))
	p.AddVariable(index.NewVariable("y", "real", "", []string{"device"}, []string{"n"}, ""))
	p.AddVariable(index.NewVariable("i", "integer", "", nil, nil, ""))
	p.AddVariable(index.NewVariable("tile", "real", "", []string{"shared"}, []string{"128"}, ""))
	m.Procedures = append(m.Procedures, p)
	sc := resolveScope(t, "m:saxpy", m)

	stmts, err := linemap.FromSource("k.f90", "i = 1\nif (i <= n) y(i) = a*x(i) + y(i)\n")
	if err != nil {
		t.Fatal(err)
	}
	body, err := parser.ParseStatements(stmts)
	if err != nil {
		t.Fatal(err)
	}
	ctx, err := Build("saxpy", Procedure{Record: p, Body: body}, sc, DefaultOptions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if ctx.Kind != KindGlobal || ctx.CPU {
		t.Errorf("kind %v cpu %v", ctx.Kind, ctx.CPU)
	}
	if got := names(ctx.GlobalVars); got != "n,a,x,y" {
		t.Errorf("global vars = %s", got)
	}
	if got := names(ctx.LocalVars); got != "i" {
		t.Errorf("local vars = %s", got)
	}
	if got := names(ctx.SharedVars); got != "tile" {
		t.Errorf("shared vars = %s", got)
	}
	if len(ctx.Launchers) != 1 || ctx.Launchers[0].Name != "launch_saxpy" {
		t.Errorf("launchers = %+v", ctx.Launchers)
	}
	if !strings.HasPrefix(ctx.CBody, "i = 1;\n") {
		t.Errorf("CBody:\n%s", ctx.CBody)
	}

	host := index.NewRecord(index.KindSubroutine, "host")
	if _, err := Build("host", Procedure{Record: host}, sc, DefaultOptions); err == nil {
		t.Error("host procedure accepted")
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": StrategyGrid, "grid": StrategyGrid, "Collapse": StrategyCollapse} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("tile"); err == nil {
		t.Error("ParseStrategy accepted tile")
	}
}

func accScope(t *testing.T) *scope.Scope {
	return resolveScope(t, "p", program(
		index.NewVariable("b", "real", "4", nil, []string{"n", "m"}, ""),
		index.NewVariable("n", "integer", "", nil, nil, ""),
		index.NewVariable("m", "integer", "", nil, nil, ""),
		index.NewVariable("i", "integer", "", nil, nil, ""),
		index.NewVariable("j", "integer", "", nil, nil, ""),
	))
}

func TestAccCollapseAndTile(t *testing.T) {
	const body = `
do j = 1, m
  do i = 1, n
    b(i,j) = 1.0
  end do
end do
`
	const size = "gpufort::loop_len(1,m)*gpufort::loop_len(1,n)"
	tests := []struct {
		name      string
		directive string
		want      []string
		reject    []string
	}{
		{
			name:      "collapse",
			directive: "!$acc parallel loop collapse(2)",
			want: []string{
				"const gpufort::acc_grid _res(",
				"j = gpufort::outermost_index(",
				"i = gpufort::outermost_index(",
				"if ( _coords.worker == 0 ) {",
				"b(i,j) = 1.0f;",
			},
			reject: []string{"_tile", "blockIdx.y"},
		},
		{
			name:      "tile",
			directive: "!$acc parallel loop tile(16,32)",
			want: []string{
				"const gpufort::acc_grid _res(",
				"gpufort::div_round_up(",
				"(16)*",
				"(32)*",
				"j = ",
				"i = ",
				"if ( _coords.worker == 0 ) {",
			},
			reject: []string{"= *;", "(*)"},
		},
		{
			name:      "tile of stars",
			directive: "!$acc parallel loop tile(*,*)",
			want:      []string{"(128)*", "(1)*"},
			reject:    []string{",*)", "= *;", "(*)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := trace.NewRingTracer(64, trace.LevelDebug)
			opts := DefaultOptions
			opts.Tracer = ring
			ctx, err := Build("k", nest(t, tt.directive+body), accScope(t), opts)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			for _, frag := range tt.want {
				if !strings.Contains(ctx.CBody, frag) {
					t.Errorf("CBody lacks %q:\n%s", frag, ctx.CBody)
				}
			}
			for _, frag := range tt.reject {
				if strings.Contains(ctx.CBody, frag) {
					t.Errorf("CBody contains %q:\n%s", frag, ctx.CBody)
				}
			}
			if strings.Index(ctx.CBody, "j = ") > strings.Index(ctx.CBody, "i = ") {
				t.Errorf("outer index recovered after the inner one:\n%s", ctx.CBody)
			}
			if got := strings.Join(ctx.ProblemSize, ";"); got != size {
				t.Errorf("problem size = %s", got)
			}
			if strings.Join(ctx.Block, ";") != "128" ||
				strings.Join(ctx.Grid, ";") != "gpufort::div_round_up("+size+",128)" {
				t.Errorf("block %v grid %v", ctx.Block, ctx.Grid)
			}
			if got := names(ctx.LocalVars); got != "j,i" {
				t.Errorf("local vars = %s", got)
			}
			var helpers string
			for _, ev := range ring.Snapshot() {
				if ev.Kind == trace.KindSpanEnd && ev.Name == "kernel:k" {
					helpers = ev.Extra["helpers"]
				}
			}
			if n, _ := strconv.Atoi(helpers); n == 0 {
				t.Errorf("kernel span reports %q helper names", helpers)
			}
		})
	}
}

func TestTileSizes(t *testing.T) {
	b := &builder{opts: Options{BlockSize: 64}}
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"*"}, "64"},
		{[]string{"*", "*"}, "1,64"},
		{[]string{"*", " 8 "}, "64,8"},
		{[]string{"4", "n"}, "4,n"},
	}
	for _, tt := range tests {
		if got := strings.Join(b.tileSizes(tt.in), ","); got != tt.want {
			t.Errorf("tileSizes(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
