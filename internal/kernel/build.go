package kernel

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"fort2hip/internal/ast"
	"fort2hip/internal/diag"
	"fort2hip/internal/directive"
	"fort2hip/internal/loops"
	"fort2hip/internal/scope"
	"fort2hip/internal/trace"
)

// Strategy selects how CUF kernel loop nests are laid onto the grid.
type Strategy uint8

const (
	// StrategyGrid maps up to three loops onto x, y and z, innermost on x.
	StrategyGrid Strategy = iota
	// StrategyCollapse collapses the nest into one loop on x.
	StrategyCollapse
)

// ParseStrategy accepts "grid" and "collapse".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "grid":
		return StrategyGrid, nil
	case "collapse":
		return StrategyCollapse, nil
	}
	return 0, fmt.Errorf("unknown loop collapse strategy %q", s)
}

func (s Strategy) String() string {
	if s == StrategyCollapse {
		return "collapse"
	}
	return "grid"
}

// DefaultBlockSize is the x extent of generated thread blocks.
const DefaultBlockSize = 128

// Options tune kernel generation.
type Options struct {
	Strategy            Strategy
	FortranStyleTensors bool
	BlockSize           int    // DefaultBlockSize when zero
	VectorLength        string // acc_grid vector lanes, warpSize when empty
	Style               ast.FortranStyle
	Tracer              trace.Tracer
}

// DefaultOptions renders Fortran-style tensor accesses on a grid.
var DefaultOptions = Options{Strategy: StrategyGrid, FortranStyleTensors: true, BlockSize: DefaultBlockSize}

type builder struct {
	name string
	sc   *scope.Scope
	opts Options
	lb   *loops.Labeler
	ctx  *Context
}

// Build generates the kernel called name. Name resolution annotates the
// body of src in place. Every call owns a fresh Labeler, so helper names
// of unrelated kernels never interact.
func Build(name string, src Source, sc *scope.Scope, opts Options) (*Context, error) {
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultBlockSize
	}
	span := trace.Begin(opts.Tracer, trace.ScopeKernel, "kernel:"+name, 0)
	b := &builder{
		name: name,
		sc:   sc,
		opts: opts,
		lb:   loops.NewLabeler(),
		ctx:  &Context{Name: name},
	}
	var err error
	switch s := src.(type) {
	case LoopNest:
		b.ctx.File, b.ctx.Line = s.File, s.Line
		err = b.loopNest(s)
	case Procedure:
		b.ctx.File, b.ctx.Line = s.File, s.Line
		err = b.procedure(s)
	default:
		err = fmt.Errorf("kernel %s: unsupported source %T", name, src)
	}
	if err != nil {
		span.Fail(err)
		return nil, err
	}
	span.WithExtra("kind", b.ctx.Kind.String()).
		WithExtra("helpers", strconv.Itoa(len(b.lb.Minted()))).
		End(b.ctx.Hash)
	return b.ctx, nil
}

func (b *builder) hipOpts() ast.HIPOptions {
	return ast.HIPOptions{FortranStyleTensors: b.opts.FortranStyleTensors}
}

func (b *builder) hip(e ast.Expr) (string, error) {
	if e == nil {
		return "", nil
	}
	return ast.HIPWith(e, b.hipOpts())
}

func firstLoop(body []ast.Stmt) *ast.DoLoop {
	for _, s := range body {
		switch x := s.(type) {
		case *ast.DoLoop:
			return x
		case *ast.Label, *ast.Continue:
		default:
			return nil
		}
	}
	return nil
}

func (b *builder) loopNest(src LoopNest) error {
	b.ctx.Kind = KindLoopNest
	outer := firstLoop(src.Body)
	if outer == nil {
		return diag.Errorf(diag.KindSyntax, diag.LoopNotPerfectlyNested, "kernel %s does not start with a do loop", b.name)
	}
	dir := src.Directive
	if dir == nil {
		dir = outer.Directive
	}
	if dir == nil {
		return diag.Errorf(diag.KindSyntax, diag.SynBadDirective, "loop nest of kernel %s has no directive", b.name)
	}
	n, err := dir.NumLoops()
	if err != nil {
		return err
	}
	dos := outer.Nest(n)
	if len(dos) < n {
		return diag.Errorf(diag.KindSyntax, diag.LoopNotPerfectlyNested,
			"%d loops requested but only %d are perfectly nested", n, len(dos))
	}
	if err := ast.Resolve(src.Body, b.sc); err != nil {
		return err
	}

	laneIndex := loops.ResourceFilter{}.LaneIndex()
	var reductions []loops.Reduction
	for _, r := range dir.Reductions() {
		reductions = append(reductions, loops.Reduction{Op: r.Op, Vars: lowerAll(r.Vars)})
	}
	markReductions(src.Body, reductions, laneIndex)

	orig, err := b.loopsOf(dos)
	if err != nil {
		return err
	}
	b.launchConfig(dir, orig)
	nest, acc, err := b.mapping(dir, orig)
	if err != nil {
		return err
	}
	mapped, err := nest.MapToHIP(b.lb)
	if err != nil {
		return err
	}
	inner, err := ast.HIPStmts(dos[len(dos)-1].Body, b.hipOpts(), 0)
	if err != nil {
		return err
	}

	var body strings.Builder
	if acc || len(reductions) > 0 {
		body.WriteString(loops.KernelProlog(b.opts.VectorLength))
	}
	body.WriteString(loops.ReductionPreamble(reductions, laneIndex, b.opts.FortranStyleTensors))
	body.WriteString(mapped.Open)
	if cond := mapped.Filter.StatementSelectionCondition(); acc && cond != "true" {
		body.WriteString(mapped.Indent + "if ( " + cond + " ) {\n")
		body.WriteString(indent(inner, mapped.Indent+"  "))
		body.WriteString(mapped.Indent + "}\n")
	} else {
		body.WriteString(indent(inner, mapped.Indent))
	}
	body.WriteString(mapped.Close)
	b.ctx.CBody = body.String()
	b.ctx.FBody = ast.FortranStmts(src.Body, b.opts.Style)
	b.ctx.Hash = contentHash(b.name, dir.Text, b.ctx.FBody)
	b.ctx.Launchers = launchers(b.name, "hip", "hip_ps", "cpu")
	b.ctx.CPU = true
	return b.classifyNest(src.Body, dir)
}

// loopsOf converts the mapped do loops, outermost first.
func (b *builder) loopsOf(dos []*ast.DoLoop) (*loops.Loopnest, error) {
	nest := &loops.Loopnest{}
	for _, d := range dos {
		var bounds [3]string
		for i, e := range []ast.Expr{d.First, d.Last, d.Step} {
			s, err := b.hip(e)
			if err != nil {
				return nil, err
			}
			bounds[i] = s
		}
		nest.Loops = append(nest.Loops, loops.ByLast(d.Index.Name, bounds[0], bounds[1], bounds[2]))
	}
	return nest, nil
}

// tileSizes resolves tile(*) entries: the innermost one becomes the block
// size, outer ones 1, so a tile of stars covers one thread block.
func (b *builder) tileSizes(sizes []string) []string {
	out := make([]string, len(sizes))
	inner := true
	for i := len(sizes) - 1; i >= 0; i-- {
		out[i] = strings.TrimSpace(sizes[i])
		if out[i] != "*" {
			continue
		}
		out[i] = "1"
		if inner {
			out[i] = strconv.Itoa(b.opts.BlockSize)
			inner = false
		}
	}
	return out
}

// cufGrid reports CUF nests that are mapped loop by loop onto the grid.
func (b *builder) cufGrid(dir *directive.Directive, n int) bool {
	return dir.Sentinel == directive.SentinelCUF && b.opts.Strategy == StrategyGrid && n <= len(loops.GridDims)
}

// mapping prepares the nest for mapping. CUF kernels go onto the HIP
// grid; OpenACC loops onto the gang, worker and vector resources,
// defaulting to gang-vector partitioning.
func (b *builder) mapping(dir *directive.Directive, nest *loops.Loopnest) (*loops.Loopnest, bool, error) {
	if dir.Sentinel == directive.SentinelCUF {
		if b.cufGrid(dir, nest.Len()) {
			for i, l := range nest.Loops {
				l.Grid = loops.GridDims[nest.Len()-1-i]
			}
			return nest, false, nil
		}
		c, err := nest.Collapse(b.lb)
		if err != nil {
			return nil, false, err
		}
		c.Grid = loops.GridX
		return loops.NewLoopnest(c), false, nil
	}

	first := nest.Loops[0]
	switch {
	case dir.Seq() || dir.IsSerial():
	case dir.Partitioned():
		first.Gang, first.Worker, first.Vector = dir.Gang(), dir.Worker(), dir.Vector()
	default:
		first.Gang, first.Vector = true, true
	}
	first.NumGangs, first.NumWorkers, first.VectorLength = dir.NumGangs(), dir.NumWorkers(), dir.VectorLength()
	if sizes := dir.Tile(); sizes != nil {
		tiled, err := nest.Tile(b.lb, b.tileSizes(sizes), true, true)
		return tiled, true, err
	}
	if nest.Len() > 1 {
		c, err := nest.Collapse(b.lb)
		if err != nil {
			return nil, false, err
		}
		return loops.NewLoopnest(c), true, nil
	}
	return nest, true, nil
}

// launchConfig derives the problem size and the launch extents from the
// untransformed loops, so every expression is valid on the host.
func (b *builder) launchConfig(dir *directive.Directive, nest *loops.Loopnest) {
	n := nest.Len()
	if b.cufGrid(dir, n) {
		b.ctx.ProblemSize = make([]string, n)
		for i, l := range nest.Loops {
			b.ctx.ProblemSize[n-1-i] = l.Length()
		}
	} else {
		lens := make([]string, n)
		for i, l := range nest.Loops {
			lens[i] = l.Length()
		}
		b.ctx.ProblemSize = []string{strings.Join(lens, "*")}
	}
	b.ctx.Block = make([]string, len(b.ctx.ProblemSize))
	for i := range b.ctx.Block {
		b.ctx.Block[i] = "1"
	}
	b.ctx.Block[0] = strconv.Itoa(b.opts.BlockSize)
	if blk := strings.TrimSpace(dir.Block); blk != "" && blk != "*" {
		b.ctx.Block = splitDim(blk)
	}
	b.ctx.Grid = make([]string, len(b.ctx.ProblemSize))
	for i, p := range b.ctx.ProblemSize {
		bl := "1"
		if i < len(b.ctx.Block) {
			bl = b.ctx.Block[i]
		}
		b.ctx.Grid[i] = fmt.Sprintf("gpufort::div_round_up(%s,%s)", p, bl)
	}
	switch {
	case strings.TrimSpace(dir.Grid) != "" && strings.TrimSpace(dir.Grid) != "*":
		b.ctx.Grid = splitDim(dir.Grid)
	case dir.IsSerial():
		b.ctx.Grid = []string{"1"}
	case dir.Sentinel == directive.SentinelACC && dir.NumGangs() != "":
		b.ctx.Grid = []string{dir.NumGangs()}
	}
	product := 1
	for _, d := range b.ctx.Block {
		v, err := strconv.Atoi(d)
		if err != nil {
			return
		}
		product *= v
	}
	b.ctx.LaunchBounds = strconv.Itoa(product)
}

// splitDim turns "dim3(a,b)" or "a" into its components.
func splitDim(s string) []string {
	s = strings.TrimSpace(s)
	if len(s) > 5 && strings.EqualFold(s[:5], "dim3(") {
		s = strings.TrimSuffix(s[5:], ")")
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func markReductions(body []ast.Stmt, reductions []loops.Reduction, laneIndex string) {
	if len(reductions) == 0 {
		return
	}
	reduced := make(map[string]bool)
	for _, r := range reductions {
		for _, v := range r.Vars {
			reduced[v] = true
		}
	}
	ast.WalkStmts(body, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && reduced[strings.ToLower(id.Name)] {
			id.ReductionIndex = laneIndex
		}
		return true
	})
}

func contentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:8])
}

func indent(s, prefix string) string {
	if prefix == "" {
		return s
	}
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if strings.TrimSpace(line) != "" {
			b.WriteString(prefix)
		}
		b.WriteString(line)
	}
	return b.String()
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
