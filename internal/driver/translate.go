package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"fort2hip/internal/buildpipeline"
	"fort2hip/internal/codegen"
	"fort2hip/internal/diag"
	"fort2hip/internal/directive"
	"fort2hip/internal/index"
	"fort2hip/internal/kernel"
	"fort2hip/internal/linemap"
	"fort2hip/internal/parser"
	"fort2hip/internal/scope"
	"fort2hip/internal/source"
	"fort2hip/internal/trace"
)

// TranslateOptions configure TranslateFiles.
type TranslateOptions struct {
	IndexOptions
	Strict bool
	Kernel kernel.Options
	// OutputDir receives <file>.hip.cpp and <file>_kernels.f90; next to the
	// source when empty.
	OutputDir string
	// DryRun keeps the rendered text in memory only.
	DryRun bool
}

// TranslatedFile is the outcome of translating one file.
type TranslatedFile struct {
	Path    string
	Kernels []*kernel.Context
	HIP     string
	Fortran string
	Outputs []string
	Bag     *diag.Bag
}

// TranslateResult is the outcome of TranslateFiles.
type TranslateResult struct {
	*IndexResult
	Translated []TranslatedFile
}

// HasErrors reports whether indexing or translation reported an error.
func (r *TranslateResult) HasErrors() bool {
	if r.IndexResult.HasErrors() {
		return true
	}
	for _, t := range r.Translated {
		if t.Bag.HasErrors() {
			return true
		}
	}
	return false
}

// Kernels counts the generated kernels.
func (r *TranslateResult) Kernels() int {
	n := 0
	for _, t := range r.Translated {
		n += len(t.Kernels)
	}
	return n
}

// TranslateFiles indexes paths and generates the kernels of every file
// that indexed cleanly. Files run in parallel, each with its own scope
// resolver over the shared read-only index. A kernel that fails is
// reported with its location and skipped.
func TranslateFiles(ctx context.Context, paths []string, opts TranslateOptions) (*TranslateResult, error) {
	progress := opts.Progress
	// per-file events of the index pass would close the rows early
	opts.IndexOptions.Progress = nil
	buildpipeline.Queued(progress, paths)
	ires, err := IndexFiles(ctx, paths, opts.IndexOptions)
	res := &TranslateResult{IndexResult: ires, Translated: make([]TranslatedFile, len(ires.Files))}
	if err != nil {
		return res, err
	}
	opts.Progress = progress

	tr := opts.tracer(ctx)
	span := trace.Begin(tr, trace.ScopePass, "translate", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)
	if opts.Kernel.Tracer == nil {
		opts.Kernel.Tracer = tr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs(len(ires.Files)))
	for i, f := range ires.Files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res.Translated[i] = translateFile(gctx, ires.Index, f, opts)
			return nil
		})
	}
	err = g.Wait()
	span.End(fmt.Sprintf("%d kernels", res.Kernels()))
	return res, err
}

func translateFile(ctx context.Context, idx *index.Index, f FileResult, opts TranslateOptions) TranslatedFile {
	out := TranslatedFile{Path: f.Path, Bag: diag.NewBag(opts.maxDiagnostics())}
	tk := &buildpipeline.Tracker{Sink: opts.Progress, File: f.Path, Timings: opts.Timings}
	if f.Failed {
		tk.Fail(fmt.Errorf("%s: indexing failed", f.Path))
		return out
	}
	tk.Enter(buildpipeline.StageResolve)
	units, err := parser.Units(f.Stmts)
	if err != nil {
		out.Bag.Add(diag.FromError(err))
		tk.Fail(err)
		return out
	}
	t := &translator{
		idx: idx,
		resolver: scope.NewResolver(idx, scope.Options{
			Strict:        opts.Strict,
			IgnoreModules: opts.Ignore,
			Reporter:      diag.BagReporter{Bag: out.Bag},
			Tracer:        opts.Kernel.Tracer,
		}),
		opts: opts,
		bag:  out.Bag,
	}

	tk.Enter(buildpipeline.StageGenerate)
	for _, root := range units {
		root.Walk(func(u *parser.Unit) {
			if ctx.Err() != nil {
				return
			}
			if k := t.unit(u); len(k) > 0 {
				out.Kernels = append(out.Kernels, k...)
				buildpipeline.Emit(opts.Progress, buildpipeline.Event{
					File: f.Path, Stage: buildpipeline.StageGenerate,
					Status: buildpipeline.StatusWorking, Kernels: len(out.Kernels),
				})
			}
		})
	}
	if len(out.Kernels) == 0 {
		tk.Done(0)
		return out
	}

	base := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
	module := identifier(base) + "_kernels"
	out.HIP = codegen.HIP(out.Kernels, codegen.Options{
		FortranStyleTensors: opts.Kernel.FortranStyleTensors,
		Guard:               strings.ToUpper(module) + "_HIP_CPP",
	})
	out.Fortran = codegen.Fortran(module, out.Kernels)
	if opts.DryRun {
		tk.Done(len(out.Kernels))
		return out
	}

	tk.Enter(buildpipeline.StageWrite)
	dir := opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(f.Path)
	}
	files := []struct{ name, text string }{
		{base + ".hip.cpp", out.HIP},
		{module + ".f90", out.Fortran},
	}
	for _, of := range files {
		path := filepath.Join(dir, of.name)
		if err := writeFile(path, of.text); err != nil {
			out.Bag.Add(diag.New(diag.SevError, diag.IOWriteFailed, source.Pos{File: path}, err.Error()))
			tk.Fail(err)
			return out
		}
		out.Outputs = append(out.Outputs, path)
	}
	tk.Done(len(out.Kernels))
	return out
}

type translator struct {
	idx      *index.Index
	resolver *scope.Resolver
	opts     TranslateOptions
	bag      *diag.Bag
}

// unit generates the kernels defined directly in u: the procedure itself
// when it runs on the device, else its annotated loop nests.
func (t *translator) unit(u *parser.Unit) []*kernel.Context {
	if u.Kind == index.KindType {
		return nil
	}
	rec, ok := t.idx.FindTag(u.Tag)
	if !ok {
		t.bag.Add(diag.New(diag.SevError, diag.LookupUnitNotFound, source.Pos{File: u.File, Line: u.Line},
			fmt.Sprintf("no index record for %q", u.Tag)))
		return nil
	}
	sc, err := t.resolver.Resolve(u.Tag)
	if err != nil {
		t.fail(err, u.File, u.Line)
		return nil
	}
	if rec.Kind.IsProcedure() && (rec.HasAttribute("global") || rec.HasAttribute("device") || rec.HasAttribute("acc_routine")) {
		body, err := parser.ParseStatements(executable(u.Stmts))
		if err != nil {
			t.fail(err, u.File, u.Line)
			return nil
		}
		src := kernel.Procedure{Record: *rec, Body: body, File: u.File, Line: u.Line}
		if ctx := t.build(rec.Name, src, sc, u.File, u.Line); ctx != nil {
			return []*kernel.Context{ctx}
		}
		return nil
	}

	nests, err := parser.LoopNests(u.Stmts)
	if err != nil {
		t.fail(err, u.File, u.Line)
		return nil
	}
	var out []*kernel.Context
	for _, ns := range nests {
		ln, err := kernel.NestFrom(ns)
		if err != nil {
			t.fail(err, ns.File, ns.Line)
			continue
		}
		name := fmt.Sprintf("%s_%d", strings.ReplaceAll(u.Tag, ":", "_"), ns.Line)
		if ctx := t.build(name, ln, sc, ns.File, ns.Line); ctx != nil {
			out = append(out, ctx)
		}
	}
	return out
}

func (t *translator) build(name string, src kernel.Source, sc *scope.Scope, file string, line int) *kernel.Context {
	ctx, err := kernel.Build(name, src, sc, t.opts.Kernel)
	if err != nil {
		t.fail(err, file, line)
		return nil
	}
	return ctx
}

func (t *translator) fail(err error, file string, line int) {
	err = diag.Locate(err, diag.Location{File: file, Line: line})
	t.bag.Add(diag.FromError(err))
	trace.Point(t.opts.Kernel.Tracer, trace.ScopeError, "translate", err.Error())
}

// executable drops the directives of a device procedure; they describe
// the procedure, not its body.
func executable(stmts []linemap.Statement) []linemap.Statement {
	out := make([]linemap.Statement, 0, len(stmts))
	for _, s := range stmts {
		if !directive.IsDirective(s.Body) {
			out = append(out, s)
		}
	}
	return out
}

func identifier(s string) string {
	var b strings.Builder
	for i, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r == '_', i > 0 && r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func writeFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
