package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"fort2hip/internal/buildpipeline"
	"fort2hip/internal/diag"
	"fort2hip/internal/index"
	"fort2hip/internal/indexer"
	"fort2hip/internal/linemap"
	"fort2hip/internal/project"
	"fort2hip/internal/project/dag"
	"fort2hip/internal/source"
	"fort2hip/internal/trace"
)

// DefaultMaxDiagnostics caps each per-file bag.
const DefaultMaxDiagnostics = 100

// IndexOptions configure IndexFiles.
type IndexOptions struct {
	Jobs           int // <= 0 means GOMAXPROCS
	MaxDiagnostics int
	// ModuleDirs hold unit files of modules indexed earlier. Units also
	// defined by the given sources are not loaded.
	ModuleDirs []string
	// OutputDir receives one unit file per indexed record; empty disables
	// writing.
	OutputDir string
	// Ignore names modules that are never indexed.
	Ignore   []string
	Tracer   trace.Tracer
	Progress buildpipeline.ProgressSink
	Timings  *buildpipeline.Timings
}

// FileResult is the outcome of indexing one file.
type FileResult struct {
	Path    string
	File    *source.File
	Stmts   []linemap.Statement
	Records []index.Record
	Bag     *diag.Bag
	Failed  bool
}

// IndexResult is the outcome of IndexFiles.
type IndexResult struct {
	Files   []FileResult
	Index   *index.Index
	Loaded  int      // records taken from ModuleDirs
	Order   []string // unit names, used modules first
	Digests map[string]project.Digest
	Written []string
	Bag     *diag.Bag // diagnostics not tied to a single file
}

// HasErrors reports whether any bag holds an error.
func (r *IndexResult) HasErrors() bool {
	if r.Bag.HasErrors() {
		return true
	}
	for _, f := range r.Files {
		if f.Bag.HasErrors() {
			return true
		}
	}
	return false
}

func (o IndexOptions) jobs(n int) int {
	jobs := o.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

func (o IndexOptions) maxDiagnostics() int {
	if o.MaxDiagnostics <= 0 {
		return DefaultMaxDiagnostics
	}
	return o.MaxDiagnostics
}

func (o IndexOptions) tracer(ctx context.Context) trace.Tracer {
	if o.Tracer != nil {
		return o.Tracer
	}
	return trace.FromContext(ctx)
}

// IndexFiles builds the symbol index of paths. Files are read and indexed
// in parallel, each into its own result slot; merging, ordering and unit
// file output run sequentially afterwards. A file that fails is reported
// in its bag and skipped. The returned error is set only for cancellation
// and output failures.
func IndexFiles(ctx context.Context, paths []string, opts IndexOptions) (*IndexResult, error) {
	tr := opts.tracer(ctx)
	span := trace.Begin(tr, trace.ScopePass, "index", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	res := &IndexResult{
		Files:   make([]FileResult, len(paths)),
		Index:   index.New(),
		Digests: make(map[string]project.Digest),
		Bag:     diag.NewBag(opts.maxDiagnostics()),
	}
	buildpipeline.Queued(opts.Progress, paths)

	// FileSet is not safe for concurrent use: load up front.
	fset := source.NewFileSet()
	loadErrs := make(map[string]error)
	for _, p := range paths {
		if _, err := fset.Load(p); err != nil {
			loadErrs[p] = err
		}
	}

	if len(paths) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.jobs(len(paths)))
		for i, path := range paths {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				res.Files[i] = indexFile(gctx, fset, path, loadErrs[path], opts)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			span.End("canceled")
			return res, err
		}
	}

	for _, f := range res.Files {
		for _, rec := range f.Records {
			res.Index.Insert(rec)
		}
	}
	loaded, err := index.LoadDirs(res.Index, opts.ModuleDirs)
	res.Loaded = loaded
	if err != nil {
		res.Bag.Add(diag.New(diag.SevError, diag.IOBadUnitFile, source.Pos{}, err.Error()))
	}

	order(res, opts)

	if opts.OutputDir != "" {
		for _, f := range res.Files {
			if f.Failed {
				continue
			}
			for _, rec := range f.Records {
				path, err := index.WriteUnit(opts.OutputDir, rec)
				if err != nil {
					span.End("write failed")
					return res, fmt.Errorf("write unit %q: %w", rec.Name, err)
				}
				res.Written = append(res.Written, path)
			}
		}
	}
	span.End(fmt.Sprintf("%d records, %d loaded", res.Index.Len(), res.Loaded))
	return res, nil
}

func indexFile(ctx context.Context, fset *source.FileSet, path string, loadErr error, opts IndexOptions) FileResult {
	out := FileResult{Path: path, Bag: diag.NewBag(opts.maxDiagnostics())}
	tk := &buildpipeline.Tracker{Sink: opts.Progress, File: path, Timings: opts.Timings}
	fail := func(d diag.Diagnostic, err error) FileResult {
		out.Failed = true
		out.Bag.Add(d)
		trace.Point(opts.tracer(ctx), trace.ScopeError, "index:"+path, err.Error())
		tk.Fail(err)
		return out
	}

	tk.Enter(buildpipeline.StageRead)
	if loadErr != nil {
		msg := fmt.Sprintf("cannot read %s: %v", path, loadErr)
		return fail(diag.New(diag.SevError, diag.IOReadFailed, source.Pos{File: path}, msg), loadErr)
	}
	f, _ := fset.GetByPath(path)
	out.File = f
	stmts, err := linemap.FromFile(f)
	if err != nil {
		return fail(diag.FromError(err), err)
	}
	out.Stmts = stmts

	tk.Enter(buildpipeline.StageIndex)
	recs, err := indexer.FromStatements(f.Path, stmts, indexer.Options{
		Reporter: diag.BagReporter{Bag: out.Bag},
		Tracer:   opts.tracer(ctx),
	})
	if err != nil {
		return fail(diag.FromError(err), err)
	}
	out.Records = recs
	tk.Done(0)
	return out
}

// order sorts the units by module use, reports cycles and computes the
// unit digests, each covering the unit and everything it uses.
func order(res *IndexResult, opts IndexOptions) {
	recs := res.Index.Records
	idx := dag.BuildIndex(recs)
	reporter := diag.BagReporter{Bag: res.Bag}
	g, slots := dag.BuildGraph(idx, recs, dag.Options{Ignore: opts.Ignore, Reporter: reporter})
	topo := dag.ToposortKahn(g)
	dag.ReportCycles(idx, slots, topo, reporter)
	res.Order = idx.Names(topo.Order)

	for _, id := range topo.Order {
		slot := slots[int(id)]
		rec, ok := res.Index.Find(slot.Name)
		if !ok {
			continue
		}
		data, err := index.Persist(*rec)
		if err != nil {
			res.Bag.Add(diag.New(diag.SevError, diag.IOWriteFailed, slot.Pos, err.Error()))
			continue
		}
		var deps []project.Digest
		for _, u := range slot.Uses {
			if d, ok := res.Digests[u]; ok {
				deps = append(deps, d)
			}
		}
		res.Digests[slot.Name] = project.Combine(project.Sum(data), deps...)
	}
}
