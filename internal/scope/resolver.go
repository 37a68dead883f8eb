package scope

import (
	"fmt"
	"slices"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/index"
	"fort2hip/internal/trace"
)

// DefaultIgnoreModules are intrinsic and runtime modules that never have
// index records.
var DefaultIgnoreModules = []string{
	"iso_c_binding", "iso_fortran_env", "cudafor", "openacc",
	"hipfort", "hipfort_check", "gpufort_array",
}

// Options configures lookup failure handling.
type Options struct {
	// Strict turns missing modules, records and symbols into lookup errors.
	// Otherwise they are reported as warnings and resolution continues.
	Strict        bool
	IgnoreModules []string
	Reporter      diag.Reporter
	Tracer        trace.Tracer
}

// Resolver builds and caches scopes over one index.
// It is not safe for concurrent use.
type Resolver struct {
	idx   *index.Index
	opts  Options
	cache []*Scope
}

// NewResolver creates a resolver. A nil IgnoreModules means
// DefaultIgnoreModules.
func NewResolver(idx *index.Index, opts Options) *Resolver {
	if opts.IgnoreModules == nil {
		opts.IgnoreModules = DefaultIgnoreModules
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	return &Resolver{idx: idx, opts: opts}
}

// Strict reports the failure policy.
func (r *Resolver) Strict() bool { return r.opts.Strict }

// Cached returns the tags currently cached, oldest first.
func (r *Resolver) Cached() []string {
	out := make([]string, len(r.cache))
	for i, s := range r.cache {
		out[i] = s.Tag
	}
	return out
}

// Resolve returns the scope for tag, reusing the deepest cached ancestor.
// Cached scopes outside the lineage of tag are evicted first.
func (r *Resolver) Resolve(tag string) (*Scope, error) {
	tag = normalizeTag(tag)
	if tag == "" {
		return nil, diag.Errorf(diag.KindLookup, diag.LookupUnitNotFound, "empty scope tag")
	}
	segs := strings.Split(tag, ":")

	var base *Scope
	kept := r.cache[:0]
	for _, s := range r.cache {
		switch {
		case isTagPrefix(s.Tag, tag):
			if base == nil || len(s.Tag) > len(base.Tag) {
				base = s
			}
			kept = append(kept, s)
		case isTagPrefix(tag, s.Tag):
			kept = append(kept, s)
		default:
			trace.Point(r.opts.Tracer, trace.ScopeUnit, "scope:evict", s.Tag)
		}
	}
	clear(r.cache[len(kept):])
	r.cache = kept

	if base != nil && base.Tag == tag {
		return base, nil
	}

	depth := 0
	var sc *Scope
	if base == nil {
		sc = newScope(tag, &r.opts)
	} else {
		depth = len(strings.Split(base.Tag, ":"))
		sc = base.clone(tag)
	}

	records := r.idx.Records
	for d := range depth {
		rec, ok := findRecord(records, segs[d])
		if !ok {
			break
		}
		records = rec.Procedures
	}
	for d := depth; d < len(segs); d++ {
		rec, ok := findRecord(records, segs[d])
		if !ok {
			if err := r.opts.fail(diag.LookupUnitNotFound, tag,
				fmt.Sprintf("no index record for %q", strings.Join(segs[:d+1], ":"))); err != nil {
				return nil, err
			}
			break
		}
		if err := r.resolveUses(sc, rec, []string{rec.Name}); err != nil {
			return nil, err
		}
		sc.pushRecord(rec)
		sc.ImplicitNone = sc.ImplicitNone || rec.ImplicitNone
		records = rec.Procedures
	}

	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scope %s: %w", tag, err)
	}
	r.cache = append(r.cache, sc)
	trace.Point(r.opts.Tracer, trace.ScopeUnit, "scope:build", tag)
	return sc, nil
}

// resolveUses appends the entries made visible by the use statements of rec,
// depth first. visiting is the chain of modules being expanded.
func (r *Resolver) resolveUses(sc *Scope, rec *index.Record, visiting []string) error {
	for _, used := range rec.UsedModules {
		name := strings.ToLower(used.Name)
		if slices.Contains(r.opts.IgnoreModules, name) {
			continue
		}
		if slices.Contains(visiting, name) {
			return diag.Errorf(diag.KindLookup, diag.LookupCircularUse,
				"circular use: %s -> %s", strings.Join(visiting, " -> "), name)
		}
		mod, ok := r.idx.Find(name)
		if !ok {
			if err := r.opts.fail(diag.LookupModuleNotFound, sc.Tag,
				fmt.Sprintf("no index record for module %q", name)); err != nil {
				return err
			}
			continue
		}
		if err := r.resolveUses(sc, mod, append(slices.Clone(visiting), name)); err != nil {
			return err
		}
		if len(used.Only) == 0 {
			if err := importAll(sc, mod, used.Renamings); err != nil {
				return err
			}
			continue
		}
		for _, m := range used.Only {
			if !importRenamed(sc, mod, m) {
				return diag.Errorf(diag.KindSyntax, diag.SynUnknownRenamed,
					"module %q has no entity %q", mod.Name, m.Original)
			}
		}
	}
	return nil
}

// importAll appends every entry of mod. Renamed originals are replaced by
// renamed copies.
func importAll(sc *Scope, mod *index.Record, renamings []index.Rename) error {
	renamed := func(name string) (string, bool) {
		for _, rn := range renamings {
			if strings.EqualFold(rn.Original, name) {
				return strings.ToLower(rn.Renamed), true
			}
		}
		return "", false
	}
	for _, rn := range renamings {
		if !hasEntity(mod, rn.Original) {
			return diag.Errorf(diag.KindSyntax, diag.SynUnknownRenamed,
				"module %q has no entity %q", mod.Name, rn.Original)
		}
	}
	for _, v := range mod.Variables {
		v = v.Clone()
		if n, ok := renamed(v.Name); ok {
			v.Name = n
		}
		sc.pushVariable(v)
	}
	for _, t := range mod.Types {
		t = t.Clone()
		if n, ok := renamed(t.Name); ok {
			t.Name = n
		}
		sc.pushType(t)
	}
	for _, p := range mod.Procedures {
		p = p.Clone()
		if n, ok := renamed(p.Name); ok {
			p.Name = n
		}
		sc.pushProcedure(p)
	}
	return nil
}

// importRenamed appends deep copies of every entry named m.Original,
// renamed to m.Renamed.
func importRenamed(sc *Scope, mod *index.Record, m index.Rename) bool {
	found := false
	to := strings.ToLower(m.Renamed)
	if v, ok := mod.Variable(m.Original); ok {
		c := v.Clone()
		c.Name = to
		sc.pushVariable(c)
		found = true
	}
	if t, ok := mod.Type(m.Original); ok {
		c := t.Clone()
		c.Name = to
		sc.pushType(c)
		found = true
	}
	if p, ok := mod.Procedure(m.Original); ok {
		c := p.Clone()
		c.Name = to
		sc.pushProcedure(c)
		found = true
	}
	return found
}

func hasEntity(mod *index.Record, name string) bool {
	_, v := mod.Variable(name)
	_, t := mod.Type(name)
	_, p := mod.Procedure(name)
	return v || t || p
}

func findRecord(records []index.Record, name string) (*index.Record, bool) {
	for i := range records {
		if strings.EqualFold(records[i].Name, name) {
			return &records[i], true
		}
	}
	return nil, false
}

func normalizeTag(tag string) string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(tag)), ":")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ":")
}

// isTagPrefix reports whether prefix names tag or one of its ancestors,
// comparing whole segments.
func isTagPrefix(prefix, tag string) bool {
	if prefix == tag {
		return true
	}
	return strings.HasPrefix(tag, prefix+":")
}
