package loops

import (
	"fmt"
	"strings"

	"fort2hip/internal/diag"
)

// Wildcard marks a dimension that is partitioned without an explicit
// extent: every resource of that dimension takes part.
const Wildcard = "*"

// DefaultCoords is the name of the per-thread coordinate triple declared
// by KernelProlog.
const DefaultCoords = "_coords"

// ResourceFilter collects the gang, worker and vector constraints under
// which a loop body executes. Each list holds zero or one entry.
type ResourceFilter struct {
	NumGangs     []string
	NumWorkers   []string
	VectorLength []string
	Coords       string // coordinate triple, DefaultCoords when empty
}

func (f ResourceFilter) coords() string {
	if f.Coords == "" {
		return DefaultCoords
	}
	return f.Coords
}

// Validate checks the zero-or-one invariant.
func (f ResourceFilter) Validate() error {
	for _, dim := range []struct {
		name string
		vals []string
	}{{"num_gangs", f.NumGangs}, {"num_workers", f.NumWorkers}, {"vector_length", f.VectorLength}} {
		if len(dim.vals) > 1 {
			return diag.Errorf(diag.KindArity, diag.LoopBadBounds,
				"resource filter holds %d %s constraints", len(dim.vals), dim.name)
		}
	}
	return nil
}

// Add combines f with an inner filter; the inner constraint wins on every
// dimension it sets.
func (f ResourceFilter) Add(inner ResourceFilter) ResourceFilter {
	pick := func(outer, in []string) []string {
		if len(in) > 0 {
			return []string{in[len(in)-1]}
		}
		if len(outer) > 0 {
			return []string{outer[len(outer)-1]}
		}
		return nil
	}
	out := ResourceFilter{
		NumGangs:     pick(f.NumGangs, inner.NumGangs),
		NumWorkers:   pick(f.NumWorkers, inner.NumWorkers),
		VectorLength: pick(f.VectorLength, inner.VectorLength),
		Coords:       f.Coords,
	}
	if inner.Coords != "" {
		out.Coords = inner.Coords
	}
	return out
}

// Empty reports a filter without any constraint.
func (f ResourceFilter) Empty() bool {
	return len(f.NumGangs)+len(f.NumWorkers)+len(f.VectorLength) == 0
}

// LoopEntryCondition masks the coordinates that lie outside of explicitly
// sized dimensions. Wildcards add no condition.
func (f ResourceFilter) LoopEntryCondition() string {
	var conds []string
	add := func(member string, vals []string) {
		if len(vals) > 0 && vals[0] != Wildcard {
			conds = append(conds, fmt.Sprintf("%s.%s < %s", f.coords(), member, vals[0]))
		}
	}
	add("gang", f.NumGangs)
	add("worker", f.NumWorkers)
	add("vector_lane", f.VectorLength)
	if len(conds) == 0 {
		return "true"
	}
	return strings.Join(conds, " && ")
}

// StatementSelectionCondition selects one representative worker and lane
// for statements outside of worker or vector partitioned loops.
func (f ResourceFilter) StatementSelectionCondition() string {
	var conds []string
	if len(f.NumWorkers) == 0 {
		conds = append(conds, f.coords()+".worker == 0")
	}
	if len(f.VectorLength) == 0 {
		conds = append(conds, f.coords()+".vector_lane == 0")
	}
	if len(conds) == 0 {
		return "true"
	}
	return strings.Join(conds, " && ")
}

// LaneIndex is the linear vector lane id within the kernel grid.
func (f ResourceFilter) LaneIndex() string {
	return f.coords() + ".vector_lane_id(" + kernelGrid + ")"
}
