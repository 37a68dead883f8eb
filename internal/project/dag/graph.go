package dag

import (
	"fmt"
	"slices"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/index"
	"fort2hip/internal/source"
)

// Graph points from a used module to its users, so that a topological
// order lists dependencies first.
type Graph struct {
	Edges   [][]ModuleID // Edges[used] = users
	Indeg   []int        // counts present dependencies only
	Present []bool       // a record exists, not just a use
}

type ModuleSlot struct {
	Name    string
	Kind    index.Kind
	Pos     source.Pos
	Uses    []string
	Present bool
}

// Options configure BuildGraph.
type Options struct {
	// Ignore lists modules that are never indexed, such as intrinsic ones.
	Ignore   []string
	Reporter diag.Reporter
}

func BuildGraph(idx ModuleIndex, recs []index.Record, opts Options) (Graph, []ModuleSlot) {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignore[strings.ToLower(name)] = true
	}
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]ModuleSlot, nodeCount)
	for i, name := range idx.IDToName {
		slots[i].Name = name
	}

	for _, rec := range recs {
		id, ok := idx.NameToID[strings.ToLower(rec.Name)]
		if !ok {
			continue
		}
		slot := &slots[int(id)]
		pos := source.Pos{File: rec.File, Line: rec.Line}
		if slot.Present {
			diag.ReportWarning(opts.Reporter, diag.LookupDuplicateUnit, pos,
				fmt.Sprintf("%s %q is defined more than once", rec.Kind, slot.Name)).
				WithNote(slot.Pos, "first definition").
				Emit()
			continue
		}
		slot.Kind = rec.Kind
		slot.Pos = pos
		slot.Uses = uses(rec)
		slot.Present = true
		g.Present[int(id)] = true
	}

	for to := range slots {
		slot := &slots[to]
		if !slot.Present {
			continue
		}
		for _, dep := range slot.Uses {
			if ignore[dep] {
				continue
			}
			from := idx.NameToID[dep]
			if int(from) == to {
				diag.ReportError(opts.Reporter, diag.LookupCircularUse, slot.Pos,
					fmt.Sprintf("module %q uses itself", slot.Name)).Emit()
				continue
			}
			if !g.Present[int(from)] {
				diag.ReportWarning(opts.Reporter, diag.LookupModuleNotFound, slot.Pos,
					fmt.Sprintf("%q uses module %q which is not indexed", slot.Name, dep)).Emit()
				continue
			}
			g.Edges[from] = append(g.Edges[from], moduleID(to))
			g.Indeg[to]++
		}
	}
	for i := range g.Edges {
		slices.Sort(g.Edges[i])
	}
	return g, slots
}

// ReportCycles reports each unit left in a use cycle.
func ReportCycles(idx ModuleIndex, slots []ModuleSlot, topo *Topo, r diag.Reporter) {
	if !topo.Cyclic || len(topo.Cycles) == 0 {
		return
	}
	names := make([]string, 0, len(topo.Cycles))
	for _, id := range topo.Cycles {
		names = append(names, idx.IDToName[int(id)])
	}
	summary := strings.Join(names, " -> ")
	for _, id := range topo.Cycles {
		slot := slots[int(id)]
		if !slot.Present {
			continue
		}
		diag.ReportError(r, diag.LookupCircularUse, slot.Pos,
			fmt.Sprintf("module %q participates in a use cycle: %s", slot.Name, summary)).Emit()
	}
}

// Names maps ids to unit names.
func (idx ModuleIndex) Names(ids []ModuleID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}
