package dag

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

type Topo struct {
	Order   []ModuleID   // dependencies before their users
	Batches [][]ModuleID // waves of units whose dependencies are all earlier
	Cyclic  bool
	Cycles  []ModuleID // units still holding unresolved uses
}

func moduleID(i int) ModuleID {
	id, err := safecast.Conv[ModuleID](i)
	if err != nil {
		panic(fmt.Errorf("module id overflow: %w", err))
	}
	return id
}

// ToposortKahn orders the present units of g. Units inside a wave are
// sorted by id, i.e. by name.
func ToposortKahn(g Graph) *Topo {
	indeg := slices.Clone(g.Indeg)
	topo := &Topo{}

	active := 0
	var wave []ModuleID
	for i, present := range g.Present {
		if !present {
			continue
		}
		active++
		if indeg[i] == 0 {
			wave = append(wave, moduleID(i))
		}
	}

	for len(wave) > 0 {
		topo.Batches = append(topo.Batches, wave)
		topo.Order = append(topo.Order, wave...)
		var next []ModuleID
		for _, id := range wave {
			for _, to := range g.Edges[int(id)] {
				indeg[int(to)]--
				if indeg[int(to)] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		wave = next
	}

	if len(topo.Order) != active {
		topo.Cyclic = true
		for i, present := range g.Present {
			if present && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, moduleID(i))
			}
		}
	}
	return topo
}
