// Package dag orders Fortran program units by their module use.
package dag

import (
	"sort"
	"strings"

	"fort2hip/internal/index"
)

type ModuleID uint32

type ModuleIndex struct {
	NameToID map[string]ModuleID
	IDToName []string
}

// BuildIndex collects the unit names and every module they use, sorted,
// and numbers them in that order.
func BuildIndex(recs []index.Record) ModuleIndex {
	uniq := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if rec.Name != "" {
			uniq[strings.ToLower(rec.Name)] = struct{}{}
		}
		for _, name := range uses(rec) {
			uniq[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(uniq))
	for name := range uniq {
		names = append(names, name)
	}
	sort.Strings(names)

	nameToID := make(map[string]ModuleID, len(names))
	for i, name := range names {
		nameToID[name] = ModuleID(i)
	}
	return ModuleIndex{NameToID: nameToID, IDToName: names}
}

// uses returns the modules used by rec and its contained procedures, in
// first-use order.
func uses(rec index.Record) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(r *index.Record)
	walk = func(r *index.Record) {
		for _, u := range r.UsedModules {
			name := strings.ToLower(u.Name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
		for i := range r.Procedures {
			walk(&r.Procedures[i])
		}
	}
	walk(&rec)
	return out
}
