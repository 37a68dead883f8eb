package index

import (
	"sort"
	"strings"
)

// Index is the flat, appendable collection of top-level unit records.
// It is not safe for concurrent mutation: parallel builders produce private
// record slices that are merged with Insert from a single goroutine.
type Index struct {
	Records []Record
}

// New returns an empty index.
func New() *Index {
	return &Index{}
}

// Insert appends rec. Duplicate names are accepted; scope shadowing
// decides which one wins.
func (idx *Index) Insert(rec Record) {
	idx.Records = append(idx.Records, rec)
}

// Find returns the first record called name.
func (idx *Index) Find(name string) (*Record, bool) {
	for i := range idx.Records {
		if strings.EqualFold(idx.Records[i].Name, name) {
			return &idx.Records[i], true
		}
	}
	return nil, false
}

// Has reports whether a record called name was inserted.
func (idx *Index) Has(name string) bool {
	_, ok := idx.Find(name)
	return ok
}

// Len returns the number of top-level records.
func (idx *Index) Len() int { return len(idx.Records) }

// Modules returns the names of all module records in insertion order.
func (idx *Index) Modules() []string {
	var out []string
	for i := range idx.Records {
		if idx.Records[i].Kind == KindModule {
			out = append(out, idx.Records[i].Name)
		}
	}
	return out
}

// SearchTypes collects the derived types of root, keyed by the prefix path
// "<root>_<type>". With recursive set, nested procedures contribute their
// types under "<root>_<proc>_<type>".
func SearchTypes(root Record, recursive bool) map[string]Record {
	out := make(map[string]Record)
	searchTypes(root, root.Name, recursive, out)
	return out
}

func searchTypes(rec Record, prefix string, recursive bool, out map[string]Record) {
	for _, t := range rec.Types {
		out[prefix+"_"+t.Name] = t
	}
	if !recursive {
		return
	}
	for _, p := range rec.Procedures {
		searchTypes(p, prefix+"_"+p.Name, recursive, out)
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FindTag returns the record addressed by a colon-joined tag such as
// "mod:proc".
func (idx *Index) FindTag(tag string) (*Record, bool) {
	parts := strings.Split(tag, ":")
	rec, ok := idx.Find(parts[0])
	for _, p := range parts[1:] {
		if !ok {
			break
		}
		rec, ok = rec.Procedure(p)
	}
	return rec, ok
}
