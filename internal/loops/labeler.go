// Package loops maps Fortran loop nests onto a HIP accelerator grid. It
// produces C++ text fragments: helper declarations, loop heads and
// closings, index recovery and resource guards.
package loops

import (
	"strconv"
	"strings"
)

// Labeler mints collision-free helper names "_<kind><n>". One Labeler
// serves one kernel; a fresh one restarts every counter.
type Labeler struct {
	counts map[string]int
	minted []string
}

func NewLabeler() *Labeler {
	return &Labeler{counts: make(map[string]int)}
}

// Unique returns the next name for kind.
func (lb *Labeler) Unique(kind string) string {
	n := lb.counts[kind]
	lb.counts[kind] = n + 1
	name := "_" + kind + strconv.Itoa(n)
	lb.minted = append(lb.minted, name)
	return name
}

// Minted lists the names handed out so far, oldest first.
func (lb *Labeler) Minted() []string {
	return append([]string(nil), lb.minted...)
}

// owns reports whether name was minted by lb.
func (lb *Labeler) owns(name string) bool {
	kind := strings.TrimRight(strings.TrimPrefix(name, "_"), "0123456789")
	n, err := strconv.Atoi(strings.TrimPrefix(name, "_"+kind))
	return err == nil && n < lb.counts[kind]
}
