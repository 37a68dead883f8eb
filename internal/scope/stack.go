package scope

import (
	"errors"
	"fmt"
	"strings"
)

// entry remembers when a symbol was pushed.
type entry[T any] struct {
	seq uint64
	val T
}

// stack holds one symbol category. Lookups scan from the top, so later
// pushes shadow earlier ones.
type stack[T any] struct {
	items []entry[T]
}

func (s *stack[T]) push(seq uint64, v T) {
	s.items = append(s.items, entry[T]{seq: seq, val: v})
}

// find returns the most recently pushed value whose name matches.
func (s *stack[T]) find(name string, nameOf func(*T) string) (T, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		if strings.EqualFold(nameOf(&s.items[i].val), name) {
			return s.items[i].val, true
		}
	}
	var zero T
	return zero, false
}

// values returns the values in push order.
func (s *stack[T]) values() []T {
	out := make([]T, len(s.items))
	for i := range s.items {
		out[i] = s.items[i].val
	}
	return out
}

func (s *stack[T]) clone(copyVal func(T) T) stack[T] {
	out := stack[T]{items: make([]entry[T], len(s.items))}
	for i, e := range s.items {
		out.items[i] = entry[T]{seq: e.seq, val: copyVal(e.val)}
	}
	return out
}

// validate checks that sequence numbers strictly increase towards the top.
func (s *stack[T]) validate(category string) error {
	var errs []error
	for i := 1; i < len(s.items); i++ {
		if s.items[i].seq <= s.items[i-1].seq {
			errs = append(errs, fmt.Errorf("%s entry %d (seq %d) does not outrank entry %d (seq %d)",
				category, i, s.items[i].seq, i-1, s.items[i-1].seq))
		}
	}
	return errors.Join(errs...)
}
