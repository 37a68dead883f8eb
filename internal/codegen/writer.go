// Package codegen renders kernel contexts as HIP C++ and Fortran text.
package codegen

import (
	"fmt"
	"strings"
)

type writer struct {
	out    strings.Builder
	indent int
}

//nolint:goprintffuncname
func (w *writer) writeLine(format string, args ...any) {
	for range w.indent {
		w.out.WriteString("  ")
	}
	if len(args) == 0 {
		w.out.WriteString(format)
	} else {
		fmt.Fprintf(&w.out, format, args...)
	}
	w.out.WriteByte('\n')
}

// writeBlock copies pre-rendered text line by line at the current indent.
func (w *writer) writeBlock(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			w.out.WriteByte('\n')
			continue
		}
		w.writeLine("%s", line)
	}
}

func (w *writer) push() { w.indent++ }

func (w *writer) pop() {
	if w.indent > 0 {
		w.indent--
	}
}

// writeList writes items one per line, comma separated, one level deeper.
func (w *writer) writeList(items []string, closing string) {
	w.push()
	for i, it := range items {
		if i < len(items)-1 {
			w.writeLine("%s,", it)
		} else {
			w.writeLine("%s%s", it, closing)
		}
	}
	w.pop()
}

func (w *writer) String() string { return w.out.String() }
