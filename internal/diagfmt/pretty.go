package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"fort2hip/internal/diag"
	"fort2hip/internal/source"
)

type palette struct {
	err, warn, info, loc, note *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		loc:  color.New(color.Bold),
		note: color.New(color.FgBlue),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.loc, p.note} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

func location(pos source.Pos, opts PrettyOpts) string {
	if !pos.IsValid() {
		return ""
	}
	path := formatPath(pos.File, opts.PathMode, opts.BaseDir)
	if pos.Line == 0 {
		return path
	}
	return fmt.Sprintf("%s:%d", path, pos.Line)
}

// Pretty writes one block per diagnostic of bag, in bag order:
//
//	<path>:<line>: <severity> <ID>: <message>
//	    | <statement>
//	  note: <path>:<line>: <message>
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		var b strings.Builder
		if loc := location(d.Primary, opts); loc != "" {
			b.WriteString(p.loc.Sprint(loc))
			b.WriteString(": ")
		}
		b.WriteString(p.severity(d.Severity).Sprint(strings.ToLower(d.Severity.String())))
		fmt.Fprintf(&b, " %s: %s\n", d.Code.ID(), d.Message)
		if opts.Context && d.Stmt != "" {
			fmt.Fprintf(&b, "    | %s\n", d.Stmt)
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				b.WriteString("  " + p.note.Sprint("note") + ": ")
				if loc := location(n.Pos, opts); loc != "" {
					b.WriteString(loc + ": ")
				}
				b.WriteString(n.Msg + "\n")
			}
		}
		_, _ = io.WriteString(w, b.String())
	}
}

// Summary is the closing line of a run, e.g. "2 errors, 1 warning".
func Summary(bags ...*diag.Bag) string {
	var errs, warns int
	for _, b := range bags {
		if b == nil {
			continue
		}
		errs += b.Count(diag.SevError)
		warns += b.Count(diag.SevWarning)
	}
	return fmt.Sprintf("%s, %s", plural(errs, "error"), plural(warns, "warning"))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
