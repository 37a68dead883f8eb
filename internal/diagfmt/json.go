package diagfmt

import (
	"encoding/json"
	"io"
	"strings"

	"fort2hip/internal/diag"
	"fort2hip/internal/source"
)

// LocationJSON is a file position.
type LocationJSON struct {
	File string `json:"file,omitempty"`
	Line int    `json:"line,omitempty"`
}

type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON is one diagnostic.
type DiagnosticJSON struct {
	Severity  string       `json:"severity"`
	Code      string       `json:"code"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Location  LocationJSON `json:"location"`
	Statement string       `json:"statement,omitempty"`
	Notes     []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput is the root of the JSON document.
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
}

func makeLocation(pos source.Pos, opts JSONOpts) LocationJSON {
	return LocationJSON{File: formatPath(pos.File, opts.PathMode, opts.BaseDir), Line: pos.Line}
}

// BuildDiagnosticsOutput converts the bags, in order, into the JSON model.
// Count is the total before Max is applied.
func BuildDiagnosticsOutput(opts JSONOpts, bags ...*diag.Bag) DiagnosticsOutput {
	out := DiagnosticsOutput{Diagnostics: []DiagnosticJSON{}}
	for _, bag := range bags {
		if bag == nil {
			continue
		}
		for _, d := range bag.Items() {
			out.Count++
			if opts.Max > 0 && len(out.Diagnostics) >= opts.Max {
				continue
			}
			dj := DiagnosticJSON{
				Severity:  strings.ToLower(d.Severity.String()),
				Code:      d.Code.ID(),
				Title:     d.Code.Title(),
				Message:   d.Message,
				Location:  makeLocation(d.Primary, opts),
				Statement: d.Stmt,
			}
			if opts.IncludeNotes {
				for _, n := range d.Notes {
					dj.Notes = append(dj.Notes, NoteJSON{Message: n.Msg, Location: makeLocation(n.Pos, opts)})
				}
			}
			out.Diagnostics = append(out.Diagnostics, dj)
		}
	}
	return out
}

// JSON writes the bags as one indented document.
func JSON(w io.Writer, opts JSONOpts, bags ...*diag.Bag) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildDiagnosticsOutput(opts, bags...))
}
