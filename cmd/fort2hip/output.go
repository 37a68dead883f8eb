package main

import (
	"errors"
	"fmt"
	"io"

	"fort2hip/internal/buildpipeline"
	"fort2hip/internal/diag"
	"fort2hip/internal/diagfmt"
	"fort2hip/internal/observ"
)

// errDiagnostics makes the process exit non-zero once the diagnostics
// have been printed.
var errDiagnostics = errors.New("translation reported errors")

func printDiagnostics(w io.Writer, s *settings, bags []*diag.Bag) error {
	if s.format == "json" {
		return diagfmt.JSON(w, diagfmt.JSONOpts{IncludeNotes: true}, bags...)
	}
	for _, b := range bags {
		if b == nil {
			continue
		}
		b.Sort()
		diagfmt.Pretty(w, b, diagfmt.PrettyOpts{Color: s.color, Context: true, ShowNotes: true})
	}
	return nil
}

func printTimings(w io.Writer, timer *observ.Timer, stages *buildpipeline.Timings) {
	fmt.Fprint(w, timer.Summary())
	if stages == nil {
		return
	}
	fmt.Fprintln(w, "stages (summed over files):")
	for _, st := range buildpipeline.Stages {
		if d := stages.Duration(st); d > 0 {
			fmt.Fprintf(w, "  %-20s %7.2f ms\n", st, float64(d.Microseconds())/1000)
		}
	}
}
