package ui

import (
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"fort2hip/internal/buildpipeline"
)

func TestProgressModelTracksEvents(t *testing.T) {
	m := NewProgressModel("translate", []string{"a.f90", "b.f90"}, nil).(*progressModel)
	m.Update(eventMsg{File: "a.f90", Stage: buildpipeline.StageGenerate, Status: buildpipeline.StatusWorking, Kernels: 2})
	if got := m.items[0].status; got != "generating" {
		t.Errorf("status = %q", got)
	}
	if f := m.fraction(); f <= 0 || f >= 1 {
		t.Errorf("fraction = %v", f)
	}
	m.Update(eventMsg{File: "a.f90", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone, Kernels: 3})
	m.Update(eventMsg{File: "b.f90", Status: buildpipeline.StatusError, Err: errors.New("x")})
	m.Update(eventMsg{File: "unknown.f90", Status: buildpipeline.StatusDone})
	m.Update(doneMsg{})

	if m.fraction() != 1 {
		t.Errorf("fraction after completion = %v", m.fraction())
	}
	view := m.View()
	for _, want := range []string{"done: translate: 2/2 files, 3 kernels", "a.f90  [3]", "error"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.f90", 20, "short.f90"},
		{"very/long/path/to/file.f90", 10, "very/lo..."},
		{"abcdef", 2, "ab"},
		{"日本語のファイル.f90", 8, "日本..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.width)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
		if runewidth.StringWidth(got) > tt.width {
			t.Errorf("truncate(%q, %d) too wide", tt.in, tt.width)
		}
	}
}
