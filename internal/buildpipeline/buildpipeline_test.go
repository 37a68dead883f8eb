package buildpipeline

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

func TestTrackerEvents(t *testing.T) {
	var got []Event
	var timings Timings
	tr := &Tracker{Sink: FuncSink(func(e Event) { got = append(got, e) }), File: "a.f90", Timings: &timings}
	tr.Enter(StageRead)
	tr.Enter(StageIndex)
	tr.Done(2)
	tr.Enter(StageGenerate)
	tr.Fail(errors.New("boom"))

	want := []Status{StatusWorking, StatusWorking, StatusDone, StatusWorking, StatusError}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, s := range want {
		if got[i].Status != s {
			t.Errorf("event %d status = %s, want %s", i, got[i].Status, s)
		}
	}
	if got[2].Stage != StageIndex || got[2].Kernels != 2 {
		t.Errorf("done event = %+v", got[2])
	}
	if got[4].Err == nil {
		t.Errorf("error event without error")
	}
	if timings.Sum(Stages...) < timings.Duration(StageRead) {
		t.Errorf("sum smaller than one stage")
	}
}

func TestDisplayPaths(t *testing.T) {
	base := t.TempDir()
	files := []string{
		filepath.Join(base, "src", "b.f90"),
		filepath.Join(base, "a.f90"),
		filepath.Join(base, "a.f90"),
		"",
	}
	got := DisplayPaths(files, base)
	if want := []string{"a.f90", "src/b.f90"}; !slices.Equal(got, want) {
		t.Errorf("DisplayPaths = %v, want %v", got, want)
	}
}

func TestEmitNilSink(t *testing.T) {
	Emit(nil, Event{})
	Queued(nil, []string{"x"})
	var tm *Timings
	tm.Add(StageRead, 1)
}
