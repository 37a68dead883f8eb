package observ

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fakeClock(step time.Duration) func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(step)
		return now
	}
}

func TestTimerReport(t *testing.T) {
	tm := &Timer{now: fakeClock(time.Millisecond)}
	i := tm.Begin("index")
	tm.End(i, "3 files")
	err := tm.Measure("translate", func() (string, error) { return "", errors.New("x") })
	if err == nil {
		t.Fatalf("Measure lost the error")
	}
	tm.End(99, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("phases = %d", len(r.Phases))
	}
	if r.Phases[0].DurationMS != 1 || r.Phases[0].Note != "3 files" {
		t.Errorf("phase 0 = %+v", r.Phases[0])
	}
	if r.Phases[1].Note != "failed" {
		t.Errorf("phase 1 note = %q", r.Phases[1].Note)
	}
	if r.TotalMS != 2 {
		t.Errorf("total = %v", r.TotalMS)
	}
	s := tm.Summary()
	if !strings.Contains(s, "index") || !strings.Contains(s, "// 3 files") || !strings.Contains(s, "total") {
		t.Errorf("summary:\n%s", s)
	}
}

func TestEmptyTimer(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Errorf("empty report = %+v", r)
	}
}
