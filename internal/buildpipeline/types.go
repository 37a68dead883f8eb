// Package buildpipeline carries progress events of a translation run from
// the driver to whoever displays them.
package buildpipeline

import (
	"sync"
	"time"
)

// Stage describes a phase a file goes through.
type Stage string

const (
	StageRead      Stage = "read"
	StageIndex     Stage = "index"
	StageResolve   Stage = "resolve"
	StageGenerate  Stage = "generate"
	StageWrite     Stage = "write"
	StageTranslate Stage = "translate" // whole-run label
)

// Stages lists the per-file stages in pipeline order.
var Stages = []Stage{StageRead, StageIndex, StageResolve, StageGenerate, StageWrite}

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a file, or for the whole run when File is
// empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
	Kernels int // kernels generated so far for File
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use; the driver emits from worker goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations summed over files. It is safe for
// concurrent use.
type Timings struct {
	mu     sync.Mutex
	stages map[Stage]time.Duration
}

// Add accumulates dur for stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
	t.stages[stage] += dur
}

// Duration returns the recorded duration for stage.
func (t *Timings) Duration(stage Stage) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t *Timings) Sum(stages ...Stage) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
