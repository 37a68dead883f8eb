package buildpipeline

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) { f(evt) }

// Emit sends evt when sink is set.
func Emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}

// Queued announces files before any work starts.
func Queued(sink ProgressSink, files []string) {
	for _, f := range files {
		Emit(sink, Event{File: f, Stage: StageRead, Status: StatusQueued})
	}
}

// Tracker times the stages of one file and reports them.
type Tracker struct {
	Sink    ProgressSink
	File    string
	Timings *Timings
	stage   Stage
	start   time.Time
}

// Enter finishes the running stage, if any, and starts stage.
func (t *Tracker) Enter(stage Stage) {
	t.finish()
	t.stage, t.start = stage, time.Now()
	Emit(t.Sink, Event{File: t.File, Stage: stage, Status: StatusWorking})
}

func (t *Tracker) finish() time.Duration {
	if t.stage == "" {
		return 0
	}
	d := time.Since(t.start)
	t.Timings.Add(t.stage, d)
	return d
}

// Done closes the file successfully.
func (t *Tracker) Done(kernels int) {
	d := t.finish()
	Emit(t.Sink, Event{File: t.File, Stage: t.stage, Status: StatusDone, Elapsed: d, Kernels: kernels})
	t.stage = ""
}

// Fail closes the file with err.
func (t *Tracker) Fail(err error) {
	d := t.finish()
	Emit(t.Sink, Event{File: t.File, Stage: t.stage, Status: StatusError, Err: err, Elapsed: d})
	t.stage = ""
}

// DisplayPaths makes files relative to baseDir where possible, with
// forward slashes, deduplicated and sorted.
func DisplayPaths(files []string, baseDir string) []string {
	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	out := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, file := range files {
		if file == "" {
			continue
		}
		path := DisplayPath(file, base)
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// DisplayPath is DisplayPaths for one file.
func DisplayPath(file, baseDir string) string {
	path := filepath.Clean(file)
	if baseDir != "" {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if rel, err := filepath.Rel(baseDir, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			path = rel
		}
	}
	return filepath.ToSlash(path)
}
