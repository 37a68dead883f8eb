package trace

import (
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq numbers events in emission order across all tracers.
func NextSeq() uint64 { return seqCounter.Add(1) }

// Span is an open begin/end pair, e.g. one pass or one kernel build.
// A Span whose scope the tracer filters out emits nothing but still
// forwards Fail to the error scope. All methods are safe on a nil Span.
type Span struct {
	tracer Tracer
	ev     Event
	open   bool
}

// Begin opens a span under the parent span ID (0 for none) and emits
// its begin event.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() {
		return &Span{}
	}
	s := &Span{tracer: t, ev: Event{Scope: scope, Name: name, ParentID: parent}}
	if !t.Level().ShouldEmit(scope) {
		return s
	}
	s.open = true
	s.ev.Time = time.Now()
	s.ev.Kind = KindSpanBegin
	s.ev.SpanID = spanCounter.Add(1)
	begin := s.ev
	t.Emit(&begin)
	return s
}

func (s *Span) live() bool { return s != nil && s.open }

// End emits the end event with detail and returns the time since Begin.
// Ending a span twice emits nothing the second time.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	end := s.ev
	end.Kind = KindSpanEnd
	end.Time = time.Now()
	end.Detail = detail
	s.tracer.Emit(&end)
	s.open = false
	return end.Time.Sub(s.ev.Time)
}

// Fail reports err as an error point under the span name and ends the span.
func (s *Span) Fail(err error) time.Duration {
	if s == nil {
		return 0
	}
	if err == nil {
		return s.End("")
	}
	Point(s.tracer, ScopeError, s.ev.Name, err.Error())
	return s.End("failed")
}

// WithExtra attaches a key/value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.ev.Extra == nil {
		s.ev.Extra = make(map[string]string)
	}
	s.ev.Extra[key] = value
	return s
}

// ID returns the span ID, 0 for spans that emitted no begin event.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.ev.SpanID
}
