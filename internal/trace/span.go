package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	globalSeq   atomic.Uint64
	globalSpans atomic.Uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return globalSeq.Add(1) }

// NextSpanID returns a unique span ID.
func NextSpanID() uint64 { return globalSpans.Add(1) }

// goroutineID reads the number out of the "goroutine N [state]:" header of
// runtime.Stack. Chrome traces use it as the thread lane, so concurrent
// stages (blame, rank) land on separate rows.
func goroutineID() uint64 {
	var buf [64]byte
	head := buf[:runtime.Stack(buf[:], false)]
	head, ok := bytes.CutPrefix(head, []byte("goroutine "))
	if !ok {
		return 0
	}
	if i := bytes.IndexByte(head, ' '); i >= 0 {
		head = head[:i]
	}
	gid, err := strconv.ParseUint(string(head), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

func emits(t Tracer, scope Scope) bool {
	return t != nil && t.Enabled() && t.Level().ShouldEmit(scope)
}

// Span is one analysis stage between Begin and End.
type Span struct {
	tracer  Tracer
	event   Event // begin event; End reuses it
	started time.Time
}

// Begin emits SpanBegin. parent is 0 for roots. A disabled tracer yields an
// inert span whose methods do nothing.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if !emits(t, scope) {
		return &Span{tracer: Nop}
	}
	now := time.Now()
	s := &Span{
		tracer: t,
		event: Event{
			Time:     now,
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   NextSpanID(),
			ParentID: parent,
			GID:      goroutineID(),
			Name:     name,
		},
		started: now,
	}
	begin := s.event
	t.Emit(&begin)
	return s
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}

// WithExtra attaches key=value to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.event.Extra == nil {
		s.event.Extra = make(map[string]string, 4)
	}
	s.event.Extra[key] = value
	return s
}

// Count attaches a counter (lines read, nodes built) to the end event.
func (s *Span) Count(key string, n int) *Span {
	return s.WithExtra(key, strconv.Itoa(n))
}

// End emits SpanEnd and returns the span duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	end := s.event
	end.Time = time.Now()
	end.Kind = KindSpanEnd
	end.Detail = detail
	s.tracer.Emit(&end)
	return end.Time.Sub(s.started)
}

// Finish ends the span with err's text when err is non-nil, note otherwise.
func (s *Span) Finish(err error, note string) time.Duration {
	if err != nil {
		return s.End(err.Error())
	}
	return s.End(note)
}

// ID returns the span ID, 0 for inert spans.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.event.SpanID
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string, parent uint64) {
	if !emits(t, scope) {
		return
	}
	t.Emit(&Event{
		Time:     time.Now(),
		Kind:     KindPoint,
		Scope:    scope,
		ParentID: parent,
		GID:      goroutineID(),
		Name:     name,
		Detail:   detail,
	})
}
