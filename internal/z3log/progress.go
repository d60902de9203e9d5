package z3log

// Stage is the reader phase reported in progress events.
type Stage uint8

const (
	StageRead Stage = iota + 1
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageRead:
		return "reading"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event reports reading progress. Total is the input size in bytes, 0 when unknown.
type Event struct {
	Stage Stage
	Lines int
	Bytes int64
	Total int64
}

// Fraction returns progress in [0,1], or 0 when the total is unknown.
func (e Event) Fraction() float64 {
	if e.Stage == StageDone {
		return 1
	}
	if e.Total <= 0 {
		return 0
	}
	f := float64(e.Bytes) / float64(e.Total)
	if f > 1 {
		return 1
	}
	return f
}

// Sink receives progress events.
type Sink interface {
	OnEvent(Event)
}

// ChannelSink forwards events to a channel without blocking the reader;
// events are dropped while the consumer lags behind.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	if ev.Stage == StageDone {
		s.Ch <- ev
		return
	}
	select {
	case s.Ch <- ev:
	default:
	}
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }
