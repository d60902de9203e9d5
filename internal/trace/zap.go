package trace

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapTracer forwards events to a structured logger. Span ends log at info,
// everything else at debug.
type ZapTracer struct {
	log   *zap.Logger
	level Level
}

func NewZapTracer(log *zap.Logger, level Level) *ZapTracer {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapTracer{log: log.Named("trace"), level: level}
}

func (t *ZapTracer) Emit(ev *Event) {
	if !t.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	lvl := zapcore.DebugLevel
	if ev.Kind == KindSpanEnd {
		lvl = zapcore.InfoLevel
	}
	ce := t.log.Check(lvl, ev.Name)
	if ce == nil {
		return
	}
	fields := make([]zap.Field, 0, 6+len(ev.Extra))
	fields = append(fields,
		zap.String("kind", ev.Kind.String()),
		zap.String("scope", ev.Scope.String()),
		zap.Uint64("span", ev.SpanID),
	)
	if ev.ParentID != 0 {
		fields = append(fields, zap.Uint64("parent", ev.ParentID))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}
	for k, v := range ev.Extra {
		fields = append(fields, zap.String(k, v))
	}
	ce.Write(fields...)
}

// Flush and Close leave syncing to the owner of the logger.
func (t *ZapTracer) Flush() error { return nil }
func (t *ZapTracer) Close() error { return nil }
func (t *ZapTracer) Level() Level { return t.level }
func (t *ZapTracer) Enabled() bool { return t.level > LevelOff }
