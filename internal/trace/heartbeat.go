package trace

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Heartbeat periodically emits events so a stalled read of a huge log can be
// told apart from a slow one: heartbeats keep coming but no span ends. Each
// beat carries the live heap size, which is what grows while a log is read.
type Heartbeat struct {
	tracer Tracer
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// StartHeartbeat starts the heartbeat goroutine. It returns nil when tracing is
// disabled or interval <= 0; Stop on a nil Heartbeat is a no-op.
func StartHeartbeat(tracer Tracer, interval time.Duration) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: tracer, done: make(chan struct{})}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.loop(interval)
	}()
	return h
}

func (h *Heartbeat) loop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	gid := goroutineID()
	var ms runtime.MemStats
	for beat := 1; ; beat++ {
		select {
		case <-h.done:
			return
		case now := <-ticker.C:
			runtime.ReadMemStats(&ms)
			h.tracer.Emit(&Event{
				Time:   now,
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				GID:    gid,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d heap=%dKiB goroutines=%d", beat, ms.HeapAlloc>>10, runtime.NumGoroutine()),
			})
		}
	}
}

// Stop ends the goroutine and waits for it.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.done) })
	h.wg.Wait()
}
