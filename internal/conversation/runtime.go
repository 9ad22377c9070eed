package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/hospital-assistant/internal/availability"
)

// runtime is the in-memory companion of a session: the per-run availability
// cache and the lock that serializes event handling.
type runtime struct {
	busy     sync.Mutex
	resolver *availability.Resolver
	lastSeen time.Time
}

func (e *Engine) acquire(sess Session) (*runtime, bool) {
	k := sess.key(FlowMenu).String()
	e.mu.Lock()
	defer e.mu.Unlock()

	rt, ok := e.runtimes[k]
	if !ok {
		rt = &runtime{resolver: availability.NewResolver(e.api)}
		e.runtimes[k] = rt
		e.metrics.SetActiveSessions(len(e.runtimes))
	}
	if !rt.busy.TryLock() {
		return rt, false
	}
	rt.lastSeen = e.now()
	return rt, true
}

func (rt *runtime) release() {
	rt.busy.Unlock()
}

// Sweep drops runtimes idle for longer than maxIdle. In-flight sessions are
// skipped. It returns the number removed.
func (e *Engine) Sweep(maxIdle time.Duration) int {
	cutoff := e.now().Add(-maxIdle)
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for k, rt := range e.runtimes {
		if !rt.busy.TryLock() {
			continue
		}
		if rt.lastSeen.Before(cutoff) {
			delete(e.runtimes, k)
			removed++
		}
		rt.busy.Unlock()
	}
	e.metrics.SetActiveSessions(len(e.runtimes))
	return removed
}

// Run sweeps idle runtimes until ctx is done.
func (e *Engine) Run(ctx context.Context, every, maxIdle time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.Sweep(maxIdle); n > 0 {
				e.logger.Debug("conversation: swept idle sessions", "removed", n)
			}
		}
	}
}
