package connectivity

import (
	"sync"
	"time"
)

// Tracker derives reachability from the outcomes of real calls: after
// Threshold consecutive failures the API counts as unreachable until a call
// succeeds again or Cooldown has passed since the last failure.
type Tracker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	consecutive int
	lastFailure time.Time
	lastLatency time.Duration
}

// NewTracker: threshold <= 0 => 3, cooldown <= 0 => 30s.
func NewTracker(threshold int, cooldown time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Tracker{threshold: threshold, cooldown: cooldown, now: time.Now}
}

// Observe records one call. Its signature matches transport.Config.Observer;
// err is expected only when the call never reached the server.
func (t *Tracker) Observe(_ string, latency time.Duration, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastLatency = latency
	if err == nil {
		t.consecutive = 0
		return
	}
	t.consecutive++
	t.lastFailure = t.now()
}

func (t *Tracker) IsReachable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.consecutive < t.threshold {
		return true
	}
	return t.now().Sub(t.lastFailure) >= t.cooldown
}

// LastLatency of the most recent observed call.
func (t *Tracker) LastLatency() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastLatency
}

// All is reachable only when every probe is.
type All []Probe

func (a All) IsReachable() bool {
	for _, p := range a {
		if !p.IsReachable() {
			return false
		}
	}
	return true
}
