// Package asynchook moves hook delivery off the mediator's and store's hot
// paths. Events are queued to a fixed worker pool and dropped when the queue
// is full.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	m := netbound.NewMediator(netbound.Options{Hooks: hooks})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/netbound"
)

type Hooks struct {
	inner netbound.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once

	mu      sync.RWMutex // guards closed against concurrent try/Close
	closed  bool
	dropped atomic.Uint64
}

var _ netbound.Hooks = (*Hooks)(nil)

func New(inner netbound.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events discarded because the queue was full or closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Superseded(slot, oldID, newID string) {
	h.try(func() { h.inner.Superseded(slot, oldID, newID) })
}
func (h *Hooks) Cancelled(slot, id string)    { h.try(func() { h.inner.Cancelled(slot, id) }) }
func (h *Hooks) DomainError(slot, msg string) { h.try(func() { h.inner.DomainError(slot, msg) }) }
func (h *Hooks) TransportError(slot, msg string, err error) {
	h.try(func() { h.inner.TransportError(slot, msg, err) })
}
func (h *Hooks) CacheReadError(slot string, err error) {
	h.try(func() { h.inner.CacheReadError(slot, err) })
}
func (h *Hooks) CacheWriteError(slot string, err error) {
	h.try(func() { h.inner.CacheWriteError(slot, err) })
}
func (h *Hooks) SelfHealSingle(k, r string)      { h.try(func() { h.inner.SelfHealSingle(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)     { h.try(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) GenBumpError(k string, err error) { h.try(func() { h.inner.GenBumpError(k, err) }) }
func (h *Hooks) GenSnapshotError(k string, err error) {
	h.try(func() { h.inner.GenSnapshotError(k, err) })
}
func (h *Hooks) InvalidateOutage(k string, be, de error) {
	h.try(func() { h.inner.InvalidateOutage(k, be, de) })
}
