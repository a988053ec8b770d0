package netbound

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Job is one invocation registered under a slot.
// Its context is cancelled when the job is superseded, cancelled or finished.
type Job struct {
	ID   string
	Slot string

	ctx    context.Context
	cancel context.CancelFunc
	reg    *Jobs

	stopped bool // guarded by reg.mu
}

// Context is cancelled as soon as the job stops being the live job of its slot.
func (j *Job) Context() context.Context { return j.ctx }

// Emit runs deliver only while j is the live job of its slot.
// It reports whether deliver ran.
func (j *Job) Emit(deliver func()) bool { return j.reg.deliver(j, false, deliver) }

// Finish is Emit for the final state: on success the job is deregistered.
func (j *Job) Finish(deliver func()) bool { return j.reg.deliver(j, true, deliver) }

// Stop cancels this job only. A newer job in the same slot is left alone.
func (j *Job) Stop() bool { return j.reg.stop(j) }

// Jobs keeps at most one live job per slot.
// Start, Cancel and delivery share one mutex, so a superseded job can never
// deliver a state after its replacement has been registered.
type Jobs struct {
	mu     sync.Mutex
	active map[string]*Job

	log   Logger
	hooks Hooks
}

func NewJobs(log Logger, hooks Hooks) *Jobs {
	return &Jobs{
		active: make(map[string]*Job),
		log:    coalesce[Logger](log, NopLogger{}),
		hooks:  coalesce[Hooks](hooks, NopHooks{}),
	}
}

// Start registers a new job for slot, cancelling and discarding the previous one.
func (r *Jobs) Start(ctx context.Context, slot string) *Job {
	jctx, cancel := context.WithCancel(ctx)
	j := &Job{
		ID:     uuid.NewString(),
		Slot:   slot,
		ctx:    jctx,
		cancel: cancel,
		reg:    r,
	}

	r.mu.Lock()
	prev := r.active[slot]
	if prev != nil {
		prev.stopLocked()
	}
	r.active[slot] = j
	r.mu.Unlock()

	if prev != nil {
		r.log.Debug("job superseded", Fields{"slot": slot, "old": prev.ID, "new": j.ID})
		r.hooks.Superseded(slot, prev.ID, j.ID)
	}
	return j
}

// Cancel stops the live job of slot without starting a replacement.
// Returns false when the slot had no live job.
func (r *Jobs) Cancel(slot string) bool {
	r.mu.Lock()
	j := r.active[slot]
	if j != nil {
		j.stopLocked()
		delete(r.active, slot)
	}
	r.mu.Unlock()

	if j == nil {
		return false
	}
	r.log.Debug("job cancelled", jobFields(j))
	r.hooks.Cancelled(slot, j.ID)
	return true
}

// CancelAll stops every live job.
func (r *Jobs) CancelAll() {
	r.mu.Lock()
	stopped := make([]*Job, 0, len(r.active))
	for slot, j := range r.active {
		j.stopLocked()
		delete(r.active, slot)
		stopped = append(stopped, j)
	}
	r.mu.Unlock()

	for _, j := range stopped {
		r.hooks.Cancelled(j.Slot, j.ID)
	}
	if len(stopped) > 0 {
		r.log.Debug("cancelled all jobs", Fields{"count": len(stopped)})
	}
}

// Active returns the id of the live job for slot.
func (r *Jobs) Active(slot string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.active[slot]
	if !ok {
		return "", false
	}
	return j.ID, true
}

// Len is the number of live jobs.
func (r *Jobs) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Jobs) stop(j *Job) bool {
	r.mu.Lock()
	live := !j.stopped && r.active[j.Slot] == j
	j.stopLocked()
	if live {
		delete(r.active, j.Slot)
	}
	r.mu.Unlock()

	if live {
		r.log.Debug("job cancelled", jobFields(j))
		r.hooks.Cancelled(j.Slot, j.ID)
	}
	return live
}

func (r *Jobs) deliver(j *Job, final bool, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j.stopped || j.ctx.Err() != nil || r.active[j.Slot] != j {
		return false
	}
	fn()
	if final {
		j.stopLocked()
		delete(r.active, j.Slot)
	}
	return true
}

// release drops j from its slot if it is still registered there and frees its
// context. Called once the job's goroutine is done, whatever the outcome.
func (r *Jobs) release(j *Job) {
	r.mu.Lock()
	if r.active[j.Slot] == j {
		delete(r.active, j.Slot)
	}
	j.stopLocked()
	r.mu.Unlock()
}

func (j *Job) stopLocked() {
	j.stopped = true
	j.cancel()
}
