package netbound

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/unkn0wn-root/netbound"

// Options tune the Mediator. The zero value is usable.
type Options struct {
	Logger Logger       // if nil, NopLogger is used
	Hooks  Hooks        // if nil, NopHooks is used
	Tracer trace.Tracer // if nil, the global otel tracer is used

	// Artificial delays for exercising loading states by hand. Keep 0 in production.
	NetworkDelay time.Duration
	CacheDelay   time.Duration
}

// Mediator runs Resources and owns the slot table.
type Mediator struct {
	jobs   *Jobs
	log    Logger
	hooks  Hooks
	tracer trace.Tracer

	networkDelay time.Duration
	cacheDelay   time.Duration
}

func NewMediator(opts Options) *Mediator {
	m := &Mediator{
		log:          coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:        coalesce[Hooks](opts.Hooks, NopHooks{}),
		tracer:       opts.Tracer,
		networkDelay: opts.NetworkDelay,
		cacheDelay:   opts.CacheDelay,
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer(tracerName)
	}
	m.jobs = NewJobs(m.log, m.hooks)
	return m
}

func (m *Mediator) Jobs() *Jobs { return m.jobs }

// Cancel tears down the live invocation of slot, if any. Its stream closes
// without a final state.
func (m *Mediator) Cancel(slot string) bool { return m.jobs.Cancel(slot) }

// Close cancels every live invocation.
func (m *Mediator) Close() { m.jobs.CancelAll() }

// Resource describes one operation run. B is the raw response body type,
// T the payload delivered to the consumer.
type Resource[B, T any] struct {
	// Slot keys supersession: one live run per slot.
	Slot string

	// ShouldFetch is decided by the caller from connectivity and the
	// operation's policy. When false the network path is never touched.
	ShouldFetch bool

	CreateCall    func(ctx context.Context) Outcome[B]
	HandleSuccess Translator[B, T]

	// LoadFromCache is optional. When it yields data and ShouldFetch is true,
	// the data is emitted as an interim Success before the network result.
	LoadFromCache func(ctx context.Context) (T, bool, error)

	// SaveCallResult is optional; it persists a translated payload.
	// Its failure is logged and does not change the final state.
	SaveCallResult func(ctx context.Context, v T) error

	// ErrorPresentation for Error states; zero means PresentDialog.
	ErrorPresentation Presentation

	// OfflineMessage, when set, overrides the Empty terminal of an offline
	// run: a cache miss with no network ends as an Error carrying this
	// message. A cache read error on an offline run always ends as an Error
	// with CauseCache, whether or not OfflineMessage is set.
	OfflineMessage string
}

func (r Resource[B, T]) validate() error {
	switch {
	case r.Slot == "":
		return ErrEmptySlot
	case r.ShouldFetch && r.CreateCall == nil:
		return ErrNilCall
	case r.ShouldFetch && r.HandleSuccess == nil:
		return ErrNilTranslator
	case !r.ShouldFetch && r.LoadFromCache == nil && r.CreateCall == nil:
		return ErrNoSource
	}
	return nil
}

// Run registers a job for r.Slot (superseding the live one) and returns the
// stream of its states. The work runs in its own goroutine.
func Run[B, T any](ctx context.Context, m *Mediator, r Resource[B, T]) *Stream[T] {
	if err := r.validate(); err != nil {
		m.log.Error("invalid resource", Fields{"slot": r.Slot, "err": err})
		return Fail[T](err.Error(), r.ErrorPresentation, CauseValidation)
	}

	job := m.jobs.Start(ctx, r.Slot)
	s := newStream[T]()
	s.stop = job.Stop
	go run(m, job, r, s)
	return s
}

func run[B, T any](m *Mediator, job *Job, r Resource[B, T], s *Stream[T]) {
	ctx, span := m.tracer.Start(job.Context(), "netbound.Run", trace.WithAttributes(
		attribute.String("netbound.slot", job.Slot),
		attribute.String("netbound.invocation", job.ID),
		attribute.Bool("netbound.fetch", r.ShouldFetch),
	))
	defer span.End()
	defer close(s.ch)
	defer m.jobs.release(job)

	p := resolvePresentation(r.ErrorPresentation)
	emit := func(st State[T]) bool {
		return job.Emit(func() { s.ch <- st })
	}
	finish := func(st State[T]) {
		if !job.Finish(func() { s.ch <- st }) {
			m.log.Debug("final state dropped (superseded)", jobFields(job))
			return
		}
		span.SetAttributes(attribute.String("netbound.final", st.Kind.String()))
	}

	if !emit(Loading[T]("")) {
		return
	}

	var (
		cached   T
		hit      bool
		cacheErr error
	)
	if r.LoadFromCache != nil {
		if !sleepCtx(ctx, m.cacheDelay) {
			return
		}
		v, ok, err := r.LoadFromCache(ctx)
		switch {
		case err != nil:
			cacheErr = err
			f := jobFields(job)
			f["err"] = err
			m.log.Warn("cache read failed; treating as miss", f)
			m.hooks.CacheReadError(job.Slot, err)
		case ok:
			cached, hit = v, true
		}
	}

	if !r.ShouldFetch {
		switch {
		case hit:
			finish(Success(cached))
		case cacheErr != nil:
			finish(Failure[T](MessageCacheUnavailable, p, CauseCache))
		case r.OfflineMessage != "":
			finish(Failure[T](r.OfflineMessage, p, CauseTransport))
		default:
			finish(Empty[T]())
		}
		return
	}

	if hit && !emit(Interim(cached)) {
		return
	}

	if !sleepCtx(ctx, m.networkDelay) {
		return
	}
	out := r.CreateCall(ctx)
	if ctx.Err() != nil {
		m.log.Debug("discarding result of stopped job", jobFields(job))
		return
	}

	switch out.Kind {
	case OutcomeSuccessWithBody:
		tr := r.HandleSuccess(out.Body)
		if tr.DomainError {
			msg := coalesce(tr.ErrorMessage, MessageUnknown)
			m.hooks.DomainError(job.Slot, msg)
			span.SetStatus(codes.Error, msg)
			finish(Failure[T](msg, p, CauseDomain))
			return
		}
		if r.SaveCallResult != nil {
			if err := r.SaveCallResult(ctx, tr.Payload); err != nil {
				f := jobFields(job)
				f["err"] = err
				m.log.Warn("persisting call result failed", f)
				m.hooks.CacheWriteError(job.Slot, err)
			}
		}
		finish(Success(tr.Payload))

	case OutcomeSuccessEmpty:
		finish(Empty[T]())

	default:
		msg := coalesce(out.Message, MessageUnknown)
		m.hooks.TransportError(job.Slot, msg, out.Err)
		if out.Err != nil {
			span.RecordError(out.Err)
		}
		span.SetStatus(codes.Error, msg)
		finish(Failure[T](msg, p, CauseTransport))
	}
}
