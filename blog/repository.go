// Package blog runs blog searches through the netbound mediator, showing
// cached pages first when asked to and falling back to them offline.
package blog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/connectivity"
	"github.com/unkn0wn-root/netbound/internal/keys"
)

const SlotSearch = "search"

// Page is one page of search results as delivered and cached.
type Page struct {
	Query   string `msgpack:"q"`
	Number  int    `msgpack:"n"`
	Posts   []Post `msgpack:"p"`
	HasNext bool   `msgpack:"x"`
}

type Options struct {
	Mediator *netbound.Mediator // required
	Remote   Remote             // required
	Probe    connectivity.Probe // nil => always reachable

	// Pages caches results; build it with codec.Msgpack. Nil disables
	// caching and offline reads.
	Pages netbound.Store[Page]
	// CacheFirst emits a cached page before the network result.
	// Without it the cache is only read offline.
	CacheFirst bool
	MaxAge     time.Duration // cached pages older than this are ignored; 0 => no limit
	PageTTL    time.Duration // 0 => store default
	Logger     netbound.Logger
	Now        func() time.Time
}

type Repository struct {
	m          *netbound.Mediator
	remote     Remote
	probe      connectivity.Probe
	pages      netbound.Store[Page]
	cacheFirst bool
	maxAge     time.Duration
	pageTTL    time.Duration
	log        netbound.Logger
	now        func() time.Time
}

func NewRepository(opts Options) (*Repository, error) {
	if opts.Mediator == nil {
		return nil, errors.New("blog: mediator is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("blog: remote is required")
	}
	r := &Repository{
		m:          opts.Mediator,
		remote:     opts.Remote,
		probe:      opts.Probe,
		pages:      opts.Pages,
		cacheFirst: opts.CacheFirst,
		maxAge:     opts.MaxAge,
		pageTTL:    opts.PageTTL,
		log:        opts.Logger,
		now:        opts.Now,
	}
	if r.probe == nil {
		r.probe = connectivity.Static(true)
	}
	if r.log == nil {
		r.log = netbound.NopLogger{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r, nil
}

// Handle dispatches a screen event.
func (r *Repository) Handle(ctx context.Context, token string, ev Event) *netbound.Stream[Page] {
	switch ev := ev.(type) {
	case SearchEvent:
		return r.Search(ctx, token, ev.Query, ev.Page)
	default:
		return netbound.Idle[Page]()
	}
}

// Search fetches one page. A newer search replaces an older one still in
// flight, whatever its query.
func (r *Repository) Search(ctx context.Context, token, query string, page int) *netbound.Stream[Page] {
	if token == "" {
		return netbound.Fail[Page]("You must be logged in to search.", netbound.PresentDialog, netbound.CauseValidation)
	}
	if page < 1 {
		page = 1
	}
	key := pageKey(query, page)
	online := r.probe.IsReachable()

	var observed uint64
	res := netbound.Resource[SearchResponse, Page]{
		Slot:        SlotSearch,
		ShouldFetch: online,
		CreateCall: func(ctx context.Context) netbound.Outcome[SearchResponse] {
			if r.pages != nil {
				observed = r.pages.SnapshotGen(key)
			}
			return r.remote.Search(ctx, token, query, page)
		},
		HandleSuccess:     translate(query, page),
		ErrorPresentation: netbound.PresentDialog,
	}
	if r.pages != nil {
		if r.cacheFirst || !online {
			res.LoadFromCache = func(ctx context.Context) (Page, bool, error) {
				return r.cached(ctx, key)
			}
		}
		res.SaveCallResult = func(ctx context.Context, p Page) error {
			return r.pages.SetWithGen(ctx, key, p, observed, r.pageTTL)
		}
	} else {
		res.OfflineMessage = netbound.MessageOffline
	}
	return netbound.Run(ctx, r.m, res)
}

// Forget drops the cached copy of one page so the next search refetches it.
func (r *Repository) Forget(ctx context.Context, query string, page int) error {
	if r.pages == nil {
		return nil
	}
	if page < 1 {
		page = 1
	}
	return r.pages.Invalidate(ctx, pageKey(query, page))
}

// CancelActiveJobs tears down an in-flight search.
func (r *Repository) CancelActiveJobs() {
	r.m.Cancel(SlotSearch)
}

func (r *Repository) cached(ctx context.Context, key string) (Page, bool, error) {
	e, ok, err := r.pages.GetEntry(ctx, key)
	if err != nil || !ok {
		return Page{}, false, err
	}
	if r.maxAge > 0 && r.now().Sub(e.StoredAt) > r.maxAge {
		r.log.Debug("cached page too old", netbound.Fields{"key": key, "storedAt": e.StoredAt})
		return Page{}, false, nil
	}
	return e.Value, true, nil
}

func pageKey(query string, page int) string {
	return keys.Hashed("search", query, strconv.Itoa(page))
}
