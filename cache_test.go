package netbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	c "github.com/unkn0wn-root/netbound/codec"
	"github.com/unkn0wn-root/netbound/internal/wire"
	pr "github.com/unkn0wn-root/netbound/provider"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu sync.Mutex
	m  map[string]memEntry

	reject bool  // Set returns ok=false
	getErr error // Get fails
	delErr error // Del fails
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delErr != nil {
		return p.delErr
	}
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

// failingGens fails every call.
type failingGens struct{ err error }

func (g failingGens) Snapshot(context.Context, string) (uint64, error) { return 0, g.err }
func (g failingGens) Bump(context.Context, string) (uint64, error)     { return 0, g.err }
func (g failingGens) Cleanup(time.Duration)                            {}
func (g failingGens) Close(context.Context) error                      { return nil }

// recordingHooks captures store events.
type recordingHooks struct {
	NopHooks
	mu       sync.Mutex
	heals    []string
	rejected []string
	outages  int
}

func (h *recordingHooks) SelfHealSingle(_, reason string) {
	h.mu.Lock()
	h.heals = append(h.heals, reason)
	h.mu.Unlock()
}

func (h *recordingHooks) ProviderSetRejected(k string) {
	h.mu.Lock()
	h.rejected = append(h.rejected, k)
	h.mu.Unlock()
}

func (h *recordingHooks) InvalidateOutage(string, error, error) {
	h.mu.Lock()
	h.outages++
	h.mu.Unlock()
}

type token struct {
	PK    int    `json:"pk"`
	Token string `json:"token"`
}

func newTestStore(t *testing.T, mp pr.Provider, mut func(*StoreOptions[token])) *store[token] {
	t.Helper()
	opts := StoreOptions[token]{
		Namespace: "auth",
		Provider:  mp,
		Codec:     c.JSON[token]{},
	}
	if mut != nil {
		mut(&opts)
	}
	s, err := newStore(opts)
	if err != nil {
		t.Fatalf("newStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestStoreSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemProvider(), nil)

	want := token{PK: 1, Token: "abc"}
	if err := s.SetWithGen(ctx, "authtoken:1", want, s.SnapshotGen("authtoken:1"), 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	got, ok, err := s.Get(ctx, "authtoken:1")
	if err != nil || !ok || got != want {
		t.Fatalf("Get = %v ok=%v err=%v", got, ok, err)
	}
}

func TestStoreCASSkipsWriteAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newMemProvider(), nil)

	k := "authtoken:2"
	obs := s.SnapshotGen(k)
	if err := s.Invalidate(ctx, k); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := s.SetWithGen(ctx, k, token{PK: 2, Token: "stale"}, obs, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if _, ok, _ := s.Get(ctx, k); ok {
		t.Fatalf("write with a stale generation must be skipped")
	}

	if err := s.SetWithGen(ctx, k, token{PK: 2, Token: "fresh"}, s.SnapshotGen(k), 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if got, ok, _ := s.Get(ctx, k); !ok || got.Token != "fresh" {
		t.Fatalf("fresh write missing, got %v ok=%v", got, ok)
	}
}

func TestStoreSelfHeal(t *testing.T) {
	ctx := context.Background()
	payload, err := c.JSON[token]{}.Encode(token{PK: 3, Token: "x"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	cases := []struct {
		name   string
		raw    []byte
		reason string
	}{
		{"corrupt", []byte("not-wire-format"), "corrupt"},
		{"gen mismatch", wire.Encode(5, time.Now(), payload), "gen_mismatch"},
		{"value decode", wire.Encode(0, time.Now(), []byte("{not json")), "value_decode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mp := newMemProvider()
			hooks := &recordingHooks{}
			s := newTestStore(t, mp, func(o *StoreOptions[token]) { o.Hooks = hooks })

			sk := s.storageKey("k")
			if _, err := mp.Set(ctx, sk, tc.raw, 1, time.Minute); err != nil {
				t.Fatalf("inject: %v", err)
			}
			if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
				t.Fatalf("Get should miss without error, ok=%v err=%v", ok, err)
			}
			if mp.has(sk) {
				t.Fatalf("bad entry was not deleted")
			}
			if len(hooks.heals) != 1 || hooks.heals[0] != tc.reason {
				t.Fatalf("heals=%v want [%s]", hooks.heals, tc.reason)
			}
		})
	}
}

func TestStoreGetEntryStoredAt(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, newMemProvider(), func(o *StoreOptions[token]) {
		o.Now = func() time.Time { return at }
	})

	if err := s.SetWithGen(ctx, "k", token{PK: 4}, 0, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	e, ok, err := s.GetEntry(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("GetEntry ok=%v err=%v", ok, err)
	}
	if !e.StoredAt.Equal(at) || e.Gen != 0 || e.Value.PK != 4 {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestStoreDisabled(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, mp, func(o *StoreOptions[token]) { o.Disabled = true })

	if s.Enabled() {
		t.Fatalf("store should report disabled")
	}
	if err := s.SetWithGen(ctx, "k", token{PK: 5}, 0, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if mp.has(s.storageKey("k")) {
		t.Fatalf("disabled store wrote to provider")
	}
	if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("disabled Get ok=%v err=%v", ok, err)
	}
}

func TestStoreProviderRejectFiresHook(t *testing.T) {
	mp := newMemProvider()
	mp.reject = true
	hooks := &recordingHooks{}
	s := newTestStore(t, mp, func(o *StoreOptions[token]) { o.Hooks = hooks })

	if err := s.SetWithGen(context.Background(), "k", token{PK: 6}, 0, 0); err != nil {
		t.Fatalf("rejected write is not an error: %v", err)
	}
	if len(hooks.rejected) != 1 || hooks.rejected[0] != s.storageKey("k") {
		t.Fatalf("rejected=%v", hooks.rejected)
	}
}

func TestStoreGetErrorIsWrapped(t *testing.T) {
	boom := errors.New("provider down")
	mp := newMemProvider()
	mp.getErr = boom
	s := newTestStore(t, mp, nil)

	if _, _, err := s.Get(context.Background(), "k"); !errors.Is(err, boom) {
		t.Fatalf("want wrapped provider error, got %v", err)
	}
}

func TestStoreInvalidateOutage(t *testing.T) {
	bumpErr := errors.New("gens down")
	delErr := errors.New("cache down")
	mp := newMemProvider()
	mp.delErr = delErr
	hooks := &recordingHooks{}
	s := newTestStore(t, mp, func(o *StoreOptions[token]) {
		o.Hooks = hooks
		o.GenStore = failingGens{err: bumpErr}
	})

	err := s.Invalidate(context.Background(), "k")
	var ie *InvalidateError
	if !errors.As(err, &ie) || ie.Key != "k" {
		t.Fatalf("want *InvalidateError, got %v", err)
	}
	if !errors.Is(err, bumpErr) || !errors.Is(err, delErr) {
		t.Fatalf("both causes must unwrap: %v", err)
	}
	if hooks.outages != 1 {
		t.Fatalf("outages=%d", hooks.outages)
	}
}

func TestStoreSnapshotErrorReadsAsGenZero(t *testing.T) {
	mp := newMemProvider()
	s := newTestStore(t, mp, func(o *StoreOptions[token]) {
		o.GenStore = failingGens{err: errors.New("gens down")}
	})
	// failed snapshots read as gen 0
	if err := s.SetWithGen(context.Background(), "k", token{PK: 7}, 0, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if err := s.SetWithGen(context.Background(), "k2", token{PK: 8}, 3, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if mp.has(s.storageKey("k2")) {
		t.Fatalf("write observed at gen 3 must be skipped while gens read as 0")
	}
}

func TestNewStoreRequiresFields(t *testing.T) {
	cases := map[string]StoreOptions[token]{
		"provider":  {Namespace: "n", Codec: c.JSON[token]{}},
		"codec":     {Namespace: "n", Provider: newMemProvider()},
		"namespace": {Provider: newMemProvider(), Codec: c.JSON[token]{}},
	}
	for name, opts := range cases {
		if _, err := NewStore(opts); err == nil {
			t.Fatalf("missing %s: expected error", name)
		}
	}
}
