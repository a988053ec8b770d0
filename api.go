package netbound

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/netbound/codec"
	gen "github.com/unkn0wn-root/netbound/genstore"
	pr "github.com/unkn0wn-root/netbound/provider"
)

type SetCostFunc func(key string, raw []byte) int64

// Entry is a cached value with the metadata stored alongside it.
type Entry[V any] struct {
	Value    V
	Gen      uint64
	StoredAt time.Time
}

// Store is the provider-agnostic cache backing LoadFromCache/SaveCallResult,
// with CAS safety via per-key generations. Reads never touch the network.
type Store[V any] interface {
	Enabled() bool
	Close(context.Context) error

	Get(ctx context.Context, key string) (v V, ok bool, err error)
	// GetEntry is Get plus generation and write time, for callers that
	// define their own staleness.
	GetEntry(ctx context.Context, key string) (e Entry[V], ok bool, err error)
	SetWithGen(ctx context.Context, key string, value V, observedGen uint64, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error

	// Generation snapshot (for CAS)
	SnapshotGen(key string) uint64
}

// StoreOptions tune the behavior of the generic store.
// Only Namespace, Provider and Codec are required; others have sensible defaults.
type StoreOptions[V any] struct {
	// Required
	Namespace string // logical namespace to avoid collisions. e.g. "authtoken", "blog"
	Provider  pr.Provider
	Codec     c.Codec[V]

	Logger          Logger           // if nil, NopLogger is used
	Hooks           Hooks            // if nil, NopHooks is used
	DefaultTTL      time.Duration    // 0 => 10m
	CleanupInterval time.Duration    // 0 => 1h
	GenRetention    time.Duration    // 0 => 30d
	Disabled        bool             // default false (enabled)
	ComputeSetCost  SetCostFunc      // default 1
	GenStore        gen.GenStore     // nil => genstore.Local (in-process)
	Now             func() time.Time // nil => time.Now
}

func NewStore[V any](opts StoreOptions[V]) (Store[V], error) {
	return newStore[V](opts)
}
