package netbound

import (
	"context"
	"fmt"
	"time"

	c "github.com/unkn0wn-root/netbound/codec"
	gen "github.com/unkn0wn-root/netbound/genstore"
	"github.com/unkn0wn-root/netbound/internal/wire"
	pr "github.com/unkn0wn-root/netbound/provider"
)

const (
	defaultTTL          = 10 * time.Minute
	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

type store[V any] struct {
	ns             string
	provider       pr.Provider
	codec          c.Codec[V]
	log            Logger
	hooks          Hooks
	enabled        bool
	defaultTTL     time.Duration
	computeSetCost SetCostFunc
	gen            gen.GenStore
	now            func() time.Time
}

func newStore[V any](opts StoreOptions[V]) (*store[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("netbound: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("netbound: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("netbound: namespace is required")
	}

	s := &store[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		enabled:  !opts.Disabled,
		now:      opts.Now,
	}

	// defaults
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)
	if s.now == nil {
		s.now = time.Now
	}
	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		// default to in-process generations with periodic cleanup
		s.gen = gen.NewLocal(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	return s, nil
}

func (s *store[V]) Enabled() bool { return s.enabled }

func (s *store[V]) Close(ctx context.Context) error {
	// Close gen store first (best effort)
	if s.gen != nil {
		_ = s.gen.Close(ctx)
	}
	if s.provider != nil {
		return s.provider.Close(ctx)
	}
	return nil
}

func (s *store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	e, ok, err := s.GetEntry(ctx, key)
	return e.Value, ok, err
}

func (s *store[V]) GetEntry(ctx context.Context, key string) (Entry[V], bool, error) {
	var zero Entry[V]
	if !s.enabled {
		return zero, false, nil
	}
	k := s.storageKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil {
		return zero, false, fmt.Errorf("netbound: get %q: %w", key, err)
	}
	if !ok {
		return zero, false, nil
	}
	rec, err := wire.Decode(raw)
	if err != nil {
		s.selfHeal(ctx, k, "corrupt")
		return zero, false, nil
	}
	// validate generation
	if rec.Gen != s.snapshotGen(ctx, k) {
		s.selfHeal(ctx, k, "gen_mismatch")
		return zero, false, nil
	}
	v, err := s.codec.Decode(rec.Payload)
	if err != nil {
		s.selfHeal(ctx, k, "value_decode")
		return zero, false, nil
	}
	return Entry[V]{Value: v, Gen: rec.Gen, StoredAt: rec.StoredAt}, true, nil
}

func (s *store[V]) SetWithGen(ctx context.Context, key string, value V, observedGen uint64, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	ttl = coalesce(ttl, s.defaultTTL)
	k := s.storageKey(key)
	if s.snapshotGen(ctx, k) != observedGen {
		// generation moved; skip stale write
		s.log.Debug("SetWithGen skipped (gen mismatch)", Fields{"key": key, "obs": observedGen})
		return nil
	}
	payload, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("netbound: encode %q: %w", key, err)
	}
	raw := wire.Encode(observedGen, s.now(), payload)
	ok, err := s.provider.Set(ctx, k, raw, s.computeSetCost(k, raw), ttl)
	if err != nil {
		return fmt.Errorf("netbound: set %q: %w", key, err)
	}
	if !ok {
		s.log.Debug("SetWithGen rejected by provider (pressure)", Fields{"key": key})
		s.hooks.ProviderSetRejected(k)
	}
	return nil
}

// Invalidate bumps the key's generation and deletes the entry. In-flight
// writers holding the old generation are then rejected by SetWithGen.
func (s *store[V]) Invalidate(ctx context.Context, key string) error {
	if !s.enabled {
		return nil
	}
	k := s.storageKey(key)
	newGen, bumpErr := s.gen.Bump(ctx, k)
	if bumpErr != nil {
		s.hooks.GenBumpError(k, bumpErr)
	}
	delErr := s.provider.Del(ctx, k)
	if bumpErr != nil || delErr != nil {
		if bumpErr != nil && delErr != nil {
			s.hooks.InvalidateOutage(key, bumpErr, delErr)
		}
		s.log.Error("invalidate failed", Fields{"key": key, "bumpErr": bumpErr, "delErr": delErr})
		return &InvalidateError{Key: key, BumpErr: bumpErr, DelErr: delErr}
	}
	s.log.Debug("invalidated key (bumped gen + cleared entry)", Fields{"key": key, "newGen": newGen})
	return nil
}

func (s *store[V]) SnapshotGen(key string) uint64 {
	return s.snapshotGen(context.Background(), s.storageKey(key))
}

func (s *store[V]) snapshotGen(ctx context.Context, storageKey string) uint64 {
	g, err := s.gen.Snapshot(ctx, storageKey)
	if err != nil {
		// Conservative: treat as 0 so CAS writes will skip; reads will self-heal
		s.log.Warn("gen snapshot error", Fields{"key": storageKey, "err": err})
		s.hooks.GenSnapshotError(storageKey, err)
		return 0
	}
	return g
}

func (s *store[V]) selfHeal(ctx context.Context, storageKey, reason string) {
	_ = s.provider.Del(ctx, storageKey)
	s.log.Debug("self-healed entry", Fields{"key": storageKey, "reason": reason})
	s.hooks.SelfHealSingle(storageKey, reason)
}

func (s *store[V]) storageKey(userKey string) string {
	// isolate by namespace
	return "nb:" + s.ns + ":" + userKey
}
