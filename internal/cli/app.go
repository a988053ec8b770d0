package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/auth"
	"github.com/unkn0wn-root/netbound/blog"
	"github.com/unkn0wn-root/netbound/codec"
	"github.com/unkn0wn-root/netbound/config"
	"github.com/unkn0wn-root/netbound/connectivity"
	"github.com/unkn0wn-root/netbound/genstore"
	asynchook "github.com/unkn0wn-root/netbound/hooks/async"
	nblogrus "github.com/unkn0wn-root/netbound/log/logrus"
	nbslog "github.com/unkn0wn-root/netbound/log/slog"
	nbzap "github.com/unkn0wn-root/netbound/log/zap"
	pr "github.com/unkn0wn-root/netbound/provider"
	"github.com/unkn0wn-root/netbound/provider/bigcache"
	rprov "github.com/unkn0wn-root/netbound/provider/redis"
	"github.com/unkn0wn-root/netbound/provider/ristretto"
	"github.com/unkn0wn-root/netbound/sloghooks"
	"github.com/unkn0wn-root/netbound/transport"
)

const (
	tokenTTL   = 30 * 24 * time.Hour
	pageTTL    = 24 * time.Hour
	genTTL     = 30 * 24 * time.Hour
	dialExpiry = 5 * time.Second
)

// app holds everything one command needs.
type app struct {
	cfg   config.Config
	log   netbound.Logger
	hooks *asynchook.Hooks
	m     *netbound.Mediator

	auth    *auth.Repository
	blog    *blog.Repository
	tracker *connectivity.Tracker

	// sharedCache is set when stores outlive the process, so one command
	// can read what an earlier one saved.
	sharedCache bool

	rdb     goredis.UniversalClient
	closers []func(context.Context) error
	flush   func()
}

func newApp(ctx context.Context, cfg config.Config, stderr io.Writer) (*app, error) {
	a := &app{cfg: cfg, sharedCache: cfg.CacheBackend == config.BackendRedis}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close(context.Background())
		}
	}()

	if err := a.initLogging(stderr); err != nil {
		return nil, err
	}

	raw := sloghooks.New(slog.New(slog.NewJSONHandler(stderr, nil)), sloghooks.Options{
		SelfHealEvery:   10,
		SupersededEvery: 10,
	})
	a.hooks = asynchook.New(raw, 1, cfg.HookQueueSize)

	a.m = netbound.NewMediator(netbound.Options{
		Logger:       a.log,
		Hooks:        a.hooks,
		NetworkDelay: cfg.NetworkDelay,
		CacheDelay:   cfg.CacheDelay,
	})

	a.tracker = connectivity.NewTracker(3, 30*time.Second)
	client, err := transport.New(transport.Config{
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.NetworkTimeout,
		Observer: a.tracker.Observe,
	})
	if err != nil {
		return nil, err
	}
	dial, err := connectivity.ForURL(cfg.BaseURL, connectivity.DialOptions{TTL: dialExpiry})
	if err != nil {
		return nil, err
	}
	probe := connectivity.All{a.tracker, dial}

	tokens, err := newStore(ctx, a, "auth", codec.MustCBOR[auth.AuthToken]())
	if err != nil {
		return nil, err
	}
	a.auth, err = auth.NewRepository(auth.Options{
		Mediator: a.m,
		Remote:   auth.HTTPRemote{Client: client},
		Probe:    probe,
		Tokens:   tokens,
		TokenTTL: tokenTTL,
		Logger:   a.log,
	})
	if err != nil {
		return nil, err
	}

	pages, err := newStore(ctx, a, "blog", codec.Msgpack[blog.Page]{})
	if err != nil {
		return nil, err
	}
	a.blog, err = blog.NewRepository(blog.Options{
		Mediator:   a.m,
		Remote:     blog.HTTPRemote{Client: client},
		Probe:      probe,
		Pages:      pages,
		CacheFirst: cfg.CacheFirst,
		MaxAge:     cfg.SearchMaxAge,
		PageTTL:    pageTTL,
		Logger:     a.log,
	})
	if err != nil {
		return nil, err
	}
	ready = true
	return a, nil
}

func (a *app) initLogging(w io.Writer) error {
	switch a.cfg.Logger {
	case config.LoggerLogrus:
		lvl, err := logrus.ParseLevel(a.cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		l.SetFormatter(&logrus.JSONFormatter{})
		a.log = nblogrus.New(l)
	case config.LoggerSlog:
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(a.cfg.LogLevel)); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		a.log = nbslog.Logger{L: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))}
	default:
		lvl, err := zapcore.ParseLevel(a.cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			lvl,
		)
		zl := zap.New(core)
		a.log = nbzap.New(zl)
		a.flush = func() { _ = zl.Sync() }
	}
	return nil
}

// newStore builds a store on the configured backend. Every store owns its
// provider; the redis client is shared and closed last.
func newStore[V any](ctx context.Context, a *app, ns string, cd codec.Codec[V]) (netbound.Store[V], error) {
	opts := netbound.StoreOptions[V]{
		Namespace: ns,
		Codec:     cd,
		Logger:    a.log,
		Hooks:     a.hooks,
	}

	var (
		p   pr.Provider
		err error
	)
	switch a.cfg.CacheBackend {
	case config.BackendRistretto:
		p, err = ristretto.New(ristretto.Config{NumCounters: 100_000, MaxCost: 32 << 20, BufferItems: 64})
		opts.ComputeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	case config.BackendRedis:
		if a.rdb == nil {
			if err := a.dialRedis(ctx); err != nil {
				return nil, err
			}
		}
		p, err = rprov.New(rprov.Config{Client: a.rdb})
		if err == nil {
			opts.GenStore, err = genstore.NewRedis(genstore.RedisConfig{Client: a.rdb, Namespace: ns, TTL: genTTL})
		}
	default:
		p, err = bigcache.New(ctx, bigcache.Config{LifeWindow: pageTTL})
	}
	if err != nil {
		return nil, fmt.Errorf("%s store: %w", ns, err)
	}
	opts.Provider = p

	s, err := netbound.NewStore(opts)
	if err != nil {
		_ = p.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, s.Close)
	return s, nil
}

func (a *app) dialRedis(ctx context.Context) error {
	p, err := rprov.Dial(ctx, a.cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("redis %s: %w", a.cfg.RedisAddr, err)
	}
	a.rdb = p.Client()
	return nil
}

// Close cancels in-flight work and releases stores, hooks and logs in that order.
func (a *app) Close(ctx context.Context) error {
	if a.m != nil {
		a.m.Close()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c(ctx))
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if a.hooks != nil {
		a.hooks.Close()
	}
	if a.flush != nil {
		a.flush()
	}
	return errors.Join(errs...)
}
