package connectivity

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultDialTimeout = 2 * time.Second
	defaultDialTTL     = 5 * time.Second
)

// DialFunc matches (*net.Dialer).DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// DialProbe treats the API as reachable when a TCP connection to its host
// succeeds. Results are memoised for TTL and concurrent probes share one dial.
type DialProbe struct {
	addr    string
	timeout time.Duration
	ttl     time.Duration
	dial    DialFunc
	now     func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	reachable bool
	checkedAt time.Time
}

type DialOptions struct {
	Timeout time.Duration // 0 => 2s
	TTL     time.Duration // 0 => 5s; < 0 disables memoisation
	Dial    DialFunc      // nil => net.Dialer
}

// NewDialProbe probes host:port addr.
func NewDialProbe(addr string, opts DialOptions) *DialProbe {
	p := &DialProbe{
		addr:    addr,
		timeout: opts.Timeout,
		ttl:     opts.TTL,
		dial:    opts.Dial,
		now:     time.Now,
	}
	if p.timeout <= 0 {
		p.timeout = defaultDialTimeout
	}
	if p.ttl == 0 {
		p.ttl = defaultDialTTL
	}
	if p.dial == nil {
		p.dial = (&net.Dialer{}).DialContext
	}
	return p
}

// ForURL derives the probe address from an API base URL, defaulting the
// port from the scheme.
func ForURL(baseURL string, opts DialOptions) (*DialProbe, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("connectivity: parse base url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("connectivity: base url %q has no host", baseURL)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "http":
			port = "80"
		default:
			port = "443"
		}
	}
	return NewDialProbe(net.JoinHostPort(u.Hostname(), port), opts), nil
}

func (p *DialProbe) IsReachable() bool {
	if p.ttl > 0 {
		p.mu.Lock()
		fresh := !p.checkedAt.IsZero() && p.now().Sub(p.checkedAt) < p.ttl
		ok := p.reachable
		p.mu.Unlock()
		if fresh {
			return ok
		}
	}

	v, _, _ := p.group.Do(p.addr, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		conn, err := p.dial(ctx, "tcp", p.addr)
		if err == nil {
			_ = conn.Close()
		}
		ok := err == nil

		p.mu.Lock()
		p.reachable = ok
		p.checkedAt = p.now()
		p.mu.Unlock()
		return ok, nil
	})
	return v.(bool)
}
