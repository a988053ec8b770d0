package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/codec"
	"github.com/unkn0wn-root/netbound/connectivity"
)

func newClient(t *testing.T, h http.HandlerFunc, mut func(*Config)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := Config{BaseURL: srv.URL + "/api/", Timeout: time.Second}
	if mut != nil {
		mut(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestPostFormSendsFieldsAndReturnsBody(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/account/login" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostForm.Get("username") != "a@b.c" || r.PostForm.Get("password") != "pw" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}, nil)

	out := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "account/login",
		Form:   url.Values{"username": {"a@b.c"}, "password": {"pw"}},
	})
	if out.Kind != netbound.OutcomeSuccessWithBody || string(out.Body) != `{"response":"ok"}` {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestGetSendsTokenAndQuery(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token abc" {
			t.Errorf("Authorization=%q", got)
		}
		if r.URL.Query().Get("search") != "go" || r.URL.Query().Get("page") != "2" {
			t.Errorf("query=%v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`[]`))
	}, nil)

	out := c.Do(context.Background(), Request{
		Path:  "blog/list",
		Query: url.Values{"search": {"go"}, "page": {"2"}},
		Token: "abc",
	})
	if out.Kind != netbound.OutcomeSuccessWithBody {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestEmptyResponses(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"no content": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) },
		"blank body": func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("  \n")) },
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newClient(t, h, nil)
			if out := c.Do(context.Background(), Request{Path: "x"}); out.Kind != netbound.OutcomeSuccessEmpty {
				t.Fatalf("want empty, got %+v", out)
			}
		})
	}
}

func TestStatusErrorsCarryApiMessage(t *testing.T) {
	cases := []struct {
		name string
		code int
		body string
		want string
	}{
		{"error_message", 400, `{"error_message":"Invalid credentials"}`, "Invalid credentials"},
		{"detail", 401, `{"detail":"Invalid token."}`, "Invalid token."},
		{"status text", 500, `<html>oops</html>`, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			}, nil)
			out := c.Do(context.Background(), Request{Path: "x"})
			if out.Kind != netbound.OutcomeFailure || out.Message != tc.want {
				t.Fatalf("got %+v want message %q", out, tc.want)
			}
			var se *StatusError
			if !errors.As(out.Err, &se) || se.Code != tc.code {
				t.Fatalf("want StatusError %d, got %v", tc.code, out.Err)
			}
		})
	}
}

func TestTimeoutMessage(t *testing.T) {
	block := make(chan struct{})
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}, func(cfg *Config) { cfg.Timeout = 50 * time.Millisecond })
	defer close(block)

	out := c.Do(context.Background(), Request{Path: "slow"})
	if out.Kind != netbound.OutcomeFailure || out.Message != MessageTimeout {
		t.Fatalf("want timeout failure, got %+v", out)
	}
}

func TestBodyLimit(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}, func(cfg *Config) { cfg.MaxBodyBytes = 16 })
	out := c.Do(context.Background(), Request{Path: "big"})
	if out.Kind != netbound.OutcomeFailure || out.Message != MessageBodyTooLarge {
		t.Fatalf("want too-large failure, got %+v", out)
	}
}

func TestCallDecodes(t *testing.T) {
	type body struct {
		Response string `json:"response"`
		PK       int    `json:"pk"`
	}
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/good":
			_, _ = w.Write([]byte(`{"response":"ok","pk":7}`))
		default:
			_, _ = w.Write([]byte(`not json`))
		}
	}, nil)

	out := Call(context.Background(), c, Request{Path: "good"}, codec.JSON[body]{})
	if out.Kind != netbound.OutcomeSuccessWithBody || out.Body.PK != 7 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	out = Call(context.Background(), c, Request{Path: "bad"}, codec.JSON[body]{})
	if out.Kind != netbound.OutcomeFailure || out.Message != MessageUnreadable {
		t.Fatalf("want decode failure, got %+v", out)
	}
}

func TestObserverSeesCalls(t *testing.T) {
	var (
		mu   sync.Mutex
		errs []error
	)
	block := make(chan struct{})
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/fail":
			w.WriteHeader(http.StatusBadGateway)
		case "/api/slow":
			select {
			case <-block:
			case <-r.Context().Done():
			}
		default:
			_, _ = w.Write([]byte("{}"))
		}
	}, func(cfg *Config) {
		cfg.Timeout = 50 * time.Millisecond
		cfg.Observer = func(_ string, _ time.Duration, err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	})
	defer close(block)
	c.Do(context.Background(), Request{Path: "ok"})
	c.Do(context.Background(), Request{Path: "fail"})
	c.Do(context.Background(), Request{Path: "slow"})

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 3 || errs[0] != nil || errs[1] != nil || errs[2] == nil {
		t.Fatalf("unexpected observations %v", errs)
	}
}

func TestTrackerStaysReachableWhileServerRejects(t *testing.T) {
	tracker := connectivity.NewTracker(3, time.Minute)
	c, _ := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
	}, func(cfg *Config) { cfg.Observer = tracker.Observe })

	for i := 0; i < 5; i++ {
		out := c.Do(context.Background(), Request{Path: "blog/list", Token: "bad"})
		if out.Kind != netbound.OutcomeFailure || out.Message != "Invalid token." {
			t.Fatalf("call %d: unexpected outcome %+v", i, out)
		}
	}
	if !tracker.IsReachable() {
		t.Fatalf("tracker went offline on replies from a live server")
	}
}

func TestTrackerGoesOfflineWhenServerIsGone(t *testing.T) {
	tracker := connectivity.NewTracker(2, time.Minute)
	c, srv := newClient(t, func(w http.ResponseWriter, _ *http.Request) {}, func(cfg *Config) {
		cfg.Observer = tracker.Observe
	})
	srv.Close()

	for i := 0; i < 2; i++ {
		if out := c.Do(context.Background(), Request{Path: "x"}); out.Kind != netbound.OutcomeFailure {
			t.Fatalf("call %d: want failure, got %+v", i, out)
		}
	}
	if tracker.IsReachable() {
		t.Fatalf("tracker still reachable after failed dials")
	}
}

func TestNewRejectsRelativeBase(t *testing.T) {
	if _, err := New(Config{BaseURL: "api/"}); err == nil {
		t.Fatalf("expected error for relative base url")
	}
}
