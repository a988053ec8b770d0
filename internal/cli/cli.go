// Package cli implements the netbound command: account login and
// registration plus blog search against the configured API.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/blog"
	"github.com/unkn0wn-root/netbound/config"
)

var (
	// ErrFailed means the operation ended in an Error state, already printed.
	ErrFailed = errors.New("operation failed")
	// ErrInterrupted means the stream closed without a final state.
	ErrInterrupted = errors.New("operation interrupted")
	// ErrNeedsSharedCache means a command reads state an earlier command
	// stored, which only the redis backend keeps between runs.
	ErrNeedsSharedCache = errors.New("-pk and logout need NETBOUND_CACHE_BACKEND=redis; the in-process caches are empty on every run")
)

const usage = `usage: netbound <command> [flags]

commands:
  login     -email E -password P
  register  -email E -username U -password P -confirm P
  search    (-token T | -pk N) -q QUERY [-page N]
  logout    -pk N

configuration is read from NETBOUND_* environment variables.
stored tokens (search -pk, logout) and cached search pages outlive a single
command only with NETBOUND_CACHE_BACKEND=redis.
`

// Run executes one command.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login", "register", "search", "logout":
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	switch cmd {
	case "login":
		err = a.login(ctx, rest, stdout, stderr)
	case "register":
		err = a.register(ctx, rest, stdout, stderr)
	case "search":
		err = a.search(ctx, rest, stdout, stderr)
	default:
		err = a.logout(ctx, rest, stdout, stderr)
	}
	a.log.Debug("command finished", netbound.Fields{
		"command":      cmd,
		"last_latency": a.tracker.LastLatency(),
		"reachable":    a.tracker.IsReachable(),
	})
	return err
}

func newFlags(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func (a *app) login(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("login", stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return consume(ctx, stdout, a.auth.Login(ctx, *email, *password))
}

func (a *app) register(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("register", stderr)
	email := fs.String("email", "", "account email")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	confirm := fs.String("confirm", "", "password again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return consume(ctx, stdout, a.auth.Register(ctx, *email, *username, *password, *confirm))
}

func (a *app) search(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("search", stderr)
	token := fs.String("token", "", "auth token")
	pk := fs.Int("pk", 0, "account whose stored token to use")
	query := fs.String("q", "", "search query")
	page := fs.Int("page", 1, "result page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tok := *token
	if tok == "" && *pk != 0 {
		if !a.sharedCache {
			return ErrNeedsSharedCache
		}
		t, ok, err := a.auth.CachedToken(ctx, *pk)
		if err != nil {
			return fmt.Errorf("read stored token: %w", err)
		}
		if !ok {
			return fmt.Errorf("no stored token for account %d; login first", *pk)
		}
		tok = t.Token
	}
	return consume(ctx, stdout, a.blog.Handle(ctx, tok, blog.SearchEvent{Query: *query, Page: *page}))
}

func (a *app) logout(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlags("logout", stderr)
	pk := fs.Int("pk", 0, "account to forget")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pk == 0 {
		return errors.New("logout: -pk is required")
	}
	if !a.sharedCache {
		return ErrNeedsSharedCache
	}
	if err := a.auth.Logout(ctx, *pk); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "forgot token for account %d\n", *pk)
	return nil
}

// consume prints every state of s and reports how it ended.
func consume[T any](ctx context.Context, w io.Writer, s *netbound.Stream[T]) error {
	defer s.Close()
	var (
		final netbound.State[T]
		done  bool
	)
	ch := s.States()
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				if !done {
					fmt.Fprintln(w, "interrupted")
					return ErrInterrupted
				}
				if final.Kind == netbound.KindError {
					return ErrFailed
				}
				return nil
			}
			render(w, st)
			if st.Final {
				final, done = st, true
			}
		case <-ctx.Done():
			fmt.Fprintln(w, "interrupted")
			return ErrInterrupted
		}
	}
}

func render[T any](w io.Writer, st netbound.State[T]) {
	switch st.Kind {
	case netbound.KindLoading:
		fmt.Fprintln(w, "loading...")
	case netbound.KindSuccess:
		label := "result"
		if !st.Final {
			label = "cached"
		}
		b, err := json.MarshalIndent(st.Data, "", "  ")
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", label, st.Data)
			return
		}
		fmt.Fprintf(w, "%s:\n%s\n", label, b)
	case netbound.KindEmpty:
		fmt.Fprintln(w, "no results")
	case netbound.KindError:
		fmt.Fprintf(w, "error: %s\n", st.Message)
	}
}

