// Package auth runs the account operations (login, registration) through the
// netbound mediator and keeps issued tokens in a local store.
package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/connectivity"
)

const (
	SlotLogin    = "login"
	SlotRegister = "register"

	tokenKeyPrefix = "authtoken:"
)

// AuthToken is the session credential issued by login and registration.
type AuthToken struct {
	AccountPK int    `cbor:"1,keyasint" json:"pk"`
	Token     string `cbor:"2,keyasint" json:"token"`
}

type Options struct {
	Mediator *netbound.Mediator // required
	Remote   Remote             // required
	Probe    connectivity.Probe // nil => always reachable

	// Tokens, when set, receives every issued token under "authtoken:<pk>".
	// Build it with codec.CBOR.
	Tokens   netbound.Store[AuthToken]
	TokenTTL time.Duration // 0 => store default
	Logger   netbound.Logger
}

type Repository struct {
	m        *netbound.Mediator
	remote   Remote
	probe    connectivity.Probe
	tokens   netbound.Store[AuthToken]
	tokenTTL time.Duration
	log      netbound.Logger
}

func NewRepository(opts Options) (*Repository, error) {
	if opts.Mediator == nil {
		return nil, errors.New("auth: mediator is required")
	}
	if opts.Remote == nil {
		return nil, errors.New("auth: remote is required")
	}
	r := &Repository{
		m:        opts.Mediator,
		remote:   opts.Remote,
		probe:    opts.Probe,
		tokens:   opts.Tokens,
		tokenTTL: opts.TokenTTL,
		log:      opts.Logger,
	}
	if r.probe == nil {
		r.probe = connectivity.Static(true)
	}
	if r.log == nil {
		r.log = netbound.NopLogger{}
	}
	return r, nil
}

// Login validates the form, then authenticates. Invalid forms produce a single
// Error without consulting connectivity, cache or network.
func (r *Repository) Login(ctx context.Context, email, password string) *netbound.Stream[AuthToken] {
	if err := (LoginFields{Email: email, Password: password}).Validate(); err != nil {
		return r.rejected(SlotLogin, err)
	}
	return netbound.Run(ctx, r.m, netbound.Resource[LoginResponse, AuthToken]{
		Slot:        SlotLogin,
		ShouldFetch: r.probe.IsReachable(),
		CreateCall: func(ctx context.Context) netbound.Outcome[LoginResponse] {
			return r.remote.Login(ctx, email, password)
		},
		HandleSuccess:     translateLogin,
		SaveCallResult:    r.saveToken,
		ErrorPresentation: netbound.PresentDialog,
		OfflineMessage:    netbound.MessageOffline,
	})
}

// Register validates the form, then creates the account.
func (r *Repository) Register(ctx context.Context, email, username, password, confirm string) *netbound.Stream[AuthToken] {
	f := RegistrationFields{Email: email, Username: username, Password: password, ConfirmPassword: confirm}
	if err := f.Validate(); err != nil {
		return r.rejected(SlotRegister, err)
	}
	return netbound.Run(ctx, r.m, netbound.Resource[RegistrationResponse, AuthToken]{
		Slot:        SlotRegister,
		ShouldFetch: r.probe.IsReachable(),
		CreateCall: func(ctx context.Context) netbound.Outcome[RegistrationResponse] {
			return r.remote.Register(ctx, f)
		},
		HandleSuccess:     translateRegistration,
		SaveCallResult:    r.saveToken,
		ErrorPresentation: netbound.PresentDialog,
		OfflineMessage:    netbound.MessageOffline,
	})
}

// CancelActiveJobs tears down any in-flight login or registration.
func (r *Repository) CancelActiveJobs() {
	r.log.Debug("cancelling auth jobs", nil)
	r.m.Cancel(SlotLogin)
	r.m.Cancel(SlotRegister)
}

// CachedToken returns the stored token for an account, if any.
func (r *Repository) CachedToken(ctx context.Context, pk int) (AuthToken, bool, error) {
	if r.tokens == nil {
		return AuthToken{}, false, nil
	}
	return r.tokens.Get(ctx, tokenKey(pk))
}

// Logout forgets the stored token for an account. It does not reach into a
// login already in flight: the account is unknown until the reply arrives,
// so that login stores its token when it completes.
func (r *Repository) Logout(ctx context.Context, pk int) error {
	if r.tokens == nil {
		return nil
	}
	return r.tokens.Invalidate(ctx, tokenKey(pk))
}

func (r *Repository) rejected(slot string, err error) *netbound.Stream[AuthToken] {
	r.log.Debug("form rejected", netbound.Fields{"slot": slot, "reason": err.Error()})
	return netbound.Fail[AuthToken](err.Error(), netbound.PresentDialog, netbound.CauseValidation)
}

func (r *Repository) saveToken(ctx context.Context, t AuthToken) error {
	if r.tokens == nil || t.Token == "" {
		return nil
	}
	// The pk is only known now, so the snapshot guards against writers racing
	// this save, not against a Logout issued before the reply arrived.
	key := tokenKey(t.AccountPK)
	return r.tokens.SetWithGen(ctx, key, t, r.tokens.SnapshotGen(key), r.tokenTTL)
}

func tokenKey(pk int) string { return tokenKeyPrefix + strconv.Itoa(pk) }
