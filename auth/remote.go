package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/codec"
	"github.com/unkn0wn-root/netbound/transport"
)

// responseError marks a business failure delivered with a 200.
const responseError = "Error"

type LoginResponse struct {
	Response     string `json:"response"`
	ErrorMessage string `json:"error_message"`
	PK           int    `json:"pk"`
	Token        string `json:"token"`
}

type RegistrationResponse struct {
	Response     string `json:"response"`
	ErrorMessage string `json:"error_message"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PK           int    `json:"pk"`
	Token        string `json:"token"`
}

// Remote is the account API.
type Remote interface {
	Login(ctx context.Context, email, password string) netbound.Outcome[LoginResponse]
	Register(ctx context.Context, f RegistrationFields) netbound.Outcome[RegistrationResponse]
}

// HTTPRemote calls the account API through a transport.Client.
type HTTPRemote struct {
	Client *transport.Client
}

var _ Remote = HTTPRemote{}

func (h HTTPRemote) Login(ctx context.Context, email, password string) netbound.Outcome[LoginResponse] {
	return transport.Call(ctx, h.Client, transport.Request{
		Method: http.MethodPost,
		Path:   "account/login",
		Form:   url.Values{"username": {email}, "password": {password}},
	}, codec.JSON[LoginResponse]{})
}

func (h HTTPRemote) Register(ctx context.Context, f RegistrationFields) netbound.Outcome[RegistrationResponse] {
	return transport.Call(ctx, h.Client, transport.Request{
		Method: http.MethodPost,
		Path:   "account/register",
		Form: url.Values{
			"email":     {f.Email},
			"username":  {f.Username},
			"password":  {f.Password},
			"password2": {f.ConfirmPassword},
		},
	}, codec.JSON[RegistrationResponse]{})
}

func translateLogin(b LoginResponse) netbound.Translation[AuthToken] {
	if b.Response == responseError {
		return netbound.DomainFailure[AuthToken](b.ErrorMessage)
	}
	return netbound.Translated(AuthToken{AccountPK: b.PK, Token: b.Token})
}

func translateRegistration(b RegistrationResponse) netbound.Translation[AuthToken] {
	if b.Response == responseError {
		return netbound.DomainFailure[AuthToken](b.ErrorMessage)
	}
	return netbound.Translated(AuthToken{AccountPK: b.PK, Token: b.Token})
}
