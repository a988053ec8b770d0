// Package transport performs the remote calls behind a Resource's CreateCall
// and classifies their results into netbound outcomes.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"

	"github.com/unkn0wn-root/netbound"
	"github.com/unkn0wn-root/netbound/codec"
)

const (
	MessageTimeout       = "Network timeout"
	MessageUnresolved    = "Unable to resolve host"
	MessageCheckNetwork  = "Check network connection."
	MessageUnreadable    = "Unable to read server response"
	MessageBodyTooLarge  = "Server response is too large"
	defaultTimeout       = 6 * time.Second
	defaultMaxBodyBytes  = 4 << 20
	defaultUserAgent     = "netbound/1"
	contentTypeForm      = "application/x-www-form-urlencoded"
	headerAuthorization  = "Authorization"
	authorizationPrefix  = "Token "
)

// Observer sees every call made with a live context. err is set only when no
// HTTP exchange completed (dial, DNS, timeout, reset); a server that answered
// with any status is reported with a nil err.
type Observer func(path string, latency time.Duration, err error)

type Config struct {
	BaseURL      string        // required; absolute, e.g. https://open-api.xyz/api/
	Timeout      time.Duration // 0 => 6s
	MaxBodyBytes int64         // 0 => 4 MiB
	UserAgent    string
	HTTPClient   *http.Client // nil => HTTP/2-enabled client with Timeout
	Observer     Observer
}

// Client talks to one API base URL.
type Client struct {
	base    *url.URL
	hc      *http.Client
	maxBody int64
	ua      string
	observe Observer
}

func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("transport: base url %q must be absolute", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		base:    base,
		hc:      cfg.HTTPClient,
		maxBody: cfg.MaxBodyBytes,
		ua:      cfg.UserAgent,
		observe: cfg.Observer,
	}
	if c.maxBody <= 0 {
		c.maxBody = defaultMaxBodyBytes
	}
	if c.ua == "" {
		c.ua = defaultUserAgent
	}
	if c.hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if err := http2.ConfigureTransport(tr); err != nil {
			return nil, fmt.Errorf("transport: enable http2: %w", err)
		}
		c.hc = &http.Client{Transport: tr, Timeout: timeout}
	}
	return c, nil
}

// Request is one call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values // sent url-encoded when non-nil
	Token  string     // sent as "Authorization: Token <token>" when set
	Header http.Header
}

// Do performs req. A 2xx with a body is OutcomeSuccessWithBody, a 204 or a
// blank body is OutcomeSuccessEmpty, everything else is OutcomeFailure with a
// user-facing message.
func (c *Client) Do(ctx context.Context, req Request) netbound.Outcome[[]byte] {
	start := time.Now()
	out, netErr := c.do(ctx, req)
	if c.observe != nil && ctx.Err() == nil {
		c.observe(req.Path, time.Since(start), netErr)
	}
	return out
}

// do returns the outcome plus the error that kept the exchange from
// completing, if any. Replies the server did send return a nil error.
func (c *Client) do(ctx context.Context, req Request) (netbound.Outcome[[]byte], error) {
	hreq, err := c.newRequest(ctx, req)
	if err != nil {
		return netbound.OutcomeError[[]byte](netbound.MessageUnknown, err), nil
	}

	resp, err := c.hc.Do(hreq)
	if err != nil {
		return netbound.OutcomeError[[]byte](classify(err), err), err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return netbound.OutcomeError[[]byte](classify(err), err), err
	}
	if int64(len(body)) > c.maxBody {
		err := fmt.Errorf("transport: body exceeds %d bytes", c.maxBody)
		return netbound.OutcomeError[[]byte](MessageBodyTooLarge, err), nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Code: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
		return netbound.OutcomeError[[]byte](se.Message, se), nil
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return netbound.OutcomeEmpty[[]byte](), nil
	}
	return netbound.OutcomeBody(body), nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	ref, err := url.Parse(strings.TrimPrefix(req.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: parse path %q: %w", req.Path, err)
	}
	u := c.base.ResolveReference(ref)
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if req.Form != nil {
		hreq.Header.Set("Content-Type", contentTypeForm)
	}
	if req.Token != "" {
		hreq.Header.Set(headerAuthorization, authorizationPrefix+req.Token)
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", c.ua)
	return hreq, nil
}

// Call performs req and decodes a success body with dec. A body that fails to
// decode becomes a Failure.
func Call[B any](ctx context.Context, c *Client, req Request, dec codec.Codec[B]) netbound.Outcome[B] {
	raw := c.Do(ctx, req)
	switch raw.Kind {
	case netbound.OutcomeSuccessWithBody:
		b, err := dec.Decode(raw.Body)
		if err != nil {
			return netbound.OutcomeError[B](MessageUnreadable, fmt.Errorf("transport: decode %s: %w", req.Path, err))
		}
		return netbound.OutcomeBody(b)
	case netbound.OutcomeSuccessEmpty:
		return netbound.OutcomeEmpty[B]()
	default:
		return netbound.OutcomeError[B](raw.Message, raw.Err)
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: status %d: %s", e.Code, e.Message)
}

func classify(err error) string {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return MessageTimeout
	case errors.As(err, &dnsErr):
		return MessageUnresolved
	case errors.As(err, &netErr) && netErr.Timeout():
		return MessageTimeout
	default:
		return MessageCheckNetwork
	}
}

// errorMessage prefers the API's own explanation over the status text.
func errorMessage(code int, body []byte) string {
	var e struct {
		ErrorMessage string `json:"error_message"`
		Detail       string `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil {
		switch {
		case e.ErrorMessage != "":
			return e.ErrorMessage
		case e.Detail != "":
			return e.Detail
		}
	}
	if t := http.StatusText(code); t != "" {
		return t
	}
	return netbound.MessageUnknown
}
