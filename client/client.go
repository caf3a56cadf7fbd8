package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-erp-client/internal/config"
	errs "github.com/jrsteele09/go-erp-client/internal/errors"
	"github.com/jrsteele09/go-erp-client/session"
)

// Renewer produces a fresh access token when the current one has expired.
// Implemented by renewal.Coordinator.
type Renewer interface {
	Renew(ctx context.Context) (string, error)
}

// Client is the resilient HTTP client every feature talks to the backend
// through. Outbound requests pass through an explicit list of request
// transforms (credential attach, correlation ID); responses pass through the
// expiry-recovery step: a 401 on a not-yet-retried request triggers one
// renewal and one replay, a second 401 is terminal.
type Client struct {
	http       *http.Client
	baseURL    string
	transforms []RequestTransform
	store      *session.Store
	renewer    Renewer
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for testing).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.http = httpClient
	}
}

// WithRequestTransform appends a custom request transform after the
// built-in ones.
func WithRequestTransform(transform RequestTransform) Option {
	return func(c *Client) {
		c.transforms = append(c.transforms, transform)
	}
}

// New creates a Client bound to the session store and renewal coordinator.
func New(cfg config.ClientConfig, store *session.Store, renewer Renewer, options ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[client.New] config is required")
	}
	if store == nil {
		return nil, errors.New("[client.New] session store is required")
	}
	if renewer == nil {
		return nil, errors.New("[client.New] renewer is required")
	}

	c := &Client{
		http:    &http.Client{Timeout: cfg.GetRequestTimeout()},
		baseURL: strings.TrimRight(cfg.GetBaseURL(), "/"),
		store:   store,
		renewer: renewer,
		transforms: []RequestTransform{
			AttachCredential(store),
			RequestID(),
		},
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the resolved backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends the request through the pipeline.
//
// Transport failures (timeouts included) and every non-401 status pass
// through untouched; only the expiry signal is handled here. A 401 when the
// store holds no credential also passes through - that is a failed login or
// an anonymous call, not an expired session.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for _, transform := range c.transforms {
		if err := transform(req); err != nil {
			return nil, errors.Wrap(err, "[Client.Do] request transform")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if wasRetried(req.Context()) {
		// The replay was rejected too; give up without another renewal so a
		// server that keeps rejecting cannot trap us in a retry loop.
		closeBody(resp)
		return nil, errors.Wrap(errs.ErrAuthenticationFailed, "[Client.Do] retried request rejected")
	}

	if c.store.Snapshot().Credential == nil {
		return resp, nil
	}

	log.Debug().Str("url", req.URL.Path).Msg("expiry signal received, renewing credential")
	access, renewErr := c.renewer.Renew(req.Context())
	if renewErr != nil {
		closeBody(resp)
		if logoutErr := c.store.Logout(); logoutErr != nil {
			log.Warn().Err(logoutErr).Msg("logout after failed renewal")
		}
		log.Warn().Err(renewErr).Msg("credential renewal failed, session terminated")
		return nil, errors.Wrap(errs.ErrSessionExpired, "[Client.Do] credential renewal")
	}
	closeBody(resp)

	retry, err := c.cloneForRetry(req, access)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Do] preparing retry")
	}
	return c.Do(retry)
}

// cloneForRetry rebuilds the original request with the renewed access token
// and the retried mark set.
func (c *Client) cloneForRetry(req *http.Request, access string) (*http.Request, error) {
	if req.Body != nil && req.GetBody == nil {
		return nil, errors.New("request body is not replayable")
	}
	retry := req.Clone(markRetried(req.Context()))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrap(err, "replaying request body")
		}
		retry.Body = body
	}
	retry.Header.Set("Authorization", "Bearer "+access)
	return retry, nil
}

func closeBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}
