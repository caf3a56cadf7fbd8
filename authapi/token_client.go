package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-erp-client/internal/config"
)

// TokenClient calls the credential renewal endpoint over a plain HTTP
// client. It deliberately sits outside the request pipeline: the renewal
// request itself carries no access token and must never trigger renewal.
type TokenClient struct {
	http    *http.Client
	baseURL string
}

// NewTokenClient creates a TokenClient from the client configuration.
func NewTokenClient(cfg config.ClientConfig) *TokenClient {
	return &TokenClient{
		http:    &http.Client{Timeout: cfg.GetRequestTimeout()},
		baseURL: strings.TrimRight(cfg.GetBaseURL(), "/"),
	}
}

type renewRequest struct {
	Refresh string `json:"refresh"`
}

type renewResponse struct {
	Access string `json:"access"`
}

// Renew exchanges the refresh token for a fresh access token. Any rejection
// is terminal for the session; the caller decides how to cascade.
func (t *TokenClient) Renew(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(renewRequest{Refresh: refreshToken})
	if err != nil {
		return "", errors.Wrap(err, "[TokenClient.Renew] marshalling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+renewPath, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "[TokenClient.Renew] building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "[TokenClient.Renew] renewal call")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("[TokenClient.Renew] renewal rejected with status %d", resp.StatusCode)
	}

	var renewed renewResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&renewed); err != nil {
		return "", errors.Wrap(err, "[TokenClient.Renew] decoding response")
	}
	if renewed.Access == "" {
		return "", errors.New("[TokenClient.Renew] backend returned empty access token")
	}
	return renewed.Access, nil
}
