package client

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-erp-client/session"
)

// RequestTransform mutates an outbound request before it is sent. Transforms
// run in registration order on every dispatch, including the expiry retry.
type RequestTransform func(*http.Request) error

// contextKey is a private context key type to avoid collisions
type contextKey string

// retriedKey marks a request instance that has already been replayed once
// after an expiry signal. The mark travels on the request's context, so
// concurrent independent requests are tracked separately.
const retriedKey contextKey = "expiry-retried"

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}

func wasRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey).(bool)
	return retried
}

// AttachCredential returns the transform that adds the Authorization header.
// The credential is read from the store at the moment the request is
// dispatched; a renewal completing mid-flight never rewrites a request that
// is already on the wire. A caller-supplied Authorization header wins.
func AttachCredential(store *session.Store) RequestTransform {
	return func(req *http.Request) error {
		if req.Header.Get("Authorization") != "" {
			return nil
		}
		snapshot := store.Snapshot()
		if snapshot.Credential == nil {
			return nil
		}
		req.Header.Set("Authorization", "Bearer "+snapshot.Credential.AccessToken)
		return nil
	}
}

// RequestID returns the transform that stamps each request with a
// correlation ID for log matching across client and backend.
func RequestID() RequestTransform {
	return func(req *http.Request) error {
		if req.Header.Get("X-Request-ID") == "" {
			req.Header.Set("X-Request-ID", uuid.New().String())
		}
		return nil
	}
}
