package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-erp-client/client"
	errs "github.com/jrsteele09/go-erp-client/internal/errors"
	"github.com/jrsteele09/go-erp-client/renewal"
	"github.com/jrsteele09/go-erp-client/session"
	"github.com/jrsteele09/go-erp-client/session/repofakes"
)

const (
	staleAccess = "stale-access"
	freshAccess = "fresh-access"
	refreshTok  = "refresh-1"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetBaseURL() string               { return c.baseURL }
func (c testConfig) GetRequestTimeout() time.Duration { return 2 * time.Second }
func (c testConfig) GetStorageNamespace() string      { return "test" }

// fakeRenewer stands in for the renewal coordinator in unit tests.
type fakeRenewer struct {
	store *session.Store
	token string
	err   error
	calls atomic.Int32
}

func (f *fakeRenewer) Renew(context.Context) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	if f.store != nil {
		_ = f.store.SetCredential(session.Credential{AccessToken: f.token, RefreshToken: refreshTok})
	}
	return f.token, nil
}

func newAuthenticatedStore(t *testing.T) *session.Store {
	t.Helper()

	store, err := session.NewStore(repofakes.NewFakeSessionRepo())
	require.NoError(t, err)
	require.NoError(t, store.Hydrate())
	require.NoError(t, store.Login(
		session.Principal{ID: 1, Username: "jdoe", Role: session.RoleTeacher},
		session.Credential{AccessToken: staleAccess, RefreshToken: refreshTok},
	))
	return store
}

func newEmptyStore(t *testing.T) *session.Store {
	t.Helper()

	store, err := session.NewStore(repofakes.NewFakeSessionRepo())
	require.NoError(t, err)
	require.NoError(t, store.Hydrate())
	return store
}

func newClient(t *testing.T, baseURL string, store *session.Store, renewer client.Renewer, options ...client.Option) *client.Client {
	t.Helper()

	c, err := client.New(testConfig{baseURL: baseURL}, store, renewer, options...)
	require.NoError(t, err)
	return c
}

// TestDo_AttachesCredential tests that the access token current at dispatch is attached
func TestDo_AttachesCredential(t *testing.T) {
	var gotAuth, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	store := newAuthenticatedStore(t)
	c := newClient(t, server.URL, store, &fakeRenewer{})

	require.NoError(t, c.GetJSON(context.Background(), "/students/", nil))
	require.Equal(t, "Bearer "+staleAccess, gotAuth)
	require.NotEmpty(t, gotRequestID, "correlation ID should be stamped on every request")
}

// TestDo_NoCredentialSendsUnmodified tests anonymous dispatch
func TestDo_NoCredentialSendsUnmodified(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newClient(t, server.URL, newEmptyStore(t), &fakeRenewer{})

	require.NoError(t, c.GetJSON(context.Background(), "/public/", nil))
	require.Empty(t, gotAuth)
}

// TestDo_ExpiryTriggersSingleRetry tests renew-and-replay on a 401
func TestDo_ExpiryTriggersSingleRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+freshAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	store := newAuthenticatedStore(t)
	renewer := &fakeRenewer{store: store, token: freshAccess}
	c := newClient(t, server.URL, store, renewer)

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, c.GetJSON(context.Background(), "/students/", &out))

	require.True(t, out.OK)
	require.Equal(t, int32(1), renewer.calls.Load())
	require.Equal(t, int32(2), attempts.Load(), "original dispatch plus exactly one replay")
	require.Equal(t, freshAccess, store.Snapshot().Credential.AccessToken)
}

// TestDo_SecondExpiryIsTerminal tests that a retried request is never renewed again
func TestDo_SecondExpiryIsTerminal(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := newAuthenticatedStore(t)
	renewer := &fakeRenewer{store: store, token: freshAccess}
	c := newClient(t, server.URL, store, renewer)

	err := c.GetJSON(context.Background(), "/students/", nil)

	require.ErrorIs(t, err, errs.ErrAuthenticationFailed)
	require.Equal(t, int32(1), renewer.calls.Load(), "no second renewal for the same request")
	require.Equal(t, int32(2), attempts.Load(), "no third network attempt")
}

// TestDo_RenewalFailureLogsOutAndSurfacesSessionExpired tests the terminal cascade
func TestDo_RenewalFailureLogsOutAndSurfacesSessionExpired(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	store := newAuthenticatedStore(t)
	renewer := &fakeRenewer{err: errors.New("refresh token rejected")}
	c := newClient(t, server.URL, store, renewer)

	err := c.GetJSON(context.Background(), "/students/", nil)

	require.ErrorIs(t, err, errs.ErrSessionExpired)
	require.False(t, store.Snapshot().Authenticated(), "failed renewal cascades into logout")
	require.Equal(t, int32(1), attempts.Load(), "request is not replayed after failed renewal")
}

// TestDo_UnauthorizedWithoutCredentialPassesThrough tests that a failed login is not a session expiry
func TestDo_UnauthorizedWithoutCredentialPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid credentials"}`))
	}))
	defer server.Close()

	renewer := &fakeRenewer{}
	c := newClient(t, server.URL, newEmptyStore(t), renewer)

	err := c.PostJSON(context.Background(), "/auth/login/", map[string]string{"username": "jdoe"}, nil)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, "Invalid credentials", client.ErrorMessage(err))
	require.Equal(t, int32(0), renewer.calls.Load(), "no renewal without a stored credential")
}

// TestDo_OrdinaryFailuresNeverRenew tests that non-auth errors pass through untouched
func TestDo_OrdinaryFailuresNeverRenew(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"name is required"}`))
	}))
	defer server.Close()

	store := newAuthenticatedStore(t)
	renewer := &fakeRenewer{store: store, token: freshAccess}
	c := newClient(t, server.URL, store, renewer)

	err := c.PostJSON(context.Background(), "/students/", map[string]string{}, nil)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "name is required", client.ErrorMessage(err))
	require.Equal(t, int32(0), renewer.calls.Load())
	require.True(t, store.Snapshot().Authenticated(), "ordinary failures never log out")
}

// TestDo_TimeoutPassesThrough tests that a timed-out request is not treated as expiry
func TestDo_TimeoutPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	store := newAuthenticatedStore(t)
	renewer := &fakeRenewer{store: store, token: freshAccess}
	c := newClient(t, server.URL, store, renewer,
		client.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))

	err := c.GetJSON(context.Background(), "/slow/", nil)

	require.Error(t, err)
	require.Equal(t, int32(0), renewer.calls.Load())
	require.True(t, store.Snapshot().Authenticated())
}

// TestDo_RetryReplaysBody tests that the replay carries the original JSON body
func TestDo_RetryReplaysBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+freshAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	store := newAuthenticatedStore(t)
	c := newClient(t, server.URL, store, &fakeRenewer{store: store, token: freshAccess})

	require.NoError(t, c.PostJSON(context.Background(), "/attendance/mark/", map[string]string{"status": "present"}, nil))

	require.Len(t, bodies, 2)
	require.JSONEq(t, `{"status":"present"}`, bodies[0])
	require.Equal(t, bodies[0], bodies[1], "replay must carry the identical body")
}

// TestDo_ConcurrentExpiriesShareOneRenewal tests the end-to-end single-flight property:
// N concurrent requests all hit a 401 and exactly one renewal call reaches the backend.
func TestDo_ConcurrentExpiriesShareOneRenewal(t *testing.T) {
	const concurrent = 8

	var renewCalls, successes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		renewCalls.Add(1)
		time.Sleep(50 * time.Millisecond) // Hold the renewal open so every request joins it
		w.Write([]byte(`{"access":"` + freshAccess + `"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+freshAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		successes.Add(1)
		w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	store := newAuthenticatedStore(t)
	coordinator, err := renewal.NewCoordinator(store, func(ctx context.Context, refreshToken string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/auth/refresh/", nil)
		if err != nil {
			return "", err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		return freshAccess, nil
	})
	require.NoError(t, err)

	c := newClient(t, server.URL, store, coordinator)

	var wg sync.WaitGroup
	failures := make([]error, concurrent)
	for i := 0; i < concurrent; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			failures[i] = c.GetJSON(context.Background(), "/students/", nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < concurrent; i++ {
		require.NoError(t, failures[i])
	}
	require.Equal(t, int32(1), renewCalls.Load(), "one renewal for all concurrent expiries")
	require.Equal(t, int32(concurrent), successes.Load(), "every request retried with the shared token")
}

// TestNew_Validation tests constructor requirements
func TestNew_Validation(t *testing.T) {
	store := newEmptyStore(t)

	_, err := client.New(nil, store, &fakeRenewer{})
	require.Error(t, err)

	_, err = client.New(testConfig{baseURL: "http://x"}, nil, &fakeRenewer{})
	require.Error(t, err)

	_, err = client.New(testConfig{baseURL: "http://x"}, store, nil)
	require.Error(t, err)
}

// TestErrorMessage_Fallbacks tests the message extraction chain
func TestErrorMessage_Fallbacks(t *testing.T) {
	require.Equal(t, "", client.ErrorMessage(nil))
	require.Equal(t, "plain failure", client.ErrorMessage(errors.New("plain failure")))
	require.Equal(t, "detail wins", client.ErrorMessage(&client.APIError{StatusCode: 400, Detail: "detail wins", Message: "not me"}))
	require.Equal(t, "message next", client.ErrorMessage(&client.APIError{StatusCode: 400, Message: "message next"}))
	require.Equal(t, "error last", client.ErrorMessage(&client.APIError{StatusCode: 400, Reason: "error last"}))
	require.Equal(t, "Bad Request", client.ErrorMessage(&client.APIError{StatusCode: 400}))
}
