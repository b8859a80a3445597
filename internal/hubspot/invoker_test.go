package hubspot

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/andreamil/hubspot-integration/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticTokens is a TokenSource returning a fixed token.
type staticTokens string

func (s staticTokens) ValidAccessToken(context.Context) (string, error) {
	return string(s), nil
}

// noTokens is a TokenSource with nothing to give.
type noTokens struct{}

func (noTokens) ValidAccessToken(context.Context) (string, error) {
	return "", apperrors.ErrNotAuthorized
}

// testInvoker returns an invoker whose backoff sleeps are recorded
// instead of slept.
func testInvoker(t *testing.T) (*Invoker, *[]time.Duration) {
	t.Helper()

	iv := NewInvoker(nil, 0, testLogger())

	var delays []time.Duration

	iv.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	return iv, &delays
}

func getBuilder(url string) RequestBuilder {
	return func(ctx context.Context, token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		return req, nil
	}
}

func TestInvoke_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	iv, delays := testInvoker(t)

	body, err := iv.Invoke(context.Background(), staticTokens("tok-1"), getBuilder(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"42"}`, body)
	assert.Empty(t, *delays)
}

func TestInvoke_NoToken_NoNetworkCall(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	iv, _ := testInvoker(t)

	_, err := iv.Invoke(context.Background(), noTokens{}, getBuilder(srv.URL))
	assert.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	assert.Zero(t, hits.Load(), "must fail fast without touching the network")
}

func TestInvoke_RateLimitedThenSuccess(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"7"}`))
	}))
	defer srv.Close()

	iv, delays := testInvoker(t)

	body, err := iv.Invoke(context.Background(), staticTokens("tok"), getBuilder(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"7"}`, body)
	assert.Equal(t, int32(4), hits.Load())
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *delays)
}

func TestInvoke_RateLimitBudgetExhausted(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	}))
	defer srv.Close()

	iv, delays := testInvoker(t)

	_, err := iv.Invoke(context.Background(), staticTokens("tok"), getBuilder(srv.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrRateLimitExceeded)

	// The last upstream failure stays inspectable under the sentinel.
	var apiErr *apperrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)

	assert.Equal(t, int32(4), hits.Load(), "4 total attempts: first plus 3 retries")
	assert.Len(t, *delays, 3)
}

func TestInvoke_NoRetryOnOtherStatuses(t *testing.T) {
	for _, status := range []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusInternalServerError,
	} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits atomic.Int32

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			iv, delays := testInvoker(t)

			_, err := iv.Invoke(context.Background(), staticTokens("tok"), getBuilder(srv.URL))
			require.Error(t, err)

			var apiErr *apperrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, status, apiErr.Status)
			assert.Equal(t, `{"message":"nope"}`, apiErr.Body)

			assert.Equal(t, int32(1), hits.Load(), "non-429 failures are never retried")
			assert.Empty(t, *delays)
		})
	}
}

func TestInvoke_TransportErrorNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // closed on purpose: every dial fails

	iv, delays := testInvoker(t)

	_, err := iv.Invoke(context.Background(), staticTokens("tok"), getBuilder(srv.URL))
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrRateLimitExceeded)
	assert.Empty(t, *delays)
}

func TestInvoke_BackoffHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	iv := NewInvoker(nil, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := iv.Invoke(ctx, staticTokens("tok"), getBuilder(srv.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewInvoker_LimiterDisabledByDefault(t *testing.T) {
	iv := NewInvoker(nil, 0, testLogger())
	assert.Nil(t, iv.limiter)

	iv = NewInvoker(nil, 5, testLogger())
	assert.NotNil(t, iv.limiter)
}
