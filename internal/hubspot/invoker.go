package hubspot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apperrors "github.com/andreamil/hubspot-integration/internal/errors"
	"golang.org/x/time/rate"
)

// Retry policy for rate-limited calls: base delay 2s doubling per
// attempt, at most 3 retries after the first attempt. Only HTTP 429
// qualifies; everything else fails straight through.
const (
	retryBaseDelay  = 2 * time.Second
	retryMultiplier = 2
	maxRetries      = 3
)

// TokenSource yields an access token valid right now. Implemented by
// auth.Manager.
type TokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

// RequestBuilder constructs the outbound request for one attempt. It is
// called once per attempt so request bodies are re-created rather than
// re-read.
type RequestBuilder func(ctx context.Context, token string) (*http.Request, error)

// Invoker executes bearer-authorized HubSpot calls with a bounded retry
// policy for HTTP 429 responses. It never touches the token store; token
// mutation belongs to auth.Manager alone.
type Invoker struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	// sleep is replaced in tests to avoid real backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInvoker creates an invoker. maxRPS > 0 enables a client-side rate
// limiter gating each call before the first attempt; zero disables it.
func NewInvoker(httpClient *http.Client, maxRPS float64, logger *slog.Logger) *Invoker {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	var limiter *rate.Limiter
	if maxRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(maxRPS), 1)
	}

	return &Invoker{
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Invoke runs one bearer-authorized call. Without a token it fails fast
// with the token manager's error and no network I/O. On 429 it retries
// with exponential backoff until the budget is spent, then returns
// ErrRateLimitExceeded wrapping the last upstream failure. Any other
// non-2xx is returned immediately as *errors.APIError. On success the
// response body is returned unmodified.
func (iv *Invoker) Invoke(ctx context.Context, tokens TokenSource, build RequestBuilder) (string, error) {
	token, err := tokens.ValidAccessToken(ctx)
	if err != nil {
		return "", err
	}

	if iv.limiter != nil {
		if err := iv.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	delay := retryBaseDelay

	var lastErr error

	for attempt := 0; ; attempt++ {
		body, err := iv.attempt(ctx, token, build)
		if err == nil {
			return body, nil
		}

		if !apperrors.IsStatus(err, http.StatusTooManyRequests) {
			return "", err
		}

		lastErr = err

		if attempt >= maxRetries {
			iv.logger.Error("rate limit retry budget exhausted",
				slog.Int("attempts", attempt+1),
			)

			return "", fmt.Errorf("%w: %w", apperrors.ErrRateLimitExceeded, lastErr)
		}

		iv.logger.Warn("rate limited by HubSpot, backing off",
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
		)

		if err := iv.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("backoff interrupted: %w", err)
		}
		delay *= retryMultiplier
	}
}

// attempt performs a single request/response cycle.
func (iv *Invoker) attempt(ctx context.Context, token string, build RequestBuilder) (string, error) {
	req, err := build(ctx, token)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	resp, err := iv.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &apperrors.APIError{Status: resp.StatusCode, Body: string(body)}
	}

	return string(body), nil
}
