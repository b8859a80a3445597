package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	apperrors "github.com/andreamil/hubspot-integration/internal/errors"
	"github.com/andreamil/hubspot-integration/internal/models"
	"golang.org/x/sync/singleflight"
)

// TokenEndpoint is the subset of the HubSpot client the manager needs to
// exchange and refresh tokens.
type TokenEndpoint interface {
	ExchangeCode(ctx context.Context, code, clientID, clientSecret string) (models.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (models.TokenResponse, error)
}

// Manager orchestrates the credential lifecycle: acquisition from an
// authorization code, lazy expiry-triggered refresh, and store
// invalidation when the refresh token is rejected. Refresh is synchronous
// from the caller's perspective; concurrent callers that observe an
// expired credential are coalesced into one upstream refresh.
type Manager struct {
	store        *Store
	tokens       TokenEndpoint
	clientID     string
	clientSecret string
	logger       *slog.Logger

	// now is injected in tests to control expiry.
	now func() time.Time

	refresh singleflight.Group
}

// NewManager creates a lifecycle manager using the given store and token
// endpoint client.
func NewManager(store *Store, tokens TokenEndpoint, clientID, clientSecret string, logger *slog.Logger) *Manager {
	return &Manager{
		store:        store,
		tokens:       tokens,
		clientID:     clientID,
		clientSecret: clientSecret,
		logger:       logger,
		now:          time.Now,
	}
}

// AuthorizeURL builds the HubSpot authorization redirect URL for the
// given state nonce. clientID may differ from the configured one when the
// caller overrides credentials for a single authorization attempt.
func AuthorizeURL(authorizeURL, clientID, scopes, redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", clientID)
	q.Set("scope", scopes)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)

	return authorizeURL + "?" + q.Encode()
}

// Acquire exchanges an authorization code for tokens and stores the
// resulting credential. Authorization codes are single-use, so the
// exchange is never retried; any upstream rejection is returned with its
// status and body.
func (m *Manager) Acquire(ctx context.Context, code, clientID, clientSecret string) (models.Credential, error) {
	resp, err := m.tokens.ExchangeCode(ctx, code, clientID, clientSecret)
	if err != nil {
		return models.Credential{}, fmt.Errorf("exchanging authorization code: %w", err)
	}

	cred := models.NewCredential(resp.AccessToken, resp.RefreshToken, resp.ExpiresIn, m.now())
	m.store.Put(cred)

	m.logger.Info("credential stored",
		slog.Time("expires_at", cred.ExpiresAt),
	)

	return cred, nil
}

// ValidAccessToken returns an access token usable right now. An empty
// store yields ErrNotAuthorized. An expired credential triggers a
// synchronous refresh; the caller observes the refresh latency and its
// outcome inline.
func (m *Manager) ValidAccessToken(ctx context.Context) (string, error) {
	cred, ok := m.store.Get()
	if !ok {
		m.logger.Warn("no credential stored, authorization required")
		return "", apperrors.ErrNotAuthorized
	}

	if !cred.Expired(m.now()) {
		return cred.AccessToken, nil
	}

	m.logger.Info("access token expired, refreshing")

	return m.Refresh(ctx)
}

// Refresh exchanges the stored refresh token for a new credential.
// Concurrent calls share a single upstream request and its result. When
// HubSpot rejects the refresh token, the store is cleared; the human
// re-authorizes from scratch.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	token, err, _ := m.refresh.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

// doRefresh runs under the singleflight group. The double-check against
// the store makes a caller that lost the race to an already-completed
// refresh reuse the fresh credential instead of refreshing again.
func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	cred, ok := m.store.Get()
	if !ok || cred.RefreshToken == "" {
		// Terminal: a credential without a refresh token can never become
		// valid again, so drop it and force re-authorization.
		m.store.Clear()
		m.logger.Error("refresh token not found, cannot renew")

		return "", apperrors.ErrRefreshTokenMissing
	}

	if !cred.Expired(m.now()) {
		return cred.AccessToken, nil
	}

	resp, err := m.tokens.RefreshToken(ctx, cred.RefreshToken, m.clientID, m.clientSecret)
	if err != nil {
		var apiErr *apperrors.APIError
		if errors.As(err, &apiErr) {
			// Upstream rejected the stored tokens; they are useless now.
			m.store.Clear()
			m.logger.Error("token refresh rejected, credential cleared",
				slog.Int("status", apiErr.Status),
			)

			return "", fmt.Errorf("refreshing token: %w", err)
		}

		// Transport-level failure: the stored credential may still be
		// refreshable, keep it.
		return "", fmt.Errorf("refreshing token: %w", err)
	}

	newCred := models.NewCredential(resp.AccessToken, resp.RefreshToken, resp.ExpiresIn, m.now())
	if newCred.RefreshToken == "" {
		// HubSpot omits refresh_token on refresh responses; carry the
		// existing one forward.
		newCred.RefreshToken = cred.RefreshToken
	}
	m.store.Put(newCred)

	m.logger.Info("access token refreshed",
		slog.Time("expires_at", newCred.ExpiresAt),
	)

	return newCred.AccessToken, nil
}
