// Package hubspot talks to the HubSpot OAuth and CRM REST APIs.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/andreamil/hubspot-integration/internal/errors"
	"github.com/andreamil/hubspot-integration/internal/models"
)

// requestTimeout bounds every outbound HubSpot call. A timed-out call is
// treated like any other non-429 failure: no retry.
const requestTimeout = 30 * time.Second

// Client talks to the HubSpot token endpoint and contacts API.
type Client struct {
	httpClient  *http.Client
	tokenURL    string
	contactsURL string
	redirectURI string
	logger      *slog.Logger
	invoker     *Invoker
}

// NewClient creates a HubSpot API client. If httpClient is nil, a client
// with the default request timeout is used.
func NewClient(httpClient *http.Client, tokenURL, contactsURL, redirectURI string, invoker *Invoker, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		httpClient:  httpClient,
		tokenURL:    tokenURL,
		contactsURL: contactsURL,
		redirectURI: redirectURI,
		logger:      logger,
		invoker:     invoker,
	}
}

// postForm sends a form-encoded POST to the token endpoint and decodes
// the JSON response. Non-2xx responses come back as *errors.APIError with
// the upstream status and body.
func (c *Client) postForm(ctx context.Context, form url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading token endpoint response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apperrors.APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decoding token endpoint response: %w", err)
	}

	return nil
}

// ExchangeCode trades an authorization code for tokens. Codes are
// single-use, so this call is never retried.
func (c *Client) ExchangeCode(ctx context.Context, code, clientID, clientSecret string) (models.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	c.logger.Info("exchanging authorization code for tokens")

	var resp models.TokenResponse
	if err := c.postForm(ctx, form, &resp); err != nil {
		return models.TokenResponse{}, err
	}

	return resp, nil
}

// RefreshToken trades a refresh token for a new token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (models.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("refresh_token", refreshToken)

	c.logger.Info("requesting token refresh")

	var resp models.TokenResponse
	if err := c.postForm(ctx, form, &resp); err != nil {
		return models.TokenResponse{}, err
	}

	return resp, nil
}

// contactRequest is the CRM create-contact body: the properties object
// wrapped under a "properties" key.
type contactRequest struct {
	Properties models.ContactProperties `json:"properties"`
}

// CreateContact creates a CRM contact, going through the invoker's token
// check and 429 retry policy. The raw response body is returned unmodified.
func (c *Client) CreateContact(ctx context.Context, tokens TokenSource, contact models.ContactProperties) (string, error) {
	payload, err := json.Marshal(contactRequest{Properties: contact})
	if err != nil {
		return "", fmt.Errorf("marshalling contact: %w", err)
	}

	c.logger.Info("creating contact", slog.String("email", contact.Email))

	return c.invoker.Invoke(ctx, tokens, func(ctx context.Context, token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.contactsURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		return req, nil
	})
}
