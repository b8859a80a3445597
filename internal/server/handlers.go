package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/andreamil/hubspot-integration/internal/auth"
	apperrors "github.com/andreamil/hubspot-integration/internal/errors"
	"github.com/andreamil/hubspot-integration/internal/hubspot"
	"github.com/andreamil/hubspot-integration/internal/models"
	"github.com/andreamil/hubspot-integration/internal/webhook"
)

// Header names HubSpot uses for webhook signatures, by scheme version.
const (
	signatureHeaderV1V2 = "X-HubSpot-Signature"
	signatureHeaderV3   = "X-HubSpot-Signature-v3"
)

// maxWebhookBody caps webhook request bodies. HubSpot batches at most a
// few hundred events per delivery; 1 MiB is generous.
const maxWebhookBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	// Upstream diagnostics, present when HubSpot rejected a call.
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamBody   string `json:"upstream_body,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: missing
// authorization → 401, exhausted rate-limit budget → 429, upstream
// rejections → the upstream status with its body attached, anything
// else → 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotAuthorized), errors.Is(err, apperrors.ErrRefreshTokenMissing):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		var apiErr *apperrors.APIError
		if errors.As(err, &apiErr) {
			writeJSON(w, apiErr.Status, errorResponse{
				Error:          "HubSpot API call failed",
				UpstreamStatus: apiErr.Status,
				UpstreamBody:   apiErr.Body,
			})

			return
		}

		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// HandleAuthorize returns the /authorize handler: issues a state nonce
// and redirects the browser to HubSpot's consent page.
func HandleAuthorize(states *auth.StateStore, authorizeURL, clientID, scopes, redirectURI string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		state := states.Issue()
		target := auth.AuthorizeURL(authorizeURL, clientID, scopes, redirectURI, state)

		logger.Info("starting authorization flow", slog.String("state", state))

		http.Redirect(w, r, target, http.StatusFound)
	}
}

// HandleCallback returns the /oauth-callback handler: validates the state
// nonce, exchanges the authorization code, and stores the credential.
func HandleCallback(manager *auth.Manager, states *auth.StateStore, clientID, clientSecret string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		if code == "" {
			writeError(w, http.StatusBadRequest, "code query parameter is required")
			return
		}

		if !states.Consume(state) {
			logger.Warn("callback state mismatch, possible CSRF")
			writeError(w, http.StatusUnauthorized, "invalid or expired state")

			return
		}

		cred, err := manager.Acquire(r.Context(), code, clientID, clientSecret)
		if err != nil {
			logger.Error("authorization code exchange failed", slog.String("error", err.Error()))
			writeDomainError(w, err)

			return
		}

		logger.Info("authorization complete")

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "authorized",
			"expires_at": cred.ExpiresAt,
		})
	}
}

// HandleCreateContact returns the POST /contacts handler.
func HandleCreateContact(client *hubspot.Client, tokens hubspot.TokenSource, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var contact models.ContactProperties
		if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if contact.Email == "" {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}

		if _, err := mail.ParseAddress(contact.Email); err != nil {
			writeError(w, http.StatusBadRequest, "email must be a valid address")
			return
		}

		body, err := client.CreateContact(r.Context(), tokens, contact)
		if err != nil {
			logger.Error("contact creation failed",
				slog.String("email", contact.Email),
				slog.String("error", err.Error()),
			)
			writeDomainError(w, err)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(body))
	}
}

// HandleWebhook returns the POST /webhooks/hubspot-events handler.
// The signature is verified over the raw body before anything is parsed;
// a rejected delivery has no side effects.
func HandleWebhook(verifier *webhook.Verifier, events *webhook.Processor, signatureVersion int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading request body failed")
			return
		}

		signature := r.Header.Get(signatureHeaderV1V2)
		if signatureVersion == 3 {
			signature = r.Header.Get(signatureHeaderV3)
		}

		requestURI := r.URL.RequestURI()

		logger.Info("webhook received", slog.String("uri", requestURI))

		if !verifier.IsValid(signature, body, requestURI, r.Method) {
			logger.Warn("webhook signature invalid, rejecting delivery")
			writeError(w, http.StatusUnauthorized, "invalid signature")

			return
		}

		parsed, err := webhook.ParseEvents(body)
		if err != nil {
			logger.Error("webhook payload unparseable", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "invalid webhook payload")

			return
		}

		events.Process(r.Context(), parsed)

		writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	}
}

// HandleHealthz returns a liveness probe handler.
func HandleHealthz() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
