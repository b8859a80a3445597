// Package server provides HTTP server construction for hubspot-integration.
package server

import (
	"log/slog"
	"net/http"

	"github.com/andreamil/hubspot-integration/internal/auth"
	"github.com/andreamil/hubspot-integration/internal/hubspot"
	"github.com/andreamil/hubspot-integration/internal/webhook"
)

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	Manager  *auth.Manager
	States   *auth.StateStore
	Client   *hubspot.Client
	Verifier *webhook.Verifier
	Events   *webhook.Processor
	Logger   *slog.Logger

	ClientID          string
	ClientSecret      string
	Scopes            string
	RedirectURI       string
	OAuthAuthorizeURL string
	SignatureVersion  int
}

// NewMux builds the HTTP mux with the authorization flow, contact
// creation, and webhook endpoints.
func NewMux(cfg MuxConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", HandleAuthorize(cfg.States, cfg.OAuthAuthorizeURL, cfg.ClientID, cfg.Scopes, cfg.RedirectURI, cfg.Logger))
	mux.HandleFunc("/oauth-callback", HandleCallback(cfg.Manager, cfg.States, cfg.ClientID, cfg.ClientSecret, cfg.Logger))
	mux.HandleFunc("/contacts", HandleCreateContact(cfg.Client, cfg.Manager, cfg.Logger))
	mux.HandleFunc("/webhooks/hubspot-events", HandleWebhook(cfg.Verifier, cfg.Events, cfg.SignatureVersion, cfg.Logger))
	mux.HandleFunc("/healthz", HandleHealthz())

	return Logging(cfg.Logger)(mux)
}
