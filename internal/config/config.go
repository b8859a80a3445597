// Package config loads environment-based configuration for the service.
package config

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for hubspot-integration.
type Config struct {
	// HubSpot app credentials. Required.
	ClientID     string `env:"HUBSPOT_CLIENT_ID"`
	ClientSecret string `env:"HUBSPOT_CLIENT_SECRET"`

	// OAuth redirect URI registered with the HubSpot app. Required.
	RedirectURI string `env:"HUBSPOT_REDIRECT_URI"`

	// Space-separated OAuth scopes requested during authorization.
	Scopes string `env:"HUBSPOT_SCOPES" envDefault:"crm.objects.contacts.read crm.objects.contacts.write"`

	// HubSpot endpoint URLs. Defaults point at production HubSpot;
	// overridable for tests and sandboxes.
	OAuthAuthorizeURL string `env:"HUBSPOT_OAUTH_AUTHORIZE_URL" envDefault:"https://app.hubspot.com/oauth/authorize"`
	OAuthTokenURL     string `env:"HUBSPOT_OAUTH_TOKEN_URL" envDefault:"https://api.hubapi.com/oauth/v1/token"`
	APIContactsURL    string `env:"HUBSPOT_API_CONTACTS_URL" envDefault:"https://api.hubapi.com/crm/v3/objects/contacts"`

	// WebhookSignatureVersion selects which HubSpot signature header and
	// scheme the webhook endpoint validates against (1, 2, or 3).
	WebhookSignatureVersion int `env:"HUBSPOT_WEBHOOK_SIGNATURE_VERSION" envDefault:"1"`

	// MaxOutboundRPS caps outbound HubSpot API calls per second before the
	// 429 retry policy ever engages. Zero disables the local limiter.
	MaxOutboundRPS float64 `env:"HUBSPOT_MAX_RPS" envDefault:"0"`

	// JournalPath is the bbolt file recording processed webhook event
	// identities for redelivery suppression. Empty disables the journal.
	JournalPath string `env:"WEBHOOK_JOURNAL_PATH"`

	// HTTP listen address.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the client secret to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"HUBSPOT_CLIENT_ID", c.ClientID},
		{"HUBSPOT_CLIENT_SECRET", c.ClientSecret},
		{"HUBSPOT_REDIRECT_URI", c.RedirectURI},
		{"HUBSPOT_SCOPES", c.Scopes},
		{"HUBSPOT_OAUTH_AUTHORIZE_URL", c.OAuthAuthorizeURL},
		{"HUBSPOT_OAUTH_TOKEN_URL", c.OAuthTokenURL},
		{"HUBSPOT_API_CONTACTS_URL", c.APIContactsURL},
	}

	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	switch c.WebhookSignatureVersion {
	case 1, 2, 3:
	default:
		return fmt.Errorf("HUBSPOT_WEBHOOK_SIGNATURE_VERSION must be 1, 2, or 3 (got %d)", c.WebhookSignatureVersion)
	}

	if c.MaxOutboundRPS < 0 {
		return fmt.Errorf("HUBSPOT_MAX_RPS must not be negative")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
