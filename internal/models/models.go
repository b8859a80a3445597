// Package models defines types shared across internal packages.
package models

import "time"

// expirySafetyMargin is subtracted from the nominal token lifetime so a
// token is treated as expired slightly before HubSpot actually rejects it.
const expirySafetyMargin = 60 * time.Second

// Credential is the single stored HubSpot OAuth credential: the
// access/refresh token pair plus its computed expiry instant. A Credential
// is immutable once constructed; a refresh produces a new one.
type Credential struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// NewCredential builds a Credential from a token endpoint response,
// applying the expiry safety margin. lifetime is the upstream expires_in
// value in seconds.
func NewCredential(accessToken, refreshToken string, lifetime int64, now time.Time) Credential {
	c := Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		IssuedAt:     now,
	}
	if lifetime > 0 {
		c.ExpiresAt = now.Add(time.Duration(lifetime)*time.Second - expirySafetyMargin)
	}

	return c
}

// Expired reports whether the credential should no longer be used at the
// given instant. A zero ExpiresAt never expires (upstream sent no
// expires_in), matching the token endpoint contract.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// TokenResponse is the HubSpot OAuth token endpoint response body, shared
// by the authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type,omitempty"`
}

// ContactProperties holds the fields accepted by the create-contact
// endpoint. Email is required; the rest are optional.
type ContactProperties struct {
	Email     string `json:"email"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WebhookEvent is a single HubSpot webhook notification. Deliveries carry
// a JSON array of these; unknown fields are ignored.
type WebhookEvent struct {
	ObjectID         int64  `json:"objectId"`
	SubscriptionType string `json:"subscriptionType"`
	PortalID         int64  `json:"portalId"`
	OccurredAt       int64  `json:"occurredAt"`
	PropertyName     string `json:"propertyName,omitempty"`
	PropertyValue    string `json:"propertyValue,omitempty"`
}
