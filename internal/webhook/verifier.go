// Package webhook verifies and processes inbound HubSpot webhook
// notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// Verifier validates HubSpot webhook signatures. It is fail-closed: a
// missing header, missing body, or any internal failure yields false,
// never a panic or error past this boundary.
type Verifier struct {
	secret  string
	version int
	logger  *slog.Logger
}

// NewVerifier creates a signature verifier for the app's client secret
// and configured signature scheme version.
func NewVerifier(secret string, version int, logger *slog.Logger) *Verifier {
	return &Verifier{secret: secret, version: version, logger: logger}
}

// IsValid checks the signature header against the raw request body.
// The HubSpot v1/v2 scheme is HMAC-SHA256 with the client secret as key
// over the secret concatenated with the raw body, lowercase hex encoded.
// The secret appears both as the MAC key and as a literal body prefix;
// that duplication is the vendor's documented scheme, not ours to fix.
// requestURI and method are accepted for the v3 scheme, which also signs
// them along with a timestamp header; v3 is not implemented and falls
// back to the v1/v2 source string, matching upstream behavior until the
// vendor scheme is confirmed.
func (v *Verifier) IsValid(signatureHeader string, rawBody []byte, requestURI, method string) bool {
	if signatureHeader == "" || len(rawBody) == 0 {
		v.logger.Warn("webhook signature or body missing, rejecting")
		return false
	}

	if v.version == 3 {
		v.logger.Warn("v3 webhook signature validation not implemented (needs timestamp header), falling back to v1/v2 scheme")
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(v.secret))
	mac.Write(rawBody)

	computed := hex.EncodeToString(mac.Sum(nil))

	v.logger.Debug("webhook signature computed",
		slog.String("uri", requestURI),
		slog.String("method", method),
	)

	// hmac.Equal is constant-time; a plain string compare would leak the
	// first mismatching position.
	return hmac.Equal([]byte(computed), []byte(signatureHeader))
}
