package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

const minSecretLength = 32

// Config carries the signing secret for session identifiers. The secret must
// be shared by every process that issues or validates cookies; rotating it
// invalidates all outstanding identifiers at once.
type Config struct {
	Secret []byte
}

// Manager signs and validates cookie-carried session identifiers. The wire
// form is base64url(id) + "." + base64url(hmac-sha256(id)), stable across
// restarts that share the same secret.
type Manager struct {
	secret []byte
}

// NewManager validates the config and returns a signer.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	return &Manager{secret: secret}, nil
}

// Encode produces the signed cookie value for a root session id.
func (m *Manager) Encode(rootID string) string {
	payload := base64.RawURLEncoding.EncodeToString([]byte(rootID))
	return payload + "." + base64.RawURLEncoding.EncodeToString(m.sign(payload))
}

// strictB64 rejects non-canonical encodings, so every id has exactly one
// valid cookie form.
var strictB64 = base64.RawURLEncoding.Strict()

// Decode validates a cookie value and returns the embedded root session id.
// Every failure mode, wrong structure, bad encoding, signature mismatch,
// yields ("", false). Callers must treat all of them as "no session";
// nothing about why validation failed may leak to the network.
func (m *Manager) Decode(raw string) (string, bool) {
	payload, sig, ok := strings.Cut(raw, ".")
	if !ok || payload == "" || sig == "" {
		return "", false
	}

	gotSig, err := strictB64.DecodeString(sig)
	if err != nil {
		return "", false
	}

	if !hmac.Equal(gotSig, m.sign(payload)) {
		return "", false
	}

	id, err := strictB64.DecodeString(payload)
	if err != nil || len(id) == 0 {
		return "", false
	}

	return string(id), true
}

func (m *Manager) sign(payload string) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}
