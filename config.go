package keycloak

import (
	"errors"
	"time"
)

// Config defines the engine's static configuration. Instances are intended
// to be set up during initialization and then treated as immutable.
type Config struct {
	Session    SessionConfig
	Token      TokenConfig
	ReAuth     ReAuthConfig
	Events     EventsConfig
	Credential CredentialConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session store.
type SessionConfig struct {
	RedisPrefix string

	// MaxLifespan is the absolute lifetime of a root authentication
	// session. Abandoned in-progress steps are reclaimed only by this
	// expiry; there is no per-step timeout.
	MaxLifespan time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig carries the cookie-signing secret. Every process sharing
// sessions must share the secret; identifiers stay valid across restarts.
type TokenConfig struct {
	Secret []byte
}

/*
====================================
RE-AUTH CONFIG
====================================
*/

// ReAuthConfig is the default re-authentication policy, used by the static
// policy source when no [PolicySource] is injected.
type ReAuthConfig struct {
	// EnforceMaxAuthAge turns the MaxAuthAge constraint on. A zero
	// MaxAuthAge with enforcement on forces fresh login on every check.
	EnforceMaxAuthAge bool
	MaxAuthAge        time.Duration
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig controls the async event dispatcher.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// CredentialConfig enables the built-in verifiable-credential signers
// (jwt_vc, sd-jwt, mso_mdoc) with shared issuer key material. Additional or
// replacement signers register through [Builder.WithCredentialSigner].
type CredentialConfig struct {
	Enabled       bool
	SigningMethod string // "hs256" (default) or "ed25519"
	SigningKey    []byte
	KeyID         string
	MDocDocType   string
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix: "authsess",
			MaxLifespan: 30 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Credential: CredentialConfig{
			SigningMethod: "hs256",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Credential.SigningKey = cloneBytes(cfg.Credential.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks invariants the builder relies on.
func (c Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("Token.Secret must be at least 32 bytes")
	}
	if c.Session.MaxLifespan <= 0 {
		return errors.New("Session.MaxLifespan must be positive")
	}
	if c.ReAuth.MaxAuthAge < 0 {
		return errors.New("ReAuth.MaxAuthAge cannot be negative")
	}
	if c.Events.Enabled && c.Events.BufferSize < 0 {
		return errors.New("Events.BufferSize cannot be negative")
	}
	if c.Credential.Enabled && len(c.Credential.SigningKey) == 0 {
		return errors.New("Credential.SigningKey required when credential signing is enabled")
	}
	return nil
}
