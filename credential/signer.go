package credential

import (
	"context"
	"crypto/ed25519"
	"errors"
	"time"
)

// Credential envelope format identifiers, used as registry keys.
const (
	FormatJWTVC = "jwt_vc"
	FormatSDJWT = "sd-jwt"
	FormatMDoc  = "mso_mdoc"
)

// Payload is the format-agnostic credential content handed to a signer.
type Payload struct {
	Issuer  string
	Subject string

	// Types are the credential type designators (e.g. VerifiableCredential
	// plus a domain type).
	Types []string

	// Claims are the subject claims to package into the envelope.
	Claims map[string]any

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Envelope is a signed verifiable credential in one concrete format.
type Envelope struct {
	Format     string
	Credential string
}

// Signer packages a credential payload into a signed envelope. Instances are
// built once at startup through the capability registry and must be safe for
// concurrent use; they carry signing configuration only.
type Signer interface {
	Format() string
	Sign(ctx context.Context, payload Payload) (*Envelope, error)
}

// Signing method identifiers shared by the built-in signers.
const (
	MethodHS256   = "hs256"
	MethodEd25519 = "ed25519"
)

const minHMACKeyLength = 32

// SigningConfig carries issuer-scoped key material for a signer.
type SigningConfig struct {
	Method string
	Key    []byte
	KeyID  string
}

func (c SigningConfig) validate() error {
	switch c.Method {
	case MethodHS256:
		if len(c.Key) < minHMACKeyLength {
			return errors.New("hs256 requires a key of at least 32 bytes")
		}
	case MethodEd25519:
		if len(c.Key) != ed25519.SeedSize && len(c.Key) != ed25519.PrivateKeySize {
			return errors.New("ed25519 requires a 32-byte seed or 64-byte private key")
		}
	default:
		return errors.New("unsupported signing method")
	}
	return nil
}

func (c SigningConfig) ed25519Key() ed25519.PrivateKey {
	if len(c.Key) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(c.Key)
	}
	return ed25519.PrivateKey(c.Key)
}

func validatePayload(p Payload) error {
	if p.Issuer == "" {
		return errors.New("credential payload requires an issuer")
	}
	if p.Subject == "" {
		return errors.New("credential payload requires a subject")
	}
	return nil
}
