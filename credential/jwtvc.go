package credential

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVC signs credentials as enveloped JWTs (format jwt_vc): the payload
// claims travel inside a "vc" claim next to the registered claims.
type JWTVC struct {
	cfg SigningConfig
}

// NewJWTVC validates the signing config and returns the signer.
func NewJWTVC(cfg SigningConfig) (*JWTVC, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &JWTVC{cfg: cfg}, nil
}

func (s *JWTVC) Format() string {
	return FormatJWTVC
}

func (s *JWTVC) Sign(ctx context.Context, payload Payload) (*Envelope, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	issuedAt := payload.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	vc := map[string]any{
		"credentialSubject": payload.Claims,
	}
	if len(payload.Types) > 0 {
		vc["type"] = payload.Types
	}

	claims := jwt.MapClaims{
		"iss": payload.Issuer,
		"sub": payload.Subject,
		"iat": issuedAt.Unix(),
		"vc":  vc,
	}
	if !payload.ExpiresAt.IsZero() {
		claims["exp"] = payload.ExpiresAt.Unix()
	}

	signed, err := signJWT(s.cfg, claims)
	if err != nil {
		return nil, err
	}

	return &Envelope{Format: FormatJWTVC, Credential: signed}, nil
}

func signJWT(cfg SigningConfig, claims jwt.MapClaims) (string, error) {
	var (
		method jwt.SigningMethod
		key    any
	)
	switch cfg.Method {
	case MethodEd25519:
		method = jwt.SigningMethodEdDSA
		key = cfg.ed25519Key()
	default:
		method = jwt.SigningMethodHS256
		key = cfg.Key
	}

	token := jwt.NewWithClaims(method, claims)
	if cfg.KeyID != "" {
		token.Header["kid"] = cfg.KeyID
	}
	return token.SignedString(key)
}
