package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sdSaltLength = 16

// SDJWT signs credentials in selective-disclosure form (format sd-jwt):
// every subject claim becomes a salted disclosure, the issuer-signed JWT
// carries only their digests, and the wire form is jwt~disclosure~...~.
type SDJWT struct {
	cfg SigningConfig
}

// NewSDJWT validates the signing config and returns the signer.
func NewSDJWT(cfg SigningConfig) (*SDJWT, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SDJWT{cfg: cfg}, nil
}

func (s *SDJWT) Format() string {
	return FormatSDJWT
}

func (s *SDJWT) Sign(ctx context.Context, payload Payload) (*Envelope, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(payload.Claims))
	for name := range payload.Claims {
		names = append(names, name)
	}
	sort.Strings(names)

	disclosures := make([]string, 0, len(names))
	digests := make([]string, 0, len(names))
	for _, name := range names {
		disclosure, err := encodeDisclosure(name, payload.Claims[name])
		if err != nil {
			return nil, err
		}
		disclosures = append(disclosures, disclosure)

		sum := sha256.Sum256([]byte(disclosure))
		digests = append(digests, base64.RawURLEncoding.EncodeToString(sum[:]))
	}
	// Digest order must not reveal claim order.
	sort.Strings(digests)

	issuedAt := payload.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	claims := jwt.MapClaims{
		"iss":     payload.Issuer,
		"sub":     payload.Subject,
		"iat":     issuedAt.Unix(),
		"_sd":     digests,
		"_sd_alg": "sha-256",
	}
	if len(payload.Types) > 0 {
		claims["vct"] = payload.Types[len(payload.Types)-1]
	}
	if !payload.ExpiresAt.IsZero() {
		claims["exp"] = payload.ExpiresAt.Unix()
	}

	signed, err := signJWT(s.cfg, claims)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(signed)
	for _, disclosure := range disclosures {
		b.WriteString("~")
		b.WriteString(disclosure)
	}
	b.WriteString("~")

	return &Envelope{Format: FormatSDJWT, Credential: b.String()}, nil
}

func encodeDisclosure(name string, value any) (string, error) {
	salt := make([]byte, sdSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	entry, err := json.Marshal([]any{
		base64.RawURLEncoding.EncodeToString(salt),
		name,
		value,
	})
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(entry), nil
}
