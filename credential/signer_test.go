package credential

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func hmacConfig() SigningConfig {
	return SigningConfig{
		Method: MethodHS256,
		Key:    bytes.Repeat([]byte{0x3D}, 32),
		KeyID:  "key-1",
	}
}

func samplePayload() Payload {
	return Payload{
		Issuer:  "https://issuer.example.com/realms/realm-a",
		Subject: "did:example:user-1",
		Types:   []string{"VerifiableCredential", "IdentityCredential"},
		Claims: map[string]any{
			"given_name":  "Ada",
			"family_name": "Lovelace",
		},
		IssuedAt:  time.Now().Add(-time.Minute),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestSigningConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     SigningConfig
		wantErr bool
	}{
		{"valid hs256", hmacConfig(), false},
		{"short hmac key", SigningConfig{Method: MethodHS256, Key: []byte("short")}, true},
		{"valid ed25519 seed", SigningConfig{Method: MethodEd25519, Key: bytes.Repeat([]byte{1}, ed25519.SeedSize)}, false},
		{"bad ed25519 key length", SigningConfig{Method: MethodEd25519, Key: []byte("short")}, true},
		{"unknown method", SigningConfig{Method: "rs256", Key: bytes.Repeat([]byte{1}, 32)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("validate = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestJWTVCSignAndParseBack(t *testing.T) {
	signer, err := NewJWTVC(hmacConfig())
	if err != nil {
		t.Fatalf("NewJWTVC failed: %v", err)
	}

	env, err := signer.Sign(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if env.Format != FormatJWTVC {
		t.Fatalf("Format = %q", env.Format)
	}

	parsed, err := jwt.Parse(env.Credential, func(tok *jwt.Token) (any, error) {
		return hmacConfig().Key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("signed credential does not verify: %v", err)
	}
	if kid := parsed.Header["kid"]; kid != "key-1" {
		t.Fatalf("kid = %v", kid)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["iss"] != "https://issuer.example.com/realms/realm-a" {
		t.Fatalf("iss = %v", claims["iss"])
	}
	if claims["sub"] != "did:example:user-1" {
		t.Fatalf("sub = %v", claims["sub"])
	}
	vc, ok := claims["vc"].(map[string]any)
	if !ok {
		t.Fatalf("vc claim = %T", claims["vc"])
	}
	subject, ok := vc["credentialSubject"].(map[string]any)
	if !ok || subject["given_name"] != "Ada" {
		t.Fatalf("credentialSubject = %v", vc["credentialSubject"])
	}
}

func TestJWTVCSignEd25519(t *testing.T) {
	seed := bytes.Repeat([]byte{0x11}, ed25519.SeedSize)
	signer, err := NewJWTVC(SigningConfig{Method: MethodEd25519, Key: seed})
	if err != nil {
		t.Fatalf("NewJWTVC failed: %v", err)
	}

	env, err := signer.Sign(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	pub := ed25519.NewKeyFromSeed(seed).Public()
	if _, err := jwt.Parse(env.Credential, func(tok *jwt.Token) (any, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{"EdDSA"})); err != nil {
		t.Fatalf("signed credential does not verify: %v", err)
	}
}

func TestJWTVCRejectsIncompletePayload(t *testing.T) {
	signer, err := NewJWTVC(hmacConfig())
	if err != nil {
		t.Fatalf("NewJWTVC failed: %v", err)
	}
	ctx := context.Background()

	p := samplePayload()
	p.Issuer = ""
	if _, err := signer.Sign(ctx, p); err == nil {
		t.Fatal("expected error for missing issuer")
	}

	p = samplePayload()
	p.Subject = ""
	if _, err := signer.Sign(ctx, p); err == nil {
		t.Fatal("expected error for missing subject")
	}
}

func TestSDJWTDisclosures(t *testing.T) {
	signer, err := NewSDJWT(hmacConfig())
	if err != nil {
		t.Fatalf("NewSDJWT failed: %v", err)
	}

	env, err := signer.Sign(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !strings.HasSuffix(env.Credential, "~") {
		t.Fatal("sd-jwt wire form must end with a tilde")
	}

	parts := strings.Split(strings.TrimSuffix(env.Credential, "~"), "~")
	if len(parts) != 3 {
		t.Fatalf("wire form has %d segments, want jwt plus two disclosures", len(parts))
	}

	parsed, err := jwt.Parse(parts[0], func(tok *jwt.Token) (any, error) {
		return hmacConfig().Key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		t.Fatalf("issuer-signed jwt does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["_sd_alg"] != "sha-256" {
		t.Fatalf("_sd_alg = %v", claims["_sd_alg"])
	}
	if claims["vct"] != "IdentityCredential" {
		t.Fatalf("vct = %v", claims["vct"])
	}

	sd, ok := claims["_sd"].([]any)
	if !ok || len(sd) != 2 {
		t.Fatalf("_sd = %v", claims["_sd"])
	}
	digests := make(map[string]bool, len(sd))
	for _, d := range sd {
		digests[d.(string)] = true
	}

	// Every disclosure must hash to a digest in _sd, and carry salt, name,
	// value as a JSON triple.
	names := make(map[string]bool)
	for _, disclosure := range parts[1:] {
		sum := sha256.Sum256([]byte(disclosure))
		if !digests[base64.RawURLEncoding.EncodeToString(sum[:])] {
			t.Fatalf("disclosure %q not referenced by _sd", disclosure)
		}

		raw, err := base64.RawURLEncoding.DecodeString(disclosure)
		if err != nil {
			t.Fatalf("disclosure not base64url: %v", err)
		}
		var triple []any
		if err := json.Unmarshal(raw, &triple); err != nil || len(triple) != 3 {
			t.Fatalf("disclosure %q is not a [salt, name, value] triple", raw)
		}
		names[triple[1].(string)] = true
	}
	if !names["given_name"] || !names["family_name"] {
		t.Fatalf("disclosed names = %v", names)
	}

	// Plain claims must not leak beside their disclosures.
	if _, leaked := claims["given_name"]; leaked {
		t.Fatal("claim value present in the signed jwt")
	}
}

func TestSDJWTSaltsAreUnique(t *testing.T) {
	signer, err := NewSDJWT(hmacConfig())
	if err != nil {
		t.Fatalf("NewSDJWT failed: %v", err)
	}
	ctx := context.Background()

	first, err := signer.Sign(ctx, samplePayload())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	second, err := signer.Sign(ctx, samplePayload())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if first.Credential == second.Credential {
		t.Fatal("identical payloads produced identical envelopes; salts are not random")
	}
}
