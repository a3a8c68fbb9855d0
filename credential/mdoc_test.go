package credential

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestMDocSign(t *testing.T) {
	signer, err := NewMDoc(hmacConfig(), "")
	if err != nil {
		t.Fatalf("NewMDoc failed: %v", err)
	}

	env, err := signer.Sign(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if env.Format != FormatMDoc {
		t.Fatalf("Format = %q", env.Format)
	}

	raw, err := base64.RawURLEncoding.DecodeString(env.Credential)
	if err != nil {
		t.Fatalf("envelope not base64url: %v", err)
	}

	var envelope mdocEnvelope
	if err := cbor.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("envelope not cbor: %v", err)
	}
	if envelope.DocType != defaultDocType {
		t.Fatalf("docType = %q", envelope.DocType)
	}

	items := envelope.NameSpaces[defaultDocType]
	if len(items) != 2 {
		t.Fatalf("issuer-signed items = %d, want 2", len(items))
	}

	var auth coseSign1
	if err := cbor.Unmarshal(envelope.IssuerAuth, &auth); err != nil {
		t.Fatalf("issuerAuth not a COSE_Sign1: %v", err)
	}

	var mso mdocSecurityObject
	if err := cbor.Unmarshal(auth.Payload, &mso); err != nil {
		t.Fatalf("COSE payload not a security object: %v", err)
	}
	if mso.DocType != defaultDocType || mso.DigestAlg != "SHA-256" {
		t.Fatalf("security object = %+v", mso)
	}
	if mso.Subject != "did:example:user-1" {
		t.Fatalf("subject = %q", mso.Subject)
	}

	// Every issuer-signed item must match its digest in the security object.
	seen := make(map[string]bool)
	for _, item := range items {
		var decoded mdocItem
		if err := cbor.Unmarshal(item, &decoded); err != nil {
			t.Fatalf("item not cbor: %v", err)
		}
		seen[decoded.ElementID] = true

		sum := sha256.Sum256(item)
		if !bytes.Equal(mso.ValueDigests[decoded.DigestID], sum[:]) {
			t.Fatalf("digest mismatch for %q", decoded.ElementID)
		}
		if len(decoded.Random) == 0 {
			t.Fatalf("item %q carries no salt", decoded.ElementID)
		}
	}
	if !seen["given_name"] || !seen["family_name"] {
		t.Fatalf("element ids = %v", seen)
	}

	// Recompute the HMAC over the Sig_structure.
	sigStructure, err := cbor.Marshal([]any{"Signature1", auth.Protected, []byte{}, auth.Payload})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	mac := hmac.New(sha256.New, hmacConfig().Key)
	mac.Write(sigStructure)
	if !hmac.Equal(auth.Signature, mac.Sum(nil)) {
		t.Fatal("issuerAuth signature does not verify")
	}
}

func TestMDocCustomDocType(t *testing.T) {
	signer, err := NewMDoc(hmacConfig(), "com.example.identity")
	if err != nil {
		t.Fatalf("NewMDoc failed: %v", err)
	}

	env, err := signer.Sign(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(env.Credential)
	if err != nil {
		t.Fatalf("envelope not base64url: %v", err)
	}
	var envelope mdocEnvelope
	if err := cbor.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("envelope not cbor: %v", err)
	}
	if envelope.DocType != "com.example.identity" {
		t.Fatalf("docType = %q", envelope.DocType)
	}
	if _, ok := envelope.NameSpaces["com.example.identity"]; !ok {
		t.Fatalf("namespaces = %v", envelope.NameSpaces)
	}
}
