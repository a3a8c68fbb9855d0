package credential

import (
	"context"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const defaultDocType = "org.iso.18013.5.1.mDL"

// MDoc signs credentials in the mobile-document format (mso_mdoc): a CBOR
// COSE_Sign1 structure whose payload is the mobile security object carrying
// salted digests of the issuer-signed items.
type MDoc struct {
	cfg     SigningConfig
	docType string
}

type mdocItem struct {
	DigestID     uint   `cbor:"digestID"`
	Random       []byte `cbor:"random"`
	ElementID    string `cbor:"elementIdentifier"`
	ElementValue any    `cbor:"elementValue"`
}

type mdocSecurityObject struct {
	Version      string          `cbor:"version"`
	DigestAlg    string          `cbor:"digestAlgorithm"`
	DocType      string          `cbor:"docType"`
	ValueDigests map[uint][]byte `cbor:"valueDigests"`
	Subject      string          `cbor:"subject"`
	Issuer       string          `cbor:"issuer"`
	Signed       int64           `cbor:"signed"`
	ValidUntil   int64           `cbor:"validUntil,omitempty"`
}

type coseSign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected map[int]any
	Payload     []byte
	Signature   []byte
}

type mdocEnvelope struct {
	DocType    string              `cbor:"docType"`
	NameSpaces map[string][][]byte `cbor:"nameSpaces"`
	IssuerAuth cbor.RawMessage     `cbor:"issuerAuth"`
}

// NewMDoc validates the signing config and returns the signer. docType
// defaults to the ISO mDL document type when empty.
func NewMDoc(cfg SigningConfig, docType string) (*MDoc, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if docType == "" {
		docType = defaultDocType
	}
	return &MDoc{cfg: cfg, docType: docType}, nil
}

func (s *MDoc) Format() string {
	return FormatMDoc
}

func (s *MDoc) Sign(ctx context.Context, payload Payload) (*Envelope, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}

	issuedAt := payload.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	items, digests, err := buildIssuerItems(payload.Claims)
	if err != nil {
		return nil, err
	}

	mso := mdocSecurityObject{
		Version:      "1.0",
		DigestAlg:    "SHA-256",
		DocType:      s.docType,
		ValueDigests: digests,
		Subject:      payload.Subject,
		Issuer:       payload.Issuer,
		Signed:       issuedAt.Unix(),
	}
	if !payload.ExpiresAt.IsZero() {
		mso.ValidUntil = payload.ExpiresAt.Unix()
	}

	msoBytes, err := cbor.Marshal(mso)
	if err != nil {
		return nil, err
	}

	issuerAuth, err := s.signCOSE(msoBytes)
	if err != nil {
		return nil, err
	}

	envelope := mdocEnvelope{
		DocType:    s.docType,
		NameSpaces: map[string][][]byte{s.docType: items},
		IssuerAuth: issuerAuth,
	}

	encoded, err := cbor.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Format:     FormatMDoc,
		Credential: base64.RawURLEncoding.EncodeToString(encoded),
	}, nil
}

func buildIssuerItems(claims map[string]any) ([][]byte, map[uint][]byte, error) {
	items := make([][]byte, 0, len(claims))
	digests := make(map[uint][]byte, len(claims))

	var digestID uint
	for name, value := range claims {
		random, err := randomSalt(sdSaltLength)
		if err != nil {
			return nil, nil, err
		}

		item := mdocItem{
			DigestID:     digestID,
			Random:       random,
			ElementID:    name,
			ElementValue: value,
		}
		encoded, err := cbor.Marshal(item)
		if err != nil {
			return nil, nil, err
		}

		sum := sha256.Sum256(encoded)
		items = append(items, encoded)
		digests[digestID] = sum[:]
		digestID++
	}

	return items, digests, nil
}

func (s *MDoc) signCOSE(payload []byte) (cbor.RawMessage, error) {
	var alg int
	switch s.cfg.Method {
	case MethodEd25519:
		alg = -8 // COSE EdDSA
	default:
		alg = 5 // COSE HMAC 256/256
	}

	protected, err := cbor.Marshal(map[int]any{1: alg})
	if err != nil {
		return nil, err
	}

	sigStructure, err := cbor.Marshal([]any{"Signature1", protected, []byte{}, payload})
	if err != nil {
		return nil, err
	}

	var signature []byte
	switch s.cfg.Method {
	case MethodEd25519:
		signature = ed25519.Sign(s.cfg.ed25519Key(), sigStructure)
	default:
		mac := hmac.New(sha256.New, s.cfg.Key)
		mac.Write(sigStructure)
		signature = mac.Sum(nil)
	}

	signed := coseSign1{
		Protected:   protected,
		Unprotected: map[int]any{},
		Payload:     payload,
		Signature:   signature,
	}
	if s.cfg.KeyID != "" {
		signed.Unprotected[4] = []byte(s.cfg.KeyID)
	}

	return cbor.Marshal(signed)
}

func randomSalt(n int) ([]byte, error) {
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}
