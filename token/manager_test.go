package token

import (
	"bytes"
	"strings"
	"testing"
)

func testSecret() []byte {
	return bytes.Repeat([]byte{0xA7}, 32)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{Secret: testSecret()})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager(Config{Secret: []byte("short")}); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := newTestManager(t)

	ids := []string{
		"5f2a9c3e-8d1b-4e6f-9a0c-7b4d2e8f1a3c",
		"x",
		"root-session-id-with-dashes-and-length",
	}
	for _, id := range ids {
		cookie := m.Encode(id)
		got, ok := m.Decode(cookie)
		if !ok {
			t.Fatalf("Decode(%q) rejected a valid token", cookie)
		}
		if got != id {
			t.Fatalf("round trip mismatch: got %q want %q", got, id)
		}
	}
}

func TestDecodeStableAcrossManagers(t *testing.T) {
	// Two managers sharing a secret must accept each other's tokens, as
	// two processes sharing the signing secret would across restarts.
	m1 := newTestManager(t)
	m2 := newTestManager(t)

	cookie := m1.Encode("abc123")
	if got, ok := m2.Decode(cookie); !ok || got != "abc123" {
		t.Fatalf("second manager rejected token: got %q ok=%v", got, ok)
	}
}

func TestDecodeRejectsBitFlippedSignature(t *testing.T) {
	m := newTestManager(t)
	cookie := m.Encode("session-under-test")

	dot := strings.IndexByte(cookie, '.')
	for i := dot + 1; i < len(cookie); i++ {
		flipped := []byte(cookie)
		flipped[i] ^= 0x01
		if _, ok := m.Decode(string(flipped)); ok {
			t.Fatalf("accepted token with flipped signature byte at %d", i)
		}
	}
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	m := newTestManager(t)
	cookie := m.Encode("session-under-test")

	flipped := []byte(cookie)
	flipped[0] ^= 0x01
	if _, ok := m.Decode(string(flipped)); ok {
		t.Fatal("accepted token with tampered payload")
	}
}

func TestDecodeRejectsWrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewManager(Config{Secret: bytes.Repeat([]byte{0x55}, 32)})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	cookie := m.Encode("session-under-test")
	if _, ok := other.Decode(cookie); ok {
		t.Fatal("accepted token signed with a different secret")
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	m := newTestManager(t)

	cases := []string{
		"",
		".",
		"payload-without-signature",
		"a.b.c",
		"!!!.###",
		m.Encode("x") + "extra",
	}
	for _, raw := range cases {
		if id, ok := m.Decode(raw); ok {
			t.Fatalf("Decode(%q) accepted malformed input, returned %q", raw, id)
		}
	}
}
