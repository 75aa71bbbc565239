package p2p

import (
	"testing"

	"golang.org/x/crypto/ed25519"

	"github.com/nhzfoundation/nhzd/crypto"
)

func signedHallmark(t *testing.T, host string, weightFactor int32, date uint32) (*Hallmark, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	h := &Hallmark{Host: host, WeightFactor: weightFactor, Date: date}
	copy(h.PublicKey[:], pub)
	sig := crypto.Sign(priv, h.signedBytes())
	copy(h.Signature[:], sig)
	return h, pub
}

func TestHallmarkRoundTripBytes(t *testing.T) {
	h, _ := signedHallmark(t, "peer.example.org", 500, 123456)

	parsed, err := ParseHallmark(h.Bytes())
	if err != nil {
		t.Fatalf("ParseHallmark: %v", err)
	}
	if parsed.Host != h.Host || parsed.WeightFactor != h.WeightFactor || parsed.Date != h.Date {
		t.Fatalf("round trip mismatch: got %+v, want %+v", parsed, h)
	}
	if parsed.PublicKey != h.PublicKey || parsed.Signature != h.Signature {
		t.Fatal("round trip lost key/signature bytes")
	}
}

func TestHallmarkVerifySucceedsForMatchingHost(t *testing.T) {
	h, _ := signedHallmark(t, "Peer.Example.ORG", 500, 1)

	ok, err := h.Verify("peer.example.org")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected a case-insensitive host match to verify")
	}
}

func TestHallmarkVerifyFailsForHostMismatch(t *testing.T) {
	h, _ := signedHallmark(t, "peer.example.org", 500, 1)

	ok, err := h.Verify("other.example.org")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected host mismatch to fail verification")
	}
}

func TestHallmarkVerifyFailsForTamperedWeight(t *testing.T) {
	h, _ := signedHallmark(t, "peer.example.org", 500, 1)
	h.WeightFactor = 999999

	ok, err := h.Verify("peer.example.org")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected a tampered weight factor to invalidate the signature")
	}
}

func TestHallmarkEffectiveWeight(t *testing.T) {
	h := &Hallmark{WeightFactor: 500}

	if w := h.EffectiveWeight(100); w != 100 {
		t.Fatalf("balance below factor: got %d, want 100", w)
	}
	if w := h.EffectiveWeight(500); w != 500 {
		t.Fatalf("balance equal to factor: got %d, want 500", w)
	}
	if w := h.EffectiveWeight(10000); w != 500 {
		t.Fatalf("balance above factor: got %d, want 500", w)
	}
}

func TestParseHallmarkRejectsTruncatedInput(t *testing.T) {
	if _, err := ParseHallmark([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for truncated input")
	}
}

func TestHallmarkRoundTripPreservesNonce(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	h := &Hallmark{Host: "peer.example.org", WeightFactor: 500, Date: 1, Nonce: 777}
	copy(h.PublicKey[:], pub)
	sig := crypto.Sign(priv, h.signedBytes())
	copy(h.Signature[:], sig)

	parsed, err := ParseHallmark(h.Bytes())
	if err != nil {
		t.Fatalf("ParseHallmark: %v", err)
	}
	if parsed.Nonce != 777 {
		t.Fatalf("expected nonce to round trip, got %d", parsed.Nonce)
	}

	ok, err := parsed.Verify("peer.example.org")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify with the nonce included in the signed bytes")
	}
}

func TestHallmarkVerifyFailsForTamperedNonce(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	h := &Hallmark{Host: "peer.example.org", WeightFactor: 500, Date: 1, Nonce: 1}
	copy(h.PublicKey[:], pub)
	sig := crypto.Sign(priv, h.signedBytes())
	copy(h.Signature[:], sig)

	h.Nonce = 2
	ok, err := h.Verify("peer.example.org")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expected a tampered nonce to invalidate the signature")
	}
}
