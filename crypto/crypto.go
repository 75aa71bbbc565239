// Package crypto wraps the signature primitives the rest of the node
// treats as a black box: SHA-256 id/hash derivation for transactions,
// and signature verification for both transactions and hallmarks.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/ed25519"
)

// HashLength is the size in bytes of a transaction's full hash.
const HashLength = 32

// SignatureLength is the size in bytes of a detached signature.
const SignatureLength = ed25519.SignatureSize

// PublicKeyLength is the size in bytes of a sender public key.
const PublicKeyLength = ed25519.PublicKeySize

var ErrInvalidSignature = errors.New("invalid signature")

// Sha256 hashes data and returns the full 32-byte digest.
func Sha256(data ...[]byte) [HashLength]byte {
	h := sha256.New()
	for _, b := range data {
		h.Write(b)
	}
	var out [HashLength]byte
	h.Sum(out[:0])
	return out
}

// IDFromHash projects a full hash down to the lossy 64-bit little-endian
// identifier used as the pool's primary key.
func IDFromHash(hash [HashLength]byte) uint64 {
	return binary.LittleEndian.Uint64(hash[:8])
}

// Sign produces a detached signature over message using priv. Exposed
// mainly for tests and for locally-originated transactions; remote
// transactions arrive pre-signed and are only ever verified.
func Sign(priv, message []byte) []byte {
	return ed25519.Sign(priv, message)
}

// Verify checks a detached signature over message against pubKey. It
// never returns an error for a well-formed-but-wrong signature: false is
// the answer, not an error; malformed key/signature lengths are errors
// because they indicate a parsing bug upstream, not a rejected input.
func Verify(pubKey, message, signature []byte) (bool, error) {
	if len(pubKey) != PublicKeyLength {
		return false, errors.New("crypto: bad public key length")
	}
	if len(signature) != SignatureLength {
		return false, errors.New("crypto: bad signature length")
	}
	return ed25519.Verify(pubKey, message, signature), nil
}
