package p2p

import (
	"encoding/binary"
	"strings"

	"github.com/nhzfoundation/nhzd/common"
	"github.com/nhzfoundation/nhzd/crypto"
)

// hallmarkPublicKeyLength matches crypto.PublicKeyLength; kept as its own
// constant because the wire layout is a protocol detail, not a crypto one.
const hallmarkPublicKeyLength = crypto.PublicKeyLength

// Hallmark is a signed credential binding a host to an account public key
// and a weight factor. Verification
// steps: parse, re-derive the signed bytes, verify the signature, and
// check the bound host against the peer's actual host.
type Hallmark struct {
	PublicKey    [hallmarkPublicKeyLength]byte
	Host         string
	WeightFactor int32
	Date         uint32 // epoch-seconds the hallmark was issued
	Nonce        uint32 // issuer-chosen value binding this hallmark to one issuance
	Signature    [crypto.SignatureLength]byte
}

// AccountID derives the account identity bound to the hallmark. The
// account-id projection is the same lossy 64-bit scheme used for
// transaction ids, applied to the hallmark's public key.
func (h *Hallmark) AccountID() int64 {
	sum := crypto.Sha256(h.PublicKey[:])
	return int64(crypto.IDFromHash(sum))
}

func (h *Hallmark) signedBytes() []byte {
	host := []byte(h.Host)
	buf := make([]byte, hallmarkPublicKeyLength+2+len(host)+4+4+4)
	o := 0
	copy(buf[o:], h.PublicKey[:])
	o += hallmarkPublicKeyLength
	binary.LittleEndian.PutUint16(buf[o:], uint16(len(host)))
	o += 2
	copy(buf[o:], host)
	o += len(host)
	binary.LittleEndian.PutUint32(buf[o:], uint32(h.WeightFactor))
	o += 4
	binary.LittleEndian.PutUint32(buf[o:], h.Date)
	o += 4
	binary.LittleEndian.PutUint32(buf[o:], h.Nonce)
	return buf
}

// Bytes renders the wire form of the hallmark: signed bytes followed by
// the detached signature.
func (h *Hallmark) Bytes() []byte {
	return append(h.signedBytes(), h.Signature[:]...)
}

// ParseHallmark parses the wire form produced by Bytes. Malformed input
// yields a *common.ValidationError.
func ParseHallmark(data []byte) (*Hallmark, error) {
	if len(data) < hallmarkPublicKeyLength+2 {
		return nil, common.NewValidationError("hallmark too short")
	}
	h := &Hallmark{}
	o := 0
	copy(h.PublicKey[:], data[o:o+hallmarkPublicKeyLength])
	o += hallmarkPublicKeyLength
	hostLen := int(binary.LittleEndian.Uint16(data[o:]))
	o += 2
	if len(data) < o+hostLen+4+4+4+crypto.SignatureLength {
		return nil, common.NewValidationError("hallmark truncated")
	}
	h.Host = string(data[o : o+hostLen])
	o += hostLen
	h.WeightFactor = int32(binary.LittleEndian.Uint32(data[o:]))
	o += 4
	h.Date = binary.LittleEndian.Uint32(data[o:])
	o += 4
	h.Nonce = binary.LittleEndian.Uint32(data[o:])
	o += 4
	copy(h.Signature[:], data[o:o+crypto.SignatureLength])
	return h, nil
}

// Verify checks the hallmark's signature and confirms it is bound to
// actualHost. A hallmark whose host does not match
// the peer's declared host is treated as absent by the caller, not as an
// error here — Verify only reports cryptographic and binding validity.
func (h *Hallmark) Verify(actualHost string) (bool, error) {
	if !strings.EqualFold(h.Host, actualHost) {
		return false, nil
	}
	return crypto.Verify(h.PublicKey[:], h.signedBytes(), h.Signature[:])
}

// EffectiveWeight derives a peer's weight from its hallmark and the
// bound account's effective balance. balanceNHZ is already
// denominated in whole NHZ (glossary "Effective balance").
func (h *Hallmark) EffectiveWeight(balanceNHZ int64) int64 {
	if balanceNHZ < int64(h.WeightFactor) {
		return balanceNHZ
	}
	return int64(h.WeightFactor)
}
