// Package types holds the wire-level transaction model: an immutable,
// parsed transaction together with its binary and JSON codecs.
package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/nhzfoundation/nhzd/common"
	"github.com/nhzfoundation/nhzd/crypto"
)

const (
	senderPublicKeyLength = 32
	signatureLength       = 64
	// MaxDeadlineMinutes bounds deadline.
	MaxDeadlineMinutes = 1440
)

// Transaction is immutable after construction. All derived
// fields (id, stringID, hash) are computed once at construction time
// from the signed bytes and never recomputed.
type Transaction struct {
	Type    byte
	Subtype byte

	Timestamp uint32
	Deadline  uint16 // minutes

	SenderPublicKey [senderPublicKeyLength]byte

	RecipientID int64 // 0 means "none" after normalization

	Amount int64
	Fee    int64

	// ReferencedTransactionID is the pre-fork representation; valid
	// when !ReferencedTransactionIsFullHash(height).
	ReferencedTransactionID int64
	// ReferencedTransactionFullHash is the post-fork representation.
	ReferencedTransactionFullHash [32]byte
	hasReferencedFullHash         bool

	Signature [signatureLength]byte

	Attachment Attachment

	// height is the chain height this transaction was parsed relative
	// to; it governs wire width and attachment gating and is not part
	// of the signed bytes.
	height uint64

	id       uint64
	hash     [32]byte
	stringID string
}

// Expiration returns the epoch-second at which this transaction expires.
func (tx *Transaction) Expiration() uint32 {
	return tx.Timestamp + uint32(tx.Deadline)*60
}

// ID is the lossy 64-bit projection of Hash used as the pool's primary
// key.
func (tx *Transaction) ID() uint64 { return tx.id }

// StringID is the unsigned decimal rendering of ID.
func (tx *Transaction) StringID() string { return tx.stringID }

// Hash is the full 32-byte SHA-256 of the signed bytes, used as the
// pool's replay-prevention key.
func (tx *Transaction) Hash() [32]byte { return tx.hash }

// Height is the fork height this transaction was parsed/constructed
// against.
func (tx *Transaction) Height() uint64 { return tx.height }

// signedBytes returns the bytes that are signed, hashed, and id-derived:
// the full wire encoding with the signature field zero-filled.
func (tx *Transaction) signedBytes() []byte {
	b := tx.encodeBinary(true)
	return b
}

// finalize computes id/hash/stringID from the current field values. It
// must run exactly once, right after every construction path (parse or
// builder), which is what keeps the type "immutable after construction".
func (tx *Transaction) finalize() {
	h := crypto.Sha256(tx.signedBytes())
	tx.hash = h
	tx.id = crypto.IDFromHash(h)
	tx.stringID = strconv.FormatUint(tx.id, 10)
}

// VerifySignature checks Signature against SenderPublicKey over the
// signed bytes. The signature primitive itself is a black box; this just calls it.
func (tx *Transaction) VerifySignature() (bool, error) {
	return crypto.Verify(tx.SenderPublicKey[:], tx.signedBytes(), tx.Signature[:])
}

// ValidateAttachment re-runs this transaction's attachment validation.
// Called both at admission and by the expiration
// sweep, which is why Attachment.Validate must be pure.
func (tx *Transaction) ValidateAttachment() error {
	if tx.Deadline > MaxDeadlineMinutes {
		return common.NewValidationError(fmt.Sprintf("deadline %d exceeds maximum %d", tx.Deadline, MaxDeadlineMinutes))
	}
	if tx.Attachment == nil {
		return common.NewValidationError("missing attachment")
	}
	return tx.Attachment.Validate(tx, tx.height)
}

// encodeBinary renders the wire form. When zeroSignature is
// true the signature field is zero-filled — used for signedBytes, i.e.
// id/hash derivation and the signing domain itself.
func (tx *Transaction) encodeBinary(zeroSignature bool) []byte {
	width := AmountWidth(tx.height)
	refIsHash := ReferencedTransactionIsFullHash(tx.height)

	size := 1 + 1 + 4 + 2 + senderPublicKeyLength + 8 + width + width + signatureLength
	if refIsHash {
		size += 32
	} else {
		size += 8
	}
	payload := tx.Attachment.Bytes()
	buf := make([]byte, size+len(payload))

	o := 0
	buf[o] = tx.Type
	o++
	buf[o] = tx.Subtype
	o++
	binary.LittleEndian.PutUint32(buf[o:], tx.Timestamp)
	o += 4
	binary.LittleEndian.PutUint16(buf[o:], tx.Deadline)
	o += 2
	copy(buf[o:], tx.SenderPublicKey[:])
	o += senderPublicKeyLength
	binary.LittleEndian.PutUint64(buf[o:], uint64(tx.RecipientID))
	o += 8
	putAmount(buf[o:o+width], tx.Amount, width)
	o += width
	putAmount(buf[o:o+width], tx.Fee, width)
	o += width
	if refIsHash {
		copy(buf[o:], tx.ReferencedTransactionFullHash[:])
		o += 32
	} else {
		binary.LittleEndian.PutUint64(buf[o:], uint64(tx.ReferencedTransactionID))
		o += 8
	}
	if !zeroSignature {
		copy(buf[o:], tx.Signature[:])
	}
	o += signatureLength
	copy(buf[o:], payload)
	return buf
}

// SerializeBinary renders the canonical wire form including signature.
func (tx *Transaction) SerializeBinary() []byte {
	return tx.encodeBinary(false)
}

func putAmount(dst []byte, v int64, width int) {
	if width == 4 {
		binary.LittleEndian.PutUint32(dst, uint32(v))
	} else {
		binary.LittleEndian.PutUint64(dst, uint64(v))
	}
}

func getAmount(src []byte, width int) int64 {
	if width == 4 {
		return int64(int32(binary.LittleEndian.Uint32(src)))
	}
	return int64(binary.LittleEndian.Uint64(src))
}

// ParseBinary parses the wire form of a transaction at the given chain
// height. Parsing failures produce a *common.ValidationError (spec
// §4.8).
func ParseBinary(data []byte, height uint64) (*Transaction, error) {
	width := AmountWidth(height)
	refIsHash := ReferencedTransactionIsFullHash(height)

	minSize := 1 + 1 + 4 + 2 + senderPublicKeyLength + 8 + width + width + signatureLength
	if refIsHash {
		minSize += 32
	} else {
		minSize += 8
	}
	if len(data) < minSize {
		return nil, common.NewValidationError("transaction too short")
	}

	tx := &Transaction{height: height}
	o := 0
	tx.Type = data[o]
	o++
	tx.Subtype = data[o]
	o++
	tx.Timestamp = binary.LittleEndian.Uint32(data[o:])
	o += 4
	tx.Deadline = binary.LittleEndian.Uint16(data[o:])
	o += 2
	copy(tx.SenderPublicKey[:], data[o:o+senderPublicKeyLength])
	o += senderPublicKeyLength
	tx.RecipientID = int64(binary.LittleEndian.Uint64(data[o:]))
	o += 8
	tx.Amount = getAmount(data[o:o+width], width)
	o += width
	tx.Fee = getAmount(data[o:o+width], width)
	o += width
	if refIsHash {
		copy(tx.ReferencedTransactionFullHash[:], data[o:o+32])
		tx.hasReferencedFullHash = true
		o += 32
	} else {
		tx.ReferencedTransactionID = int64(binary.LittleEndian.Uint64(data[o:]))
		o += 8
	}
	copy(tx.Signature[:], data[o:o+signatureLength])
	o += signatureLength

	attachment, err := parseAttachment(tx.Type, tx.Subtype, height, data[o:])
	if err != nil {
		return nil, err
	}
	tx.Attachment = attachment

	tx.finalize()
	return tx, nil
}

// jsonTransaction is the wire JSON shape: string-decimal ids, hex byte
// fields.
type jsonTransaction struct {
	Type      byte   `json:"type"`
	Subtype   byte   `json:"subtype"`
	Timestamp uint32 `json:"timestamp"`
	Deadline  uint16 `json:"deadline"`
	SenderPK  string `json:"senderPublicKey"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amountNQT"`
	Fee       string `json:"feeNQT"`
	RefFullHash string `json:"referencedTransactionFullHash,omitempty"`
	RefID       string `json:"referencedTransaction,omitempty"`
	Signature string `json:"signature"`
	Attachment string `json:"attachment,omitempty"`
	Height    uint64 `json:"-"`
}

func (tx *Transaction) toJSONStruct() jsonTransaction {
	j := jsonTransaction{
		Type:      tx.Type,
		Subtype:   tx.Subtype,
		Timestamp: tx.Timestamp,
		Deadline:  tx.Deadline,
		SenderPK:  hex.EncodeToString(tx.SenderPublicKey[:]),
		Recipient: strconv.FormatInt(tx.RecipientID, 10),
		Amount:    strconv.FormatInt(tx.Amount, 10),
		Fee:       strconv.FormatInt(tx.Fee, 10),
		Signature: hex.EncodeToString(tx.Signature[:]),
	}
	if ReferencedTransactionIsFullHash(tx.height) {
		j.RefFullHash = hex.EncodeToString(tx.ReferencedTransactionFullHash[:])
	} else if tx.ReferencedTransactionID != 0 {
		j.RefID = strconv.FormatInt(tx.ReferencedTransactionID, 10)
	}
	if payload := tx.Attachment.Bytes(); len(payload) > 0 {
		j.Attachment = hex.EncodeToString(payload)
	}
	return j
}
