package types

import (
	"fmt"

	"github.com/nhzfoundation/nhzd/common"
)

// Attachment is the type-specific payload of a transaction.
// Concrete attachment kinds are registered by (type, subtype) pair; an
// unrecognized pair that nonetheless parses as raw bytes round-trips as
// RawAttachment so replay/hash derivation still works for subtypes this
// implementation does not interpret.
type Attachment interface {
	// Bytes returns the exact wire payload, used both for
	// serialization and as input to the signed-bytes hash.
	Bytes() []byte
	// Validate runs attachment-specific well-formedness checks. It is
	// re-run by the expiration sweep so it must be pure
	// with respect to tx and height.
	Validate(tx *Transaction, height uint64) error
}

// RawAttachment carries an unrecognized attachment's bytes verbatim.
type RawAttachment struct {
	Payload []byte
}

func (a *RawAttachment) Bytes() []byte { return a.Payload }
func (a *RawAttachment) Validate(tx *Transaction, height uint64) error { return nil }

// OrdinaryPayment is the zero-attachment case: a plain NHZ transfer.
type OrdinaryPayment struct{}

func (OrdinaryPayment) Bytes() []byte                                { return nil }
func (OrdinaryPayment) Validate(tx *Transaction, height uint64) error { return nil }

// AttachmentSpec describes how to parse and gate one (type, subtype)
// attachment kind.
type AttachmentSpec struct {
	// MinHeight is the fork height at which this transaction kind is
	// enabled. Parsing a transaction of this kind below MinHeight
	// yields a NotYetEnabledError.
	MinHeight uint64
	Parse     func(payload []byte) (Attachment, error)
}

var attachmentRegistry = map[[2]byte]AttachmentSpec{
	{0, 0}: {MinHeight: 0, Parse: func(payload []byte) (Attachment, error) {
		return OrdinaryPayment{}, nil
	}},
}

// RegisterAttachment adds or replaces the spec for a (type, subtype)
// pair. Intended for use during package init by code that extends the
// attachment set; not safe for concurrent use once the node is running.
func RegisterAttachment(typ, subtype byte, spec AttachmentSpec) {
	attachmentRegistry[[2]byte{typ, subtype}] = spec
}

func parseAttachment(typ, subtype byte, height uint64, payload []byte) (Attachment, error) {
	spec, ok := attachmentRegistry[[2]byte{typ, subtype}]
	if !ok {
		return &RawAttachment{Payload: payload}, nil
	}
	if height < spec.MinHeight {
		return nil, common.NewNotYetEnabledError(fmt.Sprintf("transaction type %d/%d not yet enabled at height %d", typ, subtype, height))
	}
	return spec.Parse(payload)
}
