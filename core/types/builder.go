package types

import "github.com/nhzfoundation/nhzd/crypto"

// Builder assembles a new Transaction. Used by tests and by the node's
// own transaction origination path; transactions arriving over the wire
// always go through ParseBinary/ParseJSON instead.
type Builder struct {
	tx Transaction
}

func NewBuilder(height uint64) *Builder {
	return &Builder{tx: Transaction{height: height, Attachment: OrdinaryPayment{}}}
}

func (b *Builder) Type(t, subtype byte) *Builder {
	b.tx.Type, b.tx.Subtype = t, subtype
	return b
}

func (b *Builder) Timestamp(ts uint32) *Builder {
	b.tx.Timestamp = ts
	return b
}

func (b *Builder) Deadline(minutes uint16) *Builder {
	b.tx.Deadline = minutes
	return b
}

func (b *Builder) SenderPublicKey(pk []byte) *Builder {
	copy(b.tx.SenderPublicKey[:], pk)
	return b
}

func (b *Builder) Recipient(id int64) *Builder {
	b.tx.RecipientID = id
	return b
}

func (b *Builder) Amount(amount int64) *Builder {
	b.tx.Amount = amount
	return b
}

func (b *Builder) Fee(fee int64) *Builder {
	b.tx.Fee = fee
	return b
}

func (b *Builder) Attachment(a Attachment) *Builder {
	b.tx.Attachment = a
	return b
}

// Sign finalizes the transaction: it computes the signed bytes with a
// zero signature, signs them with priv, stores the signature, and
// derives id/hash. The returned Transaction is immutable from here on.
func (b *Builder) Sign(priv []byte) *Transaction {
	tx := b.tx
	sig := crypto.Sign(priv, tx.signedBytes())
	copy(tx.Signature[:], sig)
	tx.finalize()
	return &tx
}
