package types

import (
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/nhzfoundation/nhzd/common"
)

// SerializeJSON renders the JSON wire form.
func (tx *Transaction) SerializeJSON() ([]byte, error) {
	return json.Marshal(tx.toJSONStruct())
}

// ParseJSON parses the JSON wire form at the given chain height.
// Parsing failures produce a *common.ValidationError.
func ParseJSON(data []byte, height uint64) (*Transaction, error) {
	var j jsonTransaction
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, common.WrapValidationError(err, "malformed transaction json")
	}

	tx := &Transaction{
		height:    height,
		Type:      j.Type,
		Subtype:   j.Subtype,
		Timestamp: j.Timestamp,
		Deadline:  j.Deadline,
	}

	pk, err := hex.DecodeString(j.SenderPK)
	if err != nil || len(pk) != senderPublicKeyLength {
		return nil, common.NewValidationError("malformed senderPublicKey")
	}
	copy(tx.SenderPublicKey[:], pk)

	recipient, err := strconv.ParseInt(j.Recipient, 10, 64)
	if err != nil {
		return nil, common.WrapValidationError(err, "malformed recipient")
	}
	tx.RecipientID = recipient

	amount, err := strconv.ParseInt(j.Amount, 10, 64)
	if err != nil {
		return nil, common.WrapValidationError(err, "malformed amountNQT")
	}
	tx.Amount = amount

	fee, err := strconv.ParseInt(j.Fee, 10, 64)
	if err != nil {
		return nil, common.WrapValidationError(err, "malformed feeNQT")
	}
	tx.Fee = fee

	if ReferencedTransactionIsFullHash(height) {
		if j.RefFullHash != "" {
			b, err := hex.DecodeString(j.RefFullHash)
			if err != nil || len(b) != 32 {
				return nil, common.NewValidationError("malformed referencedTransactionFullHash")
			}
			copy(tx.ReferencedTransactionFullHash[:], b)
			tx.hasReferencedFullHash = true
		}
	} else if j.RefID != "" {
		refID, err := strconv.ParseInt(j.RefID, 10, 64)
		if err != nil {
			return nil, common.WrapValidationError(err, "malformed referencedTransaction")
		}
		tx.ReferencedTransactionID = refID
	}

	sig, err := hex.DecodeString(j.Signature)
	if err != nil || len(sig) != signatureLength {
		return nil, common.NewValidationError("malformed signature")
	}
	copy(tx.Signature[:], sig)

	var payload []byte
	if j.Attachment != "" {
		payload, err = hex.DecodeString(j.Attachment)
		if err != nil {
			return nil, common.WrapValidationError(err, "malformed attachment")
		}
	}
	attachment, err := parseAttachment(tx.Type, tx.Subtype, height, payload)
	if err != nil {
		return nil, err
	}
	tx.Attachment = attachment

	tx.finalize()
	return tx, nil
}
