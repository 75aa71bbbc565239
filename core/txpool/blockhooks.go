package txpool

import (
	"github.com/nhzfoundation/nhzd/chainiface"
	"github.com/nhzfoundation/nhzd/core/types"
)

// grandfatheredCollisionHeight is the one historical block height at
// which check_transaction_hashes forgives its first hash collision. The
// source carries no comment justifying the constant; the behavior is preserved verbatim, not
// generalized.
const grandfatheredCollisionHeight = 58294

// Apply runs the block-apply hook. The block's own ledger effects are
// out of scope for this package; only the per-transaction
// unconfirmed-balance reconciliation, the per-transaction ledger apply,
// and the replay-index insertion happen here.
func (p *Pool) Apply(block chainiface.Block) error {
	p.chainMu.Lock()
	defer p.chainMu.Unlock()

	for _, tx := range block.Transactions() {
		id := tx.ID()
		if _, already := p.unconfirmed[id]; !already {
			if err := p.ledger.ApplyUnconfirmed(tx); err != nil {
				return err
			}
		}
		if err := p.ledger.Apply(tx); err != nil {
			return err
		}

		p.hashIndexMu.Lock()
		p.putHash(tx.Hash(), TransactionHashInfo{TransactionID: id, Expiration: tx.Expiration()})
		p.hashIndexMu.Unlock()
	}

	p.purgeExpiredHashes(block.Timestamp())
	return nil
}

// purgeExpiredHashes drops every replay-index entry whose expiration
// predates blockTimestamp.
func (p *Pool) purgeExpiredHashes(blockTimestamp uint32) {
	p.hashIndexMu.Lock()
	defer p.hashIndexMu.Unlock()
	for hash, info := range p.hashIndex {
		if info.Expiration < blockTimestamp {
			p.deleteHash(hash)
		}
	}
}

// Undo runs the block-undo hook: a
// transaction's replay-index entry is cleared only if it still belongs
// to that transaction — guarding against the slot having since been
// reclaimed by a different transaction that happens to share the same
// hash — then the transaction is reinserted into unconfirmed and its
// ledger effect is rolled back.
func (p *Pool) Undo(block chainiface.Block) error {
	var reinserted []*types.Transaction

	err := func() error {
		p.chainMu.Lock()
		defer p.chainMu.Unlock()

		for _, tx := range block.Transactions() {
			hash := tx.Hash()
			id := tx.ID()

			p.hashIndexMu.Lock()
			if info, ok := p.hashIndex[hash]; ok && info.TransactionID == id {
				p.deleteHash(hash)
			}
			p.hashIndexMu.Unlock()

			p.unconfirmed[id] = tx
			reinserted = append(reinserted, tx)

			if err := p.ledger.Undo(tx); err != nil {
				return err
			}
		}
		return nil
	}()
	if err != nil {
		return err
	}

	if len(reinserted) > 0 {
		p.AddedUnconfirmed.Send(reinserted)
	}
	return nil
}

// CheckTransactionHashes implements the grandfathered-collision check:
// each transaction's hash is put into the replay index with
// put-if-absent semantics. A collision marks
// that transaction the duplicate and stops the scan, except the single
// first collision at grandfatheredCollisionHeight, which is forgiven.
// Every transaction this call itself inserted is then backed out, since
// a check has no side effects beyond its answer.
func (p *Pool) CheckTransactionHashes(block chainiface.Block) (*types.Transaction, bool) {
	p.hashIndexMu.Lock()
	defer p.hashIndexMu.Unlock()

	var inserted []*types.Transaction
	var duplicate *types.Transaction
	forgiven := false

	for _, tx := range block.Transactions() {
		hash := tx.Hash()
		if _, exists := p.hashIndex[hash]; exists {
			if block.Height() == grandfatheredCollisionHeight && !forgiven {
				forgiven = true
				continue
			}
			duplicate = tx
			break
		}
		p.putHash(hash, TransactionHashInfo{TransactionID: tx.ID(), Expiration: tx.Expiration()})
		inserted = append(inserted, tx)
	}

	for _, tx := range inserted {
		p.deleteHash(tx.Hash())
	}

	return duplicate, duplicate != nil
}

// UpdateUnconfirmedTransactions drops each of the block's transactions
// from unconfirmed and announces the confirmation.
func (p *Pool) UpdateUnconfirmedTransactions(block chainiface.Block) {
	txs := block.Transactions()

	p.chainMu.Lock()
	for _, tx := range txs {
		delete(p.unconfirmed, tx.ID())
	}
	p.chainMu.Unlock()

	if len(txs) == 0 {
		return
	}
	p.RemovedUnconfirmed.Send(txs)
	p.AddedConfirmed.Send(txs)
}
