// Package chainiface defines the narrow interfaces the mempool and peer
// overlay consume from the canonical chain. Nothing in this package
// implements a ledger; it only describes the shape a ledger must expose.
package chainiface

import "github.com/nhzfoundation/nhzd/core/types"

// ChainStore answers whether a transaction id is already part of the
// canonical, confirmed chain.
type ChainStore interface {
	HasConfirmedTransaction(id uint64) bool
}

// Ledger is consulted by the pool to tentatively apply/undo a
// transaction's effect on the sender's unconfirmed balance. ApplyUnconfirmed/UndoUnconfirmed touch only the
// unconfirmed balance; Apply is the ledger effect run at block-apply
// time and Undo reverses it on block-undo. All four are no-ops from this package's point of
// view — the real bookkeeping lives outside the specified core.
type Ledger interface {
	ApplyUnconfirmed(tx *types.Transaction) error
	UndoUnconfirmed(tx *types.Transaction) error
	Apply(tx *types.Transaction) error
	Undo(tx *types.Transaction) error
}

// AccountBalances is consulted by the peer registry's hallmark weighting:
// effective balance denominated in whole NHZ.
type AccountBalances interface {
	EffectiveBalance(accountID int64) int64
}

// BalanceChangeEvent is published whenever an account's effective
// balance changes; the peer registry subscribes to it to re-derive
// hallmark weights.
type BalanceChangeEvent struct {
	AccountID int64
}

// Block is the narrow view of a block the pool needs for apply/undo
// and for height-gated wire and validation behavior.
type Block interface {
	Timestamp() uint32
	Height() uint64
	Transactions() []*types.Transaction
}

// BlockSink accepts an inbound block blob exactly as it arrived over
// the wire. The peer overlay never decodes or validates a block
// itself; that belongs to whatever owns block assembly and consensus.
type BlockSink interface {
	ProcessPeerBlock(data []byte) error
}
