package txpool

import (
	"github.com/nhzfoundation/nhzd/core/types"
	"github.com/nhzfoundation/nhzd/nhztime"
)

// clockSkewToleranceSeconds bounds how far into the future a
// transaction's timestamp may sit before it is rejected outright (spec
// §4.5 step 1).
const clockSkewToleranceSeconds = 15

type outcome int

const (
	outcomeNone outcome = iota
	outcomeUnconfirmed
	outcomeDoubleSpending
)

// ProcessTransactions is the inbound admission pipeline: each transaction is clock-gated, then
// admitted under the chain mutex, then — outside the lock — the
// accepted set is fanned out and announced.
func (p *Pool) ProcessTransactions(txs []*types.Transaction, sendToPeers bool) {
	var addedUnconfirmed, addedDoubleSpending []*types.Transaction

	for _, tx := range txs {
		if !p.passesClockGate(tx) {
			continue
		}

		p.chainMu.Lock()
		out := p.admitLocked(tx)
		p.chainMu.Unlock()

		switch out {
		case outcomeUnconfirmed:
			addedUnconfirmed = append(addedUnconfirmed, tx)
		case outcomeDoubleSpending:
			addedDoubleSpending = append(addedDoubleSpending, tx)
		}
	}

	if sendToPeers && len(addedUnconfirmed) > 0 {
		p.fanOutNewlyOriginated(addedUnconfirmed)
	}
	if len(addedUnconfirmed) > 0 {
		p.AddedUnconfirmed.Send(addedUnconfirmed)
	}
	if len(addedDoubleSpending) > 0 {
		p.AddedDoubleSpending.Send(addedDoubleSpending)
	}
}

// ProcessPeerTransactions is the peer-sourced counterpart driven by the
// pull-unconfirmed worker: same admission, never
// rebroadcast.
func (p *Pool) ProcessPeerTransactions(txs []*types.Transaction) {
	p.ProcessTransactions(txs, false)
}

// Broadcast is the local-origin entry point:
// it runs tx through the same admission pipeline as a peer-sourced
// transaction and then unconditionally registers it in nonBroadcasted,
// regardless of outcome, so the rebroadcast worker keeps retrying until
// the network echoes it back or it expires.
func (p *Pool) Broadcast(tx *types.Transaction) {
	p.ProcessTransactions([]*types.Transaction{tx}, true)

	p.chainMu.Lock()
	p.nonBroadcasted[tx.ID()] = tx
	p.chainMu.Unlock()
}

func (p *Pool) passesClockGate(tx *types.Transaction) bool {
	now := nhztime.Now()
	if tx.Timestamp > now+clockSkewToleranceSeconds {
		return false
	}
	if tx.Expiration() < now {
		return false
	}
	return tx.Deadline <= types.MaxDeadlineMinutes
}

// admitLocked runs step 2 of the admission pipeline. The caller must
// hold chainMu.
func (p *Pool) admitLocked(tx *types.Transaction) outcome {
	id := tx.ID()

	if p.chain.HasConfirmedTransaction(id) {
		return outcomeNone
	}
	if _, ok := p.unconfirmed[id]; ok {
		return outcomeNone
	}
	if _, ok := p.doubleSpending[id]; ok {
		return outcomeNone
	}

	if ok, err := tx.VerifySignature(); err != nil || !ok {
		return outcomeNone
	}
	if err := tx.ValidateAttachment(); err != nil {
		return outcomeNone
	}

	p.hashIndexMu.Lock()
	_, replayed := p.hasHash(tx.Hash())
	p.hashIndexMu.Unlock()
	if replayed {
		return outcomeNone
	}

	if err := p.ledger.ApplyUnconfirmed(tx); err != nil {
		p.doubleSpending[id] = tx
		return outcomeDoubleSpending
	}
	p.unconfirmed[id] = tx
	return outcomeUnconfirmed
}

// fanOutNewlyOriginated sends only the transactions that are not
// already tracked as locally originated.
func (p *Pool) fanOutNewlyOriginated(added []*types.Transaction) {
	if p.peers == nil {
		return
	}
	p.chainMu.Lock()
	var toSend []*types.Transaction
	for _, tx := range added {
		if _, local := p.nonBroadcasted[tx.ID()]; !local {
			toSend = append(toSend, tx)
		}
	}
	p.chainMu.Unlock()

	if len(toSend) > 0 {
		p.peers.SendToSomePeers("processTransactions", toSend)
	}
}
