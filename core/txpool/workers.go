package txpool

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/nhzfoundation/nhzd/core/types"
	"github.com/nhzfoundation/nhzd/nhztime"
	"github.com/nhzfoundation/nhzd/scheduler"
)

const (
	expirationSweepInterval = time.Second
	rebroadcastInterval     = 60 * time.Second
	pullUnconfirmedInterval = 5 * time.Second

	// rebroadcastAgeSeconds is how long a non-broadcasted transaction
	// waits before it is considered for resending.
	rebroadcastAgeSeconds = 30
)

// RegisterWorkers wires the pool's three maintenance loops onto sched.
// Must be called before sched.Start.
func (p *Pool) RegisterWorkers(sched *scheduler.Scheduler) {
	sched.Register("txpool-expiration-sweep", expirationSweepInterval, p.sweepExpired)
	sched.Register("txpool-rebroadcast", rebroadcastInterval, p.rebroadcast)
	sched.Register("txpool-pull-unconfirmed", pullUnconfirmedInterval, p.pullUnconfirmed)
}

// sweepExpired removes unconfirmed transactions that have expired or no
// longer pass attachment validation, restoring the sender's unconfirmed
// balance for each.
func (p *Pool) sweepExpired(ctx context.Context) error {
	now := nhztime.Now()

	p.chainMu.Lock()
	var removed []*types.Transaction
	for id, tx := range p.unconfirmed {
		if err := tx.ValidateAttachment(); err == nil && tx.Expiration() >= now {
			continue
		}
		if err := p.ledger.UndoUnconfirmed(tx); err != nil {
			p.log.Debug("undo unconfirmed failed during expiration sweep", "id", tx.StringID(), "err", err)
		}
		delete(p.unconfirmed, id)
		removed = append(removed, tx)
	}
	p.chainMu.Unlock()

	if len(removed) > 0 {
		p.RemovedUnconfirmed.Send(removed)
	}
	return nil
}

// rebroadcast resends locally-originated transactions the network has
// not yet echoed back.
func (p *Pool) rebroadcast(ctx context.Context) error {
	now := nhztime.Now()

	p.chainMu.Lock()
	var due []*types.Transaction
	for id, tx := range p.nonBroadcasted {
		if p.chain.HasConfirmedTransaction(id) || tx.Expiration() < now {
			delete(p.nonBroadcasted, id)
			continue
		}
		if err := tx.ValidateAttachment(); err != nil {
			delete(p.nonBroadcasted, id)
			continue
		}
		if tx.Timestamp < now-rebroadcastAgeSeconds {
			due = append(due, tx)
		}
	}
	p.chainMu.Unlock()

	if len(due) > 0 && p.peers != nil {
		p.peers.SendToSomePeers("processTransactions", due)
	}
	return nil
}

// unconfirmedTransactionsWire mirrors the peer overlay's
// GetUnconfirmedTransactionsResponse JSON shape without importing the
// p2p package: the pool only needs the field name to line up for
// json.Unmarshal, not the type itself.
type unconfirmedTransactionsWire struct {
	UnconfirmedTransactions []string `json:"unconfirmedTransactions"`
}

// pullUnconfirmed asks one connected peer for its unconfirmed set and
// feeds the reply back through admission without rebroadcasting it. The
// wire carries hex-encoded transactions, so each one is decoded at the
// pool's own height before reaching ProcessPeerTransactions.
func (p *Pool) pullUnconfirmed(ctx context.Context) error {
	if p.peers == nil {
		return nil
	}
	var wire unconfirmedTransactionsWire
	ok, err := p.peers.PullFromConnectedPeer("getUnconfirmedTransactions", nil, &wire)
	if err != nil || !ok {
		return err
	}

	height := p.Height()
	txs := make([]*types.Transaction, 0, len(wire.UnconfirmedTransactions))
	for _, encoded := range wire.UnconfirmedTransactions {
		data, err := hex.DecodeString(encoded)
		if err != nil {
			continue
		}
		tx, err := types.ParseBinary(data, height)
		if err != nil {
			continue
		}
		txs = append(txs, tx)
	}
	p.ProcessPeerTransactions(txs)
	return nil
}
