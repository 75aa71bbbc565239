package p2p

import (
	"context"
	"encoding/hex"

	"github.com/nhzfoundation/nhzd/core/txpool"
	"github.com/nhzfoundation/nhzd/core/types"
)

// txpoolGateway adapts the peer overlay to the narrow interface
// core/txpool consumes (txpool.PeerGateway). txpool never imports this
// package; only this package knows about txpool, which is what keeps
// the two decoupled in both directions.
type txpoolGateway struct {
	broadcaster   *Broadcaster
	registry      *Registry
	transport     Transport
	pullThreshold int64
}

// NewTxPoolGateway builds the adapter the node wires into txpool.New.
func NewTxPoolGateway(broadcaster *Broadcaster, registry *Registry, transport Transport, pullThreshold int64) txpool.PeerGateway {
	return &txpoolGateway{
		broadcaster:   broadcaster,
		registry:      registry,
		transport:     transport,
		pullThreshold: pullThreshold,
	}
}

// SendToSomePeers adapts a pool-side payload to its wire shape before
// handing it to the broadcaster. The pool hands over domain values
// (*types.Transaction slices); the wire only knows hex-encoded strings,
// so the translation has to happen on this side of the seam.
func (g *txpoolGateway) SendToSomePeers(kind string, payload interface{}) {
	if kind == "processTransactions" {
		if txs, ok := payload.([]*types.Transaction); ok {
			payload = ProcessTransactionsRequest{Transactions: encodeTransactionsHex(txs)}
		}
	}
	g.broadcaster.SendToSomePeers(context.Background(), kind, payload)
}

func encodeTransactionsHex(txs []*types.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = hex.EncodeToString(tx.SerializeBinary())
	}
	return out
}

func (g *txpoolGateway) PullFromConnectedPeer(request string, payload interface{}, reply interface{}) (bool, error) {
	peer, ok := g.registry.GetAnyPeer(StateConnected, true, g.pullThreshold)
	if !ok {
		return false, nil
	}
	if err := g.transport.Call(context.Background(), peer.Address, request, payload, reply); err != nil {
		return false, err
	}
	return true, nil
}
