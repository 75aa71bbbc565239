package p2p

import (
	"encoding/hex"
	"testing"

	"github.com/nhzfoundation/nhzd/core/types"
)

func TestTxPoolGatewayPullFromConnectedPeerReturnsFalseWhenNoneAvailable(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	gw := NewTxPoolGateway(NewBroadcaster(r, &fakeGossipTransport{}, BroadcastConfig{}, nil), r, &fakeGossipTransport{}, 0)

	ok, err := gw.PullFromConnectedPeer("getUnconfirmedTransactions", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected no peer to be available in an empty registry")
	}
}

func TestTxPoolGatewayPullFromConnectedPeerCallsTransport(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.230:7774")
	p.SetState(StateConnected)

	transport := &fakeGossipTransport{peersReply: GetPeersResponse{Peers: []string{"ignored"}}}
	gw := NewTxPoolGateway(NewBroadcaster(r, transport, BroadcastConfig{}, nil), r, transport, 0)

	var reply GetPeersResponse
	ok, err := gw.PullFromConnectedPeer("getPeers", nil, &reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a connected peer to be found")
	}
	if len(reply.Peers) != 1 || reply.Peers[0] != "ignored" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestTxPoolGatewaySendToSomePeersDelegatesToBroadcaster(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.231:7774")
	p.SetState(StateConnected)

	transport := &fakeTransport{}
	b := NewBroadcaster(r, transport, BroadcastConfig{SendToPeersLimit: 10}, nil)
	gw := NewTxPoolGateway(b, r, transport, 0)

	gw.SendToSomePeers("processTransactions", nil)

	if transport.callCount() != 1 {
		t.Fatalf("expected the gateway to fan out through the broadcaster, got %d calls", transport.callCount())
	}
}

func TestTxPoolGatewaySendToSomePeersEncodesTransactionsAsHex(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.232:7774")
	p.SetState(StateConnected)

	transport := &fakeTransport{}
	b := NewBroadcaster(r, transport, BroadcastConfig{SendToPeersLimit: 10}, nil)
	gw := NewTxPoolGateway(b, r, transport, 0)

	tx := testTx(t)
	gw.SendToSomePeers("processTransactions", []*types.Transaction{tx})

	req, ok := transport.lastPayload.(ProcessTransactionsRequest)
	if !ok {
		t.Fatalf("expected a ProcessTransactionsRequest payload, got %T", transport.lastPayload)
	}
	if len(req.Transactions) != 1 || req.Transactions[0] != hex.EncodeToString(tx.SerializeBinary()) {
		t.Fatalf("unexpected encoded transaction list: %v", req.Transactions)
	}
}
