package p2p

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeGossipTransport struct {
	connectErr  map[string]error
	peersReply  GetPeersResponse
	connectInfo *GetInfoMessage
}

func (t *fakeGossipTransport) Connect(ctx context.Context, addr string) (*GetInfoMessage, error) {
	if err, ok := t.connectErr[addr]; ok {
		return nil, err
	}
	if t.connectInfo != nil {
		return t.connectInfo, nil
	}
	return &GetInfoMessage{Application: "test", ShareAddress: true}, nil
}

func (t *fakeGossipTransport) Call(ctx context.Context, addr, requestType string, payload, reply interface{}) error {
	if requestType == "getPeers" {
		if out, ok := reply.(*GetPeersResponse); ok {
			*out = t.peersReply
		}
		return nil
	}
	return nil
}

func TestGossipConnectPromotesReachablePeer(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.200:7774")

	transport := &fakeGossipTransport{}
	g := NewGossip(r, transport, nil, GossipConfig{MaxNumberOfConnectedPublicPeers: 10}, nil)

	// connect() coin-flips between NON_CONNECTED and DISCONNECTED
	// candidates each call; p is the only peer registered, in
	// NON_CONNECTED, so roughly half of calls are a no-op. Retry until
	// the coin lands on NON_CONNECTED.
	for i := 0; i < 50 && p.State() != StateConnected; i++ {
		if err := g.connect(context.Background()); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	if p.State() != StateConnected {
		t.Fatalf("expected peer to move to CONNECTED, got %v", p.State())
	}
}

func TestGossipConnectBlacklistsUnreachablePeer(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.201:7774")

	transport := &fakeGossipTransport{connectErr: map[string]error{p.Address: errors.New("refused")}}
	g := NewGossip(r, transport, nil, GossipConfig{MaxNumberOfConnectedPublicPeers: 10, BlacklistingPeriodMillis: 60_000}, nil)

	for i := 0; i < 50 && !p.IsBlacklisted(uint64(time.Now().UnixMilli())); i++ {
		if err := g.connect(context.Background()); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	if !p.IsBlacklisted(uint64(time.Now().UnixMilli())) {
		t.Fatal("expected an unreachable peer to be blacklisted")
	}
	if p.State() != StateDisconnected {
		t.Fatalf("expected peer to move to DISCONNECTED, got %v", p.State())
	}
}

func TestGossipConnectSkipsWhenAtTargetConnectionCount(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	connectedPeer(r, "203.0.113.202:7774")
	unreachedCandidate := r.AddPeer("203.0.113.203:7774")

	transport := &fakeGossipTransport{}
	g := NewGossip(r, transport, nil, GossipConfig{MaxNumberOfConnectedPublicPeers: 1}, nil)

	if err := g.connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if unreachedCandidate.State() == StateConnected {
		t.Fatal("expected connect to no-op once the target connection count is met")
	}
}

func TestGossipDiscoverRegistersReturnedPeers(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	hub := connectedPeer(r, "203.0.113.210:7774")
	_ = hub

	transport := &fakeGossipTransport{peersReply: GetPeersResponse{Peers: []string{"203.0.113.211:7774", "203.0.113.212:7774"}}}
	g := NewGossip(r, transport, nil, GossipConfig{PullThreshold: 0}, nil)

	if err := g.discover(context.Background()); err != nil {
		t.Fatalf("discover: %v", err)
	}
	if _, ok := r.GetPeer("203.0.113.211:7774"); !ok {
		t.Fatal("expected discover to register the first returned peer")
	}
	if _, ok := r.GetPeer("203.0.113.212:7774"); !ok {
		t.Fatal("expected discover to register the second returned peer")
	}
}

func TestGossipUnblacklistSweepClearsExpiredEntries(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.220:7774")
	p.Blacklist(0, 1)

	sub := r.UnblacklistFeed.Subscribe(1)
	defer sub.Unsubscribe()

	g := NewGossip(r, &fakeGossipTransport{}, nil, GossipConfig{}, nil)
	// Force the clock reference point past the blacklist deadline by
	// calling the sweep logic directly against a peer already expired
	// relative to time.Now(); Blacklist(0, 1) expires essentially
	// immediately relative to any real wall-clock read.
	if err := g.unblacklistSweep(context.Background()); err != nil {
		t.Fatalf("unblacklistSweep: %v", err)
	}
	if p.IsBlacklisted(uint64(time.Now().UnixMilli())) {
		t.Fatal("expected the blacklist to have been cleared")
	}
	select {
	case got := <-sub.Chan():
		if got != p {
			t.Fatal("expected UnblacklistFeed to carry the cleared peer")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for UnblacklistFeed")
	}
}
