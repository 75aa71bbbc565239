package p2p

import (
	"testing"
	"time"

	"github.com/nhzfoundation/nhzd/chainiface"
	"github.com/nhzfoundation/nhzd/event"
)

type fakeBalances struct {
	byAccount map[int64]int64
}

func (b *fakeBalances) EffectiveBalance(accountID int64) int64 {
	return b.byAccount[accountID]
}

func newTestRegistry(balances *fakeBalances) *Registry {
	return NewRegistry(Config{
		SelfAddress:              "203.0.113.10:7774",
		EnableHallmarkProtection: true,
	}, balances, nil)
}

func TestAddPeerRejectsSelfAndReservedAddresses(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})

	if p := r.AddPeer("203.0.113.10:7774"); p != nil {
		t.Fatal("expected self address to be rejected")
	}
	if p := r.AddPeer("127.0.0.1:7774"); p != nil {
		t.Fatal("expected loopback address to be rejected")
	}
	if p := r.AddPeer("0.0.0.0:7774"); p != nil {
		t.Fatal("expected any-local address to be rejected")
	}
}

func TestAddPeerIsIdempotent(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})

	first := r.AddPeer("203.0.113.20:7774")
	if first == nil {
		t.Fatal("expected a new peer to be created")
	}
	second := r.AddPeer("203.0.113.20:7774")
	if second != first {
		t.Fatal("expected the same peer record on re-add")
	}
	if len(r.GetAllPeers()) != 1 {
		t.Fatalf("expected exactly one registered peer, got %d", len(r.GetAllPeers()))
	}
}

func TestAddPeerEmitsNewPeerFeed(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	sub := r.NewPeerFeed.Subscribe(1)
	defer sub.Unsubscribe()

	p := r.AddPeer("203.0.113.30:7774")
	select {
	case got := <-sub.Chan():
		if got != p {
			t.Fatal("expected the feed to carry the newly added peer")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for NewPeerFeed")
	}
}

func TestGetAnyPeerExcludesBlacklistedAndWrongState(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})

	connected := r.AddPeer("203.0.113.40:7774")
	connected.SetState(StateConnected)

	blacklisted := r.AddPeer("203.0.113.41:7774")
	blacklisted.SetState(StateConnected)
	blacklisted.Blacklist(uint64(time.Now().UnixMilli()), 60_000)
	blacklisted.SetState(StateConnected) // Blacklist() also disconnects; re-assert CONNECTED for this test

	for i := 0; i < 50; i++ {
		p, ok := r.GetAnyPeer(StateConnected, false, 0)
		if !ok {
			t.Fatal("expected a connected candidate to be found")
		}
		if p == blacklisted {
			t.Fatal("blacklisted peer must never be selected")
		}
	}
}

func TestGetAnyPeerAppliesPullThresholdOnlyWithHallmarkProtection(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.50:7774")
	p.SetState(StateConnected)
	// No hallmark bound, so weight is 0.

	if _, ok := r.GetAnyPeer(StateConnected, true, 10); ok {
		t.Fatal("expected under-threshold peer to be excluded when pull threshold applies")
	}
	if _, ok := r.GetAnyPeer(StateConnected, false, 10); !ok {
		t.Fatal("expected the peer to be selectable when the pull threshold is not applied")
	}
}

func TestGetAnyPeerZeroWeightStillSelectable(t *testing.T) {
	r := newTestRegistry(&fakeBalances{})
	p := r.AddPeer("203.0.113.60:7774")
	p.SetState(StateConnected)

	// A weight of 0 is treated as 1, not excluded.
	_, ok := r.GetAnyPeer(StateConnected, false, 0)
	if !ok {
		t.Fatal("expected a zero-weight peer to still have a chance of selection")
	}
}

func TestApplyHallmarkBindsWeightFromBalance(t *testing.T) {
	balances := &fakeBalances{byAccount: map[int64]int64{}}
	r := newTestRegistry(balances)
	p := r.AddPeer("203.0.113.70:7774")

	h, _ := signedHallmark(t, "203.0.113.70", 2000, 1)
	balances.byAccount[h.AccountID()] = 1500

	if err := r.ApplyHallmark(p, h.Bytes()); err != nil {
		t.Fatalf("ApplyHallmark: %v", err)
	}
	if p.Weight() != 1500 {
		t.Fatalf("expected weight min(balance, factor) = 1500, got %d", p.Weight())
	}
}

func TestApplyHallmarkBelowMinHubBalanceYieldsZeroWeight(t *testing.T) {
	balances := &fakeBalances{byAccount: map[int64]int64{}}
	r := newTestRegistry(balances)
	p := r.AddPeer("203.0.113.71:7774")

	h, _ := signedHallmark(t, "203.0.113.71", 2000, 1)
	balances.byAccount[h.AccountID()] = MinHubEffectiveBalance - 1

	if err := r.ApplyHallmark(p, h.Bytes()); err != nil {
		t.Fatalf("ApplyHallmark: %v", err)
	}
	if p.Weight() != 0 {
		t.Fatalf("expected zero weight below MinHubEffectiveBalance, got %d", p.Weight())
	}
}

func TestApplyHallmarkHostMismatchClearsWeight(t *testing.T) {
	balances := &fakeBalances{byAccount: map[int64]int64{}}
	r := newTestRegistry(balances)
	p := r.AddPeer("203.0.113.72:7774")

	h, _ := signedHallmark(t, "someone-else.example.org", 2000, 1)
	balances.byAccount[h.AccountID()] = 5000

	if err := r.ApplyHallmark(p, h.Bytes()); err != nil {
		t.Fatalf("ApplyHallmark: %v", err)
	}
	if p.Weight() != 0 || p.Hallmark() != nil {
		t.Fatal("expected a host-mismatched hallmark to leave the peer unbound")
	}
}

func TestListenForBalanceChangesReweighsBoundPeers(t *testing.T) {
	balances := &fakeBalances{byAccount: map[int64]int64{}}
	r := newTestRegistry(balances)
	p := r.AddPeer("203.0.113.80:7774")

	h, _ := signedHallmark(t, "203.0.113.80", 2000, 1)
	balances.byAccount[h.AccountID()] = 1500
	if err := r.ApplyHallmark(p, h.Bytes()); err != nil {
		t.Fatalf("ApplyHallmark: %v", err)
	}
	if p.Weight() != 1500 {
		t.Fatalf("expected initial weight 1500, got %d", p.Weight())
	}

	feed := event.NewFeed[chainiface.BalanceChangeEvent]()
	stop := make(chan struct{})
	defer close(stop)
	go r.ListenForBalanceChanges(stop, feed)

	weightSub := r.WeightFeed.Subscribe(1)
	defer weightSub.Unsubscribe()

	balances.byAccount[h.AccountID()] = 9999
	feed.Send(chainiface.BalanceChangeEvent{AccountID: h.AccountID()})

	select {
	case got := <-weightSub.Chan():
		if got != p {
			t.Fatal("expected WeightFeed to carry the reweighed peer")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for WeightFeed")
	}
	if p.Weight() != 2000 {
		t.Fatalf("expected reweighed weight capped at factor 2000, got %d", p.Weight())
	}
}

func TestWeightForHallmarkCapsAtWeightFactor(t *testing.T) {
	balances := &fakeBalances{byAccount: map[int64]int64{}}
	r := newTestRegistry(balances)

	h, _ := signedHallmark(t, "host", 300, 1)
	balances.byAccount[h.AccountID()] = 10_000
	if w := r.weightForHallmark(h); w != 300 {
		t.Fatalf("expected weight capped at factor 300, got %d", w)
	}
}
