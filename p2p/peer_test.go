package p2p

import "testing"

func TestPeerBlacklistLifecycle(t *testing.T) {
	p := NewPeer("203.0.113.1:7774")

	if p.IsBlacklisted(1000) {
		t.Fatal("fresh peer must not start blacklisted")
	}

	p.Blacklist(1000, 500)
	if !p.IsBlacklisted(1400) {
		t.Fatal("expected peer to be blacklisted before the period elapses")
	}
	if p.IsBlacklisted(1500) {
		t.Fatal("expected blacklist to have expired exactly at 1000+500")
	}
	if p.State() != StateDisconnected {
		t.Fatal("Blacklist must also move the peer to DISCONNECTED")
	}
}

func TestPeerClearIfExpired(t *testing.T) {
	p := NewPeer("203.0.113.2:7774")

	if p.ClearIfExpired(1000) {
		t.Fatal("a peer with no blacklist set must report no-op")
	}

	p.Blacklist(1000, 500)
	if p.ClearIfExpired(1200) {
		t.Fatal("must not clear before the blacklist period elapses")
	}
	if !p.ClearIfExpired(1500) {
		t.Fatal("must clear once the blacklist period has elapsed")
	}
	if p.IsBlacklisted(1500) {
		t.Fatal("blacklist must be cleared after ClearIfExpired reports true")
	}
	if p.ClearIfExpired(1500) {
		t.Fatal("a second call must be a no-op once already cleared")
	}
}

func TestPeerVolumesAccumulate(t *testing.T) {
	p := NewPeer("203.0.113.3:7774")
	p.AddDownloaded(10)
	p.AddDownloaded(5)
	p.AddUploaded(3)

	down, up := p.Volumes()
	if down != 15 || up != 3 {
		t.Fatalf("got down=%d up=%d, want down=15 up=3", down, up)
	}
}

func TestPeerSetHallmarkUpdatesWeightAtomically(t *testing.T) {
	p := NewPeer("203.0.113.4:7774")
	h := &Hallmark{WeightFactor: 42}
	p.SetHallmark(h, 42)

	if p.Hallmark() != h {
		t.Fatal("expected Hallmark() to return the bound hallmark")
	}
	if p.Weight() != 42 {
		t.Fatalf("expected weight 42, got %d", p.Weight())
	}
}

func TestPeerDefaultsShareAddressTrue(t *testing.T) {
	p := NewPeer("203.0.113.5:7774")
	if !p.ShareAddress() {
		t.Fatal("expected a new peer to default to sharing its address")
	}
}
