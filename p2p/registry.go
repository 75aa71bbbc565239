// Package p2p is the peer overlay: a concurrent peer registry, hallmark
// weighting, the gossip workers that keep the registry populated and
// connected, and the bounded-parallelism broadcast fan-out.
package p2p

import (
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/nhzfoundation/nhzd/chainiface"
	"github.com/nhzfoundation/nhzd/common"
	"github.com/nhzfoundation/nhzd/event"
	"github.com/nhzfoundation/nhzd/internal/nlog"
)

// Config bundles the registry tunables.
type Config struct {
	SelfAddress              string
	IsTestnet                bool
	EnableHallmarkProtection bool
	BlacklistingPeriodMillis uint64
}

// Registry is the concurrent, address-keyed peer map. Reads
// of the map itself never block writes to a peer's interior state —
// that mutation is serialized inside Peer, not here.
type Registry struct {
	log      nlog.Logger
	cfg      Config
	balances chainiface.AccountBalances

	mu    sync.RWMutex
	peers map[string]*Peer

	rndMu sync.Mutex
	rnd   *rand.Rand

	NewPeerFeed     *event.Feed[*Peer]
	RemoveFeed      *event.Feed[*Peer]
	UnblacklistFeed *event.Feed[*Peer]
	WeightFeed      *event.Feed[*Peer]
}

func NewRegistry(cfg Config, balances chainiface.AccountBalances, log nlog.Logger) *Registry {
	if log == nil {
		log = nlog.New("module", "p2p")
	}
	return &Registry{
		log:             log,
		cfg:             cfg,
		balances:        balances,
		peers:           make(map[string]*Peer),
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
		NewPeerFeed:     event.NewFeed[*Peer](),
		RemoveFeed:      event.NewFeed[*Peer](),
		UnblacklistFeed: event.NewFeed[*Peer](),
		WeightFeed:      event.NewFeed[*Peer](),
	}
}

func (r *Registry) defaultPort() int {
	if r.cfg.IsTestnet {
		return DefaultTestnetPort
	}
	return DefaultPublicPort
}

// AddPeer normalizes and registers announced, constructing a new record
// if absent. A host name is kept as written: no DNS lookup turns it into
// an IP. Returns nil if the
// address is unroutable, equals self, or — on testnet — does not use
// the testnet port; none of these are errors worth surfacing to the
// caller.
func (r *Registry) AddPeer(announced string) *Peer {
	normalized, err := common.NormalizeAddress(announced, r.defaultPort())
	if err != nil {
		return nil
	}
	if normalized == r.cfg.SelfAddress {
		return nil
	}
	if r.cfg.IsTestnet {
		_, portStr, err := net.SplitHostPort(normalized)
		if err != nil || portStr != strconv.Itoa(DefaultTestnetPort) {
			return nil
		}
	}

	r.mu.Lock()
	if existing, ok := r.peers[normalized]; ok {
		r.mu.Unlock()
		return existing
	}
	peer := NewPeer(normalized)
	r.peers[normalized] = peer
	r.mu.Unlock()

	r.NewPeerFeed.Send(peer)
	return peer
}

// GetPeer is a plain hash lookup.
func (r *Registry) GetPeer(addr string) (*Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[addr]
	return p, ok
}

// RemovePeer atomically removes p and emits REMOVE.
func (r *Registry) RemovePeer(p *Peer) (*Peer, bool) {
	r.mu.Lock()
	existing, ok := r.peers[p.Address]
	if ok {
		delete(r.peers, p.Address)
	}
	r.mu.Unlock()

	if ok {
		r.RemoveFeed.Send(existing)
	}
	return existing, ok
}

// GetAllPeers returns a read-only snapshot.
func (r *Registry) GetAllPeers() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// ConnectedPublicPeerCount counts peers currently in StateConnected,
// used by the connect worker's target check.
func (r *Registry) ConnectedPublicPeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.peers {
		if p.State() == StateConnected {
			n++
		}
	}
	return n
}

// GetAnyPeer performs weighted-random selection over peers matching
// state, not blacklisted, with ShareAddress true, and — when
// applyPullThreshold is set and hallmark protection is enabled —
// weight >= pullThreshold. A weight of 0 is
// treated as 1 so un-hallmarked peers still have a chance of selection.
func (r *Registry) GetAnyPeer(state State, applyPullThreshold bool, pullThreshold int64) (*Peer, bool) {
	nowMillis := uint64(time.Now().UnixMilli())

	r.mu.RLock()
	candidates := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if p.State() != state {
			continue
		}
		if p.IsBlacklisted(nowMillis) {
			continue
		}
		if !p.ShareAddress() {
			continue
		}
		if applyPullThreshold && r.cfg.EnableHallmarkProtection && p.Weight() < pullThreshold {
			continue
		}
		candidates = append(candidates, p)
	}
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, false
	}
	return r.weightedPick(candidates), true
}

// weightedPick draws one candidate with probability proportional to its
// weight (0 treated as 1), using a uint256 cumulative sum so the roll
// stays exact regardless of how many peers or how large their weights
// grow.
func (r *Registry) weightedPick(candidates []*Peer) *Peer {
	weights := make([]*uint256.Int, len(candidates))
	total := new(uint256.Int)
	for i, p := range candidates {
		w := p.Weight()
		if w <= 0 {
			w = 1
		}
		weights[i] = uint256.NewInt(uint64(w))
		total.Add(total, weights[i])
	}
	if total.IsZero() {
		return candidates[r.intn(len(candidates))]
	}

	roll := new(uint256.Int)
	roll.Mod(uint256.NewInt(uint64(r.int63())), total)

	cum := new(uint256.Int)
	for i, w := range weights {
		cum.Add(cum, w)
		if roll.Lt(cum) {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}

func (r *Registry) intn(n int) int {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.rnd.Intn(n)
}

func (r *Registry) int63() int64 {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.rnd.Int63()
}

// ApplyHallmark parses and verifies a hallmark blob against p's actual
// host and, if valid, binds it to p with the weight derived from the
// bound account's effective balance. Any other hallmark clears a
// previously bound one, dropping the peer's weight to 0: a bad signature
// or a host mismatch returns nil, while a blob that does not parse or a
// verification error is also returned to the caller.
func (r *Registry) ApplyHallmark(p *Peer, blob []byte) error {
	h, err := ParseHallmark(blob)
	if err != nil {
		p.SetHallmark(nil, 0)
		return err
	}
	host, _, err := net.SplitHostPort(p.Address)
	if err != nil {
		host = p.Address
	}
	ok, err := h.Verify(host)
	if err != nil {
		p.SetHallmark(nil, 0)
		return err
	}
	if !ok {
		p.SetHallmark(nil, 0)
		return nil
	}
	p.SetHallmark(h, r.weightForHallmark(h))
	return nil
}

func (r *Registry) weightForHallmark(h *Hallmark) int64 {
	balance := r.balances.EffectiveBalance(h.AccountID())
	if balance < MinHubEffectiveBalance {
		return 0
	}
	return h.EffectiveWeight(balance)
}

// ListenForBalanceChanges re-derives weight for every peer whose
// hallmark account matches an incoming balance-change event, emitting
// WEIGHT for each. Intended to
// run as a long-lived goroutine for the node's lifetime.
func (r *Registry) ListenForBalanceChanges(stop <-chan struct{}, feed *event.Feed[chainiface.BalanceChangeEvent]) {
	sub := feed.Subscribe(64)
	defer sub.Unsubscribe()
	for {
		select {
		case <-stop:
			return
		case ev := <-sub.Chan():
			r.reweighAccount(ev.AccountID)
		}
	}
}

func (r *Registry) reweighAccount(accountID int64) {
	r.mu.RLock()
	var affected []*Peer
	for _, p := range r.peers {
		if h := p.Hallmark(); h != nil && h.AccountID() == accountID {
			affected = append(affected, p)
		}
	}
	r.mu.RUnlock()

	for _, p := range affected {
		h := p.Hallmark()
		if h == nil {
			continue
		}
		p.SetHallmark(h, r.weightForHallmark(h))
		r.WeightFeed.Send(p)
	}
}
