package p2p

import (
	"context"
	"encoding/hex"
	"math/rand"
	"time"

	"github.com/nhzfoundation/nhzd/internal/nlog"
	"github.com/nhzfoundation/nhzd/scheduler"
)

const (
	unblacklistSweepInterval = time.Second
	connectInterval          = 5 * time.Second
	discoverInterval         = 5 * time.Second
)

// GossipConfig bundles the gossip-worker tunables.
type GossipConfig struct {
	MaxNumberOfConnectedPublicPeers int
	PullThreshold                   int64
	BlacklistingPeriodMillis        uint64
	UsePeersDB                      bool
}

// Gossip owns the three periodic tasks that keep the registry populated
// and connected.
type Gossip struct {
	log       nlog.Logger
	registry  *Registry
	transport Transport
	store     *PeerStore // nil disables persistence
	cfg       GossipConfig

	rnd *rand.Rand
}

func NewGossip(registry *Registry, transport Transport, store *PeerStore, cfg GossipConfig, log nlog.Logger) *Gossip {
	if log == nil {
		log = nlog.New("module", "p2p-gossip")
	}
	return &Gossip{
		log:       log,
		registry:  registry,
		transport: transport,
		store:     store,
		cfg:       cfg,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// RegisterWorkers wires the three gossip loops onto sched.
func (g *Gossip) RegisterWorkers(sched *scheduler.Scheduler) {
	sched.Register("p2p-unblacklist-sweep", unblacklistSweepInterval, g.unblacklistSweep)
	sched.Register("p2p-connect", connectInterval, g.connect)
	sched.Register("p2p-discover", discoverInterval, g.discover)
}

// unblacklistSweep clears expired blacklist entries.
func (g *Gossip) unblacklistSweep(ctx context.Context) error {
	nowMillis := uint64(time.Now().UnixMilli())
	for _, p := range g.registry.GetAllPeers() {
		if p.ClearIfExpired(nowMillis) {
			g.registry.UnblacklistFeed.Send(p)
		}
	}
	return nil
}

// connect opportunistically dials a non-connected or disconnected peer
// when under the target connection count.
func (g *Gossip) connect(ctx context.Context) error {
	if g.registry.ConnectedPublicPeerCount() >= g.cfg.MaxNumberOfConnectedPublicPeers {
		return nil
	}

	state := StateNonConnected
	if g.rnd.Intn(2) == 1 {
		state = StateDisconnected
	}
	peer, ok := g.registry.GetAnyPeer(state, false, 0)
	if !ok {
		return nil
	}

	info, err := g.transport.Connect(ctx, peer.Address)
	if err != nil {
		peer.Blacklist(uint64(time.Now().UnixMilli()), g.cfg.BlacklistingPeriodMillis)
		peer.SetState(StateDisconnected)
		g.log.Debug("connect attempt failed", "addr", peer.Address, "err", err)
		return nil
	}

	peer.SetMetadata(info.Application, info.Version, info.Platform)
	peer.SetShareAddress(info.ShareAddress)
	if info.AnnouncedAddress != "" {
		peer.SetAnnouncedAddress(info.AnnouncedAddress)
	}
	if info.Hallmark != "" {
		if err := g.applyHallmarkHex(peer, info.Hallmark); err != nil {
			g.log.Debug("hallmark rejected", "addr", peer.Address, "err", err)
		}
	}
	peer.SetState(StateConnected)
	return nil
}

// discover asks one connected, pull-eligible peer for its peer list and
// registers every address it returns. When
// persistence is enabled, the live set is diffed against the persisted
// set and the difference is applied.
func (g *Gossip) discover(ctx context.Context) error {
	peer, ok := g.registry.GetAnyPeer(StateConnected, true, g.cfg.PullThreshold)
	if !ok {
		return nil
	}

	var resp GetPeersResponse
	if err := g.transport.Call(ctx, peer.Address, "getPeers", nil, &resp); err != nil {
		g.log.Debug("getPeers failed", "addr", peer.Address, "err", err)
		return nil
	}
	for _, addr := range resp.Peers {
		g.registry.AddPeer(addr)
	}

	if g.cfg.UsePeersDB && g.store != nil {
		g.syncPeerStore()
	}
	return nil
}

func (g *Gossip) applyHallmarkHex(p *Peer, hallmarkHex string) error {
	blob, err := hex.DecodeString(hallmarkHex)
	if err != nil {
		return err
	}
	return g.registry.ApplyHallmark(p, blob)
}

func (g *Gossip) syncPeerStore() {
	live := make(map[string]struct{})
	for _, p := range g.registry.GetAllPeers() {
		live[p.Address] = struct{}{}
	}
	inserts, deletes, err := g.store.Diff(live)
	if err != nil {
		g.log.Debug("peer store diff failed", "err", err)
		return
	}
	for _, addr := range inserts {
		if err := g.store.Put(addr); err != nil {
			g.log.Debug("peer store put failed", "addr", addr, "err", err)
		}
	}
	for _, addr := range deletes {
		if err := g.store.Delete(addr); err != nil {
			g.log.Debug("peer store delete failed", "addr", addr, "err", err)
		}
	}
}
