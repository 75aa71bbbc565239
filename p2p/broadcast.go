package p2p

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhzfoundation/nhzd/internal/nlog"
)

// BroadcastConfig bundles the fan-out tunables.
type BroadcastConfig struct {
	PushThreshold            int64
	SendToPeersLimit         int
	EnableHallmarkProtection bool
}

// Broadcaster is the bounded-parallelism fan-out entry point. It is
// best-effort: an individual peer send failure is logged and swallowed,
// never returned to the caller.
type Broadcaster struct {
	log       nlog.Logger
	registry  *Registry
	transport Transport
	cfg       BroadcastConfig
}

func NewBroadcaster(registry *Registry, transport Transport, cfg BroadcastConfig, log nlog.Logger) *Broadcaster {
	if log == nil {
		log = nlog.New("module", "p2p-broadcast")
	}
	return &Broadcaster{log: log, registry: registry, transport: transport, cfg: cfg}
}

// SendToSomePeers submits a bounded-parallelism send of payload to every
// eligible peer, stopping once cfg.SendToPeersLimit non-error responses
// have been observed. The payload is handed to the transport as is and
// is encoded by the transport on each peer call, not once per fan-out. The outbound concurrency cap matches the fixed thread-pool
// size used elsewhere in the node.
func (b *Broadcaster) SendToSomePeers(ctx context.Context, requestType string, payload interface{}) {
	peers := b.eligiblePeers()
	if len(peers) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastWorkerPoolSize)

	var successes int64
	limit := int64(b.cfg.SendToPeersLimit)

	for _, peer := range peers {
		if atomic.LoadInt64(&successes) >= limit {
			break
		}
		peer := peer
		g.Go(func() error {
			if err := b.transport.Call(gctx, peer.Address, requestType, payload, nil); err != nil {
				b.log.Debug("broadcast send failed", "addr", peer.Address, "request", requestType, "err", err)
				return nil
			}
			if atomic.AddInt64(&successes, 1) >= limit {
				cancel()
			}
			return nil
		})
	}
	g.Wait()
}

// eligiblePeers applies the broadcast skip rules: blacklisted,
// non-connected, or (with hallmark protection enabled) under-weight
// peers never receive a broadcast. "Self-only" peers are excluded by
// construction — Registry.AddPeer already refuses to admit our own
// address — so no separate check is needed here.
func (b *Broadcaster) eligiblePeers() []*Peer {
	nowMillis := uint64(time.Now().UnixMilli())
	var out []*Peer
	for _, p := range b.registry.GetAllPeers() {
		if p.IsBlacklisted(nowMillis) {
			continue
		}
		if p.State() != StateConnected {
			continue
		}
		if b.cfg.EnableHallmarkProtection && p.Weight() < b.cfg.PushThreshold {
			continue
		}
		out = append(out, p)
	}
	return out
}
