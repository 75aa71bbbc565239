// Package node wires the mempool, peer overlay, scheduler, and
// configuration layer into a single runnable process: assemble every
// constituent service, then call Start.
package node

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/nhzfoundation/nhzd/chainiface"
	"github.com/nhzfoundation/nhzd/config"
	"github.com/nhzfoundation/nhzd/core/txpool"
	"github.com/nhzfoundation/nhzd/event"
	"github.com/nhzfoundation/nhzd/internal/nlog"
	"github.com/nhzfoundation/nhzd/p2p"
	"github.com/nhzfoundation/nhzd/scheduler"
)

// Node is the fully assembled data-plane process: peer overlay, mempool,
// and the schedulers driving both.
type Node struct {
	log nlog.Logger

	cfg      config.Config
	cfgWatch *config.Watcher

	Registry    *p2p.Registry
	Transport   p2p.Transport
	Gossip      *p2p.Gossip
	Broadcaster *p2p.Broadcaster
	PeerStore   *p2p.PeerStore
	Server      *p2p.Server

	Pool *txpool.Pool

	sched    *scheduler.Scheduler
	stopCh   chan struct{}
	inbound  *http.Server
	stopOnce sync.Once
}

// Deps bundles the chain-side collaborators a running node needs; these
// are supplied by whatever owns the canonical chain and ledger, which
// this module does not implement.
type Deps struct {
	Chain          chainiface.ChainStore
	Ledger         chainiface.Ledger
	Balances       chainiface.AccountBalances
	BalanceChanges *event.Feed[chainiface.BalanceChangeEvent]
	// Blocks, if set, receives inbound processBlock calls the peer
	// overlay has no business decoding itself. Left nil, processBlock is
	// acknowledged but dropped.
	Blocks chainiface.BlockSink
}

// New assembles a Node from configuration and chain-side dependencies.
// Configuration changes observed after this call (via cfgPath's watcher)
// are stored on the Node and logged; the registry, gossip, broadcaster
// and pool keep the settings they were built with. Pool height changes
// require an explicit SetHeight call from the chain owner.
func New(cfgPath string, deps Deps, log nlog.Logger) (*Node, error) {
	if log == nil {
		log = nlog.New("module", "node")
	}

	watcher, err := config.Watch(cfgPath, log.New("component", "config"))
	if err != nil {
		return nil, err
	}
	cfg := <-watcher.C

	registry := p2p.NewRegistry(p2p.Config{
		SelfAddress:              cfg.P2P.MyAddress,
		IsTestnet:                cfg.P2P.IsTestnet,
		EnableHallmarkProtection: cfg.P2P.EnableHallmarkProtection,
		BlacklistingPeriodMillis: cfg.P2P.BlacklistingPeriodMillis,
	}, deps.Balances, log.New("component", "p2p-registry"))

	transport := p2p.NewHTTPTransport(p2p.TransportConfig{
		ConnectTimeout:           time.Duration(cfg.P2P.ConnectTimeoutSeconds) * time.Second,
		ReadTimeout:              time.Duration(cfg.P2P.ReadTimeoutSeconds) * time.Second,
		CommunicationLoggingMask: cfg.P2P.CommunicationLoggingMask,
	}, log.New("component", "p2p-transport"))

	var store *p2p.PeerStore
	if cfg.P2P.UsePeersDB && cfg.P2P.PeersDBPath != "" {
		store, err = p2p.OpenPeerStore(cfg.P2P.PeersDBPath)
		if err != nil {
			return nil, err
		}
	}

	gossip := p2p.NewGossip(registry, transport, store, p2p.GossipConfig{
		MaxNumberOfConnectedPublicPeers: cfg.P2P.MaxNumberOfConnectedPublicPeers,
		PullThreshold:                   cfg.P2P.PullThreshold,
		BlacklistingPeriodMillis:        cfg.P2P.BlacklistingPeriodMillis,
		UsePeersDB:                      cfg.P2P.UsePeersDB,
	}, log.New("component", "p2p-gossip"))

	broadcaster := p2p.NewBroadcaster(registry, transport, p2p.BroadcastConfig{
		PushThreshold:            cfg.P2P.PushThreshold,
		SendToPeersLimit:         cfg.P2P.SendToPeersLimit,
		EnableHallmarkProtection: cfg.P2P.EnableHallmarkProtection,
	}, log.New("component", "p2p-broadcast"))

	gateway := p2p.NewTxPoolGateway(broadcaster, registry, transport, cfg.P2P.PullThreshold)

	pool := txpool.New(deps.Chain, deps.Ledger, gateway, txpool.Config{Height: cfg.Pool.Height}, log.New("component", "txpool"))

	selfInfo := p2p.DetectSelfInfo("nhznode", "1.0.0", true)
	selfInfo.AnnouncedAddress = cfg.P2P.MyAddress
	server := p2p.NewServer(registry, pool, selfInfo, p2p.TransportConfig{
		ConnectTimeout:           time.Duration(cfg.P2P.ConnectTimeoutSeconds) * time.Second,
		ReadTimeout:              time.Duration(cfg.P2P.ReadTimeoutSeconds) * time.Second,
		CommunicationLoggingMask: cfg.P2P.CommunicationLoggingMask,
	}, log.New("component", "p2p-server"))
	if deps.Blocks != nil {
		server.SetBlockSink(deps.Blocks)
	}

	listenAddr := cfg.P2P.ListenAddress
	if listenAddr == "" {
		listenAddr = ":7774"
	}

	n := &Node{
		log:         log,
		cfg:         cfg,
		cfgWatch:    watcher,
		Registry:    registry,
		Transport:   transport,
		Gossip:      gossip,
		Broadcaster: broadcaster,
		PeerStore:   store,
		Server:      server,
		Pool:        pool,
		sched:       scheduler.New(log.New("component", "scheduler")),
		stopCh:      make(chan struct{}),
		inbound:     &http.Server{Addr: listenAddr, Handler: server},
	}

	if deps.BalanceChanges != nil {
		go registry.ListenForBalanceChanges(n.stopCh, deps.BalanceChanges)
	}

	gossip.RegisterWorkers(n.sched)
	pool.RegisterWorkers(n.sched)

	return n, nil
}

// Start launches every registered worker and the background
// configuration-reload watcher.
func (n *Node) Start(ctx context.Context) {
	n.sched.Start(ctx)
	go n.watchConfig(ctx)
	go func() {
		if err := n.inbound.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.log.Error("inbound peer server stopped unexpectedly", "err", err)
		}
	}()
}

// Stop halts every worker, waits for them to return, and releases the
// peer store and config watch. Safe to call more than once.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		n.inbound.Shutdown(shutdownCtx)

		n.sched.Stop()
		n.cfgWatch.Stop()
		close(n.stopCh)
		if n.PeerStore != nil {
			n.PeerStore.Close()
		}
	})
}

func (n *Node) watchConfig(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-n.cfgWatch.C:
			if !ok {
				return
			}
			n.cfg = cfg
			n.log.Info("applied reloaded configuration")
		}
	}
}
