// Package txpool is the unconfirmed transaction set: admission,
// double-spend tracking, replay prevention, block apply/undo hooks, and
// the maintenance workers that expire and rebroadcast entries.
package txpool

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/holiman/bloomfilter/v2"

	"github.com/nhzfoundation/nhzd/chainiface"
	"github.com/nhzfoundation/nhzd/core/types"
	"github.com/nhzfoundation/nhzd/event"
	"github.com/nhzfoundation/nhzd/internal/nlog"
)

// TransactionHashInfo is cached alongside the replay index so it can be
// pruned by expiration without re-parsing the transaction.
type TransactionHashInfo struct {
	TransactionID uint64
	Expiration    uint32
}

// PeerGateway is the slice of the peer overlay the pool needs: fan-out a
// request to the network, and pick one connected peer to pull from. The
// p2p package's NewTxPoolGateway adapter implements it; txpool never imports p2p,
// which keeps the two packages decoupled in both directions.
type PeerGateway interface {
	SendToSomePeers(kind string, payload interface{})
	PullFromConnectedPeer(request string, payload interface{}, reply interface{}) (bool, error)
}

// Config bundles the tunables for the pool's admission and maintenance
// behavior.
type Config struct {
	Height uint64 // current chain height, gates wire format and fork-dependent validation
}

// Pool is the unconfirmed transaction set plus its three satellite
// indices. The zero value is not usable; build
// one with New.
type Pool struct {
	log nlog.Logger

	chain  chainiface.ChainStore
	ledger chainiface.Ledger
	peers  PeerGateway

	cfg Config

	// chainMu is the single process-wide chain mutex: it
	// serializes mempool mutation against block apply/undo and against
	// itself across concurrent admissions.
	chainMu sync.Mutex

	unconfirmed    map[uint64]*types.Transaction
	doubleSpending map[uint64]*types.Transaction
	nonBroadcasted map[uint64]*types.Transaction

	hashIndexMu sync.Mutex
	hashIndex   map[[32]byte]TransactionHashInfo
	hashCache   *fastcache.Cache   // fast byte-oriented backing store mirroring hashIndex
	hashFilter  *bloomfilter.Filter // negative pre-check in front of hashIndex

	AddedUnconfirmed     *event.Feed[[]*types.Transaction]
	AddedDoubleSpending  *event.Feed[[]*types.Transaction]
	RemovedUnconfirmed   *event.Feed[[]*types.Transaction]
	AddedConfirmed       *event.Feed[[]*types.Transaction]
}

// New constructs an empty pool.
func New(chain chainiface.ChainStore, ledger chainiface.Ledger, peers PeerGateway, cfg Config, log nlog.Logger) *Pool {
	if log == nil {
		log = nlog.New("module", "txpool")
	}
	filter, err := bloomfilter.NewOptimal(1_000_000, 0.001)
	if err != nil {
		// NewOptimal only fails for nonsensical parameters; the
		// constants above are fixed, so this can't happen in practice.
		log.Crit("failed to build replay bloom filter", "err", err)
	}
	return &Pool{
		log:                 log,
		chain:               chain,
		ledger:              ledger,
		peers:               peers,
		cfg:                 cfg,
		unconfirmed:         make(map[uint64]*types.Transaction),
		doubleSpending:      make(map[uint64]*types.Transaction),
		nonBroadcasted:      make(map[uint64]*types.Transaction),
		hashIndex:           make(map[[32]byte]TransactionHashInfo),
		hashCache:           fastcache.New(32 * 1024 * 1024),
		hashFilter:          filter,
		AddedUnconfirmed:    event.NewFeed[[]*types.Transaction](),
		AddedDoubleSpending: event.NewFeed[[]*types.Transaction](),
		RemovedUnconfirmed:  event.NewFeed[[]*types.Transaction](),
		AddedConfirmed:      event.NewFeed[[]*types.Transaction](),
	}
}

// Height reports the chain height the pool currently validates against.
func (p *Pool) Height() uint64 { return p.cfg.Height }

// SetHeight updates the height used to gate wire format and attachment
// validation. Called by the node as new blocks are applied.
func (p *Pool) SetHeight(height uint64) { p.cfg.Height = height }

// Has reports whether id is present in unconfirmed or double-spending.
func (p *Pool) Has(id uint64) bool {
	p.chainMu.Lock()
	defer p.chainMu.Unlock()
	if _, ok := p.unconfirmed[id]; ok {
		return true
	}
	_, ok := p.doubleSpending[id]
	return ok
}

// Get returns the unconfirmed transaction for id, if any.
func (p *Pool) Get(id uint64) (*types.Transaction, bool) {
	p.chainMu.Lock()
	defer p.chainMu.Unlock()
	tx, ok := p.unconfirmed[id]
	return tx, ok
}

// Unconfirmed returns a snapshot of the unconfirmed set.
func (p *Pool) Unconfirmed() []*types.Transaction {
	p.chainMu.Lock()
	defer p.chainMu.Unlock()
	out := make([]*types.Transaction, 0, len(p.unconfirmed))
	for _, tx := range p.unconfirmed {
		out = append(out, tx)
	}
	return out
}

// putHash records tx's hash in the replay index with the given
// expiration, updating both the map (source of truth) and the bloom
// filter / fastcache (fast paths). Caller must hold hashIndexMu.
func (p *Pool) putHash(hash [32]byte, info TransactionHashInfo) {
	p.hashIndex[hash] = info
	p.hashFilter.Add(hashFilterItem(hash))
	p.hashCache.Set(hash[:], encodeHashInfo(nil, info))
}

func (p *Pool) deleteHash(hash [32]byte) {
	delete(p.hashIndex, hash)
	p.hashCache.Del(hash[:])
	// Note: bloomfilter/v2 supports no removal; a stale positive only
	// costs one extra map lookup on the (now absent) hash, it is never
	// a correctness hazard because hashIndex remains authoritative.
}

// hasHash is the replay check: bloom filter negative short-circuits,
// otherwise the map is authoritative.
func (p *Pool) hasHash(hash [32]byte) (TransactionHashInfo, bool) {
	if !p.hashFilter.Contains(hashFilterItem(hash)) {
		return TransactionHashInfo{}, false
	}
	info, ok := p.hashIndex[hash]
	return info, ok
}
