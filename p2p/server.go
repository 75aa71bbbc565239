package p2p

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru"
	"github.com/imroc/biu"
	"github.com/shirou/gopsutil/host"
	"golang.org/x/time/rate"

	"github.com/nhzfoundation/nhzd/chainiface"
	"github.com/nhzfoundation/nhzd/core/types"
	"github.com/nhzfoundation/nhzd/internal/nlog"
)

// InboundPool is the slice of the mempool the inbound server needs to
// answer peer requests. core/txpool.Pool implements it
// implicitly.
type InboundPool interface {
	ProcessPeerTransactions(txs []*types.Transaction)
	Unconfirmed() []*types.Transaction
	Height() uint64
}

// Server answers the JSON-over-HTTP requests the peer protocol defines,
// the receiving side of the same protocol httpTransport speaks as a client.
// Every inbound peer is independently rate-limited so one noisy or
// malicious peer cannot starve the others' requests.
type Server struct {
	log       nlog.Logger
	registry  *Registry
	pool      InboundPool
	blocks    chainiface.BlockSink // nil until the chain owner wires one in
	selfInfo  GetInfoMessage
	cfg       TransportConfig
	recentTxs *lru.Cache // dedupes processTransactions entries already applied, one key per transaction

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// requestsPerSecondPerPeer bounds each remote address's call rate.
// processTransactions/processBlock are the highest-volume inbound
// calls; everything else rides the same budget.
const requestsPerSecondPerPeer = 20

func NewServer(registry *Registry, pool InboundPool, selfInfo GetInfoMessage, cfg TransportConfig, log nlog.Logger) *Server {
	if log == nil {
		log = nlog.New("module", "p2p-server")
	}
	cache, _ := lru.New(4096) // fixed, small size; New only errors for a non-positive size
	return &Server{
		log:       log,
		registry:  registry,
		pool:      pool,
		selfInfo:  selfInfo,
		cfg:       cfg,
		recentTxs: cache,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// SetBlockSink wires the chain-owned hook that handles inbound
// processBlock calls. Until this is called, processBlock is acknowledged
// but otherwise dropped.
func (s *Server) SetBlockSink(sink chainiface.BlockSink) {
	s.blocks = sink
}

// DetectSelfInfo fills the application/version-agnostic platform field of
// a GetInfoMessage from the host's OS/platform metadata, the way a real
// deployment would auto-populate it rather than hardcode it.
func DetectSelfInfo(application, version string, shareAddress bool) GetInfoMessage {
	platform := "unknown"
	if info, err := host.Info(); err == nil {
		platform = info.Platform + " " + info.PlatformVersion
	}
	return GetInfoMessage{
		Application:  application,
		Version:      version,
		Platform:     platform,
		ShareAddress: shareAddress,
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	remote := remoteAddr(r)
	if !s.allow(remote) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	requestType := strings.TrimPrefix(r.URL.Path, "/")
	compressed, err := io.ReadAll(io.LimitReader(r.Body, MaxPayloadLength*4))
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	raw := compressed
	if len(compressed) > 0 {
		if decoded, err := snappy.Decode(nil, compressed); err == nil {
			raw = decoded
		}
		// Tolerate a plain (uncompressed) body from a peer that does not
		// speak the snappy extension: fall through with compressed as-is.
	}

	var reply interface{}
	var handlerErr error
	switch requestType {
	case "getInfo":
		reply = s.selfInfo
	case "getPeers":
		reply = s.handleGetPeers()
	case "processTransactions":
		reply, handlerErr = s.handleProcessTransactions(raw)
	case "processBlock":
		reply, handlerErr = s.handleProcessBlock(raw)
	case "getUnconfirmedTransactions":
		reply = s.handleGetUnconfirmedTransactions()
	default:
		http.NotFound(w, r)
		return
	}
	if handlerErr != nil {
		if s.cfg.CommunicationLoggingMask&LogExceptions != 0 {
			s.log.Debug("inbound request failed", "remote", remote, "request", requestType, "err", handlerErr,
				"loggingMaskBits", biu.ToBinaryString(byte(s.cfg.CommunicationLoggingMask)))
		}
		http.Error(w, handlerErr.Error(), http.StatusBadRequest)
		return
	}

	body, err := json.Marshal(reply)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (s *Server) handleGetPeers() GetPeersResponse {
	var addrs []string
	for _, p := range s.registry.GetAllPeers() {
		if p.ShareAddress() {
			addrs = append(addrs, p.Address)
		}
	}
	return GetPeersResponse{Peers: addrs}
}

func (s *Server) handleProcessTransactions(raw []byte) (AckResponse, error) {
	var req ProcessTransactionsRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return AckResponse{}, err
		}
	}

	height := s.pool.Height()
	txs := make([]*types.Transaction, 0, len(req.Transactions))
	for _, encoded := range req.Transactions {
		if _, seen := s.recentTxs.Get(encoded); seen {
			continue
		}
		data, err := hex.DecodeString(encoded)
		if err != nil {
			continue
		}
		tx, err := types.ParseBinary(data, height)
		if err != nil {
			continue
		}
		s.recentTxs.Add(encoded, struct{}{})
		txs = append(txs, tx)
	}
	s.pool.ProcessPeerTransactions(txs)
	return AckResponse{Accepted: true}, nil
}

// handleProcessBlock forwards a hex-decoded block blob to the chain-owned
// sink without attempting to parse or validate it itself. When no sink
// has been wired (standalone data-plane runs), the call is acknowledged
// as not accepted rather than erroring the caller.
func (s *Server) handleProcessBlock(raw []byte) (AckResponse, error) {
	var req ProcessBlockRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return AckResponse{}, err
		}
	}
	if s.blocks == nil {
		return AckResponse{Accepted: false}, nil
	}
	data, err := hex.DecodeString(req.Block)
	if err != nil {
		return AckResponse{}, err
	}
	if err := s.blocks.ProcessPeerBlock(data); err != nil {
		return AckResponse{}, err
	}
	return AckResponse{Accepted: true}, nil
}

func (s *Server) handleGetUnconfirmedTransactions() GetUnconfirmedTransactionsResponse {
	unconfirmed := s.pool.Unconfirmed()
	out := make([]string, len(unconfirmed))
	for i, tx := range unconfirmed {
		out[i] = hex.EncodeToString(tx.SerializeBinary())
	}
	return GetUnconfirmedTransactionsResponse{UnconfirmedTransactions: out}
}

func (s *Server) allow(remote string) bool {
	s.limiterMu.Lock()
	l, ok := s.limiters[remote]
	if !ok {
		l = rate.NewLimiter(rate.Limit(requestsPerSecondPerPeer), requestsPerSecondPerPeer)
		s.limiters[remote] = l
	}
	s.limiterMu.Unlock()
	return l.AllowN(time.Now(), 1)
}

func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
