package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"

	"github.com/nhzfoundation/nhzd/common"
	"github.com/nhzfoundation/nhzd/internal/nlog"
)

// communicationLoggingMask bits.
const (
	LogExceptions  = 1 << 0
	LogNon200      = 1 << 1
	Log200         = 1 << 2
)

// TransportConfig bundles the socket tunables.
type TransportConfig struct {
	ConnectTimeout           time.Duration
	ReadTimeout              time.Duration
	CommunicationLoggingMask int
}

// Transport is the JSON-over-HTTP peer wire. Connect probes
// reachability via getInfo; Call issues one request/response round trip
// against an already-known peer address.
type Transport interface {
	Connect(ctx context.Context, addr string) (*GetInfoMessage, error)
	Call(ctx context.Context, addr, requestType string, payload, reply interface{}) error
}

// httpTransport is the default Transport, a JSON-over-HTTP POST wire.
// Request bodies are snappy-compressed; every request carries a UUID
// correlation id for log correlation across the two ends of a call.
type httpTransport struct {
	cfg    TransportConfig
	client *http.Client
	log    nlog.Logger
}

func NewHTTPTransport(cfg TransportConfig, log nlog.Logger) Transport {
	if log == nil {
		log = nlog.New("module", "p2p-transport")
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	return &httpTransport{
		cfg: cfg,
		log: log,
		client: &http.Client{
			Timeout: cfg.ConnectTimeout + cfg.ReadTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
	}
}

func (t *httpTransport) Connect(ctx context.Context, addr string) (*GetInfoMessage, error) {
	var reply GetInfoMessage
	if err := t.Call(ctx, addr, "getInfo", nil, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (t *httpTransport) Call(ctx context.Context, addr, requestType string, payload, reply interface{}) error {
	correlationID := uuid.New().String()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return common.WrapNetworkError(err, "encode request")
		}
		body = bytes.NewReader(snappy.Encode(nil, raw))
	}

	url := fmt.Sprintf("http://%s/%s", addr, requestType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return common.WrapNetworkError(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Correlation-Id", correlationID)

	resp, err := t.client.Do(req)
	if err != nil {
		if t.cfg.CommunicationLoggingMask&LogExceptions != 0 {
			t.log.Debug("peer call failed", "addr", addr, "request", requestType, "correlationId", correlationID, "err", err)
		}
		return common.WrapNetworkError(err, "peer call failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadLength*4))
	if err != nil {
		return common.WrapNetworkError(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		if t.cfg.CommunicationLoggingMask&LogNon200 != 0 {
			t.log.Debug("peer call non-200", "addr", addr, "request", requestType, "status", resp.StatusCode, "correlationId", correlationID)
		}
		return common.WrapNetworkError(fmt.Errorf("status %d", resp.StatusCode), "peer call non-200")
	}
	if t.cfg.CommunicationLoggingMask&Log200 != 0 {
		t.log.Debug("peer call ok", "addr", addr, "request", requestType, "correlationId", correlationID)
	}

	if reply == nil || len(raw) == 0 {
		return nil
	}
	decoded, err := snappy.Decode(nil, raw)
	if err != nil {
		// Tolerate a plain (uncompressed) body from a peer that does
		// not speak the snappy extension.
		decoded = raw
	}
	if err := json.Unmarshal(decoded, reply); err != nil {
		return common.WrapNetworkError(err, "decode response")
	}
	return nil
}
