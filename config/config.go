// Package config loads and hot-reloads the node's TOML configuration.
// It keeps the same decode settings gprobe's config loader uses so that
// TOML keys line up with Go struct field names verbatim, and adds live
// reload via an fsnotify-style watch — something a single-shot CLI flag
// parser never needed but a long-running node does.
package config

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"sync"

	"github.com/naoina/toml"
	"github.com/rjeczalik/notify"

	"github.com/nhzfoundation/nhzd/internal/nlog"
)

// PoolConfig mirrors core/txpool.Config; its only setting is the
// starting chain height.
type PoolConfig struct {
	Height uint64 `toml:",omitempty"`
}

// P2PConfig mirrors the p2p package's assorted Config structs, flattened
// into a single TOML table, [P2P].
type P2PConfig struct {
	MyAddress                      string
	ListenAddress                  string `toml:",omitempty"`
	IsTestnet                      bool
	EnableHallmarkProtection       bool
	BlacklistingPeriodMillis       uint64
	MaxNumberOfConnectedPublicPeers int
	PullThreshold                  int64
	PushThreshold                  int64
	SendToPeersLimit                int
	UsePeersDB                      bool
	PeersDBPath                     string
	CommunicationLoggingMask        int
	ConnectTimeoutSeconds           int
	ReadTimeoutSeconds              int
}

// Config is the root document. Fields use the same all-top-level,
// grouped-by-table layout as gprobeConfig in cmd/gprobe/config.go.
type Config struct {
	Pool PoolConfig
	P2P  P2PConfig
}

// Default returns the baseline configuration used when no file is
// supplied.
func Default() Config {
	return Config{
		P2P: P2PConfig{
			ListenAddress:                   ":7774",
			IsTestnet:                       false,
			EnableHallmarkProtection:        true,
			BlacklistingPeriodMillis:        600_000,
			MaxNumberOfConnectedPublicPeers: 20,
			PullThreshold:                   0,
			PushThreshold:                   0,
			SendToPeersLimit:                10,
			UsePeersDB:                      true,
			PeersDBPath:                     "peers.db",
			CommunicationLoggingMask:        0,
			ConnectTimeoutSeconds:           10,
			ReadTimeoutSeconds:              30,
		},
	}
}

// tomlSettings matches cmd/gprobe's field-name-is-key convention verbatim
// so config files can be written without worrying about casing rules.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Load reads and decodes a TOML file into a fresh Config seeded with
// Default().
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		if _, ok := err.(*toml.LineError); ok {
			return cfg, fmt.Errorf("%s, %v", path, err)
		}
		return cfg, err
	}
	return cfg, nil
}

// Watcher reloads Config from disk whenever the backing file changes and
// publishes the result on C. It never closes C on its own; call Stop to
// release the underlying filesystem watch.
type Watcher struct {
	log  nlog.Logger
	path string

	C chan Config

	mu      sync.Mutex
	events  chan notify.EventInfo
	stopped bool
}

// Watch starts watching path for writes and returns a Watcher primed
// with the file's current contents already decoded onto C.
func Watch(path string, log nlog.Logger) (*Watcher, error) {
	if log == nil {
		log = nlog.New("module", "config")
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	events := make(chan notify.EventInfo, 8)
	if err := notify.Watch(path, events, notify.Write); err != nil {
		return nil, err
	}

	w := &Watcher{
		log:    log,
		path:   path,
		C:      make(chan Config, 1),
		events: events,
	}
	w.C <- cfg
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for range w.events {
		cfg, err := Load(w.path)
		if err != nil {
			w.log.Warn("config reload failed, keeping previous configuration", "path", w.path, "err", err)
			continue
		}
		w.log.Info("configuration reloaded", "path", w.path)
		select {
		case w.C <- cfg:
		default:
			// Drain the stale value so the freshest config always wins.
			select {
			case <-w.C:
			default:
			}
			w.C <- cfg
		}
	}
}

// Stop releases the filesystem watch. Calls after the first are no-ops.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	notify.Stop(w.events)
	close(w.events)
}
