package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "nhznode.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesOverTopOfDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[P2P]
MyAddress = "203.0.113.1:7774"
MaxNumberOfConnectedPublicPeers = 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.P2P.MyAddress != "203.0.113.1:7774" {
		t.Fatalf("expected MyAddress to be overridden, got %q", cfg.P2P.MyAddress)
	}
	if cfg.P2P.MaxNumberOfConnectedPublicPeers != 5 {
		t.Fatalf("expected override to 5, got %d", cfg.P2P.MaxNumberOfConnectedPublicPeers)
	}
	if cfg.P2P.SendToPeersLimit != Default().P2P.SendToPeersLimit {
		t.Fatalf("expected fields not present in the file to keep their default")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
[P2P]
ThisFieldDoesNotExist = true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown TOML field")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[P2P]
MaxNumberOfConnectedPublicPeers = 5
`)

	w, err := Watch(path, nil)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Stop()

	initial := <-w.C
	if initial.P2P.MaxNumberOfConnectedPublicPeers != 5 {
		t.Fatalf("expected initial value 5, got %d", initial.P2P.MaxNumberOfConnectedPublicPeers)
	}

	writeConfig(t, dir, `
[P2P]
MaxNumberOfConnectedPublicPeers = 9
`)

	select {
	case cfg := <-w.C:
		if cfg.P2P.MaxNumberOfConnectedPublicPeers != 9 {
			t.Fatalf("expected reloaded value 9, got %d", cfg.P2P.MaxNumberOfConnectedPublicPeers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the watcher to observe the rewritten file")
	}
}
