package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func watcherYAML(model string) string {
	return fmt.Sprintf(`
backends:
  - name: local
    base_url: http://localhost:11434/v1

tiers:
  - id: draft
    backend: local
    model: %s
    cost_per_1k: 0.0
`, model)
}

// startWatcher runs Watch in a goroutine, delivering reloads on a channel.
func startWatcher(t *testing.T, path string) (chan *Config, context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	reloads := make(chan *Config, 4)
	done := make(chan error, 1)
	w := NewWatcher(path, 50*time.Millisecond)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) { reloads <- cfg })
	}()
	// Give the watcher time to register before the first write.
	time.Sleep(150 * time.Millisecond)
	return reloads, cancel, done
}

func awaitReload(t *testing.T, reloads chan *Config) *Config {
	t.Helper()
	select {
	case cfg := <-reloads:
		return cfg
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
		return nil
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saturn.yaml")
	if err := os.WriteFile(path, []byte(watcherYAML("llama3.1:8b")), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloads, cancel, done := startWatcher(t, path)
	defer cancel()

	if err := os.WriteFile(path, []byte(watcherYAML("llama3.1:70b")), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	cfg := awaitReload(t, reloads)
	if cfg.Tiers[0].Model != "llama3.1:70b" {
		t.Errorf("reloaded model = %q, want llama3.1:70b", cfg.Tiers[0].Model)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v after cancellation", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Watch did not return after cancellation")
	}
}

func TestWatcherKeepsPreviousOnBrokenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saturn.yaml")
	if err := os.WriteFile(path, []byte(watcherYAML("llama3.1:8b")), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloads, cancel, _ := startWatcher(t, path)
	defer cancel()

	// A write that fails validation must not reach the callback.
	if err := os.WriteFile(path, []byte("tiers: ["), 0o600); err != nil {
		t.Fatalf("write broken config: %v", err)
	}
	select {
	case cfg := <-reloads:
		t.Fatalf("broken configuration was delivered: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}

	// The watcher keeps running and picks up the next valid write.
	if err := os.WriteFile(path, []byte(watcherYAML("gpt-4o-mini")), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	cfg := awaitReload(t, reloads)
	if cfg.Tiers[0].Model != "gpt-4o-mini" {
		t.Errorf("recovered model = %q, want gpt-4o-mini", cfg.Tiers[0].Model)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saturn.yaml")
	if err := os.WriteFile(path, []byte(watcherYAML("llama3.1:8b")), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	reloads, cancel, _ := startWatcher(t, path)
	defer cancel()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("unrelated"), 0o600); err != nil {
		t.Fatalf("write sibling: %v", err)
	}
	select {
	case cfg := <-reloads:
		t.Fatalf("sibling write triggered a reload: %+v", cfg)
	case <-time.After(500 * time.Millisecond):
	}
}
