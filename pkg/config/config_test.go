package config

import (
	"os"
	"testing"
)

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvStoreCatalogPath, "/etc/storebridge/catalog.json")
}

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if !cfg.App.IsProd() {
		t.Fatal("expected IsProd to be true")
	}
	if cfg.Store.Backend != StoreBackendLocal {
		t.Fatalf("expected default local backend, got %q", cfg.Store.Backend)
	}
	if cfg.Channel.EventQueueSize != 64 {
		t.Fatalf("expected default event queue size 64, got %d", cfg.Channel.EventQueueSize)
	}
	if cfg.PubSub.Enabled {
		t.Fatal("expected pubsub relay disabled by default")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected error when app env missing")
	}
}

func TestLoad_LocalBackendRequiresCatalog(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvStoreCatalogPath); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvStoreCatalogPath, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected error when catalog path missing for local backend")
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("STOREBRIDGE_STORE_BACKEND", "sqlserver")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}
