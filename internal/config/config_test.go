package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.PersistBackend != "file" || cfg.DisplayNameLimit != 24 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.PersistTimeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.PersistTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PERSIST_BACKEND", " Redis ")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("PUBLIC_URL", "https://frames.example/")
	t.Setenv("PERSIST_SYNC", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PersistBackend != "redis" || cfg.PublicURL != "https://frames.example" || !cfg.PersistSync {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		key, value, want string
	}{
		{"PERSIST_BACKEND", "mongo", "PERSIST_BACKEND"},
		{"PERSIST_BACKEND", "redis", "REDIS_URL"},
		{"PERSIST_BACKEND", "postgres", "DATABASE_URL"},
		{"DISPLAY_NAME_LIMIT", "0", "DISPLAY_NAME_LIMIT"},
		{"BOARD_SQUARE_SIZE", "4", "BOARD_SQUARE_SIZE"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv("REDIS_URL", "")
			t.Setenv("DATABASE_URL", "")
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
