package config

import (
	"testing"
	"time"
)

func TestLoadReadsSnapshotCleanupSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/deals")
	t.Setenv("INSIGHTS_SNAPSHOT_CLEANUP_INTERVAL", "15m")
	t.Setenv("INSIGHTS_SNAPSHOT_RETENTION", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	var cleanup SnapshotCleanupConfig = cfg
	if got := cleanup.GetSnapshotCleanupInterval(); got != 15*time.Minute {
		t.Fatalf("expected 15m cleanup interval, got %v", got)
	}
	if got := cleanup.GetSnapshotRetention(); got != 48*time.Hour {
		t.Fatalf("expected 48h retention, got %v", got)
	}
}

func TestLoadDefaultsSnapshotCleanupSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/deals")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GetSnapshotCleanupInterval() != time.Hour || cfg.GetSnapshotRetention() != 24*time.Hour {
		t.Fatalf("unexpected defaults %v / %v", cfg.GetSnapshotCleanupInterval(), cfg.GetSnapshotRetention())
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad retention", env: map[string]string{"INSIGHTS_SNAPSHOT_RETENTION": "soon"}},
		{name: "bad policy", env: map[string]string{"INSIGHTS_AI_FAILURE_POLICY": "retry"}},
		{name: "redis store without url", env: map[string]string{"INSIGHTS_SNAPSHOT_STORE": "redis", "REDIS_URL": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/deals")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
