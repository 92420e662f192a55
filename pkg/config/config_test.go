package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scoring.MaxAnchorLength != 10 {
		t.Errorf("MaxAnchorLength = %d, want 10", cfg.Scoring.MaxAnchorLength)
	}
	if cfg.Batch.SoftBudget != 15*time.Second || cfg.Batch.HardBudget != 45*time.Second {
		t.Errorf("unexpected budgets %s/%s", cfg.Batch.SoftBudget, cfg.Batch.HardBudget)
	}
	if cfg.RunState.SnapshotTTL != 15*time.Minute {
		t.Errorf("SnapshotTTL = %s", cfg.RunState.SnapshotTTL)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "dev.yaml", `
store:
  driver: sqlite
  sqlitePath: /tmp/x.db
batch:
  size: 50
  softBudget: 5s
  hardBudget: 20s
segment:
  ignoreClasses: ["*sidebar*", "toc"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Batch.Size != 50 {
		t.Errorf("yaml values not applied: %+v %+v", cfg.Store, cfg.Batch)
	}
	if cfg.Batch.SoftBudget != 5*time.Second {
		t.Errorf("SoftBudget = %s", cfg.Batch.SoftBudget)
	}
	if len(cfg.Segment.IgnoreClasses) != 2 {
		t.Errorf("IgnoreClasses = %v", cfg.Segment.IgnoreClasses)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "dev.toml", `
[store]
driver = "bolt"

[text]
language = "russian"
ignoreWords = ["the", "and"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "bolt" || cfg.Text.Language != "russian" {
		t.Errorf("toml values not applied: %+v %+v", cfg.Store, cfg.Text)
	}
	if len(cfg.Text.IgnoreWords) != 2 {
		t.Errorf("IgnoreWords = %v", cfg.Text.IgnoreWords)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LS_STORE_DRIVER", "memory")
	t.Setenv("LS_BATCH_SIZE", "7")
	t.Setenv("LS_KAFKA_BROKERS", "a:9092,b:9092")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Batch.Size != 7 {
		t.Errorf("env overrides not applied: %+v %+v", cfg.Store, cfg.Batch)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestValidateRejectsBadDriver(t *testing.T) {
	path := writeFile(t, "bad.yaml", "store:\n  driver: mongo\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
