package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Search.SuggestionLimit != 10 || cfg.Search.ResultLimit != 50 {
		t.Errorf("unexpected limits: %+v", cfg.Search)
	}
	if cfg.Search.BoostFactor != 2 {
		t.Errorf("expected boost factor 2, got %v", cfg.Search.BoostFactor)
	}
	if cfg.Maintenance.ResetInterval != 24*time.Hour {
		t.Errorf("expected daily reset, got %v", cfg.Maintenance.ResetInterval)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("server:\n  port: 7000\nsearch:\n  resultLimit: 20\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RD_SERVER_PORT", "7100")
	t.Setenv("RD_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("env should win over file, got port %d", cfg.Server.Port)
	}
	if cfg.Search.ResultLimit != 20 {
		t.Errorf("expected file value 20, got %d", cfg.Search.ResultLimit)
	}
	if cfg.Search.SuggestionLimit != 10 {
		t.Errorf("unset values keep defaults, got %d", cfg.Search.SuggestionLimit)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("expected two brokers, got %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRejectsInvalidLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("search:\n  suggestionLimit: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestEnvOverrideIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RD_SERVER_PORT", "not-a-port")
	t.Setenv("RD_MAINTENANCE_RESET_INTERVAL", "1h")
	t.Setenv("RD_ANALYTICS_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("malformed port should keep default, got %d", cfg.Server.Port)
	}
	if cfg.Maintenance.ResetInterval != time.Hour {
		t.Errorf("expected 1h reset interval, got %v", cfg.Maintenance.ResetInterval)
	}
	if cfg.Analytics.Enabled {
		t.Error("expected analytics disabled by env")
	}
}
