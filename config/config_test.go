package config

import (
	"testing"

	"github.com/urbis/urbis/diskmgr"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults() should validate cleanly: %v", err)
	}
	if cfg.DiskStrategy() != diskmgr.BestFit {
		t.Fatalf("default strategy did not resolve to best-fit")
	}
}

func TestValidateRejectsPersistWithoutDataPath(t *testing.T) {
	cfg := Defaults()
	cfg.Persist = true
	cfg.DataPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for persist without data_path")
	}
}

func TestValidateRejectsUnknownStrategy(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy = "round-robin"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no config file present should still succeed: %v", err)
	}
	if cfg.BlockSize != 1024 || cfg.PageCapacity != 64 || cfg.CacheSize != 128 {
		t.Fatalf("unexpected defaults from Load: %+v", cfg)
	}
}

func TestLoggerNilSafeDefault(t *testing.T) {
	cfg := Defaults()
	logger := cfg.Logger()
	if logger == nil {
		t.Fatalf("Logger() must never return nil")
	}
	logger.Info("should be a no-op")
}
