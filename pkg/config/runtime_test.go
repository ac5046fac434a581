package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRuntimeConfig_DefaultsWhenFilePartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runtime.yaml")
	if err := os.WriteFile(path, []byte("scheduler:\n  dispatch_budget: 10\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("LoadRuntimeConfig: %v", err)
	}
	if cfg.Scheduler.DispatchBudget != 10 {
		t.Fatalf("DispatchBudget = %d, want 10", cfg.Scheduler.DispatchBudget)
	}
	if cfg.Channel.DefaultCapacity != DefaultChannelConfig().DefaultCapacity {
		t.Fatalf("DefaultCapacity = %d, want default %d", cfg.Channel.DefaultCapacity, DefaultChannelConfig().DefaultCapacity)
	}
}

func TestValidateRuntimeConfig_RejectsZeroCapacity(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.Channel.DefaultCapacity = 0
	if err := ValidateRuntimeConfig(&cfg); err == nil {
		t.Fatal("expected an error for zero default_capacity")
	}
}

func TestValidateRuntimeConfig_RejectsNegativeDispatchBudget(t *testing.T) {
	cfg := DefaultRuntimeConfig()
	cfg.Scheduler.DispatchBudget = -1
	if err := ValidateRuntimeConfig(&cfg); err == nil {
		t.Fatal("expected an error for negative dispatch_budget")
	}
}
