package config

import (
	"fmt"
	"math"
)

// unboundedCapacity mirrors fchan.Unbounded; duplicated here (rather
// than imported) because fchan already imports config for defaults and
// config must not import back.
const unboundedCapacity = -1

// SchedulerConfig tunes scheduler.Scheduler. DispatchBudget bounds how
// many fibers a single Dispatch() call will resume before returning
// control to the host event loop (§4.3 step 4's "implementation-
// defined soft bound"); zero means "use the package default".
type SchedulerConfig struct {
	DefaultStackSize uint64 `yaml:"default_stack_size" json:"default_stack_size"`
	DispatchBudget   int    `yaml:"dispatch_budget" json:"dispatch_budget"`
}

// ChannelConfig tunes fchan.Channel defaults.
type ChannelConfig struct {
	DefaultCapacity          int  `yaml:"default_capacity" json:"default_capacity"`
	CloseDrainOnReceiveClose bool `yaml:"close_drain_on_receive_close" json:"close_drain_on_receive_close"`
}

// RuntimeConfig is the top-level shape LoadRuntimeConfig reads from a
// YAML or JSON file via Load/LoadYAML/LoadJSON, with FIBERFLOW_*
// environment overrides applied on top via LoadWithEnv.
type RuntimeConfig struct {
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	Channel   ChannelConfig   `yaml:"channel" json:"channel"`
}

// DefaultSchedulerConfig mirrors fiber.DefaultStackSize and caps a
// single Dispatch at 256 fiber resumes, so one call drains a ready
// queue of up to that length and returns to the event loop after it.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DefaultStackSize: 64 * 1024,
		DispatchBudget:   256,
	}
}

// DefaultChannelConfig matches §3's "positive integer (unbounded
// sentinel allowed)" capacity model with a small bounded default.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		DefaultCapacity:          16,
		CloseDrainOnReceiveClose: true,
	}
}

// DefaultRuntimeConfig composes the two component defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Scheduler: DefaultSchedulerConfig(),
		Channel:   DefaultChannelConfig(),
	}
}

// LoadRuntimeConfig loads a RuntimeConfig from path (YAML or JSON,
// detected by extension via Load), starting from DefaultRuntimeConfig
// so a file that only overrides one field still produces a fully
// populated config. FIBERFLOW_* environment variables (e.g.
// FIBERFLOW_SCHEDULER_DISPATCHBUDGET) are applied on top of the file
// via LoadWithEnv, then the result is validated with
// ValidateRuntimeConfig.
func LoadRuntimeConfig(path string) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	if err := LoadWithEnv(path, "FIBERFLOW", &cfg); err != nil {
		return RuntimeConfig{}, fmt.Errorf("load runtime config: %w", err)
	}
	if err := ValidateRuntimeConfig(&cfg); err != nil {
		return RuntimeConfig{}, err
	}

	// Round-trip the already-validated config through a Manager, the
	// same typed-accessor pattern config.Manager/GetTyped exist for,
	// rather than just returning cfg directly.
	mgr := NewManager(&cfg)
	return *MustGetTyped[*RuntimeConfig](mgr.Get()), nil
}

// ValidateRuntimeConfig rejects configurations Dispatch/Channel
// construction cannot sensibly act on. It drives validator.go's
// Manager/RangeValidator machinery instead of hand-rolled fmt.Errorf
// checks, so the range rules live next to the other config validators
// rather than duplicating their logic.
func ValidateRuntimeConfig(cfg *RuntimeConfig) error {
	mgr := NewManager(cfg)
	mgr.AddValidator(RangeValidator("Scheduler.DispatchBudget", 0, math.MaxInt32))
	mgr.AddValidator(RangeValidator("Scheduler.DefaultStackSize", 1, math.MaxInt64))
	if cfg.Channel.DefaultCapacity != unboundedCapacity {
		mgr.AddValidator(RangeValidator("Channel.DefaultCapacity", 1, math.MaxInt32))
	}
	if err := mgr.Validate(); err != nil {
		return err
	}

	// GetTyped's fallible form confirms the Manager still holds exactly
	// the *RuntimeConfig we gave it before callers trust the validation
	// outcome.
	_, err := GetTyped[*RuntimeConfig](mgr.Get())
	return err
}
