package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/contactpic/internal/telemetry"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags first, then the rules that span fields.
func Validate(cfg *Config) error {
	if err := getValidator().Struct(cfg); err != nil {
		return err
	}

	if err := cfg.Directory.Validate(); err != nil {
		return fmt.Errorf("directory: %w", err)
	}

	if cfg.Telemetry.Profiling.Enabled {
		if _, err := telemetry.ParseProfileTypes(cfg.Telemetry.Profiling.ProfileTypes); err != nil {
			return fmt.Errorf("telemetry.profiling: %w", err)
		}
	}

	if cfg.Cache.Capacity != 0 && cfg.Cache.MemoryBudget != 0 && cfg.Cache.Capacity > cfg.Cache.MemoryBudget {
		return fmt.Errorf("cache.capacity (%s) exceeds cache.memory_budget (%s)",
			cfg.Cache.Capacity, cfg.Cache.MemoryBudget)
	}

	return nil
}
