package config

import (
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"
)

// availableMemory is swapped in tests.
var availableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// minCacheCapacity keeps a derived capacity from rounding down to nothing
// on tiny budgets.
const minCacheCapacity = 64 << 10

// ResolveCacheCapacity returns the image cache capacity in bytes.
//
// An explicit Capacity wins. Otherwise the capacity is MemoryBudget /
// BudgetDivisor, with the budget read from the host's available memory
// when unset.
func ResolveCacheCapacity(cfg CacheConfig) (int64, error) {
	if cfg.Capacity > 0 {
		return cfg.Capacity.Int64(), nil
	}

	divisor := cfg.BudgetDivisor
	if divisor <= 0 {
		divisor = DefaultBudgetDivisor
	}

	budget := cfg.MemoryBudget.Uint64()
	if budget == 0 {
		avail, err := availableMemory()
		if err != nil {
			return 0, fmt.Errorf("failed to read available memory: %w", err)
		}
		budget = avail
	}

	capacity := budget / uint64(divisor)
	if capacity < minCacheCapacity {
		capacity = minCacheCapacity
	}
	if capacity > 1<<62 {
		capacity = 1 << 62
	}
	return int64(capacity), nil
}
