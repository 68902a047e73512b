package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const configHeader = `# contactpic configuration file
#
# Every key can be overridden from the environment as
# CONTACTPIC_<SECTION>_<KEY>, e.g. CONTACTPIC_CACHE_CAPACITY=64Mi.
#
# Sizes accept units (64Mi, 1GB). Durations use Go syntax (30s, 5m).
# Leave cache.capacity at 0 to derive it from cache.memory_budget, or from
# available memory when the budget is 0 as well.

`

// InitConfig writes a default config file to the default location and
// returns its path. An existing file is kept unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default config file to path. An existing file
// is kept unless force is set.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	return writeConfigFile(path, append([]byte(configHeader), data...))
}
