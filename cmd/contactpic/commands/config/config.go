// Package config implements the config subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/pkg/config"
)

// Cmd is the config subcommand.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Inspect contactpic configuration.

Use 'contactpic init' to create a new configuration file.

Subcommands:
  validate  Validate configuration file
  show      Display effective configuration
  schema    Generate JSON schema for IDE/validation`,
}

func init() {
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(schemaCmd)
}

// loadConfig loads the file named by the inherited --config flag, or
// defaults plus environment when no file exists.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		cfg, err := config.MustLoad(path)
		return cfg, path, err
	}
	if config.DefaultConfigExists() {
		path = config.GetDefaultConfigPath()
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	cfg, err := config.Load("")
	return cfg, "defaults", err
}
