package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample contactpic configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/contactpic/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  contactpic init

  # Initialize with custom path
  contactpic init --config /etc/contactpic/config.yaml

  # Force overwrite existing config
  contactpic init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()

	var err error
	if configPath != "" {
		err = config.InitConfigToPath(configPath, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Point directory.type at your contact store")
	_, _ = fmt.Fprintln(out, "  2. Add contacts with: contactpic contacts add <address> --photo <path>")
	_, _ = fmt.Fprintln(out, "  3. Start the server with: contactpic serve")
	return nil
}
