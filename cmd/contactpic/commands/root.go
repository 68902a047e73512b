// Package commands implements the contactpic CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/cmd/contactpic/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "contactpic",
	Short: "contactpic - contact avatar loader",
	Long: `contactpic renders square avatars for contacts.

Photos are looked up in a contact directory (a YAML file, SQLite,
PostgreSQL or an embedded badger store), decoded, scaled and cached in
memory. Contacts without a photo get a coloured placeholder showing the
first letter of their name.

Use "contactpic [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetBuildInfo records the version stamped in by the linker.
func SetBuildInfo(version, commit, date string) {
	Version, Commit, Date = version, commit, date
	rootCmd.Version = version
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/contactpic/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(contactsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
