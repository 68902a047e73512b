package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/internal/bytesize"
	"github.com/marmos91/contactpic/internal/cli/output"
	"github.com/marmos91/contactpic/pkg/config"
	"github.com/marmos91/contactpic/pkg/directory"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the contactpic configuration file.

Checks for syntax errors, invalid values and an unusable cache size, then
prints a summary.

Examples:
  contactpic config validate
  contactpic config validate --config /etc/contactpic/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, source, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	capacity, err := config.ResolveCacheCapacity(cfg.Cache)
	if err != nil {
		return err
	}

	var warnings []string
	if cfg.Directory.Type == directory.TypeStatic && !cfg.Directory.Static.Watch {
		warnings = append(warnings, "static directory is not watched; photo changes need a restart")
	}
	if cfg.Photos.Root == "" {
		warnings = append(warnings, "photos.root is empty; photo locators may read any file")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", source)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintln(out, "\nConfiguration summary:")
	return output.PrintKeyValues(out, [][2]string{
		{"Directory", string(cfg.Directory.Type)},
		{"Listen", cfg.Server.Addr()},
		{"Picture size", fmt.Sprintf("%dpx", cfg.Avatar.PictureSize)},
		{"Cache capacity", bytesize.ByteSize(capacity).String()},
		{"Workers", fmt.Sprintf("%d (queue %d)", cfg.Avatar.Workers, cfg.Avatar.QueueSize)},
		{"Log level", cfg.Logging.Level},
	})
}
