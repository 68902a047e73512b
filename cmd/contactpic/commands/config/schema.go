package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/pkg/config"
)

const schemaDraft = "https://json-schema.org/draft/2020-12/schema"

var (
	schemaFile    string
	schemaCompact bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the config file",
	Long: `Print a JSON schema describing config.yaml, for editor completion
and CI checks.

Examples:
  contactpic config schema > contactpic.schema.json
  contactpic config schema --file contactpic.schema.json --compact`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaFile, "file", "f", "", "Write the schema to this file instead of stdout")
	schemaCmd.Flags().BoolVar(&schemaCompact, "compact", false, "Emit single-line JSON")
}

// Schema reflects config.Config into a JSON schema keyed by the YAML field
// names.
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		FieldNameTag:   "yaml",
		DoNotReference: true,
	}
	s := r.Reflect(&config.Config{})
	s.Version = schemaDraft
	s.Title = "contactpic"
	s.Description = "contactpic avatar server configuration"
	return s
}

func runSchema(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if schemaCompact {
		data, err = json.Marshal(Schema())
	} else {
		data, err = json.MarshalIndent(Schema(), "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	if schemaFile == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	if err := os.WriteFile(schemaFile, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", schemaFile, err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Schema written to %s\n", schemaFile)
	return nil
}
