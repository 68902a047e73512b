package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/internal/cli/output"
	"github.com/marmos91/contactpic/pkg/apiclient"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a server is up and ready",
	Long: `Query the liveness and readiness checks of a running server.

The command fails when the server is unreachable or not ready.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "", "Server base URL (default: from config)")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

type serverStatus struct {
	Server string            `json:"server" yaml:"server"`
	Live   *apiclient.Health `json:"live" yaml:"live"`
	Ready  *apiclient.Health `json:"ready" yaml:"ready"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	live, err := client.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("server %s is unreachable: %w", client.BaseURL(), err)
	}
	ready, err := client.Ready(cmd.Context())
	if err != nil {
		return fmt.Errorf("readiness check failed: %w", err)
	}

	st := serverStatus{Server: client.BaseURL(), Live: live, Ready: ready}
	if format != output.FormatTable {
		if err := output.NewPrinter(cmd.OutOrStdout(), format, !noColor).Print(st); err != nil {
			return err
		}
	} else {
		readiness := ready.Status
		if ready.Error != "" {
			readiness += " (" + ready.Error + ")"
		}
		pairs := [][2]string{
			{"Server", st.Server},
			{"Service", live.Data.Service},
			{"Uptime", live.Data.Uptime},
			{"Live", live.Status},
			{"Ready", readiness},
		}
		if ready.Data.DirectoryLatency != "" {
			pairs = append(pairs, [2]string{"Directory latency", ready.Data.DirectoryLatency})
		}
		if err := output.PrintKeyValues(cmd.OutOrStdout(), pairs); err != nil {
			return err
		}
	}

	if !ready.Healthy() {
		return fmt.Errorf("server %s is not ready", client.BaseURL())
	}
	return nil
}
