package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/internal/bytesize"
	"github.com/marmos91/contactpic/internal/cli/output"
	"github.com/marmos91/contactpic/internal/cli/prompt"
	"github.com/marmos91/contactpic/pkg/apiclient"
)

var (
	cacheOutput string
	cacheForce  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear a running server's avatar cache",
	Long: `Inspect and clear the avatar cache of a running contactpic server.

The server defaults to the address in the configuration; use --server
to reach another one.

Examples:
  contactpic cache stats
  contactpic cache invalidate alice@example.com
  contactpic cache purge --force --server http://avatars.internal:8080`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and worker pool statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop every cached avatar",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <address>",
	Short: "Drop the cached avatar of one contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheInvalidate,
}

func init() {
	cacheCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server base URL (default: from config)")
	cacheStatsCmd.Flags().StringVarP(&cacheOutput, "output", "o", "table", "Output format (table|json|yaml)")
	cachePurgeCmd.Flags().BoolVarP(&cacheForce, "force", "f", false, "Skip confirmation")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(cacheOutput)
	if err != nil {
		return err
	}

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	stats, err := client.CacheStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get cache stats: %w", err)
	}

	if format != output.FormatTable {
		return output.NewPrinter(cmd.OutOrStdout(), format, !noColor).Print(stats)
	}
	return output.PrintKeyValues(cmd.OutOrStdout(), cacheStatsPairs(stats))
}

func cacheStatsPairs(s *apiclient.CacheStats) [][2]string {
	return [][2]string{
		{"Entries", strconv.Itoa(s.Cache.Entries)},
		{"Size", bytesize.ByteSize(s.Cache.Size).String()},
		{"Capacity", bytesize.ByteSize(s.Cache.Capacity).String()},
		{"Hit rate", fmt.Sprintf("%.1f%%", s.HitRate*100)},
		{"Hits / misses", fmt.Sprintf("%d / %d", s.Cache.Hits, s.Cache.Misses)},
		{"Evictions", strconv.FormatUint(s.Cache.Evictions, 10)},
		{"Rejected (oversized)", strconv.FormatUint(s.Cache.Rejects, 10)},
		{"Workers", strconv.Itoa(s.Queue.Workers)},
		{"Queue", fmt.Sprintf("%d / %d", s.Queue.Pending, s.Queue.Capacity)},
		{"Loads in flight", strconv.Itoa(s.InFlight)},
		{"Slots", strconv.Itoa(s.Slots)},
	}
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Purge the avatar cache on %s", client.BaseURL()), cacheForce)
	if err != nil {
		return err
	}
	printer := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, !noColor)
	if !ok {
		printer.Warning("Aborted")
		return nil
	}

	if err := client.PurgeCache(cmd.Context()); err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}
	printer.Success("Avatar cache purged")
	return nil
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable, !noColor)
	if err := client.InvalidateAvatar(cmd.Context(), args[0]); err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			printer.Warning(fmt.Sprintf("No cached avatar for %s", args[0]))
			return nil
		}
		return fmt.Errorf("failed to invalidate avatar: %w", err)
	}
	printer.Success(fmt.Sprintf("Cached avatar for %s invalidated", args[0]))
	return nil
}
