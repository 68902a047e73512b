package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/pkg/avatar"
	"github.com/marmos91/contactpic/pkg/avatar/loader"
	"github.com/marmos91/contactpic/pkg/photo"
)

var (
	renderOutput   string
	renderFormat   string
	renderFallback bool
	renderSize     int
)

var renderCmd = &cobra.Command{
	Use:   "render <contact>",
	Short: "Render one avatar to a file",
	Long: `Render the avatar for a contact and write it to a file or stdout.

The contact is an email address, optionally with a display name in
RFC 5322 form. The display name picks the placeholder letter when the
contact has no photo.

Examples:
  # Render to alice.png
  contactpic render alice@example.com -o alice.png

  # Render the placeholder at 128px as JPEG to stdout
  contactpic render "Alice Example <alice@example.com>" --fallback --size 128 --format jpeg > alice.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (default: stdout)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "", "Image format: "+strings.Join(photo.Formats, ", ")+" (default: from --output extension, else png)")
	renderCmd.Flags().BoolVar(&renderFallback, "fallback", false, "Render the placeholder without looking up a photo")
	renderCmd.Flags().IntVar(&renderSize, "size", 0, "Avatar size in pixels (default: avatar.picture_size)")
}

func runRender(cmd *cobra.Command, args []string) error {
	id, err := avatar.ParseIdentity(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}
	if renderSize > 0 {
		cfg.Avatar.PictureSize = renderSize
	}

	format := renderFormat
	if format == "" {
		format = formatFromPath(renderOutput)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Avatar.FetchTimeout)
	defer cancel()

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	var (
		img *avatar.Image
		src = loader.SourceFallback
	)
	if renderFallback {
		img = p.loader.Fallback(id)
	} else if img, src, err = p.loader.Resolve(ctx, id); err != nil {
		return fmt.Errorf("failed to resolve avatar: %w", err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if renderOutput != "" {
		f, err := os.Create(renderOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if err := photo.Encode(w, img, format); err != nil {
		return err
	}

	if renderOutput != "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s avatar for %s to %s\n", src, id, renderOutput)
	}
	return nil
}

// formatFromPath maps an output file extension to an Encode format.
func formatFromPath(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "jpg", "jpeg":
		return "jpeg"
	case "bmp":
		return "bmp"
	default:
		return "png"
	}
}
