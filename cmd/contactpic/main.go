// Command contactpic serves and renders contact avatars.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/contactpic/cmd/contactpic/commands"
	"github.com/marmos91/contactpic/internal/cli/prompt"
)

// Set with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetBuildInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "contactpic: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an interrupted prompt to the shell's SIGINT status.
func exitCode(err error) int {
	if errors.Is(err, prompt.ErrAborted) {
		return 130
	}
	return 1
}
