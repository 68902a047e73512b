package commands

import (
	"fmt"
	"net"
	"strconv"

	"github.com/marmos91/contactpic/pkg/apiclient"
)

// serverURL is the --server flag shared by commands that talk to a
// running server.
var serverURL string

// newAPIClient returns a client for --server, or for the address the
// configured server listens on.
func newAPIClient() (*apiclient.Client, error) {
	if serverURL != "" {
		return apiclient.New(serverURL), nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return apiclient.New(fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port)))), nil
}
