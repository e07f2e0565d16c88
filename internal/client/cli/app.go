package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/guardianvault/vaultd/internal/client/client"
	"github.com/guardianvault/vaultd/internal/client/config"
)

// App wires the interactive command loop to the API client. The
// principal is remembered after a successful login and shown in the
// prompt.
type App struct {
	config    *config.Config
	api       client.Client
	principal string
	reader    *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	apiClient := client.NewRESTClient(c.ServerEndpointAddr, c.RequestTimeout)
	return &App{config: c, api: apiClient, reader: bufio.NewReader(os.Stdin)}, nil
}

func (a *App) isLoggedIn() bool {
	return a.principal != ""
}

func (a *App) getStatus() string {
	if a.principal == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.principal)
}
