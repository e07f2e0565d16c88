package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"github.com/guardianvault/vaultd/internal/client/cli"
	"github.com/guardianvault/vaultd/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx, bufio.NewScanner(os.Stdin))

}
