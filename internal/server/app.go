// Package server initializes and runs the vault server: it wires the
// database, runs migrations, constructs the services, and serves the
// HTTP API until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/guardianvault/vaultd/internal/logging"
	"github.com/guardianvault/vaultd/internal/server/config"
	"github.com/guardianvault/vaultd/internal/server/httpapi"
	"github.com/guardianvault/vaultd/internal/server/repositories/repomanager"
	"github.com/guardianvault/vaultd/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	sessionService := services.NewSessionService(cfg)
	vaultService := services.NewVaultService(db, m, cfg)
	ledgerService, err := services.NewLedgerService(db, m, cfg)
	if err != nil {
		return nil, err
	}
	utxoService, err := services.NewUtxoService(db, m, cfg)
	if err != nil {
		return nil, err
	}

	srv := httpapi.NewServer(logger, cfg, sessionService, vaultService, ledgerService, utxoService)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app")
	app.initSignalHandler(cancelFunc)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.server.Start()
	}()

	select {
	case <-ctx.Done():
		if err := app.server.Shutdown(); err != nil {
			app.logger.Error(ctx, "error shutting down http server", "error", err)
		}
		<-serveErr
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error(ctx, "http server failed", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
	app.logger.Info(ctx, "app stopped")
}
