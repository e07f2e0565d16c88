// Package httpapi exposes the vault operations over a JSON REST API.
// Identity comes from short-lived session tokens; watcher routes carry
// their own shared-secret header instead.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/guardianvault/vaultd/internal/logging"
	"github.com/guardianvault/vaultd/internal/server/config"
	"github.com/guardianvault/vaultd/internal/server/models"
	"github.com/guardianvault/vaultd/internal/vault"
)

const gracefulShutdownTimeout = 30 * time.Second

// The server consumes the service layer through these interfaces so
// handlers can be exercised against fakes.

type SessionOperations interface {
	Issue(principal vault.Principal, identitySecret string) (string, error)
	VerifyWatcher(secret string) error
}

type VaultOperations interface {
	SetGuardians(ctx context.Context, caller vault.Principal, guardians []vault.Principal, quorum uint32) error
	GetGuardians(ctx context.Context, owner vault.Principal) (vault.GuardianConfig, error)
	RequestRecovery(ctx context.Context, owner, caller, newOwner vault.Principal) (uint64, error)
	ApproveRecovery(ctx context.Context, owner, caller vault.Principal, id uint64) (bool, error)
	RecoveryStatus(ctx context.Context, owner vault.Principal, id uint64) (vault.RecoveryRequest, error)
	RecoveryRequests(ctx context.Context, owner vault.Principal) ([]vault.RecoveryRequest, error)
}

type LedgerOperations interface {
	TransferFee() uint64
	BalanceOf(ctx context.Context, account vault.AccountID) (uint64, error)
	Transfer(ctx context.Context, from, to vault.AccountID, amount uint64, fee *uint64, memo []byte) (uint64, error)
	Withdraw(ctx context.Context, from vault.AccountID, btcAddress string, amount uint64) (uint64, error)
	Transactions(ctx context.Context, p vault.Principal) ([]*models.Transaction, error)
}

type UtxoOperations interface {
	DepositAddress(ctx context.Context, account vault.AccountID) (string, error)
	ApplyUtxoReport(ctx context.Context, account vault.AccountID, report vault.UtxoReport) (bool, error)
	MarkSpent(ctx context.Context, op vault.OutPoint) error
	Utxos(ctx context.Context, account vault.AccountID) ([]*models.Utxo, error)
	PendingUtxos(ctx context.Context, account vault.AccountID) ([]*models.Utxo, error)
}

type Server struct {
	logger   logging.Logger
	config   *config.Config
	sessions SessionOperations
	vaults   VaultOperations
	ledger   LedgerOperations
	utxos    UtxoOperations

	httpServer *http.Server
}

func NewServer(logger logging.Logger, cfg *config.Config,
	sessions SessionOperations, vaults VaultOperations,
	ledger LedgerOperations, utxos UtxoOperations) *Server {

	s := &Server{
		logger:   logger,
		config:   cfg,
		sessions: sessions,
		vaults:   vaults,
		ledger:   ledger,
		utxos:    utxos,
	}

	router := mux.NewRouter()
	router.Use(s.requestMetadataMiddleware)
	router.Use(s.recoveryMiddleware)
	router.Use(s.loggingMiddleware)
	router.Use(s.setJSONMiddleware)
	s.addRoutes(router)

	s.httpServer = &http.Server{
		Addr:    cfg.EndpointAddr,
		Handler: handlers.CORS()(router),
	}
	return s
}

func (s *Server) addRoutes(router *mux.Router) {
	router.HandleFunc("/v1/session", s.handleSession).Methods(http.MethodPost)

	// Registration order matters: the watcher prefix must be claimed
	// before the catch-all authenticated /v1 subrouter.
	watcher := router.PathPrefix("/v1/watcher").Subrouter()
	watcher.Use(s.watcherMiddleware)
	watcher.HandleFunc("/utxo-reports", s.handleUtxoReport).Methods(http.MethodPost)
	watcher.HandleFunc("/utxo-spent", s.handleUtxoSpent).Methods(http.MethodPost)

	authed := router.PathPrefix("/v1").Subrouter()
	authed.Use(s.authMiddleware)

	authed.HandleFunc("/guardians", s.handleGetGuardians).Methods(http.MethodGet)
	authed.HandleFunc("/guardians", s.handleSetGuardians).Methods(http.MethodPut)
	authed.HandleFunc("/vaults/{owner}/guardians", s.handleVaultGuardians).Methods(http.MethodGet)

	authed.HandleFunc("/vaults/{owner}/recovery", s.handleRequestRecovery).Methods(http.MethodPost)
	authed.HandleFunc("/vaults/{owner}/recovery", s.handleRecoveryRequests).Methods(http.MethodGet)
	authed.HandleFunc("/vaults/{owner}/recovery/{id}", s.handleRecoveryStatus).Methods(http.MethodGet)
	authed.HandleFunc("/vaults/{owner}/recovery/{id}/approvals", s.handleApproveRecovery).Methods(http.MethodPost)

	authed.HandleFunc("/ckbtc/balance", s.handleBalance).Methods(http.MethodGet)
	authed.HandleFunc("/ckbtc/fee", s.handleFee).Methods(http.MethodGet)
	authed.HandleFunc("/ckbtc/transfers", s.handleTransfer).Methods(http.MethodPost)
	authed.HandleFunc("/ckbtc/withdrawals", s.handleWithdraw).Methods(http.MethodPost)
	authed.HandleFunc("/ckbtc/transactions", s.handleTransactions).Methods(http.MethodGet)

	authed.HandleFunc("/btc/deposit-address", s.handleDepositAddress).Methods(http.MethodGet)
	authed.HandleFunc("/btc/utxos", s.handleUtxos).Methods(http.MethodGet)
	authed.HandleFunc("/btc/utxos/pending", s.handlePendingUtxos).Methods(http.MethodGet)
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving and blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
