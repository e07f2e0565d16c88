// Package ledger persists custodial balances, the transaction history,
// and the minted-outpoint set that keeps deposit crediting idempotent.
package ledger

import (
	"context"

	"github.com/guardianvault/vaultd/internal/server/models"
)

type Repository interface {
	// GetAccount returns the balance row or common.ErrorNotFound.
	GetAccount(ctx context.Context, owner string, subaccount []byte) (*models.LedgerAccount, error)

	// GetAccountForUpdate is GetAccount holding a row lock. Missing
	// accounts still return common.ErrorNotFound; callers create them
	// with UpsertAccount.
	GetAccountForUpdate(ctx context.Context, owner string, subaccount []byte) (*models.LedgerAccount, error)

	// UpsertAccount writes the balance row, inserting it if absent.
	UpsertAccount(ctx context.Context, account *models.LedgerAccount) error

	// InsertTransaction appends a history row and returns its
	// database-assigned, monotonically increasing id.
	InsertTransaction(ctx context.Context, tx *models.Transaction) (uint64, error)

	// ListTransactionsByOwner returns history rows touching the given
	// principal, oldest first.
	ListTransactionsByOwner(ctx context.Context, owner string) ([]*models.Transaction, error)

	// InsertMint records an outpoint as credited. Returns false when the
	// outpoint was already present (idempotency violation upstream).
	InsertMint(ctx context.Context, txid []byte, vout uint32) (bool, error)

	// IsMinted reports whether the outpoint already credited the ledger.
	IsMinted(ctx context.Context, txid []byte, vout uint32) (bool, error)
}
