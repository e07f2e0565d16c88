// Package utxos persists tracked deposit outputs and issued deposit
// addresses.
package utxos

import (
	"context"

	"github.com/guardianvault/vaultd/internal/server/models"
)

type Repository interface {
	// GetForUpdate returns the output row under a row lock, or
	// common.ErrorNotFound for untracked outpoints.
	GetForUpdate(ctx context.Context, txid []byte, vout uint32) (*models.Utxo, error)

	// Insert tracks a newly discovered output; the database assigns Seq.
	Insert(ctx context.Context, u *models.Utxo) error

	// Update writes back confirmations, height, and state.
	Update(ctx context.Context, u *models.Utxo) error

	// ListByAccount returns the account's outputs in the given state.
	// Confirmed outputs come back by height ascending then outpoint,
	// pending outputs in discovery order.
	ListByAccount(ctx context.Context, owner string, subaccount []byte, state string) ([]*models.Utxo, error)

	// GetDepositAddress returns the issued address for the account, or
	// common.ErrorNotFound before one was issued.
	GetDepositAddress(ctx context.Context, owner string, subaccount []byte) (string, error)

	// SaveDepositAddress records the address issued to the account.
	SaveDepositAddress(ctx context.Context, addr *models.DepositAddress) error
}
