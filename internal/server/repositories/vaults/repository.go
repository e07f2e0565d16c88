// Package vaults persists the recovery aggregate: the vault row, its
// guardian set, and its recovery requests with their approvals.
package vaults

import (
	"context"

	"github.com/guardianvault/vaultd/internal/server/models"
)

type Repository interface {
	// GetByOwner loads the full aggregate for the vault controlled by
	// owner, or common.ErrorNotFound.
	GetByOwner(ctx context.Context, owner string) (*models.Vault, error)

	// GetByOwnerForUpdate is GetByOwner holding a row lock on the vault
	// row, serializing concurrent mutations of the same vault.
	GetByOwnerForUpdate(ctx context.Context, owner string) (*models.Vault, error)

	// Create inserts a fresh vault row (no guardians, no requests).
	Create(ctx context.Context, v *models.Vault) error

	// Save writes back the whole aggregate: vault row, guardian set, and
	// request/approval rows.
	Save(ctx context.Context, v *models.Vault) error
}
