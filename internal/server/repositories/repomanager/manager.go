package repomanager

import (
	"context"
	"database/sql"

	"github.com/guardianvault/vaultd/internal/dbx"
	"github.com/guardianvault/vaultd/internal/server/repositories/ledger"
	"github.com/guardianvault/vaultd/internal/server/repositories/utxos"
	"github.com/guardianvault/vaultd/internal/server/repositories/vaults"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Vaults(db dbx.DBTX) vaults.Repository
	Ledger(db dbx.DBTX) ledger.Repository
	Utxos(db dbx.DBTX) utxos.Repository
}
