package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/dbx"
	"github.com/guardianvault/vaultd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// normalizeSub maps a nil/empty subaccount to the empty bytea the schema
// keys default accounts with.
func normalizeSub(subaccount []byte) []byte {
	if subaccount == nil {
		return []byte{}
	}
	return subaccount
}

func (r *PostgresRepository) GetAccount(ctx context.Context, owner string, subaccount []byte) (*models.LedgerAccount, error) {
	return r.getAccount(ctx, owner, subaccount, false)
}

func (r *PostgresRepository) GetAccountForUpdate(ctx context.Context, owner string, subaccount []byte) (*models.LedgerAccount, error) {
	return r.getAccount(ctx, owner, subaccount, true)
}

func (r *PostgresRepository) getAccount(ctx context.Context, owner string, subaccount []byte, forUpdate bool) (*models.LedgerAccount, error) {
	query :=
		`SELECT owner, subaccount, balance FROM ledger_accounts
		 WHERE owner = $1 AND subaccount = $2
		 `
	if forUpdate {
		query += " FOR UPDATE"
	}

	account := &models.LedgerAccount{}
	var balance int64
	err := r.db.QueryRowContext(ctx, query, owner, normalizeSub(subaccount)).
		Scan(&account.Owner, &account.Subaccount, &balance)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.Balance = uint64(balance)
	return account, nil
}

func (r *PostgresRepository) UpsertAccount(ctx context.Context, account *models.LedgerAccount) error {
	query :=
		`INSERT INTO ledger_accounts (owner, subaccount, balance)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (owner, subaccount) DO UPDATE SET balance = EXCLUDED.balance
		 `

	_, err := r.db.ExecContext(ctx, query,
		account.Owner, normalizeSub(account.Subaccount), int64(account.Balance))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertTransaction(ctx context.Context, tx *models.Transaction) (uint64, error) {
	query :=
		`INSERT INTO ledger_transactions
		   (kind, from_owner, from_subaccount, to_owner, to_subaccount, amount, fee, memo, btc_address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		tx.Kind,
		tx.FromOwner, normalizeSub(tx.FromSubaccount),
		tx.ToOwner, normalizeSub(tx.ToSubaccount),
		int64(tx.Amount), int64(tx.Fee), tx.Memo, tx.BtcAddress, tx.CreatedAt).
		Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	tx.ID = uint64(id)
	return tx.ID, nil
}

func (r *PostgresRepository) ListTransactionsByOwner(ctx context.Context, owner string) ([]*models.Transaction, error) {
	query :=
		`SELECT id, kind, from_owner, from_subaccount, to_owner, to_subaccount,
		        amount, fee, memo, btc_address, created_at
		 FROM ledger_transactions
		 WHERE from_owner = $1 OR to_owner = $1
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Transaction
	for rows.Next() {
		tx := &models.Transaction{}
		var id, amount, fee int64
		if err := rows.Scan(&id, &tx.Kind,
			&tx.FromOwner, &tx.FromSubaccount, &tx.ToOwner, &tx.ToSubaccount,
			&amount, &fee, &tx.Memo, &tx.BtcAddress, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tx.ID = uint64(id)
		tx.Amount = uint64(amount)
		tx.Fee = uint64(fee)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) InsertMint(ctx context.Context, txid []byte, vout uint32) (bool, error) {
	query :=
		`INSERT INTO minted_outpoints (txid, vout)
		 VALUES ($1, $2)
		 ON CONFLICT (txid, vout) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query, txid, vout)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return inserted == 1, nil
}

func (r *PostgresRepository) IsMinted(ctx context.Context, txid []byte, vout uint32) (bool, error) {
	query :=
		`SELECT EXISTS (SELECT 1 FROM minted_outpoints WHERE txid = $1 AND vout = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, txid, vout).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
