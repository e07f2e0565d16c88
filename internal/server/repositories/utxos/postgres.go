package utxos

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

func normalizeSub(subaccount []byte) []byte {
	if subaccount == nil {
		return []byte{}
	}
	return subaccount
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, txid []byte, vout uint32) (*models.Utxo, error) {
	query :=
		`SELECT txid, vout, owner, subaccount, value, confirmations, height, state, seq, discovered_at
		 FROM utxos
		 WHERE txid = $1 AND vout = $2
		 FOR UPDATE
		 `

	u := &models.Utxo{}
	var value, seq int64
	err := r.db.QueryRowContext(ctx, query, txid, vout).
		Scan(&u.TxID, &u.Vout, &u.Owner, &u.Subaccount, &value,
			&u.Confirmations, &u.Height, &u.State, &seq, &u.DiscoveredAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Value = uint64(value)
	u.Seq = uint64(seq)
	return u, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, u *models.Utxo) error {
	query :=
		`INSERT INTO utxos (txid, vout, owner, subaccount, value, confirmations, height, state, discovered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING seq
		 `

	var seq int64
	err := r.db.QueryRowContext(ctx, query,
		u.TxID, u.Vout, u.Owner, normalizeSub(u.Subaccount),
		int64(u.Value), u.Confirmations, u.Height, u.State, u.DiscoveredAt).
		Scan(&seq)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	u.Seq = uint64(seq)
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *models.Utxo) error {
	query :=
		`UPDATE utxos SET confirmations = $3, height = $4, state = $5
		 WHERE txid = $1 AND vout = $2
		 `

	_, err := r.db.ExecContext(ctx, query, u.TxID, u.Vout, u.Confirmations, u.Height, u.State)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, owner string, subaccount []byte, state string) ([]*models.Utxo, error) {
	// Confirmed listings are height-ordered, pending listings follow
	// discovery order; the seq tie-break keeps both deterministic.
	order := "seq"
	if state == "confirmed" {
		order = "height, txid, vout"
	}

	query := fmt.Sprintf(
		`SELECT txid, vout, owner, subaccount, value, confirmations, height, state, seq, discovered_at
		 FROM utxos
		 WHERE owner = $1 AND subaccount = $2 AND state = $3
		 ORDER BY %s
		 `, order)

	rows, err := r.db.QueryContext(ctx, query, owner, normalizeSub(subaccount), state)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Utxo
	for rows.Next() {
		u := &models.Utxo{}
		var value, seq int64
		if err := rows.Scan(&u.TxID, &u.Vout, &u.Owner, &u.Subaccount, &value,
			&u.Confirmations, &u.Height, &u.State, &seq, &u.DiscoveredAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		u.Value = uint64(value)
		u.Seq = uint64(seq)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) GetDepositAddress(ctx context.Context, owner string, subaccount []byte) (string, error) {
	query :=
		`SELECT address FROM deposit_addresses
		 WHERE owner = $1 AND subaccount = $2
		 `

	var address string
	err := r.db.QueryRowContext(ctx, query, owner, normalizeSub(subaccount)).Scan(&address)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return address, nil
}

func (r *PostgresRepository) SaveDepositAddress(ctx context.Context, addr *models.DepositAddress) error {
	query :=
		`INSERT INTO deposit_addresses (owner, subaccount, address)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (owner, subaccount) DO NOTHING
		 `

	_, err := r.db.ExecContext(ctx, query, addr.Owner, normalizeSub(addr.Subaccount), addr.Address)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
