package vaults

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

func (r *PostgresRepository) GetByOwner(ctx context.Context, owner string) (*models.Vault, error) {
	return r.get(ctx, owner, false)
}

func (r *PostgresRepository) GetByOwnerForUpdate(ctx context.Context, owner string) (*models.Vault, error) {
	return r.get(ctx, owner, true)
}

func (r *PostgresRepository) get(ctx context.Context, owner string, forUpdate bool) (*models.Vault, error) {

	query :=
		`SELECT id, owner, quorum, next_recovery_id, created_at FROM vaults
		 WHERE owner = $1
		 `
	if forUpdate {
		query += " FOR UPDATE"
	}

	v := &models.Vault{}
	err := r.db.QueryRowContext(ctx, query, owner).
		Scan(&v.ID, &v.Owner, &v.Quorum, &v.NextRecoveryID, &v.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.loadGuardians(ctx, v); err != nil {
		return nil, err
	}
	if err := r.loadRequests(ctx, v); err != nil {
		return nil, err
	}

	return v, nil
}

func (r *PostgresRepository) loadGuardians(ctx context.Context, v *models.Vault) error {
	query :=
		`SELECT principal FROM vault_guardians
		 WHERE vault_id = $1
		 ORDER BY pos
		 `

	rows, err := r.db.QueryContext(ctx, query, v.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		v.Guardians = append(v.Guardians, p)
	}
	return rows.Err()
}

func (r *PostgresRepository) loadRequests(ctx context.Context, v *models.Vault) error {
	query :=
		`SELECT rid, requested_owner, state, created_at FROM recovery_requests
		 WHERE vault_id = $1
		 ORDER BY rid
		 `

	rows, err := r.db.QueryContext(ctx, query, v.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	byRID := make(map[uint64]*models.RecoveryRequest)
	for rows.Next() {
		req := &models.RecoveryRequest{VaultID: v.ID}
		if err := rows.Scan(&req.RID, &req.RequestedOwner, &req.State, &req.CreatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		v.Requests = append(v.Requests, req)
		byRID[req.RID] = req
	}
	if err := rows.Err(); err != nil {
		return err
	}

	approvalQuery :=
		`SELECT rid, guardian FROM recovery_approvals
		 WHERE vault_id = $1
		 ORDER BY rid, pos
		 `

	approvals, err := r.db.QueryContext(ctx, approvalQuery, v.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer approvals.Close()

	for approvals.Next() {
		var rid uint64
		var guardian string
		if err := approvals.Scan(&rid, &guardian); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if req, ok := byRID[rid]; ok {
			req.Approvals = append(req.Approvals, guardian)
		}
	}
	return approvals.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.Vault) error {
	query :=
		`INSERT INTO vaults (id, owner, quorum, next_recovery_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query, v.ID, v.Owner, v.Quorum, v.NextRecoveryID).
		Scan(&v.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Save rewrites the aggregate. Guardian and approval rows are replaced
// wholesale; request rows are upserted since rids are never reused.
func (r *PostgresRepository) Save(ctx context.Context, v *models.Vault) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE vaults SET owner = $2, quorum = $3, next_recovery_id = $4 WHERE id = $1`,
		v.ID, v.Owner, v.Quorum, v.NextRecoveryID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM vault_guardians WHERE vault_id = $1`, v.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for pos, g := range v.Guardians {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO vault_guardians (vault_id, pos, principal) VALUES ($1, $2, $3)`,
			v.ID, pos, g); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	for _, req := range v.Requests {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO recovery_requests (vault_id, rid, requested_owner, state, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (vault_id, rid) DO UPDATE SET state = EXCLUDED.state`,
			v.ID, req.RID, req.RequestedOwner, req.State, req.CreatedAt); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM recovery_approvals WHERE vault_id = $1`, v.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, req := range v.Requests {
		for pos, guardian := range req.Approvals {
			if _, err := r.db.ExecContext(ctx,
				`INSERT INTO recovery_approvals (vault_id, rid, pos, guardian) VALUES ($1, $2, $3, $4)`,
				v.ID, req.RID, pos, guardian); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
	}

	return nil
}
