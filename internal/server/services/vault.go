// Package services contains server-side business logic. Services load
// rows inside a transaction, replay them into the in-memory core types,
// apply the requested mutation there, and write the result back. The
// core package is the single place the protocol rules live.
package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/dbx"
	"github.com/guardianvault/vaultd/internal/server/config"
	"github.com/guardianvault/vaultd/internal/server/models"
	"github.com/guardianvault/vaultd/internal/server/repositories/repomanager"
	"github.com/guardianvault/vaultd/internal/vault"
)

// VaultService manages guardian sets and the recovery lifecycle. Every
// mutation takes a row lock on the vault row, so concurrent requests
// against the same vault serialize.
type VaultService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
}

func NewVaultService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *VaultService {
	return &VaultService{
		db:          db,
		repomanager: m,
		config:      cfg,
	}
}

// vaultFromRow replays a stored aggregate into a core vault.
func vaultFromRow(row *models.Vault) (*vault.Vault, error) {
	owner, err := vault.PrincipalFromText(row.Owner)
	if err != nil {
		return nil, err
	}

	v := &vault.Vault{
		Config:         vault.GuardianConfig{Owner: owner, Quorum: row.Quorum},
		NextRecoveryID: row.NextRecoveryID,
		CreatedAt:      row.CreatedAt,
	}

	for _, g := range row.Guardians {
		p, err := vault.PrincipalFromText(g)
		if err != nil {
			return nil, err
		}
		v.Config.Guardians = append(v.Config.Guardians, p)
	}

	for _, r := range row.Requests {
		requested, err := vault.PrincipalFromText(r.RequestedOwner)
		if err != nil {
			return nil, err
		}
		req := &vault.RecoveryRequest{
			ID:             r.RID,
			RequestedOwner: requested,
			State:          vault.RequestState(r.State),
			CreatedAt:      r.CreatedAt,
		}
		for _, a := range r.Approvals {
			p, err := vault.PrincipalFromText(a)
			if err != nil {
				return nil, err
			}
			req.Approvals = append(req.Approvals, p)
		}
		v.Requests = append(v.Requests, req)
	}

	return v, nil
}

// vaultToRow writes the core state back onto the aggregate row set,
// keeping the row id.
func vaultToRow(v *vault.Vault, row *models.Vault) {
	row.Owner = v.Config.Owner.String()
	row.Quorum = v.Config.Quorum
	row.NextRecoveryID = v.NextRecoveryID

	row.Guardians = row.Guardians[:0]
	for _, g := range v.Config.Guardians {
		row.Guardians = append(row.Guardians, g.String())
	}

	row.Requests = row.Requests[:0]
	for _, r := range v.Requests {
		req := &models.RecoveryRequest{
			VaultID:        row.ID,
			RID:            r.ID,
			RequestedOwner: r.RequestedOwner.String(),
			State:          string(r.State),
			CreatedAt:      r.CreatedAt,
		}
		for _, a := range r.Approvals {
			req.Approvals = append(req.Approvals, a.String())
		}
		row.Requests = append(row.Requests, req)
	}
}

// mutate runs fn against the locked, replayed vault for owner and
// persists the result. When createIfMissing is set, a missing vault is
// created with owner as its controlling principal (first use).
func (s *VaultService) mutate(ctx context.Context, owner vault.Principal, createIfMissing bool,
	fn func(v *vault.Vault, now time.Time) error) error {

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Vaults(tx)
		now := time.Now().UTC()

		row, err := repo.GetByOwnerForUpdate(ctx, owner.String())
		if err != nil {
			if !errors.Is(err, common.ErrorNotFound) || !createIfMissing {
				return err
			}
			row = &models.Vault{
				ID:             uuid.New().String(),
				Owner:          owner.String(),
				NextRecoveryID: 1,
			}
			if err := repo.Create(ctx, row); err != nil {
				return err
			}
		}
		prevOwner := row.Owner

		v, err := vaultFromRow(row)
		if err != nil {
			return err
		}
		v.ExpireRequests(s.config.RecoveryTTL, now)

		if err := fn(v, now); err != nil {
			return err
		}

		// Owners are unique. A recovery must not hand the vault to a
		// principal that acquired a vault of their own after the
		// request opened.
		if newOwner := v.Guardians().Owner.String(); newOwner != prevOwner {
			if _, gErr := repo.GetByOwner(ctx, newOwner); gErr == nil {
				return common.ErrOwnerConflict
			} else if !errors.Is(gErr, common.ErrorNotFound) {
				return gErr
			}
		}

		vaultToRow(v, row)
		return repo.Save(ctx, row)
	})
}

// load returns the replayed vault for owner without taking locks, with
// request expiry applied to the view.
func (s *VaultService) load(ctx context.Context, owner vault.Principal) (*vault.Vault, error) {
	repo := s.repomanager.Vaults(s.db)
	row, err := repo.GetByOwner(ctx, owner.String())
	if err != nil {
		return nil, err
	}
	v, err := vaultFromRow(row)
	if err != nil {
		return nil, err
	}
	v.ExpireRequests(s.config.RecoveryTTL, time.Now().UTC())
	return v, nil
}

// SetGuardians replaces the caller's guardian set and quorum. The vault
// is created on first use.
func (s *VaultService) SetGuardians(ctx context.Context, caller vault.Principal, guardians []vault.Principal, quorum uint32) error {
	return s.mutate(ctx, caller, true, func(v *vault.Vault, now time.Time) error {
		return v.SetGuardians(caller, guardians, quorum)
	})
}

// GetGuardians returns the guardian configuration of owner's vault.
func (s *VaultService) GetGuardians(ctx context.Context, owner vault.Principal) (vault.GuardianConfig, error) {
	v, err := s.load(ctx, owner)
	if err != nil {
		return vault.GuardianConfig{}, err
	}
	return v.Guardians(), nil
}

// RequestRecovery opens a recovery request on owner's vault proposing
// newOwner, returning the request id. Proposals naming a principal that
// already controls a vault of their own are refused: owners are unique,
// so such a recovery could never finalize.
func (s *VaultService) RequestRecovery(ctx context.Context, owner, caller, newOwner vault.Principal) (uint64, error) {
	if newOwner != owner {
		if _, err := s.repomanager.Vaults(s.db).GetByOwner(ctx, newOwner.String()); err == nil {
			return 0, common.ErrOwnerConflict
		} else if !errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}
	}

	var id uint64
	err := s.mutate(ctx, owner, false, func(v *vault.Vault, now time.Time) error {
		var mErr error
		id, mErr = v.RequestRecovery(caller, newOwner, now)
		return mErr
	})
	return id, err
}

// ApproveRecovery records caller's approval on the request. The returned
// flag is true when this approval reached quorum and finalized the
// recovery, transferring vault ownership.
func (s *VaultService) ApproveRecovery(ctx context.Context, owner, caller vault.Principal, id uint64) (bool, error) {
	var finalized bool
	err := s.mutate(ctx, owner, false, func(v *vault.Vault, now time.Time) error {
		var mErr error
		finalized, mErr = v.ApproveRecovery(caller, id)
		return mErr
	})
	return finalized, err
}

// RecoveryStatus returns a snapshot of one request on owner's vault.
func (s *VaultService) RecoveryStatus(ctx context.Context, owner vault.Principal, id uint64) (vault.RecoveryRequest, error) {
	v, err := s.load(ctx, owner)
	if err != nil {
		return vault.RecoveryRequest{}, err
	}
	return v.RecoveryStatus(id)
}

// RecoveryRequests returns snapshots of every request on owner's vault,
// oldest first.
func (s *VaultService) RecoveryRequests(ctx context.Context, owner vault.Principal) ([]vault.RecoveryRequest, error) {
	v, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}
	return v.RecoveryRequests(), nil
}
