package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/dbx"
	"github.com/guardianvault/vaultd/internal/server/config"
	"github.com/guardianvault/vaultd/internal/server/models"
	"github.com/guardianvault/vaultd/internal/server/repositories/repomanager"
	"github.com/guardianvault/vaultd/internal/vault"
)

// UtxoService ingests watcher reports about deposit outputs, issues
// deposit addresses, and answers UTXO queries. Report ingestion locks
// the output row first and the balance row second; credits are keyed by
// outpoint and happen at most once even across replayed reports.
type UtxoService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	chainParams *chaincfg.Params
	addresser   *vault.DepositAddresser
}

func NewUtxoService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) (*UtxoService, error) {
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}
	return &UtxoService{
		db:          db,
		repomanager: m,
		config:      cfg,
		chainParams: params,
		addresser:   vault.NewDepositAddresser([]byte(cfg.DepositSeed), params),
	}, nil
}

// utxoFromRow replays a stored output row into its core form.
func utxoFromRow(row *models.Utxo) (vault.Utxo, error) {
	owner, err := vault.PrincipalFromText(row.Owner)
	if err != nil {
		return vault.Utxo{}, err
	}
	account, err := vault.NewAccountID(owner, row.Subaccount)
	if err != nil {
		return vault.Utxo{}, err
	}

	var op vault.OutPoint
	if len(row.TxID) != len(op.TxID) {
		return vault.Utxo{}, fmt.Errorf("bad txid length %d", len(row.TxID))
	}
	copy(op.TxID[:], row.TxID)
	op.Vout = row.Vout

	return vault.Utxo{
		OutPoint:      op,
		Account:       account,
		Value:         row.Value,
		Confirmations: row.Confirmations,
		Height:        row.Height,
		State:         vault.UtxoState(row.State),
		Seq:           row.Seq,
		DiscoveredAt:  row.DiscoveredAt,
	}, nil
}

func utxoToRow(u vault.Utxo) *models.Utxo {
	return &models.Utxo{
		TxID:          u.OutPoint.TxID[:],
		Vout:          u.OutPoint.Vout,
		Owner:         u.Account.Owner.String(),
		Subaccount:    u.Account.Subaccount,
		Value:         u.Value,
		Confirmations: u.Confirmations,
		Height:        u.Height,
		State:         string(u.State),
		Seq:           u.Seq,
		DiscoveredAt:  u.DiscoveredAt,
	}
}

// DepositAddress returns the account's deposit address, deriving and
// recording it on first request. Derivation is deterministic, so a lost
// race on the insert still hands every caller the same address.
func (s *UtxoService) DepositAddress(ctx context.Context, account vault.AccountID) (string, error) {
	repo := s.repomanager.Utxos(s.db)

	address, err := repo.GetDepositAddress(ctx, account.Owner.String(), account.Subaccount)
	if err == nil {
		return address, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	address, err = s.addresser.Address(account)
	if err != nil {
		return "", err
	}
	if err := repo.SaveDepositAddress(ctx, &models.DepositAddress{
		Owner:      account.Owner.String(),
		Subaccount: account.Subaccount,
		Address:    address,
	}); err != nil {
		return "", err
	}
	return address, nil
}

// ApplyUtxoReport processes one watcher observation for the account. The
// returned flag is true when the report pushed the output over the
// confirmation threshold and credited the ledger.
func (s *UtxoService) ApplyUtxoReport(ctx context.Context, account vault.AccountID, report vault.UtxoReport) (bool, error) {
	var credited bool
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		urepo := s.repomanager.Utxos(tx)
		lrepo := s.repomanager.Ledger(tx)
		now := time.Now().UTC()

		txid := report.OutPoint.TxID[:]
		row, err := urepo.GetForUpdate(ctx, txid, report.OutPoint.Vout)
		known := err == nil
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		// The stored row owns the outpoint-to-account binding. Replayed
		// reports only carry fresh confirmation data, so a report
		// attributing a known outpoint elsewhere must not shift the
		// credit to the reported account.
		var stored vault.Utxo
		if known {
			stored, err = utxoFromRow(row)
			if err != nil {
				return err
			}
			account = stored.Account
		}

		balance, err := loadBalance(ctx, lrepo, account, true)
		if err != nil {
			return err
		}

		led := vault.NewLedger(s.config.TransferFee, s.config.MinWithdrawal, s.chainParams)
		led.SetBalance(account, balance)
		minted, err := lrepo.IsMinted(ctx, txid, report.OutPoint.Vout)
		if err != nil {
			return err
		}
		if minted {
			led.MarkMinted(report.OutPoint)
		}

		tracker := vault.NewTracker(s.config.ConfirmationThreshold, led)
		if known {
			tracker.Restore(stored)
		}

		credited, err = tracker.Observe(account, report, now)
		if err != nil {
			return err
		}

		u, _ := tracker.Lookup(report.OutPoint)
		if known {
			if err := urepo.Update(ctx, utxoToRow(u)); err != nil {
				return err
			}
		} else {
			if err := urepo.Insert(ctx, utxoToRow(u)); err != nil {
				return err
			}
		}

		if !credited {
			return nil
		}

		inserted, err := lrepo.InsertMint(ctx, txid, report.OutPoint.Vout)
		if err != nil {
			return err
		}
		if !inserted {
			return fmt.Errorf("outpoint %s credited concurrently", report.OutPoint)
		}
		if err := saveBalance(ctx, lrepo, account, led.BalanceOf(account)); err != nil {
			return err
		}

		history := led.Transactions(account.Owner)
		mint := history[len(history)-1]
		_, err = lrepo.InsertTransaction(ctx, transactionRow(mint))
		return err
	})
	return credited, err
}

// MarkSpent transitions a confirmed output to spent once the watcher
// sees it consumed on chain.
func (s *UtxoService) MarkSpent(ctx context.Context, op vault.OutPoint) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		urepo := s.repomanager.Utxos(tx)

		row, err := urepo.GetForUpdate(ctx, op.TxID[:], op.Vout)
		if err != nil {
			return err
		}
		u, err := utxoFromRow(row)
		if err != nil {
			return err
		}

		tracker := vault.NewTracker(s.config.ConfirmationThreshold, nil)
		tracker.Restore(u)
		if err := tracker.MarkSpent(op); err != nil {
			return err
		}

		u, _ = tracker.Lookup(op)
		return urepo.Update(ctx, utxoToRow(u))
	})
}

// Utxos returns the account's confirmed outputs, height ascending.
func (s *UtxoService) Utxos(ctx context.Context, account vault.AccountID) ([]*models.Utxo, error) {
	repo := s.repomanager.Utxos(s.db)
	return repo.ListByAccount(ctx, account.Owner.String(), account.Subaccount, string(vault.UtxoConfirmed))
}

// PendingUtxos returns the account's not yet confirmed outputs in
// discovery order.
func (s *UtxoService) PendingUtxos(ctx context.Context, account vault.AccountID) ([]*models.Utxo, error) {
	repo := s.repomanager.Utxos(s.db)
	return repo.ListByAccount(ctx, account.Owner.String(), account.Subaccount, string(vault.UtxoPending))
}
