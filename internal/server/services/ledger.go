package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/dbx"
	"github.com/guardianvault/vaultd/internal/server/config"
	"github.com/guardianvault/vaultd/internal/server/models"
	"github.com/guardianvault/vaultd/internal/server/repositories/ledger"
	"github.com/guardianvault/vaultd/internal/server/repositories/repomanager"
	"github.com/guardianvault/vaultd/internal/vault"
)

// LedgerService executes balance queries, transfers, and withdrawals.
// Transfers lock both balance rows in a fixed order, replay them into a
// core ledger, apply the operation, and write back the new balances plus
// a history row. The history row id is the transfer id callers see.
type LedgerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *config.Config
	chainParams *chaincfg.Params
}

func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) (*LedgerService, error) {
	params, err := cfg.ChainParams()
	if err != nil {
		return nil, err
	}
	return &LedgerService{
		db:          db,
		repomanager: m,
		config:      cfg,
		chainParams: params,
	}, nil
}

// TransferFee returns the relay fee charged per transfer, in satoshis.
func (s *LedgerService) TransferFee() uint64 {
	return s.config.TransferFee
}

func (s *LedgerService) newLedger() *vault.Ledger {
	return vault.NewLedger(s.config.TransferFee, s.config.MinWithdrawal, s.chainParams)
}

// loadBalance reads one balance row, treating a missing row as zero.
// forUpdate rows serialize concurrent mutations of the same account.
func loadBalance(ctx context.Context, repo ledger.Repository, a vault.AccountID, forUpdate bool) (uint64, error) {
	var row *models.LedgerAccount
	var err error
	if forUpdate {
		row, err = repo.GetAccountForUpdate(ctx, a.Owner.String(), a.Subaccount)
	} else {
		row, err = repo.GetAccount(ctx, a.Owner.String(), a.Subaccount)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Balance, nil
}

func saveBalance(ctx context.Context, repo ledger.Repository, a vault.AccountID, balance uint64) error {
	return repo.UpsertAccount(ctx, &models.LedgerAccount{
		Owner:      a.Owner.String(),
		Subaccount: a.Subaccount,
		Balance:    balance,
	})
}

// transactionRow flattens a committed core transaction into its history
// row. The id is left to the database.
func transactionRow(tx vault.Transaction) *models.Transaction {
	row := &models.Transaction{
		Kind:       string(tx.Kind),
		Amount:     tx.Amount,
		Fee:        tx.Fee,
		Memo:       tx.Memo,
		BtcAddress: tx.BtcAddress,
		CreatedAt:  tx.Timestamp,
	}
	if !tx.From.Owner.IsZero() {
		row.FromOwner = tx.From.Owner.String()
		row.FromSubaccount = tx.From.Subaccount
	}
	if !tx.To.Owner.IsZero() {
		row.ToOwner = tx.To.Owner.String()
		row.ToSubaccount = tx.To.Subaccount
	}
	return row
}

// BalanceOf returns the account balance in satoshis. Accounts that never
// held funds read as zero.
func (s *LedgerService) BalanceOf(ctx context.Context, account vault.AccountID) (uint64, error) {
	repo := s.repomanager.Ledger(s.db)
	return loadBalance(ctx, repo, account, false)
}

// Transfer moves amount satoshis from the caller's account to the
// recipient and returns the committed transfer id.
func (s *LedgerService) Transfer(ctx context.Context, from, to vault.AccountID, amount uint64, fee *uint64, memo []byte) (uint64, error) {
	var id uint64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Ledger(tx)

		// Row locks are taken in key order so two transfers between
		// the same pair of accounts cannot deadlock.
		first, second := from, to
		if second.String() < first.String() {
			first, second = second, first
		}
		firstBal, err := loadBalance(ctx, repo, first, true)
		if err != nil {
			return err
		}
		secondBal := firstBal
		if !second.Equal(first) {
			secondBal, err = loadBalance(ctx, repo, second, true)
			if err != nil {
				return err
			}
		}

		led := s.newLedger()
		led.SetBalance(first, firstBal)
		led.SetBalance(second, secondBal)

		committed, err := led.Transfer(from, to, amount, fee, memo, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := saveBalance(ctx, repo, from, led.BalanceOf(from)); err != nil {
			return err
		}
		if !to.Equal(from) {
			if err := saveBalance(ctx, repo, to, led.BalanceOf(to)); err != nil {
				return err
			}
		}

		id, err = repo.InsertTransaction(ctx, transactionRow(committed))
		return err
	})
	return id, err
}

// Withdraw burns amount plus the relay fee from the caller's account to
// back a Bitcoin retrieval to btcAddress, returning the transfer id.
func (s *LedgerService) Withdraw(ctx context.Context, from vault.AccountID, btcAddress string, amount uint64) (uint64, error) {
	var id uint64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Ledger(tx)

		balance, err := loadBalance(ctx, repo, from, true)
		if err != nil {
			return err
		}

		led := s.newLedger()
		led.SetBalance(from, balance)

		committed, err := led.Withdraw(from, btcAddress, amount, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := saveBalance(ctx, repo, from, led.BalanceOf(from)); err != nil {
			return err
		}

		id, err = repo.InsertTransaction(ctx, transactionRow(committed))
		return err
	})
	return id, err
}

// Transactions returns the history rows touching the given principal,
// oldest first.
func (s *LedgerService) Transactions(ctx context.Context, p vault.Principal) ([]*models.Transaction, error) {
	repo := s.repomanager.Ledger(s.db)
	return repo.ListTransactionsByOwner(ctx, p.String())
}
