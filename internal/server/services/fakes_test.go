package services

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/dbx"
	"github.com/guardianvault/vaultd/internal/server/config"
	"github.com/guardianvault/vaultd/internal/server/models"
	"github.com/guardianvault/vaultd/internal/server/repositories/ledger"
	"github.com/guardianvault/vaultd/internal/server/repositories/repomanager"
	"github.com/guardianvault/vaultd/internal/server/repositories/utxos"
	"github.com/guardianvault/vaultd/internal/server/repositories/vaults"
	"github.com/guardianvault/vaultd/internal/vault"
)

// -------- test fakes --------

type fakeVaultsRepo struct {
	vaults.Repository
	byOwner map[string]*models.Vault

	getErr  error
	saveErr error
}

func newFakeVaultsRepo() *fakeVaultsRepo {
	return &fakeVaultsRepo{byOwner: make(map[string]*models.Vault)}
}

func (f *fakeVaultsRepo) GetByOwner(ctx context.Context, owner string) (*models.Vault, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.byOwner[owner]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

func (f *fakeVaultsRepo) GetByOwnerForUpdate(ctx context.Context, owner string) (*models.Vault, error) {
	return f.GetByOwner(ctx, owner)
}

func (f *fakeVaultsRepo) Create(ctx context.Context, v *models.Vault) error {
	f.byOwner[v.Owner] = v
	return nil
}

func (f *fakeVaultsRepo) Save(ctx context.Context, v *models.Vault) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	// The owner column carries a unique constraint in the real schema.
	if row, ok := f.byOwner[v.Owner]; ok && row.ID != v.ID {
		return fmt.Errorf("db error: duplicate key value violates unique constraint \"vaults_owner_key\"")
	}
	for owner, row := range f.byOwner {
		if row.ID == v.ID && owner != v.Owner {
			delete(f.byOwner, owner)
		}
	}
	f.byOwner[v.Owner] = v
	return nil
}

func accountKey(owner string, subaccount []byte) string {
	return owner + ":" + hex.EncodeToString(subaccount)
}

type fakeLedgerRepo struct {
	ledger.Repository
	accounts map[string]*models.LedgerAccount
	txs      []*models.Transaction
	mints    map[string]bool
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		accounts: make(map[string]*models.LedgerAccount),
		mints:    make(map[string]bool),
	}
}

func (f *fakeLedgerRepo) GetAccount(ctx context.Context, owner string, subaccount []byte) (*models.LedgerAccount, error) {
	a, ok := f.accounts[accountKey(owner, subaccount)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeLedgerRepo) GetAccountForUpdate(ctx context.Context, owner string, subaccount []byte) (*models.LedgerAccount, error) {
	return f.GetAccount(ctx, owner, subaccount)
}

func (f *fakeLedgerRepo) UpsertAccount(ctx context.Context, account *models.LedgerAccount) error {
	f.accounts[accountKey(account.Owner, account.Subaccount)] = account
	return nil
}

func (f *fakeLedgerRepo) InsertTransaction(ctx context.Context, tx *models.Transaction) (uint64, error) {
	tx.ID = uint64(len(f.txs) + 1)
	f.txs = append(f.txs, tx)
	return tx.ID, nil
}

func (f *fakeLedgerRepo) ListTransactionsByOwner(ctx context.Context, owner string) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range f.txs {
		if tx.FromOwner == owner || tx.ToOwner == owner {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) InsertMint(ctx context.Context, txid []byte, vout uint32) (bool, error) {
	key := accountKey(hex.EncodeToString(txid), []byte{byte(vout)})
	if f.mints[key] {
		return false, nil
	}
	f.mints[key] = true
	return true, nil
}

func (f *fakeLedgerRepo) IsMinted(ctx context.Context, txid []byte, vout uint32) (bool, error) {
	return f.mints[accountKey(hex.EncodeToString(txid), []byte{byte(vout)})], nil
}

type fakeUtxosRepo struct {
	utxos.Repository
	rows      map[string]*models.Utxo
	addresses map[string]string
	nextSeq   uint64
}

func newFakeUtxosRepo() *fakeUtxosRepo {
	return &fakeUtxosRepo{
		rows:      make(map[string]*models.Utxo),
		addresses: make(map[string]string),
	}
}

func outpointKey(txid []byte, vout uint32) string {
	return accountKey(hex.EncodeToString(txid), []byte{byte(vout)})
}

func (f *fakeUtxosRepo) GetForUpdate(ctx context.Context, txid []byte, vout uint32) (*models.Utxo, error) {
	u, ok := f.rows[outpointKey(txid, vout)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

func (f *fakeUtxosRepo) Insert(ctx context.Context, u *models.Utxo) error {
	f.nextSeq++
	u.Seq = f.nextSeq
	f.rows[outpointKey(u.TxID, u.Vout)] = u
	return nil
}

func (f *fakeUtxosRepo) Update(ctx context.Context, u *models.Utxo) error {
	f.rows[outpointKey(u.TxID, u.Vout)] = u
	return nil
}

func (f *fakeUtxosRepo) ListByAccount(ctx context.Context, owner string, subaccount []byte, state string) ([]*models.Utxo, error) {
	var out []*models.Utxo
	sub := hex.EncodeToString(subaccount)
	for _, u := range f.rows {
		if u.Owner == owner && hex.EncodeToString(u.Subaccount) == sub && u.State == state {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUtxosRepo) GetDepositAddress(ctx context.Context, owner string, subaccount []byte) (string, error) {
	a, ok := f.addresses[accountKey(owner, subaccount)]
	if !ok {
		return "", common.ErrorNotFound
	}
	return a, nil
}

func (f *fakeUtxosRepo) SaveDepositAddress(ctx context.Context, addr *models.DepositAddress) error {
	f.addresses[accountKey(addr.Owner, addr.Subaccount)] = addr.Address
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	v *fakeVaultsRepo
	l *fakeLedgerRepo
	u *fakeUtxosRepo
}

func (m *fakeRepoManager) Vaults(db dbx.DBTX) vaults.Repository { return m.v }
func (m *fakeRepoManager) Ledger(db dbx.DBTX) ledger.Repository { return m.l }
func (m *fakeRepoManager) Utxos(db dbx.DBTX) utxos.Repository   { return m.u }

// -------- helpers --------

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		v: newFakeVaultsRepo(),
		l: newFakeLedgerRepo(),
		u: newFakeUtxosRepo(),
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

func testPrincipal(t *testing.T, tag byte) vault.Principal {
	t.Helper()
	p, err := vault.PrincipalFromBytes([]byte{tag, tag, tag})
	if err != nil {
		t.Fatalf("PrincipalFromBytes error: %v", err)
	}
	return p
}

func testAccount(t *testing.T, tag byte) vault.AccountID {
	t.Helper()
	return vault.DefaultAccount(testPrincipal(t, tag))
}
