package utxos

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guardianvault/vaultd/internal/common"
	"github.com/guardianvault/vaultd/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var testTxid = bytes.Repeat([]byte{0xab}, 32)

func utxoColumns() []string {
	return []string{"txid", "vout", "owner", "subaccount", "value",
		"confirmations", "height", "state", "seq", "discovered_at"}
}

func TestGetForUpdate_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+utxos.*FOR\s+UPDATE`).
		WithArgs(testTxid, 0).
		WillReturnRows(sqlmock.NewRows(utxoColumns()).
			AddRow(testTxid, 0, "aaaaa-aa", []byte{}, 50000, 3, 0, "pending", 1, time.Now()))

	got, err := repo.GetForUpdate(context.Background(), testTxid, 0)
	if err != nil {
		t.Fatalf("GetForUpdate error: %v", err)
	}
	if got.Value != 50000 || got.Confirmations != 3 || got.State != "pending" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGetForUpdate_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+utxos`).
		WithArgs(testTxid, 1).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetForUpdate(context.Background(), testTxid, 1)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestInsert_CapturesSeq(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+utxos.*RETURNING\s+seq`).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(9))

	u := &models.Utxo{TxID: testTxid, Vout: 0, Owner: "aaaaa-aa",
		Value: 50000, Confirmations: 1, State: "pending", DiscoveredAt: time.Now()}
	if err := repo.Insert(context.Background(), u); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if u.Seq != 9 {
		t.Fatalf("seq not captured: %d", u.Seq)
	}
}

func TestUpdate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE\s+utxos\s+SET`).
		WithArgs(testTxid, 0, 6, 120, "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.Utxo{TxID: testTxid, Vout: 0, Confirmations: 6, Height: 120, State: "confirmed"}
	if err := repo.Update(context.Background(), u); err != nil {
		t.Fatalf("Update error: %v", err)
	}
}

func TestListByAccount_OrderDependsOnState(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+utxos.*ORDER\s+BY\s+seq`).
		WithArgs("aaaaa-aa", []byte{}, "pending").
		WillReturnRows(sqlmock.NewRows(utxoColumns()).
			AddRow(testTxid, 0, "aaaaa-aa", []byte{}, 50000, 2, 0, "pending", 1, time.Now()))

	pending, err := repo.ListByAccount(context.Background(), "aaaaa-aa", nil, "pending")
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending: %v %v", pending, err)
	}

	mock.ExpectQuery(`(?s)FROM\s+utxos.*ORDER\s+BY\s+height,\s*txid,\s*vout`).
		WithArgs("aaaaa-aa", []byte{}, "confirmed").
		WillReturnRows(sqlmock.NewRows(utxoColumns()))

	confirmed, err := repo.ListByAccount(context.Background(), "aaaaa-aa", nil, "confirmed")
	if err != nil || len(confirmed) != 0 {
		t.Fatalf("confirmed: %v %v", confirmed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDepositAddress_RoundTrip(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+deposit_addresses.*DO\s+NOTHING`).
		WithArgs("aaaaa-aa", []byte{}, "bcrt1qtest").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SaveDepositAddress(context.Background(),
		&models.DepositAddress{Owner: "aaaaa-aa", Address: "bcrt1qtest"})
	if err != nil {
		t.Fatalf("SaveDepositAddress error: %v", err)
	}

	mock.ExpectQuery(`(?s)SELECT\s+address\s+FROM\s+deposit_addresses`).
		WithArgs("aaaaa-aa", []byte{}).
		WillReturnRows(sqlmock.NewRows([]string{"address"}).AddRow("bcrt1qtest"))

	address, err := repo.GetDepositAddress(context.Background(), "aaaaa-aa", nil)
	if err != nil || address != "bcrt1qtest" {
		t.Fatalf("address=%q err=%v", address, err)
	}
}

func TestGetDepositAddress_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+deposit_addresses`).
		WithArgs("ghost", []byte{}).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDepositAddress(context.Background(), "ghost", nil)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
