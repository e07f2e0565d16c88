package vaults

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
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

func TestGetByOwner_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*owner,\s*quorum,\s*next_recovery_id,\s*created_at\s+FROM\s+vaults`).
		WithArgs("aaaaa-aa").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "quorum", "next_recovery_id", "created_at"}).
			AddRow("v-1", "aaaaa-aa", 2, 3, created))

	mock.ExpectQuery(`(?s)SELECT\s+principal\s+FROM\s+vault_guardians`).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"principal"}).
			AddRow("bbbbb-bb").
			AddRow("ccccc-cc"))

	mock.ExpectQuery(`(?s)SELECT\s+rid,\s*requested_owner,\s*state,\s*created_at\s+FROM\s+recovery_requests`).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"rid", "requested_owner", "state", "created_at"}).
			AddRow(1, "ddddd-dd", "pending", created))

	mock.ExpectQuery(`(?s)SELECT\s+rid,\s*guardian\s+FROM\s+recovery_approvals`).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"rid", "guardian"}).
			AddRow(1, "bbbbb-bb"))

	got, err := repo.GetByOwner(context.Background(), "aaaaa-aa")
	if err != nil {
		t.Fatalf("GetByOwner error: %v", err)
	}
	if got.ID != "v-1" || got.Quorum != 2 || got.NextRecoveryID != 3 {
		t.Fatalf("unexpected vault: %+v", got)
	}
	if len(got.Guardians) != 2 || got.Guardians[0] != "bbbbb-bb" {
		t.Fatalf("unexpected guardians: %+v", got.Guardians)
	}
	if len(got.Requests) != 1 || len(got.Requests[0].Approvals) != 1 {
		t.Fatalf("unexpected requests: %+v", got.Requests)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetByOwnerForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+vaults.*FOR\s+UPDATE`).
		WithArgs("aaaaa-aa").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "quorum", "next_recovery_id", "created_at"}).
			AddRow("v-1", "aaaaa-aa", 1, 1, time.Now()))

	mock.ExpectQuery(`(?s)FROM\s+vault_guardians`).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"principal"}))

	mock.ExpectQuery(`(?s)FROM\s+recovery_requests`).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"rid", "requested_owner", "state", "created_at"}))

	mock.ExpectQuery(`(?s)FROM\s+recovery_approvals`).
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{"rid", "guardian"}))

	if _, err := repo.GetByOwnerForUpdate(context.Background(), "aaaaa-aa"); err != nil {
		t.Fatalf("GetByOwnerForUpdate error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetByOwner_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)FROM\s+vaults`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByOwner(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+vaults.*RETURNING\s+created_at`).
		WithArgs("v-1", "aaaaa-aa", 0, 1).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	v := &models.Vault{ID: "v-1", Owner: "aaaaa-aa", NextRecoveryID: 1}
	if err := repo.Create(context.Background(), v); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if !v.CreatedAt.Equal(created) {
		t.Fatalf("created_at not captured: %v", v.CreatedAt)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+vaults`).
		WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.Vault{ID: "v-1", Owner: "aaaaa-aa", NextRecoveryID: 1})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestSave_RewritesAggregate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Now()
	v := &models.Vault{
		ID:             "v-1",
		Owner:          "aaaaa-aa",
		Quorum:         2,
		NextRecoveryID: 2,
		Guardians:      []string{"bbbbb-bb", "ccccc-cc"},
		Requests: []*models.RecoveryRequest{
			{VaultID: "v-1", RID: 1, RequestedOwner: "ddddd-dd", State: "pending",
				Approvals: []string{"bbbbb-bb"}, CreatedAt: created},
		},
	}

	mock.ExpectExec(`(?s)UPDATE\s+vaults\s+SET`).
		WithArgs("v-1", "aaaaa-aa", 2, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)DELETE\s+FROM\s+vault_guardians`).
		WithArgs("v-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+vault_guardians`).
		WithArgs("v-1", 0, "bbbbb-bb").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+vault_guardians`).
		WithArgs("v-1", 1, "ccccc-cc").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+recovery_requests`).
		WithArgs("v-1", 1, "ddddd-dd", "pending", created).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)DELETE\s+FROM\s+recovery_approvals`).
		WithArgs("v-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)INSERT\s+INTO\s+recovery_approvals`).
		WithArgs("v-1", 1, 0, "bbbbb-bb").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), v); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
