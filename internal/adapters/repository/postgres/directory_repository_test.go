package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
)

type stubRow struct {
	scanFn func(dest ...interface{}) error
}

func (s stubRow) Scan(dest ...interface{}) error {
	return s.scanFn(dest...)
}

func TestScanRecord_Success(t *testing.T) {
	t.Parallel()

	updatedAt := time.Now().UTC()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		if len(dest) != 4 {
			return errors.New("unexpected dest length")
		}
		*(dest[0].(*string)) = "u1"
		*(dest[1].(*string)) = string(account.StatusActive)
		*(dest[2].(*[]byte)) = []byte(`{"wiki":"u1wiki"}`)
		*(dest[3].(*time.Time)) = updatedAt
		return nil
	}}

	record, err := scanRecord(row)
	if err != nil {
		t.Fatalf("scanRecord returned error: %v", err)
	}

	if record.Key != "u1" || record.Status != account.StatusActive {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.ServiceAccounts[account.KindWiki] != "u1wiki" {
		t.Fatalf("unexpected service accounts %v", record.ServiceAccounts)
	}
}

func TestScanRecord_NoRows(t *testing.T) {
	t.Parallel()

	row := stubRow{scanFn: func(dest ...interface{}) error {
		return pgx.ErrNoRows
	}}

	_, err := scanRecord(row)
	if !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDirectoryRepository_ReadAll(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	query := regexp.QuoteMeta(`
        SELECT key, status, service_accounts, updated_at
          FROM accounts
    `)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"key", "status", "service_accounts", "updated_at"}).
		AddRow("u1", "active", []byte(`{"wiki":"u1wiki"}`), now).
		AddRow("u2", "suspended", []byte(`{}`), now)

	mock.ExpectQuery(query).WillReturnRows(rows)

	records, err := repo.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records["u1"].ServiceAccounts[account.KindWiki] != "u1wiki" {
		t.Fatalf("unexpected record %+v", records["u1"])
	}
	if records["u2"].Status != account.StatusSuspended {
		t.Fatalf("unexpected record %+v", records["u2"])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryRepository_Upsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO accounts`)).
		WithArgs("u1", "suspended", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Upsert(context.Background(), &account.Record{
		Key:             "u1",
		Status:          account.StatusSuspended,
		ServiceAccounts: map[account.ServiceKind]string{},
		UpdatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDirectoryRepository_UpsertInvalidKey(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	if err := repo.Upsert(context.Background(), &account.Record{}); !errors.Is(err, account.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestDirectoryRepository_Exists(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewDirectoryRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected exists true")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
