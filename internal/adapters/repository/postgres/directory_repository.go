package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ogurasousui/codex-account-lifecycle/internal/core/account"
	pg "github.com/ogurasousui/codex-account-lifecycle/internal/platform/db/postgres"
)

// DirectoryRepository は PostgreSQL を利用した authoritative directory の実装です。
type DirectoryRepository struct {
	db pg.Queryer
}

// NewDirectoryRepository は DirectoryRepository を生成します。
func NewDirectoryRepository(db pg.Queryer) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// ReadAll は全レコードのスナップショットを主キーで引けるマップとして返します。
func (r *DirectoryRepository) ReadAll(ctx context.Context) (map[string]*account.Record, error) {
	rows, err := pg.QueryerFromContext(ctx, r.db).Query(ctx, `
        SELECT key, status, service_accounts, updated_at
          FROM accounts
    `)
	if err != nil {
		return nil, fmt.Errorf("postgres: read accounts: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*account.Record)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records[record.Key] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: read accounts: %w", err)
	}

	return records, nil
}

// Upsert は主キーでレコードを書き込みます。既存レコードは上書きされます
// (last-writer-wins)。
func (r *DirectoryRepository) Upsert(ctx context.Context, record *account.Record) error {
	if record == nil || record.Key == "" {
		return account.ErrInvalidKey
	}

	refs, err := json.Marshal(record.ServiceAccounts)
	if err != nil {
		return fmt.Errorf("postgres: marshal service accounts: %w", err)
	}

	_, err = pg.QueryerFromContext(ctx, r.db).Exec(ctx, `
        INSERT INTO accounts (key, status, service_accounts, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (key) DO UPDATE
           SET status = EXCLUDED.status,
               service_accounts = EXCLUDED.service_accounts,
               updated_at = EXCLUDED.updated_at
    `, record.Key, string(record.Status), refs, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: upsert account %s: %w", record.Key, err)
	}

	return nil
}

// Exists は主キーのレコードが存在するかどうかを返します。
func (r *DirectoryRepository) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := pg.QueryerFromContext(ctx, r.db).QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM accounts WHERE key = $1)
    `, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: account exists %s: %w", key, err)
	}
	return exists, nil
}

func scanRecord(row pgx.Row) (*account.Record, error) {
	var (
		key       string
		status    string
		refs      []byte
		updatedAt time.Time
	)

	if err := row.Scan(&key, &status, &refs, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: scan account: %w", err)
	}

	serviceAccounts := make(map[account.ServiceKind]string)
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &serviceAccounts); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal service accounts for %s: %w", key, err)
		}
	}

	return &account.Record{
		Key:             key,
		Status:          account.Status(status),
		ServiceAccounts: serviceAccounts,
		UpdatedAt:       updatedAt,
	}, nil
}
