package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// entry is a row of the kv_entries table created by the migrations.
type entry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Key       string    `bun:"entry_key,pk"`
	Value     string    `bun:"entry_value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type sqlStore struct {
	db *bun.DB
}

// NewSQL stores entries in the kv_entries table of db.
func NewSQL(db *bun.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Get(ctx context.Context, key string) (string, error) {
	row := new(entry)
	err := s.db.NewSelect().Model(row).Where("entry_key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value string) error {
	if key == "" {
		return errors.New("kvstore: key is required")
	}
	row := &entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	q := s.db.NewInsert().Model(row)
	if s.db.Dialect().Name() == dialect.MySQL {
		q = q.On("DUPLICATE KEY UPDATE").
			Set("entry_value = VALUES(entry_value)").
			Set("updated_at = VALUES(updated_at)")
	} else {
		q = q.On("CONFLICT (entry_key) DO UPDATE").
			Set("entry_value = EXCLUDED.entry_value").
			Set("updated_at = EXCLUDED.updated_at")
	}
	_, err := q.Exec(ctx)
	return err
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().Model((*entry)(nil)).Where("entry_key = ?", key).Exec(ctx)
	return err
}
