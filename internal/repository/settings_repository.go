package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"techstore/internal/domain"
)

var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository stores singleton JSON documents keyed by name
type SettingsRepository interface {
	// Get decodes the stored value for key into dest.
	Get(ctx context.Context, key string, dest interface{}) error
	// Put upserts value under key.
	Put(ctx context.Context, key string, value interface{}) error
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSettingNotFound
		}
		return fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	return domain.DecodeDocument(raw, dest)
}

func (r *settingsRepository) Put(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, key, string(raw)); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}

	return nil
}
