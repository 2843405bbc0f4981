package repository

import (
	"context"
	"fmt"

	"buybackd/database"

	"github.com/jackc/pgx/v5"
)

// ConfigRepository implements the ConfigRepository interface over the
// app_config key/value table shared with the dashboard.
type ConfigRepository struct {
	q queryable
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(db *database.DB) *ConfigRepository {
	return &ConfigRepository{q: db.Pool}
}

// newConfigRepositoryWithTx creates a new config repository with a transaction
func newConfigRepositoryWithTx(tx queryable) *ConfigRepository {
	return &ConfigRepository{q: tx}
}

// Get returns the value for key, or "" if the key is not set
func (r *ConfigRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.q.QueryRow(ctx, `SELECT value FROM app_config WHERE key = $1`, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get config key %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value for key
func (r *ConfigRepository) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO app_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set config key %s: %w", key, err)
	}

	return nil
}
