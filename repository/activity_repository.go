package repository

import (
	"context"
	"fmt"

	"buybackd/database"
	"buybackd/models"
)

// ActivityRepository implements the ActivityRepository interface
type ActivityRepository struct {
	q queryable
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *database.DB) *ActivityRepository {
	return &ActivityRepository{q: db.Pool}
}

// newActivityRepositoryWithTx creates a new activity repository with a transaction
func newActivityRepositoryWithTx(tx queryable) *ActivityRepository {
	return &ActivityRepository{q: tx}
}

// Append inserts one activity entry
func (r *ActivityRepository) Append(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activity (kind, amount, asset_symbol, wallet_address, tx_signature, outcome, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		activity.Kind,
		int64(activity.Amount),
		activity.AssetSymbol,
		activity.WalletAddress,
		activity.TxSignature,
		activity.Outcome,
		activity.Detail,
	).Scan(&activity.ID, &activity.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}

	return nil
}

// GetRecent returns the most recent entries, newest first
func (r *ActivityRepository) GetRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	query := `
		SELECT id, kind, amount, asset_symbol, wallet_address, tx_signature, outcome, detail, created_at
		FROM activity
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activity: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		var activity models.Activity
		var amount int64
		err := rows.Scan(
			&activity.ID,
			&activity.Kind,
			&amount,
			&activity.AssetSymbol,
			&activity.WalletAddress,
			&activity.TxSignature,
			&activity.Outcome,
			&activity.Detail,
			&activity.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activity.Amount = uint64(amount)
		activities = append(activities, &activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}

	return activities, nil
}
