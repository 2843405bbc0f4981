package repository

import (
	"context"
	"fmt"
	"time"

	"buybackd/database"
	"buybackd/models"
)

// HolderRepository implements the HolderRepository interface
type HolderRepository struct {
	q queryable
}

// NewHolderRepository creates a new holder repository
func NewHolderRepository(db *database.DB) *HolderRepository {
	return &HolderRepository{q: db.Pool}
}

// newHolderRepositoryWithTx creates a new holder repository with a transaction
func newHolderRepositoryWithTx(tx queryable) *HolderRepository {
	return &HolderRepository{q: tx}
}

// ReplaceAll swaps the entire snapshot. The caller runs this inside a
// unit of work, so the delete and inserts land atomically and readers
// never see a half-replaced snapshot.
func (r *HolderRepository) ReplaceAll(ctx context.Context, holders []*models.TokenHolder) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM token_holders`); err != nil {
		return fmt.Errorf("failed to clear holder snapshot: %w", err)
	}

	query := `
		INSERT INTO token_holders (wallet_address, balance, rank, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	for _, holder := range holders {
		_, err := r.q.Exec(ctx, query,
			holder.WalletAddress,
			int64(holder.Balance),
			holder.Rank,
			holder.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holder %s: %w", holder.WalletAddress, err)
		}
	}

	return nil
}

// RecordReward sets the reward fields for one holder
func (r *HolderRepository) RecordReward(ctx context.Context, walletAddress string, amount uint64, at time.Time) error {
	query := `
		UPDATE token_holders
		SET last_reward_amount = $1, last_reward_at = $2
		WHERE wallet_address = $3
	`

	result, err := r.q.Exec(ctx, query, int64(amount), at, walletAddress)
	if err != nil {
		return fmt.Errorf("failed to record reward for %s: %w", walletAddress, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("holder %s not in snapshot", walletAddress)
	}

	return nil
}

// GetAll returns the current snapshot ordered by rank
func (r *HolderRepository) GetAll(ctx context.Context) ([]*models.TokenHolder, error) {
	query := `
		SELECT wallet_address, balance, rank, last_reward_amount, last_reward_at, updated_at
		FROM token_holders
		ORDER BY rank ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get holders: %w", err)
	}
	defer rows.Close()

	var holders []*models.TokenHolder
	for rows.Next() {
		var holder models.TokenHolder
		var balance int64
		var rewardAmount *int64
		err := rows.Scan(
			&holder.WalletAddress,
			&balance,
			&holder.Rank,
			&rewardAmount,
			&holder.LastRewardAt,
			&holder.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holder: %w", err)
		}
		holder.Balance = uint64(balance)
		if rewardAmount != nil {
			amount := uint64(*rewardAmount)
			holder.LastRewardAmount = &amount
		}
		holders = append(holders, &holder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holders: %w", err)
	}

	return holders, nil
}
