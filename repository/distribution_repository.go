package repository

import (
	"context"
	"fmt"

	"buybackd/database"
	"buybackd/models"
)

// DistributionRepository implements the DistributionRepository interface
type DistributionRepository struct {
	q queryable
}

// NewDistributionRepository creates a new distribution repository
func NewDistributionRepository(db *database.DB) *DistributionRepository {
	return &DistributionRepository{q: db.Pool}
}

// newDistributionRepositoryWithTx creates a new distribution repository with a transaction
func newDistributionRepositoryWithTx(tx queryable) *DistributionRepository {
	return &DistributionRepository{q: tx}
}

// Create inserts one distribution record
func (r *DistributionRepository) Create(ctx context.Context, distribution *models.Distribution) error {
	query := `
		INSERT INTO distributions (cycle_id, wallet_address, amount, rank, outcome, tx_signature, error_detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		distribution.CycleID,
		distribution.WalletAddress,
		int64(distribution.Amount),
		distribution.Rank,
		distribution.Outcome,
		distribution.TxSignature,
		distribution.ErrorDetail,
	).Scan(&distribution.ID, &distribution.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create distribution for %s in cycle %d: %w",
			distribution.WalletAddress, distribution.CycleID, err)
	}

	return nil
}

// GetByCycle returns all records for a cycle ordered by rank
func (r *DistributionRepository) GetByCycle(ctx context.Context, cycleID int64) ([]*models.Distribution, error) {
	query := `
		SELECT id, cycle_id, wallet_address, amount, rank, outcome, tx_signature, error_detail, created_at
		FROM distributions
		WHERE cycle_id = $1
		ORDER BY rank ASC
	`

	rows, err := r.q.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get distributions for cycle %d: %w", cycleID, err)
	}
	defer rows.Close()

	var distributions []*models.Distribution
	for rows.Next() {
		var dist models.Distribution
		var amount int64
		err := rows.Scan(
			&dist.ID,
			&dist.CycleID,
			&dist.WalletAddress,
			&amount,
			&dist.Rank,
			&dist.Outcome,
			&dist.TxSignature,
			&dist.ErrorDetail,
			&dist.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan distribution: %w", err)
		}
		dist.Amount = uint64(amount)
		distributions = append(distributions, &dist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate distributions: %w", err)
	}

	return distributions, nil
}
