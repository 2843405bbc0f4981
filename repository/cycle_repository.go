package repository

import (
	"context"
	"fmt"

	"buybackd/database"
	"buybackd/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// queryable abstracts over the pool and a transaction so repositories
// work in both scopes.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CycleRepository implements the CycleRepository interface
type CycleRepository struct {
	q queryable
}

// NewCycleRepository creates a new cycle repository
func NewCycleRepository(db *database.DB) *CycleRepository {
	return &CycleRepository{q: db.Pool}
}

// newCycleRepositoryWithTx creates a new cycle repository with a transaction
func newCycleRepositoryWithTx(tx queryable) *CycleRepository {
	return &CycleRepository{q: tx}
}

// Create inserts a new cycle and fills in its generated ID
func (r *CycleRepository) Create(ctx context.Context, cycle *models.Cycle) error {
	query := `
		INSERT INTO cycles (claimed_lamports, converted_amount, status, funds_source, error_detail, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		int64(cycle.ClaimedLamports),
		int64(cycle.ConvertedAmount),
		cycle.Status,
		cycle.FundsSource,
		cycle.ErrorDetail,
		cycle.StartedAt,
		cycle.CompletedAt,
	).Scan(&cycle.ID)

	if err != nil {
		return fmt.Errorf("failed to create cycle: %w", err)
	}

	return nil
}

// Update persists the mutable fields of an existing cycle
func (r *CycleRepository) Update(ctx context.Context, cycle *models.Cycle) error {
	query := `
		UPDATE cycles
		SET claimed_lamports = $1, converted_amount = $2, status = $3,
		    funds_source = $4, error_detail = $5, completed_at = $6
		WHERE id = $7
	`

	result, err := r.q.Exec(ctx, query,
		int64(cycle.ClaimedLamports),
		int64(cycle.ConvertedAmount),
		cycle.Status,
		cycle.FundsSource,
		cycle.ErrorDetail,
		cycle.CompletedAt,
		cycle.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cycle %d: %w", cycle.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("cycle %d not found", cycle.ID)
	}

	return nil
}

// GetByID retrieves a cycle by its ID
func (r *CycleRepository) GetByID(ctx context.Context, id int64) (*models.Cycle, error) {
	query := `
		SELECT id, claimed_lamports, converted_amount, status, funds_source, error_detail, started_at, completed_at
		FROM cycles
		WHERE id = $1
	`

	cycle, err := scanCycle(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cycle %d: %w", id, err)
	}

	return cycle, nil
}

// GetRecent returns the most recent cycles, newest first
func (r *CycleRepository) GetRecent(ctx context.Context, limit int) ([]*models.Cycle, error) {
	query := `
		SELECT id, claimed_lamports, converted_amount, status, funds_source, error_detail, started_at, completed_at
		FROM cycles
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent cycles: %w", err)
	}
	defer rows.Close()

	var cycles []*models.Cycle
	for rows.Next() {
		cycle, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cycle: %w", err)
		}
		cycles = append(cycles, cycle)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cycles: %w", err)
	}

	return cycles, nil
}

func scanCycle(row pgx.Row) (*models.Cycle, error) {
	var cycle models.Cycle
	var claimed, converted int64
	err := row.Scan(
		&cycle.ID,
		&claimed,
		&converted,
		&cycle.Status,
		&cycle.FundsSource,
		&cycle.ErrorDetail,
		&cycle.StartedAt,
		&cycle.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	cycle.ClaimedLamports = uint64(claimed)
	cycle.ConvertedAmount = uint64(converted)
	return &cycle, nil
}
