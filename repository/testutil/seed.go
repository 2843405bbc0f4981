package testutil

import (
	"context"
	"testing"

	"buybackd/database"
	"buybackd/models"

	"github.com/jackc/pgx/v5"
)

// SeedCycleWithDistributions inserts a completed cycle and its
// distribution rows in one transaction and returns the cycle ID.
func SeedCycleWithDistributions(t *testing.T, db *database.DB, distributions []*models.Distribution) int64 {
	t.Helper()

	var cycleID int64
	err := db.WithTransaction(context.Background(), func(tx pgx.Tx) error {
		ctx := context.Background()

		err := tx.QueryRow(ctx, `
			INSERT INTO cycles (claimed_lamports, converted_amount, status, funds_source, completed_at)
			VALUES (100000000, 90000000, 'completed', 'claim', NOW())
			RETURNING id
		`).Scan(&cycleID)
		if err != nil {
			return err
		}

		for _, d := range distributions {
			_, err := tx.Exec(ctx, `
				INSERT INTO distributions (cycle_id, wallet_address, amount, rank, outcome, tx_signature, error_detail)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, cycleID, d.WalletAddress, int64(d.Amount), d.Rank, d.Outcome, d.TxSignature, d.ErrorDetail)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to seed cycle: %v", err)
	}

	return cycleID
}
