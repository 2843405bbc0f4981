package testutil

import (
	"time"

	"buybackd/models"
)

// CreateTestCycle creates a processing cycle with default values
func CreateTestCycle() *models.Cycle {
	return &models.Cycle{
		ClaimedLamports: 100_000_000,
		ConvertedAmount: 90_000_000,
		Status:          models.CycleStatusProcessing,
		FundsSource:     "claim",
		StartedAt:       time.Now().UTC(),
	}
}

// CreateTestHolder creates a snapshot row with the given rank
func CreateTestHolder(wallet string, balance uint64, rank int) *models.TokenHolder {
	return &models.TokenHolder{
		WalletAddress: wallet,
		Balance:       balance,
		Rank:          rank,
		UpdatedAt:     time.Now().UTC(),
	}
}

// CreateTestDistribution creates a successful distribution record
func CreateTestDistribution(cycleID int64, wallet string, amount uint64, rank int) *models.Distribution {
	sig := "test-signature"
	return &models.Distribution{
		CycleID:       cycleID,
		WalletAddress: wallet,
		Amount:        amount,
		Rank:          rank,
		Outcome:       models.DistributionOutcomeSuccess,
		TxSignature:   &sig,
	}
}

// CreateTestActivity creates an activity entry of the given kind
func CreateTestActivity(kind models.ActivityKind, amount uint64) *models.Activity {
	return &models.Activity{
		Kind:        kind,
		Amount:      amount,
		AssetSymbol: "SOL",
		Outcome:     models.ActivityOutcomeSuccess,
	}
}
