package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"buybackd/models"
	"buybackd/solana"

	"github.com/stretchr/testify/assert"
)

func TestDistributor_Distribute_ProportionalShares(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	holders := []RankedHolder{
		{WalletOwner: "wallet1", Balance: 300, Rank: 1},
		{WalletOwner: "wallet2", Balance: 200, Rank: 2},
		{WalletOwner: "wallet3", Balance: 100, Rank: 3},
	}

	// 0.6 total split 300/200/100 -> 0.3, 0.2, 0.1.
	mockSender.On("SendPayout", ctx, "wallet1", uint64(300_000_000)).Return("sig1", nil)
	mockSender.On("SendPayout", ctx, "wallet2", uint64(200_000_000)).Return("sig2", nil)
	mockSender.On("SendPayout", ctx, "wallet3", uint64(100_000_000)).Return("sig3", nil)

	results := distributor.Distribute(ctx, 600_000_000, holders)

	assert.Len(t, results, 3)
	assert.Equal(t, uint64(300_000_000), results[0].AmountSent)
	assert.Equal(t, uint64(200_000_000), results[1].AmountSent)
	assert.Equal(t, uint64(100_000_000), results[2].AmountSent)
	for i, r := range results {
		assert.Equal(t, models.DistributionOutcomeSuccess, r.Outcome)
		assert.Equal(t, holders[i].WalletOwner, r.WalletOwner)
		assert.Equal(t, holders[i].Rank, r.Rank)
	}
	mockSender.AssertExpectations(t)
}

func TestDistributor_Distribute_SumNeverExceedsTotal(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	// Balances that do not divide evenly: floor rounding leaves dust
	// behind rather than overpaying.
	holders := []RankedHolder{
		{WalletOwner: "wallet1", Balance: 7, Rank: 1},
		{WalletOwner: "wallet2", Balance: 5, Rank: 2},
		{WalletOwner: "wallet3", Balance: 3, Rank: 3},
	}

	mockSender.On("SendPayout", ctx, "wallet1", uint64(466)).Return("sig1", nil)
	mockSender.On("SendPayout", ctx, "wallet2", uint64(333)).Return("sig2", nil)
	mockSender.On("SendPayout", ctx, "wallet3", uint64(200)).Return("sig3", nil)

	results := distributor.Distribute(ctx, 1000, holders)

	var sum uint64
	for _, r := range results {
		sum += r.AmountSent
	}
	assert.LessOrEqual(t, sum, uint64(1000))
	mockSender.AssertExpectations(t)
}

func TestDistributor_Distribute_UniformBalancesWithinOneUnit(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	var holders []RankedHolder
	for i := 0; i < 7; i++ {
		holders = append(holders, RankedHolder{
			WalletOwner: fmt.Sprintf("wallet%d", i+1),
			Balance:     1_000,
			Rank:        i + 1,
		})
	}

	// 1000 over 7 equal holders: every share is floor(1000/7) = 142.
	for _, h := range holders {
		mockSender.On("SendPayout", ctx, h.WalletOwner, uint64(142)).Return("sig", nil)
	}

	results := distributor.Distribute(ctx, 1_000, holders)

	var min, max uint64 = results[0].AmountSent, results[0].AmountSent
	for _, r := range results {
		if r.AmountSent < min {
			min = r.AmountSent
		}
		if r.AmountSent > max {
			max = r.AmountSent
		}
	}
	assert.LessOrEqual(t, max-min, uint64(1))
	mockSender.AssertExpectations(t)
}

func TestDistributor_Distribute_FailureIsolation(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	holders := []RankedHolder{
		{WalletOwner: "wallet1", Balance: 100, Rank: 1},
		{WalletOwner: "wallet2", Balance: 100, Rank: 2},
		{WalletOwner: "wallet3", Balance: 100, Rank: 3},
	}

	// The middle recipient fails; the others still get paid.
	mockSender.On("SendPayout", ctx, "wallet1", uint64(100)).Return("sig1", nil)
	mockSender.On("SendPayout", ctx, "wallet2", uint64(100)).Return("", fmt.Errorf("send: %w", solana.ErrTxFailed))
	mockSender.On("SendPayout", ctx, "wallet3", uint64(100)).Return("sig3", nil)

	results := distributor.Distribute(ctx, 300, holders)

	assert.Len(t, results, 3)
	assert.Equal(t, models.DistributionOutcomeSuccess, results[0].Outcome)
	assert.Equal(t, models.DistributionOutcomeFailure, results[1].Outcome)
	assert.Equal(t, models.FailureReasonTransactionFail, results[1].FailureReason)
	assert.Equal(t, models.DistributionOutcomeSuccess, results[2].Outcome)
	mockSender.AssertExpectations(t)
}

func TestDistributor_Distribute_FailureClassification(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	holders := []RankedHolder{
		{WalletOwner: "wallet1", Balance: 100, Rank: 1},
		{WalletOwner: "wallet2", Balance: 100, Rank: 2},
		{WalletOwner: "wallet3", Balance: 100, Rank: 3},
	}

	mockSender.On("SendPayout", ctx, "wallet1", uint64(100)).Return("", fmt.Errorf("ata: %w", solana.ErrAccountCreation))
	mockSender.On("SendPayout", ctx, "wallet2", uint64(100)).Return("", fmt.Errorf("send: %w", solana.ErrTxFailed))
	mockSender.On("SendPayout", ctx, "wallet3", uint64(100)).Return("", errors.New("connection reset"))

	results := distributor.Distribute(ctx, 300, holders)

	assert.Equal(t, models.FailureReasonAccountCreation, results[0].FailureReason)
	assert.Equal(t, models.FailureReasonTransactionFail, results[1].FailureReason)
	assert.Equal(t, models.FailureReasonNetwork, results[2].FailureReason)
	for _, r := range results {
		assert.Equal(t, models.DistributionOutcomeFailure, r.Outcome)
		assert.Zero(t, r.AmountSent)
	}
}

func TestDistributor_Distribute_ShareTooSmall(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	// wallet2's share of 10 units rounds to zero: recorded as a
	// failure without any transfer attempt.
	holders := []RankedHolder{
		{WalletOwner: "wallet1", Balance: 1_000_000, Rank: 1},
		{WalletOwner: "wallet2", Balance: 1, Rank: 2},
	}

	mockSender.On("SendPayout", ctx, "wallet1", uint64(9)).Return("sig1", nil)

	results := distributor.Distribute(ctx, 10, holders)

	assert.Len(t, results, 2)
	assert.Equal(t, models.DistributionOutcomeSuccess, results[0].Outcome)
	assert.Equal(t, models.DistributionOutcomeFailure, results[1].Outcome)
	assert.Equal(t, models.FailureReasonShareTooSmall, results[1].FailureReason)
	mockSender.AssertNotCalled(t, "SendPayout", ctx, "wallet2", uint64(0))
	mockSender.AssertExpectations(t)
}

func TestDistributor_Distribute_SharesFrozenBeforeTransfers(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	holders := []RankedHolder{
		{WalletOwner: "wallet1", Balance: 100, Rank: 1},
		{WalletOwner: "wallet2", Balance: 100, Rank: 2},
	}

	// wallet1's failure must not grow wallet2's share: both are
	// computed from the full holder set up front.
	mockSender.On("SendPayout", ctx, "wallet1", uint64(500)).Return("", errors.New("connection reset"))
	mockSender.On("SendPayout", ctx, "wallet2", uint64(500)).Return("sig2", nil)

	results := distributor.Distribute(ctx, 1000, holders)

	assert.Equal(t, uint64(500), results[1].AmountSent)
	mockSender.AssertExpectations(t)
}

func TestDistributor_Distribute_EmptyHolders(t *testing.T) {
	ctx := context.Background()

	mockSender := new(MockPayoutSender)
	distributor := NewDistributor(mockSender)

	results := distributor.Distribute(ctx, 1000, nil)

	assert.Empty(t, results)
	mockSender.AssertNotCalled(t, "SendPayout")
}
