package service

import (
	"context"
	"errors"
	"testing"

	"buybackd/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type orchestratorMocks struct {
	factory          *MockUnitOfWorkFactory
	uow              *MockUnitOfWork
	cycleRepo        *MockCycleRepository
	holderRepo       *MockHolderRepository
	distributionRepo *MockDistributionRepository
	activityRepo     *MockActivityRepository
	funds            *MockFundsSource
	converter        *MockConverter
	ranker           *MockHolderRanker
	distributor      *MockDistributor
}

func newTestOrchestrator(ctx context.Context) (CycleOrchestrator, *orchestratorMocks) {
	m := &orchestratorMocks{
		factory:          new(MockUnitOfWorkFactory),
		uow:              new(MockUnitOfWork),
		cycleRepo:        new(MockCycleRepository),
		holderRepo:       new(MockHolderRepository),
		distributionRepo: new(MockDistributionRepository),
		activityRepo:     new(MockActivityRepository),
		funds:            new(MockFundsSource),
		converter:        new(MockConverter),
		ranker:           new(MockHolderRanker),
		distributor:      new(MockDistributor),
	}
	m.uow.SetRepositories(m.cycleRepo, m.holderRepo, m.distributionRepo, m.activityRepo, new(MockConfigRepository))

	m.factory.On("Create").Return(m.uow)
	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil).Maybe()

	m.cycleRepo.On("Create", ctx, mock.AnythingOfType("*models.Cycle")).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Cycle).ID = 42
	}).Return(nil)
	m.cycleRepo.On("Update", ctx, mock.AnythingOfType("*models.Cycle")).Return(nil)
	m.activityRepo.On("Append", ctx, mock.AnythingOfType("*models.Activity")).Return(nil)

	orchestrator := NewCycleOrchestrator(
		m.factory, m.funds, m.converter, m.ranker, m.distributor,
		testMint, 10,
	)
	return orchestrator, m
}

func TestOrchestrator_RunCycle_NoFundsSkips(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(ctx)

	m.funds.On("AcquireFunds", ctx).Return(nil, ErrNoFunds)

	summary, err := orchestrator.RunCycle(ctx, false)

	assert.NoError(t, err)
	assert.Equal(t, models.CycleStatusSkipped, summary.Cycle.Status)
	assert.NotNil(t, summary.Cycle.CompletedAt)
	assert.Zero(t, summary.RecipientsPaid)
	m.converter.AssertNotCalled(t, "Convert")
	m.distributor.AssertNotCalled(t, "Distribute")
}

func TestOrchestrator_RunCycle_FundsErrorFails(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(ctx)

	m.funds.On("AcquireFunds", ctx).Return(nil, errors.New("rpc timeout"))

	summary, err := orchestrator.RunCycle(ctx, false)

	assert.NoError(t, err)
	assert.Equal(t, models.CycleStatusFailed, summary.Cycle.Status)
	assert.NotNil(t, summary.Cycle.ErrorDetail)
	m.converter.AssertNotCalled(t, "Convert")
}

func TestOrchestrator_RunCycle_ConversionFailureNoDistributions(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(ctx)

	m.funds.On("AcquireFunds", ctx).Return(&FundsResult{
		Lamports: 100_000_000, Source: FundsSourceClaim, Signature: "claim-sig",
	}, nil)
	m.converter.On("Convert", ctx, uint64(100_000_000)).Return(nil, errors.New("blockhash expired"))

	summary, err := orchestrator.RunCycle(ctx, false)

	assert.NoError(t, err)
	assert.Equal(t, models.CycleStatusFailed, summary.Cycle.Status)
	assert.Equal(t, uint64(100_000_000), summary.Cycle.ClaimedLamports)
	m.ranker.AssertNotCalled(t, "TopHolders")
	m.distributor.AssertNotCalled(t, "Distribute")
	m.distributionRepo.AssertNotCalled(t, "Create")
}

func TestOrchestrator_RunCycle_NothingWrappedCompletes(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(ctx)

	m.funds.On("AcquireFunds", ctx).Return(&FundsResult{
		Lamports: 100_000_000, Source: FundsSourceClaim,
	}, nil)
	m.converter.On("Convert", ctx, uint64(100_000_000)).Return(&ConversionResult{
		BuyAttempted: true, BuySucceeded: true, BuySpent: 99_000_000, BuySignature: "buy-sig",
		WrappedAmount: 0,
	}, nil)

	summary, err := orchestrator.RunCycle(ctx, false)

	assert.NoError(t, err)
	assert.Equal(t, models.CycleStatusCompleted, summary.Cycle.Status)
	assert.Zero(t, summary.RecipientsPaid)
	m.ranker.AssertNotCalled(t, "TopHolders")
	m.distributor.AssertNotCalled(t, "Distribute")
}

func TestOrchestrator_RunCycle_FullPipelinePartialFailure(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(ctx)

	holders := []RankedHolder{
		{WalletOwner: "wallet1", Balance: 200, Rank: 1},
		{WalletOwner: "wallet2", Balance: 100, Rank: 2},
	}

	m.funds.On("AcquireFunds", ctx).Return(&FundsResult{
		Lamports: 100_000_000, Source: FundsSourceClaim, Signature: "claim-sig",
	}, nil)
	m.converter.On("Convert", ctx, uint64(100_000_000)).Return(&ConversionResult{
		WrappedAmount: 90_000_000, WrapSignature: "wrap-sig",
	}, nil)
	m.ranker.On("TopHolders", ctx, testMint, 10).Return(holders, nil)
	m.holderRepo.On("ReplaceAll", ctx, mock.Anything).Return(nil)
	m.distributor.On("Distribute", ctx, uint64(90_000_000), holders).Return([]DistributionResult{
		{WalletOwner: "wallet1", Rank: 1, AmountSent: 60_000_000, Outcome: models.DistributionOutcomeSuccess, TxSignature: "sig1"},
		{WalletOwner: "wallet2", Rank: 2, Outcome: models.DistributionOutcomeFailure, FailureReason: models.FailureReasonNetwork, ErrorDetail: "connection reset"},
	})
	m.distributionRepo.On("Create", ctx, mock.AnythingOfType("*models.Distribution")).Return(nil)
	// Reward fields only update for the paid holder.
	m.holderRepo.On("RecordReward", ctx, "wallet1", uint64(60_000_000), mock.Anything).Return(nil)

	summary, err := orchestrator.RunCycle(ctx, true)

	assert.NoError(t, err)
	assert.Equal(t, models.CycleStatusCompleted, summary.Cycle.Status)
	assert.Equal(t, 1, summary.RecipientsPaid)
	assert.Equal(t, 1, summary.RecipientsFailed)
	assert.Equal(t, uint64(60_000_000), summary.TotalDistributed)
	assert.Equal(t, uint64(90_000_000), summary.Cycle.ConvertedAmount)
	m.holderRepo.AssertNotCalled(t, "RecordReward", ctx, "wallet2", mock.Anything, mock.Anything)
	m.distributionRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestOrchestrator_RunCycle_RankingFailureDegrades(t *testing.T) {
	ctx := context.Background()
	orchestrator, m := newTestOrchestrator(ctx)

	m.funds.On("AcquireFunds", ctx).Return(&FundsResult{
		Lamports: 100_000_000, Source: FundsSourceWallet,
	}, nil)
	m.converter.On("Convert", ctx, uint64(100_000_000)).Return(&ConversionResult{
		WrappedAmount: 90_000_000, WrapSignature: "wrap-sig",
	}, nil)
	m.ranker.On("TopHolders", ctx, testMint, 10).Return(nil, errors.New("rpc timeout"))
	m.distributor.On("Distribute", ctx, uint64(90_000_000), []RankedHolder(nil)).Return(nil)

	summary, err := orchestrator.RunCycle(ctx, false)

	// Funds are already wrapped; the cycle completes with zero payouts
	// instead of failing.
	assert.NoError(t, err)
	assert.Equal(t, models.CycleStatusCompleted, summary.Cycle.Status)
	assert.Zero(t, summary.RecipientsPaid)
	m.holderRepo.AssertNotCalled(t, "ReplaceAll")
}

func TestOrchestrator_RunCycle_MintNotConfigured(t *testing.T) {
	ctx := context.Background()

	m := &orchestratorMocks{
		factory:     new(MockUnitOfWorkFactory),
		funds:       new(MockFundsSource),
		converter:   new(MockConverter),
		ranker:      new(MockHolderRanker),
		distributor: new(MockDistributor),
	}
	orchestrator := NewCycleOrchestrator(
		m.factory, m.funds, m.converter, m.ranker, m.distributor,
		"", 10,
	)

	summary, err := orchestrator.RunCycle(ctx, false)

	assert.ErrorIs(t, err, ErrMintNotConfigured)
	assert.Nil(t, summary)
	m.factory.AssertNotCalled(t, "Create")
	m.funds.AssertNotCalled(t, "AcquireFunds")
}
