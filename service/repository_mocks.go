package service

import (
	"context"
	"time"

	"buybackd/events"
	"buybackd/models"
	"buybackd/solana"

	"github.com/stretchr/testify/mock"
)

// MockCycleRepository is a mock implementation of CycleRepository
type MockCycleRepository struct {
	mock.Mock
}

func (m *MockCycleRepository) Create(ctx context.Context, cycle *models.Cycle) error {
	args := m.Called(ctx, cycle)
	return args.Error(0)
}

func (m *MockCycleRepository) Update(ctx context.Context, cycle *models.Cycle) error {
	args := m.Called(ctx, cycle)
	return args.Error(0)
}

func (m *MockCycleRepository) GetByID(ctx context.Context, id int64) (*models.Cycle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cycle), args.Error(1)
}

func (m *MockCycleRepository) GetRecent(ctx context.Context, limit int) ([]*models.Cycle, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Cycle), args.Error(1)
}

// MockHolderRepository is a mock implementation of HolderRepository
type MockHolderRepository struct {
	mock.Mock
}

func (m *MockHolderRepository) ReplaceAll(ctx context.Context, holders []*models.TokenHolder) error {
	args := m.Called(ctx, holders)
	return args.Error(0)
}

func (m *MockHolderRepository) RecordReward(ctx context.Context, walletAddress string, amount uint64, at time.Time) error {
	args := m.Called(ctx, walletAddress, amount, at)
	return args.Error(0)
}

func (m *MockHolderRepository) GetAll(ctx context.Context) ([]*models.TokenHolder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TokenHolder), args.Error(1)
}

// MockDistributionRepository is a mock implementation of DistributionRepository
type MockDistributionRepository struct {
	mock.Mock
}

func (m *MockDistributionRepository) Create(ctx context.Context, distribution *models.Distribution) error {
	args := m.Called(ctx, distribution)
	return args.Error(0)
}

func (m *MockDistributionRepository) GetByCycle(ctx context.Context, cycleID int64) ([]*models.Distribution, error) {
	args := m.Called(ctx, cycleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Distribution), args.Error(1)
}

// MockActivityRepository is a mock implementation of ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Append(ctx context.Context, activity *models.Activity) error {
	args := m.Called(ctx, activity)
	return args.Error(0)
}

func (m *MockActivityRepository) GetRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Activity), args.Error(1)
}

// MockConfigRepository is a mock implementation of ConfigRepository
type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockConfigRepository) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// MockEventPublisher records published events for assertions
type MockEventPublisher struct {
	Published []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Published = append(m.Published, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories
// are injected with SetRepositories rather than mocked call-by-call.
type MockUnitOfWork struct {
	mock.Mock

	cycleRepo        CycleRepository
	holderRepo       HolderRepository
	distributionRepo DistributionRepository
	activityRepo     ActivityRepository
	configRepo       ConfigRepository
	eventBus         EventPublisher
}

func (m *MockUnitOfWork) SetRepositories(
	cycleRepo CycleRepository,
	holderRepo HolderRepository,
	distributionRepo DistributionRepository,
	activityRepo ActivityRepository,
	configRepo ConfigRepository,
) {
	m.cycleRepo = cycleRepo
	m.holderRepo = holderRepo
	m.distributionRepo = distributionRepo
	m.activityRepo = activityRepo
	m.configRepo = configRepo
	m.eventBus = &MockEventPublisher{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) CycleRepository() CycleRepository {
	return m.cycleRepo
}

func (m *MockUnitOfWork) HolderRepository() HolderRepository {
	return m.holderRepo
}

func (m *MockUnitOfWork) DistributionRepository() DistributionRepository {
	return m.distributionRepo
}

func (m *MockUnitOfWork) ActivityRepository() ActivityRepository {
	return m.activityRepo
}

func (m *MockUnitOfWork) ConfigRepository() ConfigRepository {
	return m.configRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockFeeVault is a mock implementation of FeeVault
type MockFeeVault struct {
	mock.Mock
}

func (m *MockFeeVault) VaultBalance(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockFeeVault) WalletBalance(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockFeeVault) Claim(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockNativeWrapper is a mock implementation of NativeWrapper
type MockNativeWrapper struct {
	mock.Mock
}

func (m *MockNativeWrapper) WrapNative(ctx context.Context, lamports uint64) (string, error) {
	args := m.Called(ctx, lamports)
	return args.String(0), args.Error(1)
}

// MockTokenBuyer is a mock implementation of TokenBuyer
type MockTokenBuyer struct {
	mock.Mock
}

func (m *MockTokenBuyer) BuyToken(ctx context.Context, mint string, lamports uint64, slippagePercent int) (string, error) {
	args := m.Called(ctx, mint, lamports, slippagePercent)
	return args.String(0), args.Error(1)
}

// MockHolderLedger is a mock implementation of HolderLedger
type MockHolderLedger struct {
	mock.Mock
}

func (m *MockHolderLedger) LargestTokenAccounts(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	args := m.Called(ctx, mint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]solana.TokenAccountBalance), args.Error(1)
}

func (m *MockHolderLedger) TokenAccountOwner(ctx context.Context, account string) (string, error) {
	args := m.Called(ctx, account)
	return args.String(0), args.Error(1)
}

// MockPayoutSender is a mock implementation of PayoutSender
type MockPayoutSender struct {
	mock.Mock
}

func (m *MockPayoutSender) SendPayout(ctx context.Context, wallet string, amount uint64) (string, error) {
	args := m.Called(ctx, wallet, amount)
	return args.String(0), args.Error(1)
}

// MockFundsSource is a mock implementation of FundsSource
type MockFundsSource struct {
	mock.Mock
}

func (m *MockFundsSource) AcquireFunds(ctx context.Context) (*FundsResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FundsResult), args.Error(1)
}

// MockConverter is a mock implementation of Converter
type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, lamports uint64) (*ConversionResult, error) {
	args := m.Called(ctx, lamports)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConversionResult), args.Error(1)
}

// MockHolderRanker is a mock implementation of HolderRanker
type MockHolderRanker struct {
	mock.Mock
}

func (m *MockHolderRanker) TopHolders(ctx context.Context, mint string, n int) ([]RankedHolder, error) {
	args := m.Called(ctx, mint, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RankedHolder), args.Error(1)
}

// MockDistributor is a mock implementation of Distributor
type MockDistributor struct {
	mock.Mock
}

func (m *MockDistributor) Distribute(ctx context.Context, totalAmount uint64, holders []RankedHolder) []DistributionResult {
	args := m.Called(ctx, totalAmount, holders)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]DistributionResult)
}
