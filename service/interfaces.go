package service

import (
	"context"
	"time"

	"buybackd/events"
	"buybackd/models"
	"buybackd/solana"
)

// CycleRepository defines the interface for cycle data access
type CycleRepository interface {
	// Create inserts a new cycle and fills in its ID
	Create(ctx context.Context, cycle *models.Cycle) error

	// Update persists the mutable fields of an existing cycle
	Update(ctx context.Context, cycle *models.Cycle) error

	// GetByID retrieves a cycle by its ID
	GetByID(ctx context.Context, id int64) (*models.Cycle, error)

	// GetRecent returns the most recent cycles, newest first
	GetRecent(ctx context.Context, limit int) ([]*models.Cycle, error)
}

// HolderRepository defines the interface for the ranked holder snapshot
type HolderRepository interface {
	// ReplaceAll atomically swaps the entire snapshot: old rows are
	// cleared, new rows inserted with null reward fields.
	ReplaceAll(ctx context.Context, holders []*models.TokenHolder) error

	// RecordReward sets the reward fields for one holder. Called only
	// for holders whose transfer actually succeeded.
	RecordReward(ctx context.Context, walletAddress string, amount uint64, at time.Time) error

	// GetAll returns the current snapshot ordered by rank
	GetAll(ctx context.Context) ([]*models.TokenHolder, error)
}

// DistributionRepository defines the interface for transfer records
type DistributionRepository interface {
	// Create inserts one distribution record
	Create(ctx context.Context, distribution *models.Distribution) error

	// GetByCycle returns all records for a cycle ordered by rank
	GetByCycle(ctx context.Context, cycleID int64) ([]*models.Distribution, error)
}

// ActivityRepository defines the interface for the append-only log
type ActivityRepository interface {
	// Append inserts one activity entry
	Append(ctx context.Context, activity *models.Activity) error

	// GetRecent returns the most recent entries, newest first
	GetRecent(ctx context.Context, limit int) ([]*models.Activity, error)
}

// ConfigRepository defines the interface for persisted key/value
// configuration shared with the dashboard.
type ConfigRepository interface {
	// Get returns the value for key, or "" if the key is not set
	Get(ctx context.Context, key string) (string, error)

	// Set upserts the value for key
	Set(ctx context.Context, key, value string) error
}

// EventPublisher publishes events within a unit of work; they are
// delivered only after the transaction commits.
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork represents a transactional boundary over the repositories
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	CycleRepository() CycleRepository
	HolderRepository() HolderRepository
	DistributionRepository() DistributionRepository
	ActivityRepository() ActivityRepository
	ConfigRepository() ConfigRepository

	EventBus() EventPublisher
}

// UnitOfWorkFactory creates units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// FeeVault is the funds-sourcing boundary: the operator's accrual
// vault, their spendable wallet, and the claim path.
type FeeVault interface {
	VaultBalance(ctx context.Context) (uint64, error)
	WalletBalance(ctx context.Context) (uint64, error)

	// Claim collects accrued fees into the operator wallet, returning
	// the transaction signature. solana.ErrNothingToClaim signals an
	// empty vault.
	Claim(ctx context.Context) (string, error)
}

// NativeWrapper converts native currency into the transferable payout
// asset.
type NativeWrapper interface {
	WrapNative(ctx context.Context, lamports uint64) (string, error)
}

// TokenBuyer swaps native currency for the distributed token itself.
type TokenBuyer interface {
	BuyToken(ctx context.Context, mint string, lamports uint64, slippagePercent int) (string, error)
}

// HolderLedger is the chain-data boundary for holder ranking. Both
// queries are rate limited by the provider.
type HolderLedger interface {
	LargestTokenAccounts(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error)
	TokenAccountOwner(ctx context.Context, account string) (string, error)
}

// PayoutSender executes one outbound payout transfer.
type PayoutSender interface {
	SendPayout(ctx context.Context, wallet string, amount uint64) (string, error)
}
