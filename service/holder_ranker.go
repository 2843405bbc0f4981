package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"buybackd/retry"
	"buybackd/solana"

	log "github.com/sirupsen/logrus"
)

// ErrMintNotConfigured means no token mint is set. A configuration
// error: scheduled execution should halt rather than fail every tick.
var ErrMintNotConfigured = errors.New("token mint not configured")

// RankedHolder is one entry of a fresh holder ranking. WalletOwner is
// the resolved controlling wallet, never the token account itself.
type RankedHolder struct {
	WalletOwner string
	Balance     uint64
	Rank        int
}

// RankerConfig controls the rate-limit pacing of owner resolution
type RankerConfig struct {
	// LookupDelay between individual owner lookups
	LookupDelay time.Duration
	// BatchSize lookups run between the longer BatchDelay pauses
	BatchSize  int
	BatchDelay time.Duration
	// RetryPolicy applies per lookup when the provider rate-limits
	RetryPolicy retry.Policy
}

// HolderRanker produces a fresh ranked snapshot of the top holders
type HolderRanker interface {
	TopHolders(ctx context.Context, mint string, n int) ([]RankedHolder, error)
}

type holderRanker struct {
	ledger HolderLedger
	cfg    RankerConfig
}

// NewHolderRanker creates a ranker over the chain-data provider.
func NewHolderRanker(ledger HolderLedger, cfg RankerConfig) HolderRanker {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 5
	}
	if cfg.RetryPolicy.MaxAttempts < 1 {
		cfg.RetryPolicy = retry.Policy{
			MaxAttempts: 4,
			BaseDelay:   500 * time.Millisecond,
			Multiplier:  2,
			Retryable:   func(err error) bool { return errors.Is(err, solana.ErrRateLimited) },
		}
	}
	return &holderRanker{ledger: ledger, cfg: cfg}
}

func (r *holderRanker) TopHolders(ctx context.Context, mint string, n int) ([]RankedHolder, error) {
	if mint == "" {
		return nil, ErrMintNotConfigured
	}

	// The provider returns token accounts, already sorted by
	// descending balance. Every one of them must still be resolved to
	// its owning wallet: paying the token account instead would strand
	// the funds.
	accounts, err := r.ledger.LargestTokenAccounts(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to query largest token accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	byOwner := make(map[string]int)
	var holders []RankedHolder

	lookups := 0
	for _, account := range accounts {
		if len(holders) >= n {
			break
		}

		if lookups > 0 {
			pause := r.cfg.LookupDelay
			if r.cfg.BatchSize > 0 && lookups%r.cfg.BatchSize == 0 {
				pause = r.cfg.BatchDelay
			}
			if err := sleepCtx(ctx, pause); err != nil {
				return nil, err
			}
		}
		lookups++

		owner, err := r.resolveOwner(ctx, account.Address)
		if err != nil {
			// Retries exhausted: this holder is skipped, the ranking
			// pass continues.
			log.WithError(err).WithField("account", account.Address).Warn("Skipping unresolvable holder")
			continue
		}

		if i, ok := byOwner[owner]; ok {
			// Several token accounts can share one wallet; the
			// snapshot keys on the wallet, so merge the balances.
			holders[i].Balance += account.Amount
			continue
		}
		byOwner[owner] = len(holders)
		holders = append(holders, RankedHolder{WalletOwner: owner, Balance: account.Amount})
	}

	// Merging can disturb the provider's ordering; re-sort and assign
	// dense ranks over whoever survived resolution.
	sort.SliceStable(holders, func(i, j int) bool {
		return holders[i].Balance > holders[j].Balance
	})
	for i := range holders {
		holders[i].Rank = i + 1
	}

	return holders, nil
}

func (r *holderRanker) resolveOwner(ctx context.Context, account string) (string, error) {
	var owner string
	err := r.cfg.RetryPolicy.Do(ctx, func(int) error {
		resolved, err := r.ledger.TokenAccountOwner(ctx, account)
		if err != nil {
			return err
		}
		owner = resolved
		return nil
	})
	return owner, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
