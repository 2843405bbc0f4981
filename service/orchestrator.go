package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"buybackd/events"
	"buybackd/models"

	log "github.com/sirupsen/logrus"
)

// ErrCycleInProgress means a cycle is already running. Cycles never
// overlap; a trigger that lands mid-cycle is rejected, not queued.
var ErrCycleInProgress = errors.New("a cycle is already in progress")

const wrappedAssetSymbol = "WSOL"

// CycleSummary is what one pipeline run produced
type CycleSummary struct {
	Cycle            *models.Cycle
	RecipientsPaid   int
	RecipientsFailed int
	TotalDistributed uint64
}

// CycleOrchestrator drives the full pipeline: acquire, convert, rank,
// distribute, persisting after every step.
type CycleOrchestrator interface {
	// RunCycle executes one cycle end to end. Returns
	// ErrCycleInProgress if one is already running and
	// ErrMintNotConfigured when the pipeline cannot run at all.
	RunCycle(ctx context.Context, manual bool) (*CycleSummary, error)

	// InProgress reports whether a cycle is currently executing
	InProgress() bool
}

type cycleOrchestrator struct {
	uowFactory  UnitOfWorkFactory
	funds       FundsSource
	converter   Converter
	ranker      HolderRanker
	distributor Distributor

	tokenMint      string
	topHolderCount int

	running atomic.Bool
}

// NewCycleOrchestrator wires the pipeline stages together.
func NewCycleOrchestrator(
	uowFactory UnitOfWorkFactory,
	funds FundsSource,
	converter Converter,
	ranker HolderRanker,
	distributor Distributor,
	tokenMint string,
	topHolderCount int,
) CycleOrchestrator {
	return &cycleOrchestrator{
		uowFactory:     uowFactory,
		funds:          funds,
		converter:      converter,
		ranker:         ranker,
		distributor:    distributor,
		tokenMint:      tokenMint,
		topHolderCount: topHolderCount,
	}
}

func (o *cycleOrchestrator) InProgress() bool {
	return o.running.Load()
}

func (o *cycleOrchestrator) RunCycle(ctx context.Context, manual bool) (*CycleSummary, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer o.running.Store(false)

	if o.tokenMint == "" {
		return nil, ErrMintNotConfigured
	}

	cycle, err := o.startCycle(ctx, manual)
	if err != nil {
		return nil, fmt.Errorf("failed to start cycle: %w", err)
	}
	logger := log.WithField("cycleID", cycle.ID)
	logger.WithField("manual", manual).Info("Cycle started")

	// Stage 1: funds.
	funds, err := o.funds.AcquireFunds(ctx)
	if errors.Is(err, ErrNoFunds) {
		logger.Info("Nothing to distribute, skipping cycle")
		o.recordSkip(ctx, cycle)
		return o.finishCycle(ctx, cycle, models.CycleStatusSkipped, nil, nil)
	}
	if err != nil {
		return o.failCycle(ctx, cycle, models.ActivityKindFundClaim, err)
	}

	cycle.ClaimedLamports = funds.Lamports
	cycle.FundsSource = funds.Source
	o.persistStep(ctx, cycle, &models.Activity{
		Kind:        models.ActivityKindFundClaim,
		Amount:      funds.Lamports,
		AssetSymbol: "SOL",
		TxSignature: optional(funds.Signature),
		Outcome:     models.ActivityOutcomeSuccess,
	})

	// Stage 2: conversion.
	conversion, err := o.converter.Convert(ctx, funds.Lamports)
	if err != nil {
		return o.failCycle(ctx, cycle, models.ActivityKindConversion, err)
	}
	o.recordConversion(ctx, cycle, conversion)

	if conversion.WrappedAmount == 0 {
		// Everything went to the buyback or fees. A legitimate
		// completion, not a failure.
		logger.Info("Nothing left to distribute after conversion")
		return o.finishCycle(ctx, cycle, models.CycleStatusCompleted, nil, nil)
	}

	// Stage 3: holder ranking. Funds are already wrapped at this point,
	// so a ranking failure degrades to an empty payout batch; the
	// wrapped balance stays in the wallet for the next cycle.
	holders, err := o.ranker.TopHolders(ctx, o.tokenMint, o.topHolderCount)
	if errors.Is(err, ErrMintNotConfigured) {
		o.failCycle(ctx, cycle, models.ActivityKindDistribution, err)
		return nil, err
	}
	if err != nil {
		logger.WithError(err).Warn("Holder ranking failed, no payouts this cycle")
		holders = nil
	}
	if len(holders) > 0 {
		o.replaceSnapshot(ctx, holders)
	}

	// Stage 4: distribution.
	results := o.distributor.Distribute(ctx, conversion.WrappedAmount, holders)
	summary := o.recordDistributions(ctx, cycle, results)

	return o.finishCycle(ctx, cycle, models.CycleStatusCompleted, summary, nil)
}

// startCycle persists the new cycle row and announces it.
func (o *cycleOrchestrator) startCycle(ctx context.Context, manual bool) (*models.Cycle, error) {
	cycle := &models.Cycle{
		Status:    models.CycleStatusProcessing,
		StartedAt: time.Now().UTC(),
	}
	err := o.withUoW(ctx, func(uow UnitOfWork) error {
		if err := uow.CycleRepository().Create(ctx, cycle); err != nil {
			return err
		}
		uow.EventBus().Publish(events.CycleStartedEvent{CycleID: cycle.ID, Manual: manual})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cycle, nil
}

// persistStep writes the cycle's current state plus one activity entry
// in a single transaction. Persistence failures are logged, never
// fatal: the chain-side action already happened and must not be
// retried because a DB write failed.
func (o *cycleOrchestrator) persistStep(ctx context.Context, cycle *models.Cycle, activity *models.Activity) {
	err := o.withUoW(ctx, func(uow UnitOfWork) error {
		if err := uow.CycleRepository().Update(ctx, cycle); err != nil {
			return err
		}
		if activity != nil {
			if err := uow.ActivityRepository().Append(ctx, activity); err != nil {
				return err
			}
			uow.EventBus().Publish(events.ActivityRecordedEvent{Activity: *activity})
		}
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("cycleID", cycle.ID).Error("Failed to persist cycle step")
	}
}

func (o *cycleOrchestrator) recordSkip(ctx context.Context, cycle *models.Cycle) {
	o.persistStep(ctx, cycle, &models.Activity{
		Kind:        models.ActivityKindFundClaim,
		AssetSymbol: "SOL",
		Outcome:     models.ActivityOutcomeSkipped,
		Detail:      optional("below fee reserve, nothing to distribute"),
	})
}

// recordConversion logs the wrap and, when attempted, the buyback leg.
func (o *cycleOrchestrator) recordConversion(ctx context.Context, cycle *models.Cycle, conversion *ConversionResult) {
	cycle.ConvertedAmount = conversion.WrappedAmount

	if conversion.BuyAttempted {
		buy := &models.Activity{
			Kind:        models.ActivityKindConversion,
			Amount:      conversion.BuySpent,
			AssetSymbol: "SOL",
			TxSignature: optional(conversion.BuySignature),
			Outcome:     models.ActivityOutcomeSuccess,
		}
		if !conversion.BuySucceeded {
			buy.Outcome = models.ActivityOutcomeFailure
			buy.Detail = optional(conversion.BuyError)
		}
		o.persistStep(ctx, cycle, buy)
	}

	if conversion.WrappedAmount > 0 {
		o.persistStep(ctx, cycle, &models.Activity{
			Kind:        models.ActivityKindConversion,
			Amount:      conversion.WrappedAmount,
			AssetSymbol: wrappedAssetSymbol,
			TxSignature: optional(conversion.WrapSignature),
			Outcome:     models.ActivityOutcomeSuccess,
		})
	}
}

// replaceSnapshot swaps the persisted holder snapshot for the fresh
// ranking. Reward fields start null and are filled per successful
// payout.
func (o *cycleOrchestrator) replaceSnapshot(ctx context.Context, holders []RankedHolder) {
	now := time.Now().UTC()
	rows := make([]*models.TokenHolder, len(holders))
	for i, h := range holders {
		rows[i] = &models.TokenHolder{
			WalletAddress: h.WalletOwner,
			Balance:       h.Balance,
			Rank:          h.Rank,
			UpdatedAt:     now,
		}
	}
	err := o.withUoW(ctx, func(uow UnitOfWork) error {
		if err := uow.HolderRepository().ReplaceAll(ctx, rows); err != nil {
			return err
		}
		uow.EventBus().Publish(events.SnapshotReplacedEvent{HolderCount: len(rows)})
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to replace holder snapshot")
	}
}

// recordDistributions persists one distribution row and one activity
// entry per recipient, each in its own transaction so a DB hiccup on
// one recipient cannot lose the others.
func (o *cycleOrchestrator) recordDistributions(ctx context.Context, cycle *models.Cycle, results []DistributionResult) *CycleSummary {
	summary := &CycleSummary{Cycle: cycle}

	for _, result := range results {
		result := result
		now := time.Now().UTC()

		dist := &models.Distribution{
			CycleID:       cycle.ID,
			WalletAddress: result.WalletOwner,
			Amount:        result.AmountSent,
			Rank:          result.Rank,
			Outcome:       result.Outcome,
			TxSignature:   optional(result.TxSignature),
		}
		activity := &models.Activity{
			Kind:          models.ActivityKindDistribution,
			Amount:        result.AmountSent,
			AssetSymbol:   wrappedAssetSymbol,
			WalletAddress: optional(result.WalletOwner),
			TxSignature:   optional(result.TxSignature),
		}

		if result.Outcome == models.DistributionOutcomeSuccess {
			summary.RecipientsPaid++
			summary.TotalDistributed += result.AmountSent
			activity.Outcome = models.ActivityOutcomeSuccess
		} else {
			summary.RecipientsFailed++
			detail := string(result.FailureReason)
			if result.ErrorDetail != "" {
				detail = detail + ": " + result.ErrorDetail
			}
			dist.ErrorDetail = optional(detail)
			activity.Outcome = models.ActivityOutcomeFailure
			activity.Detail = optional(detail)
		}

		err := o.withUoW(ctx, func(uow UnitOfWork) error {
			if err := uow.DistributionRepository().Create(ctx, dist); err != nil {
				return err
			}
			if err := uow.ActivityRepository().Append(ctx, activity); err != nil {
				return err
			}
			if result.Outcome == models.DistributionOutcomeSuccess {
				if err := uow.HolderRepository().RecordReward(ctx, result.WalletOwner, result.AmountSent, now); err != nil {
					return err
				}
			}
			uow.EventBus().Publish(events.ActivityRecordedEvent{Activity: *activity})
			return nil
		})
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"cycleID": cycle.ID,
				"wallet":  result.WalletOwner,
			}).Error("Failed to record distribution")
		}
	}

	return summary
}

// finishCycle moves the cycle to a terminal state and announces it.
func (o *cycleOrchestrator) finishCycle(ctx context.Context, cycle *models.Cycle, status models.CycleStatus, summary *CycleSummary, cause error) (*CycleSummary, error) {
	now := time.Now().UTC()
	cycle.Status = status
	cycle.CompletedAt = &now
	if cause != nil {
		cycle.ErrorDetail = optional(cause.Error())
	}
	if summary == nil {
		summary = &CycleSummary{Cycle: cycle}
	}

	err := o.withUoW(ctx, func(uow UnitOfWork) error {
		if err := uow.CycleRepository().Update(ctx, cycle); err != nil {
			return err
		}
		uow.EventBus().Publish(events.CycleFinishedEvent{
			Cycle:            *cycle,
			RecipientsPaid:   summary.RecipientsPaid,
			RecipientsFailed: summary.RecipientsFailed,
			TotalDistributed: summary.TotalDistributed,
		})
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("cycleID", cycle.ID).Error("Failed to finalize cycle")
	}

	log.WithFields(log.Fields{
		"cycleID":     cycle.ID,
		"status":      cycle.Status,
		"paid":        summary.RecipientsPaid,
		"failed":      summary.RecipientsFailed,
		"distributed": summary.TotalDistributed,
	}).Info("Cycle finished")
	return summary, nil
}

// failCycle records the terminal failure and the activity entry for
// the stage that broke.
func (o *cycleOrchestrator) failCycle(ctx context.Context, cycle *models.Cycle, kind models.ActivityKind, cause error) (*CycleSummary, error) {
	log.WithError(cause).WithField("cycleID", cycle.ID).Error("Cycle failed")

	o.persistStep(ctx, cycle, &models.Activity{
		Kind:        kind,
		AssetSymbol: "SOL",
		Outcome:     models.ActivityOutcomeFailure,
		Detail:      optional(cause.Error()),
	})

	summary, _ := o.finishCycle(ctx, cycle, models.CycleStatusFailed, nil, cause)
	return summary, nil
}

// withUoW runs fn inside a unit of work, committing on success.
func (o *cycleOrchestrator) withUoW(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow := o.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			log.WithError(rbErr).Error("Failed to rollback transaction")
		}
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
