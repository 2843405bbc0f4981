package scheduler

import (
	"context"
	"errors"
	"time"

	"buybackd/service"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// cycleStartKey is the app_config key anchoring the tick schedule. The
// dashboard reads it to show the next-cycle countdown, so restarts must
// keep ticking on the same grid instead of resetting it.
const cycleStartKey = "cycle_start_at"

// CycleScheduler triggers pipeline cycles on a fixed interval
type CycleScheduler struct {
	cronEngine   *cron.Cron
	orchestrator service.CycleOrchestrator
	uowFactory   service.UnitOfWorkFactory
	interval     time.Duration
	cycleTimeout time.Duration
}

// NewCycleScheduler creates a scheduler that runs one cycle every
// interval, anchored to the persisted schedule reference.
func NewCycleScheduler(
	orchestrator service.CycleOrchestrator,
	uowFactory service.UnitOfWorkFactory,
	interval time.Duration,
) *CycleScheduler {
	return &CycleScheduler{
		cronEngine:   cron.New(),
		orchestrator: orchestrator,
		uowFactory:   uowFactory,
		interval:     interval,
		cycleTimeout: interval,
	}
}

// Start loads the schedule anchor and begins ticking.
func (s *CycleScheduler) Start(ctx context.Context) error {
	anchor, err := s.loadAnchor(ctx)
	if err != nil {
		return err
	}

	s.cronEngine.Schedule(intervalSchedule{anchor: anchor, every: s.interval}, cron.FuncJob(s.runCycle))
	s.cronEngine.Start()

	log.WithFields(log.Fields{
		"interval": s.interval,
		"anchor":   anchor.Format(time.RFC3339),
	}).Info("Cycle scheduler started")
	return nil
}

// Stop halts the ticker and waits for a running cycle job to return.
func (s *CycleScheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	log.Info("Cycle scheduler stopped")
}

func (s *CycleScheduler) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout)
	defer cancel()

	_, err := s.orchestrator.RunCycle(ctx, false)
	switch {
	case errors.Is(err, service.ErrCycleInProgress):
		log.Warn("Previous cycle still running, tick skipped")
	case errors.Is(err, service.ErrMintNotConfigured):
		// A configuration error fails every future tick the same way;
		// stop ticking instead of spamming failed cycles.
		log.Error("Token mint not configured, halting scheduler")
		s.cronEngine.Stop()
	case err != nil:
		log.WithError(err).Error("Scheduled cycle failed")
	}
}

// loadAnchor reads the persisted schedule reference, initializing it on
// first run.
func (s *CycleScheduler) loadAnchor(ctx context.Context) (time.Time, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return time.Time{}, err
	}

	stored, err := uow.ConfigRepository().Get(ctx, cycleStartKey)
	if err != nil {
		uow.Rollback()
		return time.Time{}, err
	}

	if stored != "" {
		if anchor, parseErr := time.Parse(time.RFC3339, stored); parseErr == nil {
			uow.Rollback()
			return anchor, nil
		}
		log.WithField("value", stored).Warn("Invalid schedule anchor, resetting")
	}

	anchor := time.Now().UTC()
	if err := uow.ConfigRepository().Set(ctx, cycleStartKey, anchor.Format(time.RFC3339)); err != nil {
		uow.Rollback()
		return time.Time{}, err
	}
	if err := uow.Commit(); err != nil {
		return time.Time{}, err
	}
	return anchor, nil
}

// intervalSchedule ticks every `every`, aligned to the anchor rather
// than to process start.
type intervalSchedule struct {
	anchor time.Time
	every  time.Duration
}

func (s intervalSchedule) Next(t time.Time) time.Time {
	if s.every <= 0 {
		return time.Time{}
	}
	elapsed := t.Sub(s.anchor)
	ticks := elapsed/s.every + 1
	if elapsed < 0 {
		ticks = 0
	}
	return s.anchor.Add(ticks * s.every)
}
