package cmd

import (
	"context"
	"fmt"
	"time"

	"buybackd/api"
	"buybackd/config"
	"buybackd/database"
	"buybackd/events"
	"buybackd/notifier"
	"buybackd/repository"
	"buybackd/scheduler"
	"buybackd/service"
	"buybackd/solana"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	setupLogging(cfg)
	log.Info("Starting buyback daemon...")

	// Database
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Chain clients
	signer, err := solana.NewSigner(cfg.OperatorPrivateKey)
	if err != nil {
		return fmt.Errorf("failed to load operator key: %w", err)
	}
	rpc := solana.NewClient(cfg.RPCURL, nil)

	vault, err := solana.NewVaultClient(rpc, solana.NewClaimVenue(cfg.ClaimVenueURL, nil), signer, cfg.ConfirmTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	wrapper := solana.NewWrapClient(rpc, signer, cfg.ConfirmTimeout)
	swapper := solana.NewSwapClient(rpc, solana.NewSwapVenue(cfg.SwapVenueURL, nil), signer, cfg.ConfirmTimeout)

	payout, err := solana.NewPayoutClient(rpc, signer, solana.NativeMint, cfg.ConfirmTimeout)
	if err != nil {
		return fmt.Errorf("failed to initialize payout client: %w", err)
	}
	log.WithField("operator", signer.PublicKey().String()).Info("Chain clients initialized")

	// Pipeline stages
	fundsSource := service.NewFundsSource(vault, cfg.VaultThresholdLamports, cfg.FeeReserveLamports)
	converter := service.NewConverter(wrapper, swapper, service.ConverterConfig{
		TokenMint:           cfg.TokenMint,
		BuyRatioPercent:     cfg.BuyRatioPercent,
		FeeBufferLamports:   cfg.FeeReserveLamports,
		MinConvertLamports:  cfg.MinConvertLamports,
		SlippagePercent:     cfg.SlippagePercent,
		SlippageStepPercent: cfg.SlippageStepPercent,
		MaxBuyAttempts:      cfg.MaxBuyAttempts,
	})
	ranker := service.NewHolderRanker(rpc, service.RankerConfig{
		LookupDelay: cfg.OwnerLookupDelay,
		BatchSize:   cfg.LookupBatchSize,
		BatchDelay:  cfg.LookupBatchDelay,
	})
	distributor := service.NewDistributor(payout)
	orchestrator := service.NewCycleOrchestrator(
		uowFactory, fundsSource, converter, ranker, distributor,
		cfg.TokenMint, cfg.TopHolderCount,
	)

	// Scheduler
	cycleScheduler := scheduler.NewCycleScheduler(orchestrator, uowFactory, cfg.CycleInterval)
	if err := cycleScheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Optional Discord notifications
	var discordNotifier *notifier.DiscordNotifier
	if cfg.DiscordToken != "" && cfg.DiscordChannelID != "" {
		discordNotifier, err = notifier.NewDiscordNotifier(cfg.DiscordToken, cfg.DiscordChannelID, eventBus)
		if err != nil {
			log.WithError(err).Warn("Discord notifications disabled")
		}
	}

	// Dashboard API
	hub := api.NewHub(eventBus)
	server := api.NewServer(
		cfg.ListenAddr,
		orchestrator,
		repository.NewCycleRepository(db),
		repository.NewHolderRepository(db),
		repository.NewDistributionRepository(db),
		repository.NewActivityRepository(db),
		hub,
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.WithField("environment", cfg.Environment).Info("Daemon is running")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
	}

	// Shutdown
	log.Info("Shutting down...")
	cycleScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("API server shutdown error")
	}

	if discordNotifier != nil {
		if err := discordNotifier.Close(); err != nil {
			log.WithError(err).Warn("Error closing Discord session")
		}
	}

	db.Close()
	log.Info("Shutdown completed")
	return nil
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
