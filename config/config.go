package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is loaded once at
// process start and passed explicitly to every component.
type Config struct {
	// Database configuration
	DatabaseURL string

	// Chain configuration
	RPCURL             string
	ClaimVenueURL      string
	SwapVenueURL       string
	OperatorPrivateKey string // base58-encoded 64-byte signing key
	TokenMint          string // mint of the distributed token

	// Cycle configuration
	CycleInterval  time.Duration
	TopHolderCount int

	// Funds-sourcing policy. The vault threshold is advisory: the
	// claim is always attempted, the threshold only affects logging.
	VaultThresholdLamports uint64
	FeeReserveLamports     uint64

	// Conversion policy. BuyRatioPercent of the acquired amount goes
	// to buying the target token; 0 disables the buy stage.
	BuyRatioPercent     int
	MinConvertLamports  uint64
	SlippagePercent     int
	SlippageStepPercent int
	MaxBuyAttempts      int

	// Holder-ranking rate-limit policy
	OwnerLookupDelay time.Duration
	LookupBatchSize  int
	LookupBatchDelay time.Duration

	// Confirmation timeout for submitted transactions
	ConfirmTimeout time.Duration

	// HTTP API
	ListenAddr string

	// Discord notifications (optional)
	DiscordToken     string
	DiscordChannelID string

	// Environment
	LogLevel    string
	Environment string // "development", "production" or "test"
}

// Load reads configuration from environment variables and an optional
// .env file. Existing environment variables take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RPCURL:             os.Getenv("RPC_URL"),
		ClaimVenueURL:      os.Getenv("CLAIM_VENUE_URL"),
		SwapVenueURL:       os.Getenv("SWAP_VENUE_URL"),
		OperatorPrivateKey: os.Getenv("OPERATOR_PRIVATE_KEY"),
		TokenMint:          os.Getenv("TOKEN_MINT"),

		CycleInterval:  time.Hour,
		TopHolderCount: 10,

		VaultThresholdLamports: 50_000_000, // 0.05 SOL
		FeeReserveLamports:     10_000_000, // 0.01 SOL

		BuyRatioPercent:     0,
		MinConvertLamports:  1_000_000,
		SlippagePercent:     15,
		SlippageStepPercent: 5,
		MaxBuyAttempts:      3,

		OwnerLookupDelay: 200 * time.Millisecond,
		LookupBatchSize:  5,
		LookupBatchDelay: time.Second,

		ConfirmTimeout: 60 * time.Second,

		ListenAddr: ":8080",

		DiscordToken:     os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID: os.Getenv("DISCORD_CHANNEL_ID"),

		LogLevel:    os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if v := os.Getenv("CYCLE_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CycleInterval = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("TOP_HOLDER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopHolderCount = n
		}
	}
	if v := os.Getenv("VAULT_THRESHOLD_LAMPORTS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.VaultThresholdLamports = n
		}
	}
	if v := os.Getenv("FEE_RESERVE_LAMPORTS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.FeeReserveLamports = n
		}
	}
	if v := os.Getenv("BUY_RATIO_PERCENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 100 {
			cfg.BuyRatioPercent = n
		}
	}
	if v := os.Getenv("SLIPPAGE_PERCENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SlippagePercent = n
		}
	}
	if v := os.Getenv("CONFIRM_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ConfirmTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Environment != "test" {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if cfg.RPCURL == "" {
			return nil, fmt.Errorf("RPC_URL is required")
		}
		if cfg.TokenMint == "" {
			return nil, fmt.Errorf("TOKEN_MINT is required")
		}
		if cfg.OperatorPrivateKey == "" {
			return nil, fmt.Errorf("OPERATOR_PRIVATE_KEY is required")
		}
	}

	return cfg, nil
}
