package service

import (
	"context"
	"fmt"
	"time"

	"buybackd/retry"
	"buybackd/solana"

	log "github.com/sirupsen/logrus"
)

// ConverterConfig controls the conversion split and the slippage
// retry schedule.
type ConverterConfig struct {
	// TokenMint is the distributed token bought back when
	// BuyRatioPercent > 0.
	TokenMint string

	// BuyRatioPercent of the acquired amount goes to the buyback; the
	// remainder minus the fee buffer is wrapped for payouts. Zero
	// disables the buy stage.
	BuyRatioPercent int

	// FeeBufferLamports is held back from the wrap for transaction
	// fees.
	FeeBufferLamports uint64

	// MinConvertLamports is the smallest remainder worth wrapping.
	MinConvertLamports uint64

	// Slippage schedule: starting tolerance, escalation per retry and
	// the attempt budget.
	SlippagePercent     int
	SlippageStepPercent int
	MaxBuyAttempts      int

	// RetryBaseDelay seeds the exponential backoff between buy
	// attempts.
	RetryBaseDelay time.Duration
}

// ConversionResult reports what the conversion stage produced.
// WrappedAmount is what the distributor has to work with.
type ConversionResult struct {
	WrappedAmount uint64
	WrapSignature string

	BuyAttempted bool
	BuySucceeded bool
	BuySpent     uint64
	BuySignature string
	BuyError     string
}

// Converter turns acquired native funds into the payout asset
type Converter interface {
	Convert(ctx context.Context, lamports uint64) (*ConversionResult, error)
}

type converter struct {
	wrapper NativeWrapper
	buyer   TokenBuyer
	cfg     ConverterConfig
}

// NewConverter creates the conversion stage. buyer may be nil when the
// buy stage is disabled.
func NewConverter(wrapper NativeWrapper, buyer TokenBuyer, cfg ConverterConfig) Converter {
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = time.Second
	}
	if cfg.MaxBuyAttempts < 1 {
		cfg.MaxBuyAttempts = 1
	}
	return &converter{wrapper: wrapper, buyer: buyer, cfg: cfg}
}

func (c *converter) Convert(ctx context.Context, lamports uint64) (*ConversionResult, error) {
	result := &ConversionResult{}
	wrapAmount := lamports

	if c.cfg.BuyRatioPercent > 0 && c.buyer != nil {
		buyAmount := lamports * uint64(c.cfg.BuyRatioPercent) / 100
		result.BuyAttempted = true

		signature, err := c.buyWithSlippageRetry(ctx, buyAmount)
		if err != nil {
			// A failed buyback never aborts the cycle: the full
			// acquired amount falls through to the wrap instead.
			log.WithError(err).Warn("Token buy failed, wrapping full amount")
			result.BuyError = err.Error()
		} else {
			result.BuySucceeded = true
			result.BuySpent = buyAmount
			result.BuySignature = signature

			remainder := lamports - buyAmount
			if remainder <= c.cfg.FeeBufferLamports {
				wrapAmount = 0
			} else {
				wrapAmount = remainder - c.cfg.FeeBufferLamports
			}
			if wrapAmount < c.cfg.MinConvertLamports {
				log.WithField("remainder", wrapAmount).Info("Post-buy remainder too small to wrap")
				result.WrappedAmount = 0
				return result, nil
			}
		}
	}

	signature, err := c.wrapper.WrapNative(ctx, wrapAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap %d lamports: %w", wrapAmount, err)
	}

	result.WrappedAmount = wrapAmount
	result.WrapSignature = signature
	return result, nil
}

// buyWithSlippageRetry escalates the slippage tolerance on each
// slippage-caused failure. Any other failure stops the retries — a
// wider tolerance cannot fix an unreachable venue.
func (c *converter) buyWithSlippageRetry(ctx context.Context, lamports uint64) (string, error) {
	policy := retry.Policy{
		MaxAttempts: c.cfg.MaxBuyAttempts,
		BaseDelay:   c.cfg.RetryBaseDelay,
		Multiplier:  2,
		Retryable:   solana.IsSlippageExceeded,
	}

	var signature string
	err := policy.Do(ctx, func(attempt int) error {
		tolerance := c.cfg.SlippagePercent + attempt*c.cfg.SlippageStepPercent
		log.WithFields(log.Fields{
			"attempt":   attempt + 1,
			"tolerance": tolerance,
			"lamports":  lamports,
		}).Info("Buying target token")

		sig, err := c.buyer.BuyToken(ctx, c.cfg.TokenMint, lamports, tolerance)
		if err != nil {
			return err
		}
		signature = sig
		return nil
	})
	return signature, err
}
