package service

import (
	"context"
	"errors"
	"fmt"

	"buybackd/solana"

	log "github.com/sirupsen/logrus"
)

// ErrNoFunds signals that neither the vault claim nor the wallet
// fallback yielded anything to distribute. An expected, frequent
// outcome — most cycles accrue below the threshold — and never
// reported as a failure.
var ErrNoFunds = errors.New("no funds available this cycle")

// Funds-sourcing outcomes
const (
	FundsSourceClaim  = "claim"
	FundsSourceWallet = "wallet"
)

// FundsResult describes where this cycle's money came from
type FundsResult struct {
	Lamports  uint64
	Source    string
	Signature string
}

// FundsSource determines how much value is available each cycle
type FundsSource interface {
	AcquireFunds(ctx context.Context) (*FundsResult, error)
}

type fundsSource struct {
	vault              FeeVault
	thresholdLamports  uint64
	feeReserveLamports uint64
}

// NewFundsSource creates a funds source over the fee vault. The
// threshold is advisory only: the queried balance and the venue's live
// balance can disagree transiently, so the claim is always attempted.
func NewFundsSource(vault FeeVault, thresholdLamports, feeReserveLamports uint64) FundsSource {
	return &fundsSource{
		vault:              vault,
		thresholdLamports:  thresholdLamports,
		feeReserveLamports: feeReserveLamports,
	}
}

func (s *fundsSource) AcquireFunds(ctx context.Context) (*FundsResult, error) {
	vaultBalance, err := s.vault.VaultBalance(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to query vault balance, attempting claim anyway")
	} else if vaultBalance < s.thresholdLamports {
		log.WithFields(log.Fields{
			"vaultBalance": vaultBalance,
			"threshold":    s.thresholdLamports,
		}).Debug("Vault below advisory threshold, attempting claim anyway")
	}

	walletBefore, err := s.vault.WalletBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet balance: %w", err)
	}

	signature, claimErr := s.vault.Claim(ctx)
	if claimErr == nil {
		claimed := s.measureClaim(ctx, walletBefore, vaultBalance)
		if claimed > 0 {
			log.WithFields(log.Fields{
				"claimed":   claimed,
				"signature": signature,
			}).Info("Claimed vault fees")
			return &FundsResult{Lamports: claimed, Source: FundsSourceClaim, Signature: signature}, nil
		}
		// Claim confirmed but moved nothing measurable; fall through
		// to the wallet fallback.
		claimErr = solana.ErrNothingToClaim
	}

	if !errors.Is(claimErr, solana.ErrNothingToClaim) {
		log.WithError(claimErr).Warn("Vault claim failed, falling back to wallet balance")
	}

	if walletBefore <= s.feeReserveLamports {
		return nil, ErrNoFunds
	}

	fallback := walletBefore - s.feeReserveLamports
	log.WithFields(log.Fields{
		"walletBalance": walletBefore,
		"feeReserve":    s.feeReserveLamports,
		"available":     fallback,
	}).Info("Using wallet balance for this cycle")

	return &FundsResult{Lamports: fallback, Source: FundsSourceWallet}, nil
}

// measureClaim derives the claimed amount from the wallet balance
// delta, falling back to the pre-claim vault reading when the delta is
// swallowed by transaction fees.
func (s *fundsSource) measureClaim(ctx context.Context, walletBefore, vaultBalance uint64) uint64 {
	walletAfter, err := s.vault.WalletBalance(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to re-query wallet balance after claim")
		return vaultBalance
	}
	if walletAfter > walletBefore {
		return walletAfter - walletBefore
	}
	return vaultBalance
}
