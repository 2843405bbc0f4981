package service

import (
	"context"
	"errors"
	"math/big"

	"buybackd/models"
	"buybackd/solana"

	log "github.com/sirupsen/logrus"
)

// DistributionResult is the outcome of one transfer attempt. The
// distributor returns exactly one result per input holder, in input
// order.
type DistributionResult struct {
	WalletOwner   string
	Rank          int
	AmountSent    uint64
	Outcome       models.DistributionOutcome
	FailureReason models.DistributionFailureReason
	TxSignature   string
	ErrorDetail   string
}

// Distributor pays each holder their proportional share
type Distributor interface {
	Distribute(ctx context.Context, totalAmount uint64, holders []RankedHolder) []DistributionResult
}

type distributor struct {
	sender PayoutSender
}

// NewDistributor creates a distributor over the payout sender.
func NewDistributor(sender PayoutSender) Distributor {
	return &distributor{sender: sender}
}

// Distribute computes every share up front from the frozen holder set,
// then attempts one transfer per holder. Transfers are sequential —
// one signing credential, one nonce stream — and fully isolated: no
// recipient's failure stops the loop.
func (d *distributor) Distribute(ctx context.Context, totalAmount uint64, holders []RankedHolder) []DistributionResult {
	shares := computeShares(totalAmount, holders)
	results := make([]DistributionResult, len(holders))

	for i, holder := range holders {
		result := DistributionResult{
			WalletOwner: holder.WalletOwner,
			Rank:        holder.Rank,
		}

		if shares[i] == 0 {
			result.Outcome = models.DistributionOutcomeFailure
			result.FailureReason = models.FailureReasonShareTooSmall
			result.ErrorDetail = "share rounds to zero transferable units"
			results[i] = result
			continue
		}

		signature, err := d.sender.SendPayout(ctx, holder.WalletOwner, shares[i])
		if err != nil {
			result.Outcome = models.DistributionOutcomeFailure
			result.FailureReason = classifyPayoutError(err)
			result.ErrorDetail = err.Error()
			log.WithError(err).WithFields(log.Fields{
				"wallet": holder.WalletOwner,
				"rank":   holder.Rank,
				"amount": shares[i],
			}).Warn("Payout failed")
			results[i] = result
			continue
		}

		result.Outcome = models.DistributionOutcomeSuccess
		result.AmountSent = shares[i]
		result.TxSignature = signature
		log.WithFields(log.Fields{
			"wallet":    holder.WalletOwner,
			"rank":      holder.Rank,
			"amount":    shares[i],
			"signature": signature,
		}).Info("Payout sent")
		results[i] = result
	}

	return results
}

// computeShares allocates totalAmount proportionally to balance,
// rounding down. Computed once, against the full holder set, before
// any transfer: a mid-batch failure must not skew later shares.
func computeShares(totalAmount uint64, holders []RankedHolder) []uint64 {
	shares := make([]uint64, len(holders))

	totalBalance := new(big.Int)
	for _, h := range holders {
		totalBalance.Add(totalBalance, new(big.Int).SetUint64(h.Balance))
	}
	if totalBalance.Sign() == 0 {
		return shares
	}

	total := new(big.Int).SetUint64(totalAmount)
	for i, h := range holders {
		share := new(big.Int).Mul(total, new(big.Int).SetUint64(h.Balance))
		share.Div(share, totalBalance)
		shares[i] = share.Uint64()
	}
	return shares
}

func classifyPayoutError(err error) models.DistributionFailureReason {
	switch {
	case errors.Is(err, solana.ErrAccountCreation):
		return models.FailureReasonAccountCreation
	case errors.Is(err, solana.ErrTxFailed):
		return models.FailureReasonTransactionFail
	default:
		return models.FailureReasonNetwork
	}
}
