package models

import (
	"time"
)

// DistributionOutcome represents the result of one transfer attempt
type DistributionOutcome string

const (
	DistributionOutcomeSuccess DistributionOutcome = "success"
	DistributionOutcomeFailure DistributionOutcome = "failure"
)

// DistributionFailureReason classifies per-recipient failures. No
// reason aborts the batch; each applies to a single recipient only.
type DistributionFailureReason string

const (
	FailureReasonShareTooSmall   DistributionFailureReason = "share_too_small"
	FailureReasonAccountCreation DistributionFailureReason = "account_creation_failed"
	FailureReasonTransactionFail DistributionFailureReason = "transfer_transaction_failed"
	FailureReasonNetwork         DistributionFailureReason = "network_error"
)

// Distribution represents one outbound transfer attempt to one holder
// within one cycle. At most one row exists per (cycle, wallet) pair;
// rows are written once after the attempt resolves and never mutated.
type Distribution struct {
	ID            int64               `db:"id" json:"id"`
	CycleID       int64               `db:"cycle_id" json:"cycleId"`
	WalletAddress string              `db:"wallet_address" json:"walletAddress"`
	Amount        uint64              `db:"amount" json:"amount"`
	Rank          int                 `db:"rank" json:"rank"`
	Outcome       DistributionOutcome `db:"outcome" json:"outcome"`
	TxSignature   *string             `db:"tx_signature" json:"txSignature,omitempty"`
	ErrorDetail   *string             `db:"error_detail" json:"errorDetail,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
}
