package models

import (
	"time"
)

// ActivityKind represents the type of pipeline action an entry records
type ActivityKind string

const (
	ActivityKindFundClaim    ActivityKind = "fund_claim"
	ActivityKindConversion   ActivityKind = "conversion"
	ActivityKindDistribution ActivityKind = "distribution"
)

// ActivityOutcome is the recorded result of the action
type ActivityOutcome string

const (
	ActivityOutcomeSuccess ActivityOutcome = "success"
	ActivityOutcomeFailure ActivityOutcome = "failure"
	ActivityOutcomeSkipped ActivityOutcome = "skipped"
)

// Activity is an append-only log entry consumed by the dashboard.
// Every state-changing external action appends one, success or not.
type Activity struct {
	ID            int64           `db:"id" json:"id"`
	Kind          ActivityKind    `db:"kind" json:"kind"`
	Amount        uint64          `db:"amount" json:"amount"`
	AssetSymbol   string          `db:"asset_symbol" json:"assetSymbol"`
	WalletAddress *string         `db:"wallet_address" json:"walletAddress,omitempty"`
	TxSignature   *string         `db:"tx_signature" json:"txSignature,omitempty"`
	Outcome       ActivityOutcome `db:"outcome" json:"outcome"`
	Detail        *string         `db:"detail" json:"detail,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}
