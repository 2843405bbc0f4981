package models

import (
	"time"
)

// TokenHolder represents one row of the ranked top-holder snapshot.
// The wallet address is the resolved owner of the token account, never
// the token account itself. The whole snapshot is replaced atomically
// once per cycle; reward fields stay null until a transfer to that
// holder succeeds in the same cycle.
type TokenHolder struct {
	WalletAddress    string     `db:"wallet_address" json:"walletAddress"`
	Balance          uint64     `db:"balance" json:"balance"`
	Rank             int        `db:"rank" json:"rank"`
	LastRewardAmount *uint64    `db:"last_reward_amount" json:"lastRewardAmount,omitempty"`
	LastRewardAt     *time.Time `db:"last_reward_at" json:"lastRewardAt,omitempty"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}
