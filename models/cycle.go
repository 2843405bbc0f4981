package models

import (
	"time"
)

// CycleStatus represents the lifecycle state of a buyback cycle
type CycleStatus string

const (
	CycleStatusPending    CycleStatus = "pending"
	CycleStatusProcessing CycleStatus = "processing"
	CycleStatusCompleted  CycleStatus = "completed"
	CycleStatusFailed     CycleStatus = "failed"
	CycleStatusSkipped    CycleStatus = "skipped"
)

// Cycle represents one execution of the buyback-and-distribution pipeline.
// Rows are append-only history; a cycle is never deleted.
type Cycle struct {
	ID              int64       `db:"id" json:"id"`
	ClaimedLamports uint64      `db:"claimed_lamports" json:"claimedLamports"`
	ConvertedAmount uint64      `db:"converted_amount" json:"convertedAmount"`
	Status          CycleStatus `db:"status" json:"status"`
	FundsSource     string      `db:"funds_source" json:"fundsSource"`
	ErrorDetail     *string     `db:"error_detail" json:"errorDetail,omitempty"`
	StartedAt       time.Time   `db:"started_at" json:"startedAt"`
	CompletedAt     *time.Time  `db:"completed_at" json:"completedAt,omitempty"`
}

// Terminal reports whether the cycle can no longer change state.
func (s CycleStatus) Terminal() bool {
	switch s {
	case CycleStatusCompleted, CycleStatusFailed, CycleStatusSkipped:
		return true
	}
	return false
}
