package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FocusStatus string

const (
	FocusCompleted  FocusStatus = "Completed"
	FocusEndedEarly FocusStatus = "Ended early"
	FocusSkipped    FocusStatus = "Skipped"
	FocusIdle       FocusStatus = "Idle"
)

type FocusSession struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"-"`
	TaskID         int64       `json:"taskId"`
	CompletionTime int64       `json:"completionTime"` // seconds
	Status         FocusStatus `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Total focus time per deadline month and task priority
type FocusSummary struct {
	Month               int             `json:"month"`
	Priority            Priority        `json:"priority"`
	TotalCompletionTime decimal.Decimal `json:"totalCompletionTime"` // seconds
}
