package domain

import "time"

// GroupSavings Model, exactly one row per group
type GroupSavings struct {
	ID            uint       `gorm:"primaryKey" json:"id"`                   // Primary key
	GroupID       uint       `gorm:"uniqueIndex;not null" json:"group_id"`   // Owning group, unique
	TotalAmount   Amount     `gorm:"not null;default:0" json:"total_amount"` // Current balance in minor units
	GoalAmount    Amount     `gorm:"not null" json:"goal_amount"`            // Savings target in minor units
	Note          *string    `json:"note"`                                   // Reason of the last change
	LastUpdatedAt *time.Time `json:"last_updated_at"`                        // Time of the last change
	UpdatedBy     *string    `gorm:"size:36" json:"updated_by"`              // Profile that made the last change
	CreatedAt     time.Time  `json:"created_at"`                             // Creation time
}

// TableName keeps the historical table name
func (GroupSavings) TableName() string { return "group_savings" }

// History entry types
const (
	HistoryDeposit    = "deposit"    // Balance went up
	HistoryWithdrawal = "withdrawal" // Balance went down
)

// PaymentHistory Model, append-only audit trail of ledger changes
type PaymentHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`            // Primary key
	GroupID   uint      `gorm:"index;not null" json:"group_id"`  // Group whose balance changed
	UserID    string    `gorm:"size:36;not null" json:"user_id"` // Actor of the change
	Type      string    `gorm:"size:16;not null" json:"type"`    // deposit or withdrawal
	Amount    Amount    `gorm:"not null" json:"amount"`          // Absolute change in minor units
	Note      *string   `json:"note"`                            // Human readable reason
	CreatedAt time.Time `gorm:"index" json:"created_at"`         // Creation time
}

// TableName keeps the singular table name used by the audit trail
func (PaymentHistory) TableName() string { return "payment_history" }
