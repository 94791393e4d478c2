package domain

import "time"

// Payment statuses
const (
	PaymentPending   = "pending"   // Not paid yet
	PaymentCompleted = "completed" // Paid and counted in the group balance
)

// DefaultPaymentMethod is used when an admin does not name one
const DefaultPaymentMethod = "cash"

// Payment Model
type Payment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`                   // Primary key
	UserID        string     `gorm:"size:36;index;not null" json:"user_id"`  // Paying member
	GroupID       *uint      `gorm:"index" json:"group_id"`                  // Group credited while completed
	Amount        Amount     `gorm:"not null" json:"amount"`                 // Amount in minor units
	Month         string     `gorm:"size:64;not null" json:"month"`          // Free-text label, e.g. "April 2024"
	DueDate       time.Time  `gorm:"not null" json:"due_date"`               // Due date
	PaymentDate   *time.Time `json:"payment_date"`                           // Nil while unpaid
	PaymentMethod string     `gorm:"size:32;not null" json:"payment_method"` // cash, bKash, Nagad, Rocket, bank
	TransactionID string     `gorm:"size:64;not null" json:"transaction_id"` // External or generated reference
	Status        string     `gorm:"size:16;not null;index" json:"status"`   // pending or completed
	IsPaid        bool       `gorm:"not null;default:false" json:"is_paid"`  // Mirrors Status
	Notes         *string    `json:"notes"`                                  // Free-text notes
	RecordedBy    *string    `gorm:"size:36" json:"recorded_by"`             // Admin that recorded it
	CreatedAt     time.Time  `json:"created_at"`                             // Creation time
	UpdatedAt     time.Time  `json:"updated_at"`                             // Last update time
}

// Completed reports whether the payment counts towards the group balance
func (p *Payment) Completed() bool {
	return p.IsPaid && p.Status == PaymentCompleted
}

// SetCompleted keeps Status, IsPaid and PaymentDate consistent
func (p *Payment) SetCompleted(done bool, at time.Time) {
	if done {
		p.Status = PaymentCompleted
		p.IsPaid = true
		if p.PaymentDate == nil {
			p.PaymentDate = &at
		}
		return
	}
	p.Status = PaymentPending
	p.IsPaid = false
	p.PaymentDate = nil
}
