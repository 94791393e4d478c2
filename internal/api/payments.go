package api

import (
	"net/http" // HTTP status codes
	"time"     // Date parsing

	"group_savings/internal/domain"     // Importing domain models
	"group_savings/internal/ledger"     // Savings ledger
	"group_savings/internal/middleware" // Context helpers

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Accepted date layouts, most specific first
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// optionalDate parses a nullable date field, reporting a 400 on bad input
func optionalDate(c *gin.Context, field string, s *string) (*time.Time, bool) {
	if s == nil || *s == "" {
		return nil, true
	}
	t, ok := parseDate(*s)
	if !ok {
		badRequest(c, field, "must be a date (YYYY-MM-DD)")
		return nil, false
	}
	return &t, true
}

// CreatePaymentRequest represents an admin-entered payment
type CreatePaymentRequest struct {
	UserID        string        `json:"user_id"`        // Paying member
	Amount        domain.Amount `json:"amount"`         // Amount, e.g. 500 or "500.00"
	Month         string        `json:"month"`          // Free-text label
	DueDate       string        `json:"due_date"`       // Due date
	PaymentDate   *string       `json:"payment_date"`   // Present means completed
	PaymentMethod string        `json:"payment_method"` // Defaults to cash
	TransactionID string        `json:"transaction_id"` // Defaults to MANUAL-<uuid>
	Notes         *string       `json:"notes"`          // Optional notes
}

// UpdatePaymentRequest is a partial update; absent fields are left unchanged
type UpdatePaymentRequest struct {
	Amount        *domain.Amount `json:"amount"`         // New amount
	Month         *string        `json:"month"`          // New month label
	DueDate       *string        `json:"due_date"`       // New due date
	PaymentDate   *string        `json:"payment_date"`   // Setting it completes the payment
	PaymentMethod *string        `json:"payment_method"` // New method
	TransactionID *string        `json:"transaction_id"` // New reference
	Notes         *string        `json:"notes"`          // New notes
	Status        *string        `json:"status"`         // pending or completed
}

// MyPaymentsHandler returns the caller's own payments, newest due date first
func MyPaymentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c) // Paging parameters
		query := db.Model(&domain.Payment{}).Where("user_id = ?", middleware.CurrentUserID(c))
		listPayments(c, query, page, pageSize)
	}
}

// ListPaymentsHandler returns all payments, with optional filtering by user or status
func ListPaymentsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c)      // Paging parameters
		query := db.Model(&domain.Payment{}) // Start building the query
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID) // Filter by member
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status) // Filter by status
		}
		listPayments(c, query, page, pageSize)
	}
}

func listPayments(c *gin.Context, query *gorm.DB, page, pageSize int) {
	query = query.Session(&gorm.Session{}) // Reused for count and fetch
	var total int64                        // Total payment count
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err, "Failed to count payments")
		return
	}
	var payments []domain.Payment // Slice to hold payments
	if err := query.Order("due_date desc").Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error; err != nil {
		respondError(c, err, "Failed to fetch payments")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payments":    payments,                    // List of payments
		"page":        page,                        // Current page
		"page_size":   pageSize,                    // Page size
		"total":       total,                       // Total payments
		"total_pages": totalPages(total, pageSize), // Total pages
	})
}

// CreatePaymentHandler records a payment, crediting the payer's group when it is already paid
func CreatePaymentHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreatePaymentRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var due time.Time // Due date is validated by the ledger when empty
		if req.DueDate != "" {
			t, ok := parseDate(req.DueDate)
			if !ok {
				badRequest(c, "due_date", "must be a date (YYYY-MM-DD)")
				return
			}
			due = t
		}
		paid, ok := optionalDate(c, "payment_date", req.PaymentDate)
		if !ok {
			return
		}
		payment, err := l.RecordPayment(c.Request.Context(), middleware.CurrentUserID(c), ledger.NewPayment{
			UserID:        req.UserID,        // Paying member
			Amount:        req.Amount,        // Amount
			Month:         req.Month,         // Month label
			DueDate:       due,               // Due date
			PaymentDate:   paid,              // Completion date
			PaymentMethod: req.PaymentMethod, // Method
			TransactionID: req.TransactionID, // Reference
			Notes:         req.Notes,         // Notes
		})
		if err != nil {
			respondError(c, err, "Failed to record payment")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Payment recorded", "payment": payment})
	}
}

// UpdatePaymentHandler patches a payment, moving the ledger on status changes
func UpdatePaymentHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id") // Payment ID
		if !ok {
			return
		}
		var req UpdatePaymentRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		patch := ledger.PaymentPatch{
			Amount:        req.Amount,        // New amount
			Month:         req.Month,         // New month
			PaymentMethod: req.PaymentMethod, // New method
			TransactionID: req.TransactionID, // New reference
			Notes:         req.Notes,         // New notes
			Status:        req.Status,        // New status
		}
		if req.DueDate != nil {
			t, ok := parseDate(*req.DueDate)
			if !ok {
				badRequest(c, "due_date", "must be a date (YYYY-MM-DD)")
				return
			}
			patch.DueDate = &t
		}
		if patch.PaymentDate, ok = optionalDate(c, "payment_date", req.PaymentDate); !ok {
			return
		}
		payment, err := l.UpdatePaymentStatus(c.Request.Context(), middleware.CurrentUserID(c), id, patch)
		if err != nil {
			respondError(c, err, "Failed to update payment")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment updated", "payment": payment})
	}
}

// DeletePaymentHandler deletes a payment, debiting its group when it had been credited
func DeletePaymentHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id") // Payment ID
		if !ok {
			return
		}
		if err := l.ReversePayment(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
			respondError(c, err, "Failed to delete payment")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Payment deleted"})
	}
}
