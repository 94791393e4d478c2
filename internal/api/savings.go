package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"group_savings/internal/domain"     // Importing domain models
	"group_savings/internal/ledger"     // Savings ledger
	"group_savings/internal/middleware" // Context helpers

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// UpdateSavingsRequest represents a manual balance override
type UpdateSavingsRequest struct {
	GroupID     uint           `json:"group_id" binding:"required"` // Group to adjust
	TotalAmount *domain.Amount `json:"total_amount"`                // New absolute total
	GoalAmount  *domain.Amount `json:"goal_amount"`                 // Optional new goal
	Note        string         `json:"note"`                        // Reason, recorded in history
}

// resolveGroup returns the group_id query param, or the caller's own group
func resolveGroup(c *gin.Context, db *gorm.DB) (uint, bool) {
	if g := c.Query("group_id"); g != "" {
		v, err := strconv.ParseUint(g, 10, 64) // Explicit group
		if err != nil || v == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group_id"})
			return 0, false
		}
		return uint(v), true
	}
	var profile domain.Profile // Fall back to the caller's group
	if err := db.Select("id", "group_id").Where("id = ?", middleware.CurrentUserID(c)).Take(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return 0, false
	}
	if profile.GroupID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_id is required for members without a group"})
		return 0, false
	}
	return *profile.GroupID, true
}

// GetSavingsHandler returns a group's balance and goal progress
func GetSavingsHandler(db *gorm.DB, l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := resolveGroup(c, db) // Group to read
		if !ok {
			return
		}
		balance, err := l.Balance(c.Request.Context(), groupID) // Read through the cache
		if err != nil {
			respondError(c, err, "Failed to read savings")
			return
		}
		c.JSON(http.StatusOK, gin.H{"savings": balance})
	}
}

// UpdateSavingsHandler sets a group's total (and goal) to absolute values
func UpdateSavingsHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateSavingsRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.TotalAmount == nil {
			badRequest(c, "total_amount", "is required")
			return
		}
		balance, err := l.ApplyManualAdjustment(c.Request.Context(), middleware.CurrentUserID(c), ledger.Adjustment{
			GroupID: req.GroupID,      // Group to adjust
			Total:   *req.TotalAmount, // New total
			Goal:    req.GoalAmount,   // Optional goal
			Note:    req.Note,         // Reason
		})
		if err != nil {
			respondError(c, err, "Failed to update savings")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Savings updated", "savings": balance})
	}
}

// SavingsHistoryHandler returns a group's paginated deposit and withdrawal history
func SavingsHistoryHandler(db *gorm.DB, l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		groupID, ok := resolveGroup(c, db) // Group to read
		if !ok {
			return
		}
		page, pageSize := pagination(c) // Paging parameters
		rows, total, err := l.History(c.Request.Context(), groupID, page, pageSize)
		if err != nil {
			respondError(c, err, "Failed to fetch history")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"history":     rows,                        // Page of history rows
			"page":        page,                        // Current page
			"page_size":   pageSize,                    // Page size
			"total":       total,                       // Total rows
			"total_pages": totalPages(total, pageSize), // Total pages
		})
	}
}
