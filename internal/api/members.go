package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"time"     // Current month label

	"group_savings/internal/domain"     // Importing domain models
	"group_savings/internal/middleware" // Context helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// MemberResponse is a profile with its payment standing
type MemberResponse struct {
	domain.Profile
	IsPaid        bool          `json:"is_paid"`       // Completed payment for the current month
	Contributions domain.Amount `json:"contributions"` // Sum of completed payments
}

// SetGroupRequest moves a member into a group, or out of any with null
type SetGroupRequest struct {
	GroupID *uint `json:"group_id"` // Target group, nil for none
}

// currentMonthLabel is the free-text month label payments are recorded under, e.g. "April 2024"
func currentMonthLabel(now time.Time) string {
	return now.Format("January 2006")
}

// withStanding loads is_paid and contributions for the given profiles
func withStanding(db *gorm.DB, profiles []domain.Profile, now time.Time) ([]MemberResponse, error) {
	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	var sums []struct {
		UserID string // Member
		Total  int64  // Completed total in minor units
	}
	if err := db.Model(&domain.Payment{}).
		Select("user_id, COALESCE(SUM(amount), 0) AS total").
		Where("user_id IN ? AND status = ? AND is_paid = ?", ids, domain.PaymentCompleted, true).
		Group("user_id").
		Scan(&sums).Error; err != nil {
		return nil, err
	}
	var paid []string // Members with a completed payment this month
	if err := db.Model(&domain.Payment{}).
		Where("user_id IN ? AND month = ? AND status = ? AND is_paid = ?", ids, currentMonthLabel(now), domain.PaymentCompleted, true).
		Distinct("user_id").
		Pluck("user_id", &paid).Error; err != nil {
		return nil, err
	}

	totals := make(map[string]domain.Amount, len(sums))
	for _, s := range sums {
		totals[s.UserID] = domain.Amount(s.Total)
	}
	paidSet := make(map[string]bool, len(paid))
	for _, id := range paid {
		paidSet[id] = true
	}
	out := make([]MemberResponse, len(profiles))
	for i, p := range profiles {
		out[i] = MemberResponse{Profile: p, IsPaid: paidSet[p.ID], Contributions: totals[p.ID]}
	}
	return out, nil
}

// ListMembersHandler returns all members ordered by name with their payment standing
func ListMembersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pagination(c) // Paging parameters
		var total int64                 // Total member count
		if err := db.Model(&domain.Profile{}).Count(&total).Error; err != nil {
			respondError(c, err, "Failed to count members")
			return
		}
		var profiles []domain.Profile // Slice to hold profiles
		if err := db.Order("name").Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&profiles).Error; err != nil {
			respondError(c, err, "Failed to fetch members")
			return
		}
		members, err := withStanding(db, profiles, time.Now())
		if err != nil {
			respondError(c, err, "Failed to fetch members")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"members":     members,                       // List of members
			"month":       currentMonthLabel(time.Now()), // Month is_paid refers to
			"page":        page,                          // Current page
			"page_size":   pageSize,                      // Page size
			"total":       total,                         // Total members
			"total_pages": totalPages(total, pageSize),   // Total pages
		})
	}
}

// GetMemberHandler returns one member with their payment standing
func GetMemberHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile domain.Profile // Fetch profile from database
		if err := db.Where("id = ?", c.Param("id")).Take(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		members, err := withStanding(db, []domain.Profile{profile}, time.Now())
		if err != nil {
			respondError(c, err, "Failed to fetch member")
			return
		}
		c.JSON(http.StatusOK, gin.H{"member": members[0]})
	}
}

// errSelf rejects admin actions an admin may not apply to themselves
var errSelf = errors.New("cannot apply this action to yourself")

// DeleteMemberHandler removes a member with their payments, admin rights and reset codes.
// History rows stay and the group balance is not changed.
func DeleteMemberHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := middleware.CurrentUserID(c) // Admin performing the removal
		memberID := c.Param("id")              // Member to remove
		if memberID == actorID {
			c.JSON(http.StatusBadRequest, gin.H{"error": errSelf.Error()})
			return
		}
		var credited int64 // Completed payments dropped without a balance change, minor units
		err := db.Transaction(func(tx *gorm.DB) error {
			var profile domain.Profile
			if err := tx.Where("id = ?", memberID).Take(&profile).Error; err != nil {
				return err // Not found rolls back nothing
			}
			if err := tx.Model(&domain.Payment{}).
				Where("user_id = ? AND status = ? AND is_paid = ?", memberID, domain.PaymentCompleted, true).
				Select("COALESCE(SUM(amount), 0)").Scan(&credited).Error; err != nil {
				return err
			}
			// Dependent rows first
			if err := tx.Where("user_id = ?", memberID).Delete(&domain.Payment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", memberID).Delete(&domain.AdminRight{}).Error; err != nil {
				return err
			}
			if err := tx.Where("email = ?", profile.Email).Delete(&domain.PasswordResetOTP{}).Error; err != nil {
				return err
			}
			return tx.Delete(&profile).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		} else if err != nil {
			respondError(c, err, "Failed to delete member")
			return
		}
		// Log successful removal
		logrus.WithFields(logrus.Fields{
			"actor_id":  actorID,                          // Admin
			"user_id":   memberID,                         // Removed member
			"credited":  domain.Amount(credited).String(), // Stays in the group balance
			"timestamp": time.Now().Format(time.RFC3339),  // Current timestamp
		}).Info("Member deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Member deleted"})
	}
}

// SetMemberGroupHandler assigns a member to a group or removes them from one
func SetMemberGroupHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SetGroupRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.GroupID != nil {
			var group domain.Group // Target group must exist
			if err := db.Where("id = ?", *req.GroupID).Take(&group).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
				return
			}
		}
		var profile domain.Profile // Member must exist
		if err := db.Select("id").Where("id = ?", c.Param("id")).Take(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		if err := db.Model(&profile).Update("group_id", req.GroupID).Error; err != nil {
			respondError(c, err, "Failed to update member group")
			return
		}
		logrus.WithFields(logrus.Fields{
			"actor_id": middleware.CurrentUserID(c), // Admin
			"user_id":  c.Param("id"),               // Member
			"group_id": req.GroupID,                 // New group
		}).Info("Member group changed")
		c.JSON(http.StatusOK, gin.H{"message": "Member group updated"})
	}
}
