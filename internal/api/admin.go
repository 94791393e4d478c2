package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"time"     // Timestamps

	"group_savings/internal/domain"     // Importing domain models
	"group_savings/internal/middleware" // Context helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// GrantAdminHandler gives a member admin rights and records who granted them
func GrantAdminHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := middleware.CurrentUserID(c) // Admin granting the right
		memberID := c.Param("id")              // Member receiving it
		err := db.Transaction(func(tx *gorm.DB) error {
			var profile domain.Profile // Member must exist
			if err := tx.Select("id", "is_admin").Where("id = ?", memberID).Take(&profile).Error; err != nil {
				return err
			}
			if err := tx.Model(&profile).Update("is_admin", true).Error; err != nil {
				return err
			}
			// Record the grant
			return tx.Create(&domain.AdminRight{UserID: memberID, GrantedBy: actorID, GrantedAt: time.Now()}).Error
		})
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		} else if err != nil {
			respondError(c, err, "Failed to grant admin rights")
			return
		}
		// Log the grant
		logrus.WithFields(logrus.Fields{
			"actor_id":  actorID,                         // Admin
			"user_id":   memberID,                        // New admin
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Admin rights granted")
		c.JSON(http.StatusOK, gin.H{"message": "Admin rights granted"})
	}
}

// RevokeAdminHandler removes a member's admin rights; an admin cannot revoke themselves
func RevokeAdminHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := middleware.CurrentUserID(c) // Admin revoking the right
		memberID := c.Param("id")              // Member losing it
		if memberID == actorID {
			// Keep at least the acting admin in place
			c.JSON(http.StatusBadRequest, gin.H{"error": errSelf.Error()})
			return
		}
		var profile domain.Profile // Member must exist
		if err := db.Select("id").Where("id = ?", memberID).Take(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}
		if err := db.Model(&profile).Update("is_admin", false).Error; err != nil {
			respondError(c, err, "Failed to revoke admin rights")
			return
		}
		// Log the revocation
		logrus.WithFields(logrus.Fields{
			"actor_id":  actorID,                         // Admin
			"user_id":   memberID,                        // Former admin
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Admin rights revoked")
		c.JSON(http.StatusOK, gin.H{"message": "Admin rights revoked"})
	}
}

// ListAdminRightsHandler returns the grant log, newest first
func ListAdminRightsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rights []domain.AdminRight // Slice to hold grants
		query := db.Order("granted_at desc").Order("id desc")
		if userID := c.Query("user_id"); userID != "" {
			query = query.Where("user_id = ?", userID) // Filter by member
		}
		if err := query.Find(&rights).Error; err != nil {
			respondError(c, err, "Failed to fetch admin rights")
			return
		}
		c.JSON(http.StatusOK, gin.H{"admin_rights": rights})
	}
}
