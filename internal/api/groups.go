package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"group_savings/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// CreateGroupRequest names a new savings group
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"` // Unique group name
}

// CreateGroupHandler creates a savings group
func CreateGroupHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		group := domain.Group{Name: strings.TrimSpace(req.Name)}
		if group.Name == "" {
			badRequest(c, "name", "is required")
			return
		}
		var count int64
		if err := db.Model(&domain.Group{}).Where("name = ?", group.Name).Count(&count).Error; err != nil {
			respondError(c, err, "Failed to create group")
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Group already exists"})
			return
		}
		if err := db.Create(&group).Error; err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Group already exists"})
			return
		}
		logrus.WithFields(logrus.Fields{"group_id": group.ID, "name": group.Name}).Info("Group created")
		c.JSON(http.StatusCreated, gin.H{"message": "Group created", "group": group})
	}
}

// ListGroupsHandler returns all groups by name
func ListGroupsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var groups []domain.Group
		if err := db.Order("name").Find(&groups).Error; err != nil {
			respondError(c, err, "Failed to fetch groups")
			return
		}
		c.JSON(http.StatusOK, gin.H{"groups": groups})
	}
}
