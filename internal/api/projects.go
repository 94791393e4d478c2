package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Dates

	"group_savings/internal/domain"     // Importing domain models
	"group_savings/internal/middleware" // Context helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// ProjectRequest creates or updates a project; absent fields are left unchanged on update
type ProjectRequest struct {
	Title       *string        `json:"title"`       // Required on create
	Description *string        `json:"description"` // Long description
	Caption     *string        `json:"caption"`     // Short caption
	Budget      *domain.Amount `json:"budget"`      // Must not be negative
	Progress    *int           `json:"progress"`    // 0..100
	Status      *string        `json:"status"`      // upcoming, ongoing, completed
	StartDate   *string        `json:"start_date"`  // YYYY-MM-DD
	EndDate     *string        `json:"end_date"`    // YYYY-MM-DD, not before start_date
	PhotoURL    *string        `json:"photo_url"`   // Public photo reference
}

// fieldError names the project field that failed validation
type fieldError struct{ field, msg string }

func (e *fieldError) Error() string { return e.field + ": " + e.msg }

// apply copies the provided fields onto p and validates the result
func (r *ProjectRequest) apply(p *domain.Project) error {
	if r.Title != nil {
		p.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		p.Description = r.Description
	}
	if r.Caption != nil {
		p.Caption = r.Caption
	}
	if r.Budget != nil {
		p.Budget = r.Budget
	}
	if r.Progress != nil {
		p.Progress = *r.Progress
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	if r.PhotoURL != nil {
		p.PhotoURL = r.PhotoURL
	}
	for _, d := range []struct {
		field string
		in    *string
		out   **time.Time
	}{
		{"start_date", r.StartDate, &p.StartDate},
		{"end_date", r.EndDate, &p.EndDate},
	} {
		if d.in == nil {
			continue
		}
		if *d.in == "" {
			*d.out = nil // Explicitly cleared
			continue
		}
		t, ok := parseDate(*d.in)
		if !ok {
			return &fieldError{d.field, "must be a date (YYYY-MM-DD)"}
		}
		*d.out = &t
	}

	switch {
	case p.Title == "":
		return &fieldError{"title", "is required"}
	case p.Progress < 0 || p.Progress > 100:
		return &fieldError{"progress", "must be between 0 and 100"}
	case !domain.ValidProjectStatus(p.Status):
		return &fieldError{"status", "must be upcoming, ongoing or completed"}
	case p.Budget != nil && *p.Budget < 0:
		return &fieldError{"budget", "must not be negative"}
	case p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate):
		return &fieldError{"end_date", "must not be before start_date"}
	}
	return nil
}

// respondProjectError answers 400 for validation failures, 500 otherwise
func respondProjectError(c *gin.Context, err error, fallback string) {
	var ferr *fieldError
	if errors.As(err, &ferr) {
		badRequest(c, ferr.field, ferr.msg)
		return
	}
	respondError(c, err, fallback)
}

// ListProjectsHandler returns projects, optionally filtered by status
func ListProjectsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Order("created_at desc").Order("id desc")
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status) // Filter by status
		}
		var projects []domain.Project
		if err := query.Find(&projects).Error; err != nil {
			respondError(c, err, "Failed to fetch projects")
			return
		}
		c.JSON(http.StatusOK, gin.H{"projects": projects})
	}
}

// GetProjectHandler returns one project
func GetProjectHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var project domain.Project
		if err := db.Where("id = ?", id).Take(&project).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"project": project})
	}
}

// CreateProjectHandler creates a project
func CreateProjectHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		actorID := middleware.CurrentUserID(c)
		project := domain.Project{Status: domain.ProjectUpcoming, CreatedBy: &actorID}
		if err := req.apply(&project); err != nil {
			respondProjectError(c, err, "Failed to create project")
			return
		}
		if err := db.Create(&project).Error; err != nil {
			respondError(c, err, "Failed to create project")
			return
		}
		logrus.WithFields(logrus.Fields{"actor_id": actorID, "project_id": project.ID}).Info("Project created")
		c.JSON(http.StatusCreated, gin.H{"message": "Project created", "project": project})
	}
}

// UpdateProjectHandler updates the provided fields of a project
func UpdateProjectHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		var req ProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var project domain.Project
		if err := db.Where("id = ?", id).Take(&project).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		if err := req.apply(&project); err != nil {
			respondProjectError(c, err, "Failed to update project")
			return
		}
		if err := db.Save(&project).Error; err != nil {
			respondError(c, err, "Failed to update project")
			return
		}
		logrus.WithFields(logrus.Fields{"actor_id": middleware.CurrentUserID(c), "project_id": project.ID}).Info("Project updated")
		c.JSON(http.StatusOK, gin.H{"message": "Project updated", "project": project})
	}
}

// DeleteProjectHandler deletes a project
func DeleteProjectHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := uintParam(c, "id")
		if !ok {
			return
		}
		res := db.Delete(&domain.Project{}, id)
		if res.Error != nil {
			respondError(c, res.Error, "Failed to delete project")
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		logrus.WithFields(logrus.Fields{"actor_id": middleware.CurrentUserID(c), "project_id": id}).Info("Project deleted")
		c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
	}
}
