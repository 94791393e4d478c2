package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"group_savings/internal/ledger" // Typed ledger errors

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Page size bounds shared by all listing endpoints
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// respondError maps typed errors to status codes; anything else is a 500 with fallback as message
func respondError(c *gin.Context, err error, fallback string) {
	var verr *ledger.ValidationError
	switch {
	case errors.Is(err, ledger.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()}) // "only admins can ..."
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()}) // Missing group, profile or payment
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field}) // Invalid input
	default:
		// Log the error with context
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(), // Route
			"error": err.Error(),  // Error message
		}).Error(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// badRequest answers 400 naming the offending field
func badRequest(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": field + ": " + msg, "field": field})
}

// pagination reads page and page_size query params with defaults and limits
func pagination(c *gin.Context) (page, pageSize int) {
	page = 1                   // Default page
	pageSize = defaultPageSize // Default page size
	// If page exists in query
	if p := c.Query("page"); p != "" {
		// Convert page to integer
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	// If page_size exists in query
	if ps := c.Query("page_size"); ps != "" {
		// Convert page_size to integer
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

// totalPages is the number of pages needed for total rows
func totalPages(total int64, pageSize int) int {
	return (int(total) + pageSize - 1) / pageSize
}

// uintParam parses a positive numeric path parameter
func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}
