package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes
	"net/mail" // Email address parsing
	"strings"  // String manipulation
	"time"     // Timestamps

	"group_savings/internal/domain"     // Importing domain models
	"group_savings/internal/middleware" // Context helpers
	"group_savings/internal/utils"      // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Profile IDs
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// Request struct for sign-up
type SignUpRequest struct {
	Name         string `json:"name" binding:"required"`     // Display name must be provided
	Email        string `json:"email" binding:"required"`    // Email must be provided
	Password     string `json:"password" binding:"required"` // Password must be provided
	MobileNumber string `json:"mobile_number"`               // Optional mobile number
	Address      string `json:"address"`                     // Optional address
}

// Request struct for sign-in
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// Response struct for authentication
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// Request struct for profile updates; nil fields are left unchanged
type UpdateProfileRequest struct {
	Name         *string `json:"name"`          // Display name
	MobileNumber *string `json:"mobile_number"` // Mobile number
	Address      *string `json:"address"`       // Postal address
	PhotoURL     *string `json:"photo_url"`     // Public photo reference
}

// normalizeEmail lowercases and validates an email address
func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email)) // Emails are unique case-insensitively
	addr, err := mail.ParseAddress(email)             // Validate the address
	if err != nil || addr.Address != email {
		return "", false // Reject display-name forms and garbage
	}
	return email, true
}

// SignUpHandler registers a new member profile
func SignUpHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignUpRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		email, ok := normalizeEmail(req.Email) // Validate email
		if !ok {
			badRequest(c, "email", "is not a valid address")
			return
		}
		name := strings.TrimSpace(req.Name) // Validate name
		if name == "" {
			badRequest(c, "name", "is required")
			return
		}
		// Hash the password after checking its length
		hash, err := utils.HashPassword(req.Password)
		if errors.Is(err, utils.ErrPasswordLength) {
			badRequest(c, "password", "must be 8-72 characters")
			return
		} else if err != nil {
			// If hashing fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Check whether the email is already taken
		var count int64
		if err := db.Model(&domain.Profile{}).Where("email = ?", email).Count(&count).Error; err != nil {
			respondError(c, err, "Failed to create profile")
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		profile := domain.Profile{
			ID:           uuid.NewString(),                    // Profile ID
			Name:         name,                                // Display name
			Email:        email,                               // Lowercased email
			MobileNumber: strings.TrimSpace(req.MobileNumber), // Mobile number
			Address:      strings.TrimSpace(req.Address),      // Address
			PasswordHash: hash,                                // bcrypt hash
			Role:         "member",                            // Default role
		}
		// Attempt to create the profile in the database
		if err := db.Create(&profile).Error; err != nil {
			// A concurrent sign-up may still hit the unique index
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		// Log successful sign-up
		logrus.WithFields(logrus.Fields{
			"user_id":   profile.ID,                      // Profile ID
			"email":     profile.Email,                   // Email
			"timestamp": time.Now().Format(time.RFC3339), // Current timestamp
		}).Info("Profile created")
		// Return success response
		c.JSON(http.StatusCreated, gin.H{"message": "Profile created", "profile": profile})
	}
}

// SignInHandler authenticates a profile and returns a JWT token
func SignInHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignInRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var profile domain.Profile // Fetch profile from database
		if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).Take(&profile).Error; err != nil {
			// If profile not found, return unauthorized
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if !utils.CheckPassword(profile.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(profile.ID, jwtSecret)
		if err != nil {
			// If token generation fails, return internal server error
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		// Return the token in the response
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// SignOutHandler revokes the caller's token until it expires
func SignOutHandler(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.MustGet(middleware.ClaimsKey).(*utils.Claims) // Claims set by JWT middleware
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var expiresAt time.Time
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time // Remember the token only as long as it is valid
		}
		if err := utils.RevokeToken(c.Request.Context(), rdb, claims.ID, expiresAt); err != nil {
			respondError(c, err, "Failed to sign out")
			return
		}
		if rdb == nil {
			// Without Redis the token stays valid until it expires
			logrus.WithField("user_id", claims.UserID).Warn("Sign-out without revocation store")
		}
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

// GetMeHandler returns the caller's profile
func GetMeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var profile domain.Profile // Fetch profile from database
		if err := db.Where("id = ?", middleware.CurrentUserID(c)).Take(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}

// UpdateMeHandler updates the caller's own profile fields
func UpdateMeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		updates := map[string]any{} // Only provided fields are written
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				badRequest(c, "name", "must not be empty")
				return
			}
			updates["name"] = name
		}
		if req.MobileNumber != nil {
			updates["mobile_number"] = strings.TrimSpace(*req.MobileNumber)
		}
		if req.Address != nil {
			updates["address"] = strings.TrimSpace(*req.Address)
		}
		if req.PhotoURL != nil {
			updates["photo_url"] = req.PhotoURL
		}
		userID := middleware.CurrentUserID(c) // Caller
		if len(updates) > 0 {
			if err := db.Model(&domain.Profile{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
				respondError(c, err, "Failed to update profile")
				return
			}
		}
		var profile domain.Profile // Return the stored state
		if err := db.Where("id = ?", userID).Take(&profile).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profile": profile})
	}
}
