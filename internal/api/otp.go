package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"group_savings/internal/otp"   // Password reset codes
	"group_savings/internal/utils" // Password rules

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for asking a reset code
type OTPRequest struct {
	Email string `json:"email" binding:"required"` // Address of the profile
}

// Request struct for resetting a password with a code
type OTPVerifyRequest struct {
	Email       string `json:"email" binding:"required"`        // Address of the profile
	OTP         string `json:"otp" binding:"required"`          // 6-digit code
	NewPassword string `json:"new_password" binding:"required"` // Replacement password
}

// otpSentMessage is the same for known and unknown addresses
const otpSentMessage = "If the email is registered, a reset code has been sent"

// RequestOTPHandler mails a password reset code
func RequestOTPHandler(svc *otp.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OTPRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := svc.Issue(c.Request.Context(), req.Email); err != nil {
			respondError(c, err, "Failed to issue reset code")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": otpSentMessage})
	}
}

// VerifyOTPHandler checks a reset code and sets the new password
func VerifyOTPHandler(svc *otp.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OTPVerifyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		err := svc.Reset(c.Request.Context(), req.Email, req.OTP, req.NewPassword)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
		case errors.Is(err, utils.ErrPasswordLength):
			badRequest(c, "new_password", "must be 8-72 characters")
		case errors.Is(err, otp.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, request a new code"})
		case errors.Is(err, otp.ErrNotFound), errors.Is(err, otp.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired code"}) // Same answer for both
		default:
			respondError(c, err, "Failed to reset password")
		}
	}
}
