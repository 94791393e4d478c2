// Package otp issues and verifies one-time password reset codes.
package otp

import (
	"context"     // Request scoped cancellation
	"crypto/rand" // Code generation
	"errors"      // Sentinel errors
	"fmt"         // Error wrapping
	"math/big"    // Uniform random range
	"strings"     // Email normalization
	"time"        // Expiry

	"group_savings/internal/domain"  // Importing domain models
	"group_savings/internal/mailer"  // Outgoing mail
	"group_savings/internal/metrics" // OTP counter
	"group_savings/internal/utils"   // Password hashing

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Code hashing
	"gorm.io/gorm"               // GORM ORM library
)

const (
	// CodeLength is the number of digits in a code
	CodeLength = 6
	// DefaultExpiry is how long a code is valid
	DefaultExpiry = 10 * time.Minute
	// MaxVerifyAttempts is the maximum number of verification attempts per code
	MaxVerifyAttempts = 5
	// bcryptCost for hashing codes
	bcryptCost = 10
)

var (
	// ErrNotFound is returned when no unused, unexpired code exists for the email
	ErrNotFound = errors.New("otp not found or expired")
	// ErrInvalidCode is returned when the code does not match
	ErrInvalidCode = errors.New("invalid otp")
	// ErrTooManyAttempts is returned once a code has been tried MaxVerifyAttempts times
	ErrTooManyAttempts = errors.New("too many otp attempts")
)

// Service manages password reset codes
type Service struct {
	db       *gorm.DB
	mail     mailer.Sender
	siteName string
	expiry   time.Duration
	now      func() time.Time
}

// New returns a Service that mails codes through sender
func New(db *gorm.DB, sender mailer.Sender, siteName string) *Service {
	return &Service{db: db, mail: sender, siteName: siteName, expiry: DefaultExpiry, now: time.Now}
}

// Issue creates and mails a new code when a profile with email exists.
// Unknown addresses are not an error so callers cannot enumerate accounts.
func (s *Service) Issue(ctx context.Context, email string) error {
	email = normalize(email)
	var p domain.Profile
	err := s.db.WithContext(ctx).Select("id", "name", "email").Where("email = ?", email).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logrus.WithField("email", email).Info("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("find profile: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Supersede earlier codes
		if err := tx.Model(&domain.PasswordResetOTP{}).
			Where("email = ? AND used = ?", email, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&domain.PasswordResetOTP{
			Email:     email,
			CodeHash:  string(hash),
			ExpiresAt: now.Add(s.expiry),
			CreatedAt: now,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	metrics.OTPIssued.Inc()

	msg := mailer.BuildPasswordResetEmail(mailer.PasswordResetData{
		SiteName:  s.siteName,
		Name:      p.Name,
		Code:      code,
		ExpiresIn: formatExpiry(s.expiry),
	})
	msg.To = email
	if err := s.mail.Send(msg); err != nil {
		entry := logrus.WithFields(logrus.Fields{"email": email, "error": err.Error()})
		if errors.Is(err, mailer.ErrMailDisabled) {
			entry.Warn("Password reset code not mailed, SMTP is not configured")
		} else {
			entry.Error("Failed to send password reset code")
		}
		return nil
	}
	logrus.WithField("email", email).Info("Password reset code sent")
	return nil
}

// Reset checks code against the latest live code for email and, on a match,
// consumes the code and replaces the profile's password
func (s *Service) Reset(ctx context.Context, email, code, newPassword string) error {
	email = normalize(email)
	if !utils.ValidPassword(newPassword) {
		return utils.ErrPasswordLength
	}
	var rec domain.PasswordResetOTP
	err := s.db.WithContext(ctx).
		Where("email = ? AND used = ? AND expires_at > ?", email, false, s.now()).
		Order("created_at desc").Order("id desc").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find otp: %w", err)
	}
	// Claim an attempt before comparing so failures persist; the cap is
	// enforced by the update itself so concurrent guesses cannot exceed it
	res := s.db.WithContext(ctx).Model(&domain.PasswordResetOTP{}).
		Where("id = ? AND attempts < ?", rec.ID, MaxVerifyAttempts).
		Update("attempts", gorm.Expr("attempts + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("count otp attempt: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTooManyAttempts
	}
	if bcrypt.CompareHashAndPassword([]byte(rec.CodeHash), []byte(strings.TrimSpace(code))) != nil {
		logrus.WithFields(logrus.Fields{"email": email, "attempt": rec.Attempts + 1}).Warn("Invalid password reset code")
		return ErrInvalidCode
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.PasswordResetOTP{}).
			Where("id = ? AND used = ?", rec.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound // Consumed concurrently
		}
		return tx.Model(&domain.Profile{}).Where("email = ?", email).Update("password_hash", hash).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}
	logrus.WithField("email", email).Info("Password reset with otp")
	return nil
}

// generateCode returns a uniformly random zero-padded 6-digit code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

func formatExpiry(d time.Duration) string {
	if m := int(d.Minutes()); m == 1 {
		return "1 minute"
	} else if m > 1 {
		return fmt.Sprintf("%d minutes", m)
	}
	return d.String()
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
