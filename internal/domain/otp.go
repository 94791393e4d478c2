package domain

import "time"

// PasswordResetOTP Model, one-time codes for password reset
type PasswordResetOTP struct {
	ID        uint      `gorm:"primaryKey"`              // Primary key
	Email     string    `gorm:"size:255;index;not null"` // Address the code was sent to
	CodeHash  string    `gorm:"not null"`                // bcrypt hash of the 6-digit code
	ExpiresAt time.Time `gorm:"index;not null"`          // Expiry time
	Attempts  int       `gorm:"not null;default:0"`      // Verification attempts so far
	Used      bool      `gorm:"not null;default:false"`  // Consumed or superseded
	CreatedAt time.Time // Creation time
}

// TableName pluralizes OTP the way the schema names it
func (PasswordResetOTP) TableName() string { return "password_reset_otps" }

// SchemaMigration records an applied schema version
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"` // Migration version
	Name      string    `gorm:"size:128;not null"`              // Short description
	AppliedAt time.Time // Time it was applied
}
