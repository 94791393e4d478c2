package domain

import "time"

// Profile Model
type Profile struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`                // UUID issued at sign-up
	Name         string    `gorm:"not null" json:"name"`                        // Display name
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`  // Unique, lowercased email
	MobileNumber string    `json:"mobile_number"`                               // Mobile number
	Address      string    `json:"address"`                                     // Postal address
	PhotoURL     *string   `json:"photo_url"`                                   // Public photo reference
	PasswordHash string    `gorm:"not null" json:"-"`                           // bcrypt hash, never serialized
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`      // Admin flag
	GroupID      *uint     `gorm:"index" json:"group_id"`                       // Optional group membership
	Role         string    `gorm:"size:32;not null;default:member" json:"role"` // Free-form role label
	CreatedAt    time.Time `json:"created_at"`                                  // Creation time
	UpdatedAt    time.Time `json:"updated_at"`                                  // Last update time
}

// Group Model
type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                      // Primary key
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"` // Unique group name
	CreatedAt time.Time `json:"created_at"`                                // Creation time
}

// AdminRight records who granted admin rights to whom
type AdminRight struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                  // Primary key
	UserID    string    `gorm:"size:36;index;not null" json:"user_id"` // Profile that received the right
	GrantedBy string    `gorm:"size:36;not null" json:"granted_by"`    // Admin that granted it
	GrantedAt time.Time `json:"granted_at"`                            // Grant time
}
