package domain

import "time"

// Project statuses
const (
	ProjectUpcoming  = "upcoming"
	ProjectOngoing   = "ongoing"
	ProjectCompleted = "completed"
)

// ValidProjectStatus reports whether s is a known project status
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectUpcoming, ProjectOngoing, ProjectCompleted:
		return true
	}
	return false
}

// Project Model
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`                            // Primary key
	Title       string     `gorm:"size:255;not null" json:"title"`                  // Title
	Description *string    `json:"description"`                                     // Long description
	Caption     *string    `json:"caption"`                                         // Short caption
	Budget      *Amount    `json:"budget"`                                          // Planned budget in minor units
	Progress    int        `gorm:"not null;default:0" json:"progress"`              // Percent complete, 0..100
	Status      string     `gorm:"size:16;not null;default:upcoming" json:"status"` // upcoming, ongoing, completed
	StartDate   *time.Time `json:"start_date"`                                      // Planned start
	EndDate     *time.Time `json:"end_date"`                                        // Planned end
	PhotoURL    *string    `json:"photo_url"`                                       // Public photo reference
	CreatedBy   *string    `gorm:"size:36" json:"created_by"`                       // Admin that created it
	CreatedAt   time.Time  `json:"created_at"`                                      // Creation time
	UpdatedAt   time.Time  `json:"updated_at"`                                      // Last update time
}
