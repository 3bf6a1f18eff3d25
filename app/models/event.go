package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ParticipantStatusRegistered = "registered"
	ParticipantPaymentPaid      = "paid"
)

// Event is a paid campus event or club activity.
type Event struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	OrganizerID         uint           `gorm:"not null;index" json:"organizer_id"`
	Title               string         `gorm:"type:varchar(255);not null" json:"title"`
	StartsAt            *time.Time     `gorm:"type:timestamp;default:null" json:"starts_at,omitempty"`
	MaxParticipants     int            `gorm:"default:0" json:"max_participants"`
	CurrentParticipants int            `gorm:"not null;default:0" json:"current_participants"`
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// EventParticipant is unique per (event, user).
type EventParticipant struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       uint      `gorm:"not null;uniqueIndex:ux_event_participants_event_user,priority:1" json:"event_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:ux_event_participants_event_user,priority:2;index" json:"user_id"`
	Status        string    `gorm:"type:varchar(20);not null" json:"status"`
	PaymentStatus string    `gorm:"type:varchar(20);not null" json:"payment_status"`
	TransactionID string    `gorm:"type:varchar(100)" json:"transaction_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
