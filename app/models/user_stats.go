package models

import "time"

// UserStats holds per-user marketplace counters and balances. One row per
// user, always written through upserts.
type UserStats struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	ItemsSold        int       `gorm:"not null;default:0" json:"items_sold"`
	ItemsBought      int       `gorm:"not null;default:0" json:"items_bought"`
	TotalEarnings    int64     `gorm:"not null;default:0" json:"total_earnings"`
	TotalSpent       int64     `gorm:"not null;default:0" json:"total_spent"`
	PendingBalance   int64     `gorm:"not null;default:0" json:"pending_balance"`
	AvailableBalance int64     `gorm:"not null;default:0" json:"available_balance"`
	WithdrawnBalance int64     `gorm:"not null;default:0" json:"withdrawn_balance"`
	MessagesCount    int       `gorm:"not null;default:0" json:"messages_count"`
	TutoringSessions int       `gorm:"not null;default:0" json:"tutoring_sessions"`
	ReviewsGiven     int       `gorm:"not null;default:0" json:"reviews_given"`
	ReviewsReceived  int       `gorm:"not null;default:0" json:"reviews_received"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// StatsDelta is an increment applied to a UserStats row.
type StatsDelta struct {
	ItemsSold        int
	ItemsBought      int
	TotalEarnings    int64
	TotalSpent       int64
	PendingBalance   int64
	TutoringSessions int
}

// Apply adds d to s in memory.
func (s *UserStats) Apply(d StatsDelta) {
	s.ItemsSold += d.ItemsSold
	s.ItemsBought += d.ItemsBought
	s.TotalEarnings += d.TotalEarnings
	s.TotalSpent += d.TotalSpent
	s.PendingBalance += d.PendingBalance
	s.TutoringSessions += d.TutoringSessions
}
