package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationTypeSale     = "sale"
	NotificationTypePurchase = "purchase"
	NotificationTypeSystem   = "system"
)

type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index" json:"user_id"`
	Type        string         `gorm:"type:varchar(50)" json:"type" validate:"oneof=sale purchase system"`
	Title       string         `gorm:"type:varchar(255)" json:"title"`
	Message     string         `gorm:"type:text" json:"message"`
	IsRead      bool           `gorm:"default:false" json:"is_read"`
	ReferenceID string         `gorm:"type:varchar(100);index" json:"reference_id"` // order id the notification is about
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
