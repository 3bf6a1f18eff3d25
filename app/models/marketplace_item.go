package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ItemStatusAvailable = "available"
	ItemStatusSold      = "sold"
)

// MarketplaceItem is a second-hand listing.
type MarketplaceItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	SellerID    uint           `gorm:"not null;index" json:"seller_id"`
	Title       string         `gorm:"type:varchar(255);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	Status      string         `gorm:"type:varchar(20);not null;default:'available';index" json:"status" validate:"oneof=available sold"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
