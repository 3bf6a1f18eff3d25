package models

import (
	"time"

	"gorm.io/gorm"
)

const FoodOrderStatusConfirmed = "confirmed"

// FoodItem is a batch of home-cooked food offered by a student.
type FoodItem struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	SellerID   uint           `gorm:"not null;index" json:"seller_id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Price      int64          `gorm:"not null" json:"price"`
	Quantity   int            `gorm:"not null;default:0" json:"quantity"`
	Status     string         `gorm:"type:varchar(20);not null;default:'available'" json:"status" validate:"oneof=available sold"`
	PickupTime *time.Time     `gorm:"type:timestamp;default:null" json:"pickup_time,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// FoodOrder is created once a food payment completes.
type FoodOrder struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	FoodItemID         uint       `gorm:"not null;index" json:"food_item_id"`
	BuyerID            uint       `gorm:"not null;index" json:"buyer_id"`
	TransactionOrderID string     `gorm:"type:varchar(100);index" json:"transaction_order_id"`
	Quantity           int        `gorm:"not null" json:"quantity"`
	TotalPrice         int64      `gorm:"not null" json:"total_price"`
	PickupTime         *time.Time `gorm:"type:timestamp;default:null" json:"pickup_time,omitempty"`
	Status             string     `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
