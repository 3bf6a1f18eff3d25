package models

import (
	"time"

	"gorm.io/gorm"
)

// TransactionStatus is the canonical payment state, decoupled from the
// gateway's own vocabulary.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusExpired   TransactionStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled, TransactionStatusExpired:
		return true
	default:
		return false
	}
}

// ItemType identifies what a transaction pays for.
type ItemType string

const (
	ItemTypeMarketplace ItemType = "marketplace"
	ItemTypeFood        ItemType = "food"
	ItemTypeEvent       ItemType = "event"
	ItemTypeTutoring    ItemType = "tutoring"
)

// ItemTypes lists every supported item type.
var ItemTypes = []ItemType{ItemTypeMarketplace, ItemTypeFood, ItemTypeEvent, ItemTypeTutoring}

// Transaction is created at checkout and afterwards only mutated by the
// payment webhook.
type Transaction struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	OrderID              string            `gorm:"type:varchar(100);not null;uniqueIndex" json:"order_id"`
	Amount               int64             `gorm:"not null" json:"amount"`
	Status               TransactionStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ItemType             ItemType          `gorm:"type:varchar(20);not null" json:"item_type"`
	ItemID               *uint             `gorm:"index" json:"item_id,omitempty"`
	Item                 *MarketplaceItem  `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	FoodItemID           *uint             `gorm:"index" json:"food_item_id,omitempty"`
	EventID              *uint             `gorm:"index" json:"event_id,omitempty"`
	BuyerID              uint              `gorm:"not null;index" json:"buyer_id"`
	Buyer                User              `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	SellerID             *uint             `gorm:"index" json:"seller_id,omitempty"`
	ItemTitle            string            `gorm:"type:varchar(255)" json:"item_title"`
	PaymentMethod        string            `gorm:"type:varchar(50)" json:"payment_method"`
	GatewayTransactionID string            `gorm:"type:varchar(100)" json:"transaction_id"`
	FraudStatus          string            `gorm:"type:varchar(20)" json:"fraud_status"`
	CreatedAt            time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasSeller reports whether the transaction credits a seller.
func (t *Transaction) HasSeller() bool {
	return t.SellerID != nil && *t.SellerID != 0
}

// FindTransactionByOrderID loads a transaction with its item and buyer.
func FindTransactionByOrderID(db *gorm.DB, orderID string) (*Transaction, error) {
	var t Transaction
	err := db.Preload("Item").Preload("Buyer").Where("order_id = ?", orderID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}
