package models

import "time"

// PaymentNotification stores inbound gateway notifications with
// deduplication metadata for idempotent processing.
type PaymentNotification struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Provider          string     `gorm:"type:varchar(20);not null;index:ux_payment_notifications_provider_delivery,unique,priority:1" json:"provider"`
	DeliveryKey       string     `gorm:"type:varchar(191);not null;index:ux_payment_notifications_provider_delivery,unique,priority:2" json:"delivery_key"`
	OrderID           string     `gorm:"type:varchar(100);not null;index" json:"order_id"`
	TransactionStatus string     `gorm:"type:varchar(50)" json:"transaction_status"`
	MappedStatus      string     `gorm:"type:varchar(20)" json:"mapped_status"`
	PayloadJSON       string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid    bool       `gorm:"default:false" json:"signature_valid"`
	Attempts          int        `gorm:"not null;default:1" json:"attempts"`
	ProcessedAt       *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError   string     `gorm:"type:text" json:"processing_error"`
	ArchiveKey        string     `gorm:"type:varchar(255)" json:"archive_key"`
	ArchivedAt        *time.Time `gorm:"type:timestamp;default:null" json:"archived_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsSettled reports whether the delivery was processed without error.
func (n *PaymentNotification) IsSettled() bool {
	return n.ProcessedAt != nil && n.ProcessingError == ""
}
