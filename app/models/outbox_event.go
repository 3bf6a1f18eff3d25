package models

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxKind selects the side channel an outbox event is dispatched to.
type OutboxKind string

const (
	OutboxKindRealtime OutboxKind = "realtime"
	OutboxKindEmail    OutboxKind = "email"
	OutboxKindArchive  OutboxKind = "archive"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusRelayed = "relayed"
	OutboxStatusFailed  = "failed"
)

// OutboxEvent is side-channel work written in the same database transaction
// as the state change it announces.
type OutboxEvent struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Kind        OutboxKind     `gorm:"type:varchar(20);not null;index" json:"kind"`
	AggregateID string         `gorm:"type:varchar(100);not null;index" json:"aggregate_id"`
	Payload     datatypes.JSON `gorm:"not null" json:"payload"`
	Status      string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	JobID       string         `gorm:"type:varchar(64)" json:"job_id"`
	Error       string         `gorm:"type:text" json:"error"`
	RelayedAt   *time.Time     `gorm:"type:timestamp;default:null" json:"relayed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// RealtimePayload is the outbox payload for a realtime publish.
type RealtimePayload struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Data    map[string]interface{} `json:"data"`
}

// EmailPayload is the outbox payload for an outbound email.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// ArchivePayload is the outbox payload for archiving a raw notification.
type ArchivePayload struct {
	NotificationID uint   `json:"notification_id"`
	OrderID        string `json:"order_id"`
}
