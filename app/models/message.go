package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	MessageTypeText           = "text"
	MessageTypePaymentRequest = "payment_request"

	PaymentRequestAwaiting = "awaiting_payment"
	PaymentRequestPaid     = "paid"
)

// Message belongs to a buyer/seller conversation. Payment request messages
// embed the pending food order in Payload.
type Message struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	ConversationID uint           `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint           `gorm:"not null;index" json:"sender_id"`
	Type           string         `gorm:"type:varchar(30);not null;default:'text';index" json:"type"`
	Content        string         `gorm:"type:text" json:"content"`
	Payload        datatypes.JSON `json:"payload,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentRequestPayload is the order embedded in a payment_request message.
type PaymentRequestPayload struct {
	FoodItemID uint   `json:"food_item_id"`
	Title      string `json:"title,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Status     string `json:"status"`
	OrderID    string `json:"order_id,omitempty"`
}

// PaymentRequest decodes the embedded order. ok is false for other message
// types or unparsable payloads.
func (m *Message) PaymentRequest() (PaymentRequestPayload, bool) {
	var p PaymentRequestPayload
	if m.Type != MessageTypePaymentRequest || len(m.Payload) == 0 {
		return p, false
	}
	if err := json.Unmarshal(m.Payload, &p); err != nil {
		return p, false
	}
	return p, true
}

// MarkPaymentRequestPaid patches the embedded order to paid and records the
// order id. Fields this package does not know about are kept as they are.
func (m *Message) MarkPaymentRequestPaid(orderID string) error {
	fields := map[string]interface{}{}
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &fields); err != nil {
			return err
		}
	}
	fields["status"] = PaymentRequestPaid
	fields["order_id"] = orderID
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	m.Payload = datatypes.JSON(raw)
	return nil
}
