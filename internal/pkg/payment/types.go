package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/campuscircle/campuscircle/app/models"
)

// WireValue keeps the exact text of a JSON field the gateway may send either
// as a string or as a number. The signature is computed over that text, so
// numbers must not be re-formatted.
type WireValue string

func (v *WireValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = WireValue(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*v = WireValue(n.String())
		return nil
	}
}

func (v WireValue) String() string { return string(v) }

// Notification is the gateway's asynchronous payment callback body.
type Notification struct {
	OrderID           string    `json:"order_id" validate:"required,max=100"`
	TransactionStatus string    `json:"transaction_status" validate:"required,max=50"`
	FraudStatus       string    `json:"fraud_status" validate:"max=20"`
	StatusCode        WireValue `json:"status_code"`
	GrossAmount       WireValue `json:"gross_amount"`
	SignatureKey      string    `json:"signature_key"`
	TransactionID     string    `json:"transaction_id" validate:"max=100"`
	PaymentType       string    `json:"payment_type" validate:"max=50"`
	TransactionTime   string    `json:"transaction_time,omitempty"`
}

// ParseNotification decodes a raw callback body.
func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &n, nil
}

// DeliveryKey identifies one distinct gateway outcome for an order. Repeated
// deliveries of the same outcome share a key.
func (n *Notification) DeliveryKey() string {
	return strings.Join([]string{
		strings.TrimSpace(n.OrderID),
		strings.ToLower(strings.TrimSpace(n.TransactionStatus)),
		strings.ToLower(strings.TrimSpace(n.FraudStatus)),
		strings.TrimSpace(n.StatusCode.String()),
	}, ":")
}

// Outcome describes how a notification was handled.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
)

// Result is returned by Service.Reconcile for every acknowledged notification.
type Result struct {
	OrderID        string
	NotificationID uint
	Previous       models.TransactionStatus
	Status         models.TransactionStatus
	Outcome        Outcome
}

// Duplicate reports whether the delivery had already been processed.
func (r *Result) Duplicate() bool { return r.Outcome == OutcomeDuplicate }

// Stale reports whether the transaction was already terminal.
func (r *Result) Stale() bool { return r.Outcome == OutcomeStale }

// Transitioned reports whether the notification moved the transaction out
// of PENDING.
func (r *Result) Transitioned() bool {
	return r.Outcome == OutcomeProcessed && r.Previous == models.TransactionStatusPending && r.Status.IsTerminal()
}

// TransactionUpdate carries the gateway fields persisted with a status change.
type TransactionUpdate struct {
	Status               models.TransactionStatus
	GatewayTransactionID string
	PaymentMethod        string
	FraudStatus          string
}
