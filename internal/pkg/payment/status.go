package payment

import (
	"strings"

	"github.com/campuscircle/campuscircle/app/models"
)

// MapStatus translates the gateway's transaction_status (and fraud_status
// for card captures) into the canonical transaction status.
func MapStatus(transactionStatus, fraudStatus string) models.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "settlement":
		return models.TransactionStatusCompleted
	case "capture":
		switch strings.ToLower(strings.TrimSpace(fraudStatus)) {
		case "", "accept":
			return models.TransactionStatusCompleted
		case "deny":
			return models.TransactionStatusFailed
		default:
			// "challenge" waits for manual review on the gateway side.
			return models.TransactionStatusPending
		}
	case "pending", "authorize":
		return models.TransactionStatusPending
	case "deny", "failure":
		return models.TransactionStatusFailed
	case "cancel", "refund", "partial_refund", "chargeback", "partial_chargeback":
		return models.TransactionStatusCancelled
	case "expire":
		return models.TransactionStatusExpired
	default:
		return models.TransactionStatusPending
	}
}
