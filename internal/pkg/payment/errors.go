package payment

import "errors"

var (
	// ErrInvalidSignature rejects a notification whose signature does not
	// match the one recomputed with the server key.
	ErrInvalidSignature = errors.New("invalid notification signature")
	// ErrInvalidPayload rejects an authenticated notification missing
	// required fields.
	ErrInvalidPayload = errors.New("invalid notification payload")
	// ErrTransactionNotFound is returned when no transaction matches the
	// notification's order id.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrUnknownItemType aborts the fan-out for an item type without a
	// fulfiller.
	ErrUnknownItemType = errors.New("unknown item type")
	// ErrNotFound is the store-level "no such row" error.
	ErrNotFound = errors.New("record not found")
)
