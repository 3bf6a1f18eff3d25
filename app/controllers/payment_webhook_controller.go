package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/campuscircle/campuscircle/internal/pkg/database"
	"github.com/campuscircle/campuscircle/internal/pkg/payment"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const paymentRequestTimeout = 15 * time.Second

var (
	paymentService *payment.Service
	relayNudge     func()
)

// InitializePaymentController installs the reconciliation service and the
// hook that wakes the outbox relay after a committed notification.
func InitializePaymentController(svc *payment.Service, nudge func()) {
	paymentService = svc
	relayNudge = nudge
}

// GetPaymentService returns the global reconciliation service, built from
// the shared DB when none was installed.
func GetPaymentService() *payment.Service {
	if paymentService == nil {
		paymentService = payment.NewServiceFromDB(database.GetDB())
	}
	return paymentService
}

// HandlePaymentWebhook receives asynchronous gateway notifications.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	ctx, cancel := context.WithTimeout(context.Background(), paymentRequestTimeout)
	defer cancel()

	res, err := GetPaymentService().Reconcile(ctx, rawBody)
	if err != nil {
		return paymentError(c, err)
	}

	// Outbox rows are committed by now.
	if relayNudge != nil {
		relayNudge()
	}

	switch {
	case res.Duplicate():
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "duplicate": true})
	case res.Stale():
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "stale": true, "status": res.Previous})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
			"message": "Notification processed",
			"status":  res.Status,
		})
	}
}

// HandlePaymentStatus is the polling fallback for clients that missed the
// realtime event.
func HandlePaymentStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), paymentRequestTimeout)
	defer cancel()

	txn, err := GetPaymentService().TransactionStatus(ctx, c.Params("orderId"))
	if err != nil {
		return paymentError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"order_id":   txn.OrderID,
		"status":     txn.Status,
		"item_type":  txn.ItemType,
		"item_title": txn.ItemTitle,
		"amount":     txn.Amount,
	})
}

func paymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Invalid signature"})
	case errors.Is(err, payment.ErrInvalidPayload):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification payload"})
	case errors.Is(err, payment.ErrTransactionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
	default:
		log.Errorf("[PaymentWebhook] %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
