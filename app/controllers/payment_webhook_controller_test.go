package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/campuscircle/campuscircle/app/models"
	"github.com/campuscircle/campuscircle/internal/pkg/database"
	"github.com/campuscircle/campuscircle/internal/pkg/database/dbtest"
	"github.com/campuscircle/campuscircle/internal/pkg/payment"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookServerKey = "SB-Mid-server-test"

func webhookBody(t *testing.T, orderID, status, signature string) []byte {
	t.Helper()
	if signature == "" {
		signature = payment.ComputeSignature(orderID, "200", "100000.00", webhookServerKey)
	}
	raw, err := json.Marshal(map[string]interface{}{
		"order_id":           orderID,
		"transaction_status": status,
		"fraud_status":       "accept",
		"status_code":        "200",
		"gross_amount":       "100000.00",
		"signature_key":      signature,
		"transaction_id":     "gw-1",
		"payment_type":       "qris",
	})
	require.NoError(t, err)
	return raw
}

func setupPaymentApp(t *testing.T) (*fiber.App, *gorm.DB, *int) {
	t.Helper()
	db := dbtest.Open(t)

	seller := uint(2)
	item := uint(10)
	require.NoError(t, db.Create(&models.User{ID: 1, Name: "Bima", Email: "bima@campus.test"}).Error)
	require.NoError(t, db.Create(&models.User{ID: seller, Name: "Sari", Email: "sari@campus.test"}).Error)
	require.NoError(t, db.Create(&models.MarketplaceItem{ID: item, SellerID: seller, Title: "Desk lamp", Price: 100000, Status: models.ItemStatusAvailable}).Error)
	require.NoError(t, db.Create(&models.Transaction{
		OrderID: "ORDER-1", Amount: 100000, Status: models.TransactionStatusPending,
		ItemType: models.ItemTypeMarketplace, ItemID: &item,
		BuyerID: 1, SellerID: &seller, ItemTitle: "Desk lamp",
	}).Error)

	nudges := 0
	svc := payment.NewService(payment.NewRepository(db), payment.Options{
		ServerKey:        webhookServerKey,
		SandboxRecipient: "sandbox@campus.test",
	})
	InitializePaymentController(svc, func() { nudges++ })
	t.Cleanup(func() { InitializePaymentController(nil, nil) })

	app := fiber.New()
	app.Post("/webhooks/payment", HandlePaymentWebhook)
	app.Get("/api/v1/payments/:orderId", HandlePaymentStatus)
	return app, db, &nudges
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body []byte) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestHandlePaymentWebhook_Settlement(t *testing.T) {
	app, db, nudges := setupPaymentApp(t)

	code, body := doRequest(t, app, fiber.MethodPost, "/webhooks/payment", webhookBody(t, "ORDER-1", "settlement", ""))
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "COMPLETED", body["status"])
	assert.Equal(t, 1, *nudges)

	var item models.MarketplaceItem
	require.NoError(t, db.First(&item, 10).Error)
	assert.Equal(t, models.ItemStatusSold, item.Status)

	var stats models.UserStats
	require.NoError(t, db.Where("user_id = ?", 2).First(&stats).Error)
	assert.Equal(t, int64(95000), stats.TotalEarnings)

	code, body = doRequest(t, app, fiber.MethodPost, "/webhooks/payment", webhookBody(t, "ORDER-1", "settlement", ""))
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["duplicate"])

	code, body = doRequest(t, app, fiber.MethodPost, "/webhooks/payment", webhookBody(t, "ORDER-1", "cancel", ""))
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["stale"])
}

func TestHandlePaymentWebhook_Errors(t *testing.T) {
	app, db, nudges := setupPaymentApp(t)

	tests := []struct {
		name string
		body []byte
		code int
	}{
		{"bad signature", webhookBody(t, "ORDER-1", "settlement", "deadbeef"), fiber.StatusForbidden},
		{"malformed json", []byte(`{"order_id":`), fiber.StatusBadRequest},
		{"missing status", func() []byte {
			raw, _ := json.Marshal(map[string]string{
				"order_id":      "ORDER-1",
				"status_code":   "200",
				"gross_amount":  "100000.00",
				"signature_key": payment.ComputeSignature("ORDER-1", "200", "100000.00", webhookServerKey),
			})
			return raw
		}(), fiber.StatusBadRequest},
		{"unknown order", webhookBody(t, "ORDER-404", "settlement", ""), fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doRequest(t, app, fiber.MethodPost, "/webhooks/payment", tt.body)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, body["error"])
		})
	}

	assert.Equal(t, 0, *nudges)
	var txn models.Transaction
	require.NoError(t, db.Where("order_id = ?", "ORDER-1").First(&txn).Error)
	assert.Equal(t, models.TransactionStatusPending, txn.Status)

	var deliveries int64
	require.NoError(t, db.Model(&models.PaymentNotification{}).Count(&deliveries).Error)
	assert.Zero(t, deliveries)
}

func TestHandlePaymentStatus(t *testing.T) {
	app, _, _ := setupPaymentApp(t)

	code, body := doRequest(t, app, fiber.MethodGet, "/api/v1/payments/ORDER-1", nil)
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ORDER-1", body["order_id"])
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, "marketplace", body["item_type"])
	assert.Equal(t, float64(100000), body["amount"])

	code, _ = doRequest(t, app, fiber.MethodGet, "/api/v1/payments/ORDER-404", nil)
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestClientIP(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(ClientIP(c)) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "203.0.113.9"}, "203.0.113.9"},
		{"forwarded list", map[string]string{"X-Forwarded-For": "198.51.100.4, 10.0.0.1"}, "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-IP": "2001:db8::1"}, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			raw, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.want, string(raw))
		})
	}
}

func TestGetPaymentService_FallsBackToSharedDB(t *testing.T) {
	prev := database.GetDB()
	database.SetDB(dbtest.Open(t))
	InitializePaymentController(nil, nil)
	t.Cleanup(func() {
		database.SetDB(prev)
		InitializePaymentController(nil, nil)
	})

	svc := GetPaymentService()
	require.NotNil(t, svc)
	assert.Same(t, svc, GetPaymentService())

	_, err := svc.TransactionStatus(context.Background(), "ORDER-404")
	assert.ErrorIs(t, err, payment.ErrTransactionNotFound)
}
