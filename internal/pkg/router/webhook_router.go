package router

import (
	"github.com/campuscircle/campuscircle/app/controllers"
	"github.com/campuscircle/campuscircle/internal/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
)

// WebhookRouter serves inbound gateway callbacks. They carry no session or
// CSRF token; authenticity comes from the payload signature.
type WebhookRouter struct {
	storage fiber.Storage
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	webhooks := app.Group("/webhooks")
	webhooks.Post("/payment",
		ratelimit.New(ratelimit.WebhookConfig(controllers.ClientIP, h.storage)),
		controllers.HandlePaymentWebhook,
	)
}

// NewWebhookRouter keeps limiter counters in Redis so every instance shares
// one budget per client.
func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{storage: ratelimit.NewStorage()}
}
