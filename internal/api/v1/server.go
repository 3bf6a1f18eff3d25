package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// Pong is the ping response.
type Pong struct {
	Ping string `json:"ping"`
}

// ServerInterface lists the operations in public/docs/v1/openapi.yml.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /payments/{orderId})
	GetPaymentStatus(c *fiber.Ctx, orderID string) error
}

// ServerInterfaceWrapper converts path parameters for ServerInterface.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) GetPing(c *fiber.Ctx) error {
	return w.Handler.GetPing(c)
}

func (w *ServerInterfaceWrapper) GetPaymentStatus(c *fiber.Ctx) error {
	orderID := c.Params("orderId")
	if orderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "orderId missing"})
	}
	return w.Handler.GetPaymentStatus(c, orderID)
}

// RegisterHandlers mounts every operation on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	wrapper := ServerInterfaceWrapper{Handler: si}

	router.Get("/ping", wrapper.GetPing)
	router.Get("/payments/:orderId", wrapper.GetPaymentStatus)
}
