package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/campuscircle/campuscircle/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Pong{Ping: "pong"})
}

// GetPaymentStatus returns the stored status of a checkout transaction.
// The controller reads orderId from the route params.
func (s *APIServer) GetPaymentStatus(c *fiber.Ctx, orderID string) error {
	return controllers.HandlePaymentStatus(c)
}
