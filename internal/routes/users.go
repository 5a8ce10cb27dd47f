package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kudipay/kudi_pay/internal/user"
)

// RegisterUserRoutes wires registration and login endpoints.
func RegisterUserRoutes(r fiber.Router, h *user.Handler, loginRateLimit fiber.Handler) {
	r.Post("/users/register", h.Register)
	r.Post("/users/login", loginRateLimit, h.Login)
}
