package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/walletgrid/walletgrid/internal/user"
	"github.com/walletgrid/walletgrid/internal/wallet"
)

// RegisterUserRoutes wires user endpoints.
func RegisterUserRoutes(r fiber.Router, h *user.Handler, wallets *wallet.Handler) {
	r.Post("/users", h.Register)
	r.Get("/users/:userId", h.Get)
	r.Get("/users/:userId/wallets", wallets.ListByOwner)
}
