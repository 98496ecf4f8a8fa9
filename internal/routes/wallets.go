package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/walletgrid/walletgrid/internal/transfer"
	"github.com/walletgrid/walletgrid/internal/wallet"
)

// RegisterWalletRoutes wires wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, transfers *transfer.Handler) {
	r.Post("/wallets", h.Create)
	r.Get("/wallets/:walletId", h.Get)
	r.Patch("/wallets/:walletId/name", h.Rename)
	r.Get("/wallets/:walletId/transactions", transfers.History)
}
