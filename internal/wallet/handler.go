package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	OwnerID        string `json:"owner_id"`
	IBAN           string `json:"iban"`
	Name           string `json:"name"`
	OpeningBalance string `json:"opening_balance"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type walletResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	IBAN      string    `json:"iban"`
	Name      string    `json:"name"`
	Balance   string    `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

// Create provisions a wallet for an existing user.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var err error
		opening, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid opening balance")
		}
	}

	wallet, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerID:        req.OwnerID,
		IBAN:           req.IBAN,
		Name:           req.Name,
		OpeningBalance: opening,
	})
	if err != nil {
		if errors.Is(err, ErrIBANTaken) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(wallet))
}

// Get returns a wallet by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	wallet, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(wallet))
}

// ListByOwner returns all wallets belonging to a user.
func (h *Handler) ListByOwner(c *fiber.Ctx) error {
	wallets, err := h.service.ListByOwner(c.UserContext(), c.Params("userId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	items := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		items = append(items, toResponse(w))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"wallets": items})
}

// Rename updates the wallet display name.
func (h *Handler) Rename(c *fiber.Ctx) error {
	var req renameRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	wallet, err := h.service.Rename(c.UserContext(), c.Params("walletId"), req.Name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(wallet))
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:        w.ID,
		OwnerID:   w.OwnerID,
		IBAN:      w.IBAN,
		Name:      w.Name,
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt,
	}
}
