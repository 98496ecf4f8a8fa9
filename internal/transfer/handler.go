package transfer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/walletgrid/walletgrid/internal/transaction"
	"github.com/walletgrid/walletgrid/internal/wallet"
)

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	TransactionID string `json:"transaction_id"`
	FromWalletID  string `json:"from_wallet_id"`
	FromAccount   string `json:"from_account"`
	ToWalletID    string `json:"to_wallet_id"`
	ToAccount     string `json:"to_account"`
	Amount        string `json:"amount"`
	Description   string `json:"description"`
}

type resultResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Create processes a wallet-to-wallet transfer request.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}

	result, err := h.service.CreateTransaction(c.UserContext(), Request{
		TransactionID: req.TransactionID,
		FromWalletID:  req.FromWalletID,
		FromAccount:   req.FromAccount,
		ToWalletID:    req.ToWalletID,
		ToAccount:     req.ToAccount,
		Amount:        amount,
		Description:   req.Description,
	})
	if err != nil {
		if errors.Is(err, ErrTransferInFlight) {
			return fiber.NewError(http.StatusConflict, "duplicate transaction currently processing")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(resultResponse{
		Success:       result.Success,
		Message:       result.Message,
		TransactionID: result.TransactionID,
	})
}

type historyItem struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	FromWalletID  string    `json:"from_wallet_id"`
	ToWalletID    string    `json:"to_wallet_id"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
}

// History lists transactions touching a wallet.
func (h *Handler) History(c *fiber.Ctx) error {
	walletID := c.Params("walletId")
	transactions, err := h.service.History(c.UserContext(), walletID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	items := make([]historyItem, 0, len(transactions))
	for _, tx := range transactions {
		items = append(items, toHistoryItem(tx))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": items})
}

func toHistoryItem(tx transaction.Transaction) historyItem {
	return historyItem{
		ID:            tx.ID,
		TransactionID: tx.TransactionID,
		FromWalletID:  tx.FromWalletID,
		ToWalletID:    tx.ToWalletID,
		Amount:        tx.Amount.String(),
		Description:   tx.Description,
		Timestamp:     tx.Timestamp,
		Status:        string(tx.Status),
	}
}
