package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"ledgerwallet/internal/models"
	"ledgerwallet/internal/money"
	"ledgerwallet/internal/services/wallet"
	"ledgerwallet/internal/utils/pagination"
	"ledgerwallet/internal/utils/response"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TransactionHistory lists the ledger entries of an account.
type TransactionHistory interface {
	ListTransactions(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error)
	CountTransactions(ctx context.Context, accountID string) (int64, error)
}

type WalletHandler struct {
	wallets  *wallet.Service
	history  TransactionHistory
	validate *validator.Validate
	logger   *zap.Logger
}

func NewWalletHandler(wallets *wallet.Service, history TransactionHistory, logger *zap.Logger) *WalletHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletHandler{
		wallets:  wallets,
		history:  history,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

type operationRequest struct {
	Amount      json.Number    `json:"amount" validate:"required"`
	Meta        map[string]any `json:"meta"`
	Endpoint    string         `json:"endpoint" validate:"omitempty,max=64"`
	SubjectType string         `json:"subject_type" validate:"required_with=SubjectID,omitempty,max=64"`
	SubjectID   string         `json:"subject_id" validate:"required_with=SubjectType,omitempty,max=64"`
}

type transactionView struct {
	ID            string         `json:"id"`
	AccountID     string         `json:"account_id"`
	Type          string         `json:"type"`
	Amount        string         `json:"amount"`
	RawAmount     string         `json:"raw_amount"`
	DecimalPlaces int            `json:"decimal_places"`
	Meta          map[string]any `json:"meta,omitempty"`
	Endpoint      string         `json:"endpoint"`
	SubjectType   *string        `json:"subject_type,omitempty"`
	SubjectID     *string        `json:"subject_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func newTransactionView(tx *models.Transaction) transactionView {
	return transactionView{
		ID:            tx.ID,
		AccountID:     tx.AccountID,
		Type:          tx.Type,
		Amount:        tx.AmountDecimal().StringFixed(int32(tx.DecimalPlaces)),
		RawAmount:     tx.Amount.String(),
		DecimalPlaces: tx.DecimalPlaces,
		Meta:          tx.Meta,
		Endpoint:      tx.Endpoint,
		SubjectType:   tx.SubjectType,
		SubjectID:     tx.SubjectID,
		CreatedAt:     tx.CreatedAt,
	}
}

// GetBalance returns the balance of an account. ?cached=false recomputes it
// from the ledger first.
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	ctx := c.UserContext()
	w, err := h.wallets.Wallet(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	cached := c.QueryBool("cached", true)
	raw, err := w.BalanceRaw(ctx, cached)
	if err != nil {
		return h.fail(c, err)
	}
	cfg := w.Configuration()
	balance := money.NewMoney(w.Math().ToDecimal(raw), cfg.Currency, cfg.Decimals)

	locked, err := w.Locked(ctx)
	if err != nil {
		h.logger.Warn("failed to check wallet lock", zap.String("account_id", cfg.AccountID), zap.Error(err))
	}

	return response.Success(c, "Balance retrieved", fiber.Map{
		"account_id":     cfg.AccountID,
		"balance":        balance,
		"raw_balance":    raw.String(),
		"decimal_places": cfg.Decimals,
		"maximum_credit": cfg.MaximumCredit.StringFixed(int32(cfg.Decimals)),
		"locked":         locked,
	})
}

// ListTransactions returns the ledger of an account, newest first.
func (h *WalletHandler) ListTransactions(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if _, err := h.wallets.Wallet(ctx, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	accountID := strings.TrimSpace(c.Params("id"))

	p := pagination.ParseFromRequest(c, 20)
	txs, err := h.history.ListTransactions(ctx, accountID, p.Limit, p.Offset)
	if err != nil {
		return h.fail(c, err)
	}
	p.Total, err = h.history.CountTransactions(ctx, accountID)
	if err != nil {
		return h.fail(c, err)
	}

	views := make([]transactionView, 0, len(txs))
	for i := range txs {
		views = append(views, newTransactionView(&txs[i]))
	}
	return c.JSON(pagination.Response(p, views))
}

func (h *WalletHandler) Credit(c *fiber.Ctx) error {
	return h.dispatch(c, wallet.Credit)
}

func (h *WalletHandler) Debit(c *fiber.Ctx) error {
	return h.dispatch(c, wallet.Debit)
}

func (h *WalletHandler) dispatch(c *fiber.Ctx, direction wallet.Direction) error {
	var input operationRequest
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	if err := h.validate.Struct(input); err != nil {
		return response.ValidationError(c, err.Error())
	}

	amount, err := money.Parse(input.Amount)
	if err != nil {
		return response.ValidationError(c, "amount must be numeric")
	}

	ctx := c.UserContext()
	w, err := h.wallets.Wallet(ctx, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	opts := []wallet.OperationOption{
		wallet.WithMeta(input.Meta),
		wallet.WithEndpoint(input.Endpoint),
	}
	if input.SubjectType != "" {
		opts = append(opts, wallet.WithSubject(input.SubjectType, input.SubjectID))
	}

	var op *wallet.Operation
	if direction == wallet.Debit {
		op, err = w.Debit(ctx, amount, opts...)
	} else {
		op, err = w.Credit(ctx, amount, opts...)
	}
	if err != nil {
		return h.fail(c, err)
	}

	balance, err := w.BalanceAsMoney(ctx)
	if err != nil {
		return h.fail(c, err)
	}

	return response.Created(c, "Transaction created", fiber.Map{
		"transaction": newTransactionView(op.Transaction()),
		"balance":     balance,
	})
}

// fail maps the wallet error taxonomy onto HTTP statuses.
func (h *WalletHandler) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("wallet request failed", zap.String("path", c.Path()), zap.Error(err))
		return response.ServerError(c, "internal error")
	}
	return response.Error(c, status, err.Error())
}

// StatusFor returns the HTTP status of a wallet error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrInvalidArgument), errors.Is(err, money.ErrNotNumeric):
		return fiber.StatusBadRequest
	case errors.Is(err, wallet.ErrNotEnoughBalance):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, wallet.ErrWalletLocked):
		return fiber.StatusLocked
	case errors.Is(err, wallet.ErrAccountNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
