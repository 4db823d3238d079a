package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cycredit/backend/internal/middleware"
	"github.com/cycredit/backend/internal/models"
	"github.com/cycredit/backend/internal/services"
)

type BillingHandler struct {
	billing   *services.BillingService
	validator *services.ValidationHelper
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{
		billing:   billing,
		validator: services.NewValidationHelper(),
	}
}

func accountFromContext(w http.ResponseWriter, r *http.Request) (int64, bool) {
	accountID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return 0, false
	}
	return accountID, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// GetSummary returns the billing overview
// @Summary Billing summary
// @Description Get the account's balance, unbilled monthly spend, and credit limit
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.Summary
// @Failure 401 {object} services.ErrorResponse
// @Router /billing/summary [get]
func (h *BillingHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	summary, err := h.billing.GetSummary(r.Context(), accountID)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, summary)
}

// ListTransactions returns the account's ledger, newest first
// @Summary List transactions
// @Description List all ledger entries for the account, newest first
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.LedgerEntry
// @Failure 401 {object} services.ErrorResponse
// @Router /billing/transactions [get]
func (h *BillingHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	entries, err := h.billing.ListTransactions(r.Context(), accountID)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, entries)
}

type chargeRequest struct {
	Merchant string          `json:"merchant" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Category string          `json:"category"`
	Nonce    string          `json:"nonce"`
}

// Charge applies a purchase to the account
// @Summary Apply a charge
// @Description Charge a purchase against cash or credit. Supplying a nonce makes the charge idempotent.
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body chargeRequest true "Charge request"
// @Success 200 {object} object{cash=number}
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse "Credit limit exceeded"
// @Router /billing/charge [post]
func (h *BillingHandler) Charge(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	var req chargeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	cash, err := h.billing.ApplyCharge(r.Context(), accountID, req.Merchant, req.Amount, req.Category, time.Now(), req.Nonce)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, map[string]any{"cash": cash})
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// Payment records a standalone cash payment
// @Summary Record a payment
// @Description Record a cash payment against the outstanding balance. Payments draw from cash only and may not be financed by credit.
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body paymentRequest true "Payment request"
// @Success 200 {object} map[string]string
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse "Insufficient funds"
// @Router /billing/payment [post]
func (h *BillingHandler) Payment(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	var req paymentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.billing.ApplyPayment(r.Context(), accountID, req.Amount, time.Now()); err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Payment recorded"})
}

type transactionRequest struct {
	Merchant string          `json:"merchant" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Category string          `json:"category"`
	Type     string          `json:"type" validate:"required"`
}

// CreateTransaction inserts a typed ledger entry
// @Summary Create a transaction
// @Description Record a typed ledger entry. INCOME and REWARD entries also credit the account's cash.
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body transactionRequest true "Transaction request"
// @Success 200 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Router /billing/transactions [post]
func (h *BillingHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := h.billing.CreateTransaction(r.Context(), accountID, req.Merchant, req.Amount, req.Category, models.EntryType(req.Type))
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, entry)
}

type updateTransactionRequest struct {
	Merchant string          `json:"merchant" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Category string          `json:"category"`
}

// UpdateTransaction edits a ledger entry
// @Summary Update a transaction
// @Description Administrative edit of a ledger entry's merchant, amount, and category
// @Tags billing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param txId path int true "Transaction ID"
// @Param request body updateTransactionRequest true "Update request"
// @Success 200 {object} models.LedgerEntry
// @Failure 404 {object} services.ErrorResponse
// @Router /billing/transactions/{txId} [put]
func (h *BillingHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if _, ok := accountFromContext(w, r); !ok {
		return
	}

	id, err := pathID(r, "txId")
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction ID", http.StatusBadRequest, nil)
		return
	}

	var req updateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := h.billing.UpdateTransaction(r.Context(), id, req.Merchant, req.Amount, req.Category)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, entry)
}

// DeleteTransaction removes a ledger entry
// @Summary Delete a transaction
// @Description Administrative removal of a ledger entry
// @Tags billing
// @Produce json
// @Security BearerAuth
// @Param txId path int true "Transaction ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Router /billing/transactions/{txId} [delete]
func (h *BillingHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if _, ok := accountFromContext(w, r); !ok {
		return
	}

	id, err := pathID(r, "txId")
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction ID", http.StatusBadRequest, nil)
		return
	}

	if err := h.billing.DeleteTransaction(r.Context(), id); err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, map[string]string{"message": "Transaction deleted"})
}
