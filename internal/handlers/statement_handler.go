package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/cycredit/backend/internal/services"
)

type StatementHandler struct {
	statements *services.StatementService
	validator  *services.ValidationHelper
}

func NewStatementHandler(statements *services.StatementService) *StatementHandler {
	return &StatementHandler{
		statements: statements,
		validator:  services.NewValidationHelper(),
	}
}

// GetCurrent resolves the active statement
// @Summary Current statement
// @Description Get the active statement, generating one from unbilled activity when needed. Returns 204 when there is nothing to bill.
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Statement
// @Success 204 "No active statement"
// @Failure 401 {object} services.ErrorResponse
// @Router /statements/current [get]
func (h *StatementHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	stmt, err := h.statements.GetCurrentStatement(r.Context(), accountID, time.Now())
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	if stmt == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, stmt)
}

// History lists past statements
// @Summary Statement history
// @Description List the account's statements, newest month first
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Statement
// @Failure 401 {object} services.ErrorResponse
// @Router /statements/history [get]
func (h *StatementHandler) History(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	statements, err := h.statements.History(r.Context(), accountID)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, statements)
}

type payRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// Pay applies a payment to a statement
// @Summary Pay a statement
// @Description Pay part or all of a statement's total due from cash. Spends one turn.
// @Tags statements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param statementId path int true "Statement ID"
// @Param request body payRequest true "Payment request"
// @Success 200 {object} services.PaymentResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse "Insufficient funds or payment too high"
// @Failure 409 {object} services.ErrorResponse "Already paid or no turns left"
// @Router /statements/{statementId}/pay [post]
func (h *StatementHandler) Pay(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	statementID, err := pathID(r, "statementId")
	if err != nil {
		services.SendErrorResponse(w, "Invalid statement ID", http.StatusBadRequest, nil)
		return
	}

	var req payRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.statements.PayStatement(r.Context(), accountID, statementID, req.Amount)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, result)
}

// PayQR renders a QR code for paying a statement
// @Summary Statement payment QR code
// @Description Render a PNG QR code encoding the statement's payment reference and amount due
// @Tags statements
// @Produce png
// @Security BearerAuth
// @Param statementId path int true "Statement ID"
// @Success 200 {file} binary "PNG image"
// @Failure 404 {object} services.ErrorResponse
// @Router /statements/{statementId}/qr [get]
func (h *StatementHandler) PayQR(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	statementID, err := pathID(r, "statementId")
	if err != nil {
		services.SendErrorResponse(w, "Invalid statement ID", http.StatusBadRequest, nil)
		return
	}

	stmt, err := h.statements.GetStatement(r.Context(), accountID, statementID)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}

	payload := fmt.Sprintf("cycredit://pay?statement=%d&amount=%s", stmt.ID, stmt.TotalDue)
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		services.SendErrorResponse(w, "Failed to generate QR code", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
