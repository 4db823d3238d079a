package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cycredit/backend/internal/services"
)

type RewardHandler struct {
	rewards   *services.RewardService
	validator *services.ValidationHelper
}

func NewRewardHandler(rewards *services.RewardService) *RewardHandler {
	return &RewardHandler{
		rewards:   rewards,
		validator: services.NewValidationHelper(),
	}
}

type grantRequest struct {
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Income bool            `json:"income"`
}

// Grant credits a reward or income
// @Summary Grant a reward
// @Description Credit a reward (or income when income is true) to the account's cash and ledger
// @Tags rewards
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body grantRequest true "Grant request"
// @Success 200 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Router /rewards/grant [post]
func (h *RewardHandler) Grant(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	var req grantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var (
		entry any
		err   error
	)
	if req.Income {
		entry, err = h.rewards.GrantIncome(r.Context(), accountID, req.Source, req.Amount)
	} else {
		entry, err = h.rewards.GrantReward(r.Context(), accountID, req.Source, req.Amount)
	}
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, entry)
}
