package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/cycredit/backend/internal/services"
)

type GameHandler struct {
	game       *services.GameService
	statements *services.StatementService
}

func NewGameHandler(game *services.GameService, statements *services.StatementService) *GameHandler {
	return &GameHandler{
		game:       game,
		statements: statements,
	}
}

// GetState returns the account's month and turn counters
// @Summary Game state
// @Description Get the account's current month, remaining turns, and cash
// @Tags game
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /game/state [get]
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	acct, err := h.game.GetState(r.Context(), accountID)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}
	writeJSON(w, acct)
}

// EndMonth closes the current month
// @Summary End the month
// @Description Close the month: an unpaid statement past its due date goes OVERDUE, then the month advances and turns refill
// @Tags game
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{account=models.Account,overdueMarked=int}
// @Failure 404 {object} services.ErrorResponse
// @Router /game/end-month [post]
func (h *GameHandler) EndMonth(w http.ResponseWriter, r *http.Request) {
	accountID, ok := accountFromContext(w, r)
	if !ok {
		return
	}

	// Statement consequences first, then the calendar moves.
	marked, err := h.statements.MarkOverdue(r.Context(), accountID, time.Now())
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}

	acct, err := h.game.AdvanceMonth(r.Context(), accountID)
	if err != nil {
		services.SendBusinessError(w, err)
		return
	}

	if marked > 0 {
		log.Printf("[GAME] Account %d closed month with %d statement(s) overdue", accountID, marked)
	}
	writeJSON(w, map[string]any{
		"account":       acct,
		"overdueMarked": marked,
	})
}
