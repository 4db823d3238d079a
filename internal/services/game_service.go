package services

import (
	"context"
	"log"

	"github.com/cycredit/backend/internal/config"
	"github.com/cycredit/backend/internal/models"
	"github.com/cycredit/backend/internal/repository"
)

// GameService tracks the in-game month and the per-month turn allowance.
// It implements TurnGate for the services whose operations spend a turn.
type GameService struct {
	store repository.Store
	cfg   *config.EconomyConfig
}

func NewGameService(store repository.Store, cfg *config.EconomyConfig) *GameService {
	return &GameService{store: store, cfg: cfg}
}

// ConsumeTurn spends one turn in its own transaction. The row lock plus
// the version check on save keep two concurrent spenders from sharing the
// last turn.
func (g *GameService) ConsumeTurn(ctx context.Context, accountID int64) error {
	return g.store.InTx(ctx, func(r repository.Repository) error {
		acct, err := lockAccountChecked(ctx, r, accountID)
		if err != nil {
			return err
		}
		if acct.TurnsLeft <= 0 {
			return newError(CodeNoTurns, "no turns left in month %d", acct.CurrentMonth)
		}
		acct.TurnsLeft--
		return r.SaveAccount(ctx, acct)
	})
}

// AdvanceMonth moves the account into the next month and refills its
// turns. Statement consequences of the close (overdue marking) are
// orchestrated by the caller before this runs.
func (g *GameService) AdvanceMonth(ctx context.Context, accountID int64) (*models.Account, error) {
	var acct *models.Account
	err := g.store.InTx(ctx, func(r repository.Repository) error {
		locked, err := lockAccountChecked(ctx, r, accountID)
		if err != nil {
			return err
		}
		locked.CurrentMonth++
		locked.TurnsLeft = g.cfg.MaxTurnsPerMonth
		if err := r.SaveAccount(ctx, locked); err != nil {
			return err
		}
		acct = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[GAME] Account %d advanced to month %d", accountID, acct.CurrentMonth)
	return acct, nil
}

// GetState returns the account's month and turn counters.
func (g *GameService) GetState(ctx context.Context, accountID int64) (*models.Account, error) {
	acct, err := g.store.FindAccount(ctx, accountID)
	if err == repository.ErrNotFound {
		return nil, newError(CodeAccountNotFound, "account not found: %d", accountID)
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}
