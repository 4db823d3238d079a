package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cycredit/backend/internal/models"
)

// RewardService grants cash-crediting ledger entries. The actual cash
// movement and ledger write live in BillingService; this layer only fixes
// the entry type and labeling.
type RewardService struct {
	billing *BillingService
}

func NewRewardService(billing *BillingService) *RewardService {
	return &RewardService{billing: billing}
}

// GrantReward credits a reward to the account, identified by its source
// (quest, achievement, promotion).
func (s *RewardService) GrantReward(ctx context.Context, accountID int64, source string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	if source == "" {
		source = "Reward"
	}
	return s.billing.CreateTransaction(ctx, accountID, source, amount, "Reward", models.EntryReward)
}

// GrantIncome credits recurring income (salary, interest on savings).
func (s *RewardService) GrantIncome(ctx context.Context, accountID int64, source string, amount decimal.Decimal) (*models.LedgerEntry, error) {
	if source == "" {
		source = "Income"
	}
	return s.billing.CreateTransaction(ctx, accountID, source, amount, "Income", models.EntryIncome)
}
