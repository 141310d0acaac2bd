package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

// RewardLedger tracks the reward credit of each donor. Credits only grow.
// It is not safe for concurrent use; Ledger serialises access.
type RewardLedger struct {
	balances map[domain.Address]decimal.Decimal
}

// NewRewardLedger returns an empty reward ledger.
func NewRewardLedger() *RewardLedger {
	return &RewardLedger{balances: make(map[domain.Address]decimal.Decimal)}
}

// Credit adds amount to the account's balance, creating the entry on first use.
func (r *RewardLedger) Credit(account domain.Address, amount decimal.Decimal) error {
	next, err := r.next(account, amount)
	if err != nil {
		return err
	}
	r.balances[account] = next
	return nil
}

// BalanceOf returns the account's credit, zero when it never donated.
func (r *RewardLedger) BalanceOf(account domain.Address) decimal.Decimal {
	return r.balances[account]
}

// Accounts returns the number of credited accounts.
func (r *RewardLedger) Accounts() int {
	return len(r.balances)
}

func (r *RewardLedger) next(account domain.Address, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	sum, err := domain.CheckedAdd(r.balances[account], amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit %s: %w", account, err)
	}
	return sum, nil
}
