package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

func TestRegistryCloseStateMachine(t *testing.T) {
	rewards := NewRewardLedger()
	reg := NewFundRegistry(rewards)
	owner := domain.RandomAddress()
	id, err := reg.Create("f", owner, owner, "", "", time.Time{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := reg.RecordDonation(id, decimal.NewFromInt(2), owner); err != nil {
		t.Fatalf("donate: %v", err)
	}

	if err := reg.FinishClose(id, time.Now()); err == nil {
		t.Fatalf("FinishClose on open fund should fail")
	}
	if _, err := reg.BeginClose(id, owner); err != nil {
		t.Fatalf("begin close: %v", err)
	}
	if err := reg.RecordDonation(id, decimal.NewFromInt(1), owner); !errors.Is(err, domain.ErrFundClosed) {
		t.Fatalf("donation during close: got %v", err)
	}
	if err := reg.AbortClose(id); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if reg.OpenCount() != 1 {
		t.Fatalf("open count = %d, want 1", reg.OpenCount())
	}
	if _, err := reg.BeginClose(id, owner); err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if err := reg.FinishClose(id, time.Now()); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := reg.AbortClose(id); err == nil {
		t.Fatalf("AbortClose on closed fund should fail")
	}
	f, _ := reg.Get(id)
	if f.Status != domain.FundClosed || !f.TotalDonated.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unexpected fund: %+v", f)
	}
	if !rewards.BalanceOf(owner).Equal(decimal.NewFromInt(2)) {
		t.Fatalf("reward = %s, want 2", rewards.BalanceOf(owner))
	}
}

func TestPrepareDonationWritesNothingUntilCommit(t *testing.T) {
	rewards := NewRewardLedger()
	reg := NewFundRegistry(rewards)
	owner, donor := domain.RandomAddress(), domain.RandomAddress()
	id, _ := reg.Create("f", owner, owner, "", "", time.Time{})

	commit, err := reg.PrepareDonation(id, decimal.NewFromInt(5), donor)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if f, _ := reg.Get(id); !f.TotalDonated.IsZero() {
		t.Fatalf("total moved before commit: %s", f.TotalDonated)
	}
	if rewards.Accounts() != 0 {
		t.Fatalf("credit written before commit")
	}
	commit()
	if f, _ := reg.Get(id); !f.TotalDonated.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("total = %s, want 5", f.TotalDonated)
	}
	if !rewards.BalanceOf(donor).Equal(decimal.NewFromInt(5)) {
		t.Fatalf("credit = %s, want 5", rewards.BalanceOf(donor))
	}
}

func TestRewardLedgerCredit(t *testing.T) {
	r := NewRewardLedger()
	acct := domain.RandomAddress()
	tests := []struct {
		name   string
		amount decimal.Decimal
		want   error
		total  int64
	}{
		{"first credit", decimal.NewFromInt(3), nil, 3},
		{"zero is allowed", decimal.Zero, nil, 3},
		{"accumulates", decimal.NewFromInt(4), nil, 7},
		{"negative", decimal.NewFromInt(-1), domain.ErrInvalidAmount, 7},
		{"overflow", domain.MaxAmount, domain.ErrOverflow, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Credit(acct, tt.amount)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Credit() error = %v, want %v", err, tt.want)
			}
			if got := r.BalanceOf(acct); !got.Equal(decimal.NewFromInt(tt.total)) {
				t.Fatalf("balance = %s, want %d", got, tt.total)
			}
		})
	}
}
