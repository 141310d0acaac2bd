package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

// FundRegistry owns fund records and the id counter. Ids are slice indexes,
// so they are dense and never reused. Like RewardLedger it relies on Ledger
// for serialisation.
type FundRegistry struct {
	funds   []domain.Fund
	rewards *RewardLedger
}

// NewFundRegistry returns an empty registry crediting donations to rewards.
func NewFundRegistry(rewards *RewardLedger) *FundRegistry {
	return &FundRegistry{rewards: rewards}
}

// NextID returns the id the next Create will assign.
func (r *FundRegistry) NextID() uint64 {
	return uint64(len(r.funds))
}

// Len returns the number of registered funds.
func (r *FundRegistry) Len() int {
	return len(r.funds)
}

// Create registers an open fund with a zero total.
func (r *FundRegistry) Create(name string, owner, receiver domain.Address, description, metadataRef string, at time.Time) (uint64, error) {
	if err := owner.Validate(); err != nil {
		return 0, fmt.Errorf("owner: %w", err)
	}
	if err := receiver.Validate(); err != nil {
		return 0, fmt.Errorf("receiver: %w", err)
	}
	id := r.NextID()
	r.funds = append(r.funds, domain.Fund{
		ID:           id,
		Name:         name,
		Description:  description,
		MetadataRef:  metadataRef,
		Owner:        owner,
		Receiver:     receiver,
		TotalDonated: decimal.Zero,
		Status:       domain.FundOpen,
		CreatedAt:    at,
	})
	return id, nil
}

// Get returns a snapshot of the fund.
func (r *FundRegistry) Get(id uint64) (domain.Fund, error) {
	f, err := r.lookup(id)
	if err != nil {
		return domain.Fund{}, err
	}
	return *f, nil
}

// List returns snapshots of every fund in id order.
func (r *FundRegistry) List() []domain.Fund {
	out := make([]domain.Fund, len(r.funds))
	copy(out, r.funds)
	return out
}

// OpenCount returns the number of funds accepting donations.
func (r *FundRegistry) OpenCount() int {
	n := 0
	for i := range r.funds {
		if r.funds[i].IsOpen() {
			n++
		}
	}
	return n
}

// RecordDonation adds amount to the fund total and credits donor.
func (r *FundRegistry) RecordDonation(id uint64, amount decimal.Decimal, donor domain.Address) error {
	commit, err := r.PrepareDonation(id, amount, donor)
	if err != nil {
		return err
	}
	commit()
	return nil
}

// PrepareDonation runs every check RecordDonation would and computes the new
// fund total and donor credit without writing them. The returned commit
// cannot fail, so callers can interpose effects (payment capture, journaling)
// between validation and mutation. Nothing else may touch the registry
// between PrepareDonation and commit.
func (r *FundRegistry) PrepareDonation(id uint64, amount decimal.Decimal, donor domain.Address) (func(), error) {
	if err := donor.Validate(); err != nil {
		return nil, fmt.Errorf("donor: %w", err)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: donation must be positive", domain.ErrInvalidAmount)
	}
	f, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	switch f.Status {
	case domain.FundOpen:
	case domain.FundClosing:
		return nil, fmt.Errorf("fund %d: %w: sweep in progress", id, domain.ErrFundClosed)
	default:
		return nil, fmt.Errorf("fund %d: %w", id, domain.ErrFundClosed)
	}
	total, err := domain.CheckedAdd(f.TotalDonated, amount)
	if err != nil {
		return nil, fmt.Errorf("fund %d total: %w", id, err)
	}
	credit, err := r.rewards.next(donor, amount)
	if err != nil {
		return nil, err
	}
	return func() {
		f.TotalDonated = total
		r.rewards.balances[donor] = credit
	}, nil
}

// BeginClose authorises caller, then freezes the fund in the closing state
// and returns its snapshot. The total cannot change until FinishClose or
// AbortClose.
func (r *FundRegistry) BeginClose(id uint64, caller domain.Address) (domain.Fund, error) {
	f, err := r.lookup(id)
	if err != nil {
		return domain.Fund{}, err
	}
	if caller != f.Owner {
		return domain.Fund{}, fmt.Errorf("fund %d: %w: %s is not the owner", id, domain.ErrUnauthorized, caller)
	}
	switch f.Status {
	case domain.FundOpen:
	case domain.FundClosing:
		return domain.Fund{}, fmt.Errorf("fund %d: %w: sweep in progress", id, domain.ErrAlreadyClosed)
	default:
		return domain.Fund{}, fmt.Errorf("fund %d: %w", id, domain.ErrAlreadyClosed)
	}
	f.Status = domain.FundClosing
	return *f, nil
}

// FinishClose marks a closing fund closed. Closed is terminal.
func (r *FundRegistry) FinishClose(id uint64, at time.Time) error {
	f, err := r.closing(id)
	if err != nil {
		return err
	}
	f.Status = domain.FundClosed
	f.ClosedAt = at
	return nil
}

// AbortClose returns a closing fund to open with its total untouched.
func (r *FundRegistry) AbortClose(id uint64) error {
	f, err := r.closing(id)
	if err != nil {
		return err
	}
	f.Status = domain.FundOpen
	return nil
}

func (r *FundRegistry) closing(id uint64) (*domain.Fund, error) {
	f, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	if f.Status != domain.FundClosing {
		return nil, fmt.Errorf("fund %d is %s, not closing", id, f.Status)
	}
	return f, nil
}

func (r *FundRegistry) lookup(id uint64) (*domain.Fund, error) {
	if id >= uint64(len(r.funds)) {
		return nil, fmt.Errorf("fund %d: %w", id, domain.ErrNotFound)
	}
	return &r.funds[id], nil
}
