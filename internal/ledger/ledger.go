// Package ledger implements the crowdfunding ledger: a fund registry, the
// reward credits issued to donors, and the close transition that sweeps a
// fund's donations to its receiver.
//
// Every operation runs under one mutex, so the ledger behaves as a single
// sequential log of state transitions. The only point where the lock is
// released mid-operation is the outbound transfer in CloseFund; the fund is
// frozen in the closing state before that call so a reentrant or concurrent
// caller can neither donate to it nor sweep it a second time.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

// Call carries the caller identity and the value attached to an operation.
type Call struct {
	Caller domain.Address
	Value  decimal.Decimal
}

// CreateFundRequest describes a fund to register. Receiver defaults to Owner.
type CreateFundRequest struct {
	Name        string
	Owner       domain.Address
	Receiver    domain.Address
	Description string
	MetadataRef string
}

// Stats summarises ledger state.
type Stats struct {
	Funds       int
	OpenFunds   int
	Donors      int
	JournalSeq  uint64
	JournalHead string
}

// Ledger is the public operation surface over the registry and reward credits.
type Ledger struct {
	mu       sync.Mutex
	rewards  *RewardLedger
	registry *FundRegistry
	gateway  domain.TransferGateway
	journal  domain.Journal
	payments domain.PaymentCapturer
	observer Observer
	logger   zerolog.Logger
	now      func() time.Time

	seq    uint64
	head   string
	origin string // hash of the first journal event; scopes sweep keys
}

// New returns an empty ledger sweeping closed funds through gateway.
func New(gateway domain.TransferGateway, opts ...Option) *Ledger {
	rewards := NewRewardLedger()
	l := &Ledger{
		rewards:  rewards,
		registry: NewFundRegistry(rewards),
		gateway:  gateway,
		observer: nopObserver{},
		logger:   zerolog.Nop(),
		now:      time.Now,
		head:     domain.GenesisHash,
		origin:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateFund registers a fund and returns its id.
func (l *Ledger) CreateFund(ctx context.Context, call Call, req CreateFundRequest) (uint64, error) {
	if err := call.Caller.Validate(); err != nil {
		return 0, fmt.Errorf("caller: %w", err)
	}
	if err := requireNoValue(call); err != nil {
		return 0, err
	}
	receiver := req.Receiver
	if receiver == "" {
		receiver = req.Owner
	}
	if err := req.Owner.Validate(); err != nil {
		return 0, fmt.Errorf("owner: %w", err)
	}
	if err := receiver.Validate(); err != nil {
		return 0, fmt.Errorf("receiver: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.registry.NextID()
	ev := domain.Event{
		Kind:        domain.EventFundCreated,
		FundID:      id,
		Account:     req.Owner,
		Receiver:    receiver,
		Name:        req.Name,
		Description: req.Description,
		MetadataRef: req.MetadataRef,
		At:          l.timestamp(),
	}
	if err := l.append(ctx, &ev); err != nil {
		return 0, err
	}
	if _, err := l.registry.Create(req.Name, req.Owner, receiver, req.Description, req.MetadataRef, ev.At); err != nil {
		return 0, err
	}

	fund, _ := l.registry.Get(id)
	l.observer.FundCreated(fund)
	l.logger.Info().
		Uint64("fund_id", id).
		Str("owner", req.Owner.String()).
		Str("receiver", receiver.String()).
		Msg("fund created")
	return id, nil
}

// Donate credits the value attached to call to the fund and to the caller's
// reward balance. The value is captured from the caller before the donation
// commits and refunded if it cannot commit.
func (l *Ledger) Donate(ctx context.Context, call Call, fundID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	commit, err := l.registry.PrepareDonation(fundID, call.Value, call.Caller)
	if err != nil {
		return err
	}
	if l.payments != nil {
		if err := l.payments.Capture(ctx, call.Caller, call.Value); err != nil {
			return fmt.Errorf("fund %d: capture payment: %w", fundID, err)
		}
	}
	ev := domain.Event{
		Kind:    domain.EventDonation,
		FundID:  fundID,
		Account: call.Caller,
		Amount:  call.Value,
		At:      l.timestamp(),
	}
	if err := l.append(ctx, &ev); err != nil {
		l.refund(ctx, call.Caller, call.Value)
		return err
	}
	commit()

	l.observer.DonationRecorded(fundID, call.Value)
	l.logger.Debug().
		Uint64("fund_id", fundID).
		Str("donor", call.Caller.String()).
		Str("amount", call.Value.String()).
		Msg("donation recorded")
	return nil
}

// CloseFund sweeps the fund's total to its receiver and closes it for good.
// Only the owner may close. When the transfer fails the fund stays open with
// its total unchanged and the error wraps domain.ErrTransferFailed. Every
// attempt for the same fund carries the same transfer key, so a gateway can
// recognise a retry of a payout it already made.
func (l *Ledger) CloseFund(ctx context.Context, call Call, fundID uint64) (domain.TransferReceipt, error) {
	if err := requireNoValue(call); err != nil {
		return domain.TransferReceipt{}, err
	}

	l.mu.Lock()
	fund, err := l.registry.BeginClose(fundID, call.Caller)
	if err != nil {
		l.mu.Unlock()
		return domain.TransferReceipt{}, err
	}
	closed := domain.Event{
		Kind:     domain.EventFundClosed,
		FundID:   fundID,
		Account:  call.Caller,
		Receiver: fund.Receiver,
		Amount:   fund.TotalDonated,
		At:       l.timestamp(),
	}
	if err := l.append(ctx, &closed); err != nil {
		_ = l.registry.AbortClose(fundID)
		l.mu.Unlock()
		return domain.TransferReceipt{}, err
	}
	l.mu.Unlock()

	sweepCtx := domain.WithTransferKey(ctx, domain.SweepKey(l.origin, fundID))
	receipt, transferErr := l.gateway.Transfer(sweepCtx, fund.Receiver, fund.TotalDonated)

	l.mu.Lock()
	defer l.mu.Unlock()

	if transferErr != nil {
		if !errors.Is(transferErr, domain.ErrTransferFailed) {
			transferErr = fmt.Errorf("%w: %w", domain.ErrTransferFailed, transferErr)
		}
		l.observer.SweepFinished(fundID, fund.TotalDonated, transferErr)
		reverted := domain.Event{
			Kind:   domain.EventCloseReverted,
			FundID: fundID,
			Amount: fund.TotalDonated,
			At:     l.timestamp(),
		}
		if err := l.append(context.WithoutCancel(ctx), &reverted); err != nil {
			// The journal still says closed; keep the fund frozen so memory
			// and journal cannot diverge further.
			l.logger.Error().Err(err).Uint64("fund_id", fundID).Msg("sweep failed and revert was not journaled; fund left closing")
			return domain.TransferReceipt{}, fmt.Errorf("close fund %d: %w (revert not journaled: %w)", fundID, transferErr, err)
		}
		if err := l.registry.AbortClose(fundID); err != nil {
			return domain.TransferReceipt{}, err
		}
		l.logger.Warn().Err(transferErr).Uint64("fund_id", fundID).Msg("sweep failed, fund reopened")
		return domain.TransferReceipt{}, fmt.Errorf("close fund %d: %w", fundID, transferErr)
	}

	if err := l.registry.FinishClose(fundID, closed.At); err != nil {
		return domain.TransferReceipt{}, err
	}
	l.observer.SweepFinished(fundID, fund.TotalDonated, nil)
	l.logger.Info().
		Uint64("fund_id", fundID).
		Str("receiver", fund.Receiver.String()).
		Str("amount", fund.TotalDonated.String()).
		Str("receipt_id", receipt.ID).
		Msg("fund closed")
	return receipt, nil
}

// GetFund returns a snapshot of the fund.
func (l *Ledger) GetFund(fundID uint64) (domain.Fund, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.Get(fundID)
}

// ListFunds returns every fund in id order.
func (l *Ledger) ListFunds() []domain.Fund {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registry.List()
}

// RewardBalance returns the account's reward credit.
func (l *Ledger) RewardBalance(account domain.Address) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rewards.BalanceOf(account)
}

// Stats returns counters describing the ledger.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Funds:       l.registry.Len(),
		OpenFunds:   l.registry.OpenCount(),
		Donors:      l.rewards.Accounts(),
		JournalSeq:  l.seq,
		JournalHead: l.head,
	}
}

// append seals ev onto the journal chain. It is a no-op without a journal.
// Callers hold l.mu.
func (l *Ledger) append(ctx context.Context, ev *domain.Event) error {
	if l.journal == nil {
		return nil
	}
	ev.Seq = l.seq + 1
	ev.Seal(l.head)
	if err := l.journal.Append(ctx, *ev); err != nil {
		return fmt.Errorf("append %s: %w: %w", ev.Kind, domain.ErrJournal, err)
	}
	if ev.Seq == 1 {
		l.origin = ev.Hash
	}
	l.seq = ev.Seq
	l.head = ev.Hash
	return nil
}

func (l *Ledger) refund(ctx context.Context, to domain.Address, amount decimal.Decimal) {
	if l.payments == nil {
		return
	}
	if err := l.payments.Refund(context.WithoutCancel(ctx), to, amount); err != nil {
		l.logger.Error().Err(err).Str("donor", to.String()).Str("amount", amount.String()).Msg("refund failed")
	}
}

func (l *Ledger) timestamp() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

func requireNoValue(call Call) error {
	if !call.Value.IsZero() {
		return fmt.Errorf("%w: operation does not accept value", domain.ErrInvalidAmount)
	}
	return nil
}
