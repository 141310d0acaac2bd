package ledger

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

// Observer is notified after ledger state changes commit.
type Observer interface {
	FundCreated(f domain.Fund)
	DonationRecorded(fundID uint64, amount decimal.Decimal)
	SweepFinished(fundID uint64, amount decimal.Decimal, err error)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJournal records every committed mutation in j.
func WithJournal(j domain.Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithPayments captures the value attached to donations through p. Without
// it the attached value is taken as already settled.
func WithPayments(p domain.PaymentCapturer) Option {
	return func(l *Ledger) { l.payments = p }
}

// WithObserver registers o for commit notifications.
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

// WithLogger sets the ledger's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

type nopObserver struct{}

func (nopObserver) FundCreated(domain.Fund)                      {}
func (nopObserver) DonationRecorded(uint64, decimal.Decimal)     {}
func (nopObserver) SweepFinished(uint64, decimal.Decimal, error) {}
