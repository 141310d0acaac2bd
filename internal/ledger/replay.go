package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

// Restore rebuilds an empty ledger from its journal. The chain is verified
// and every event applied to a scratch registry; the ledger only takes the
// result once all of it applied, so a failed restore can be retried.
//
// A fund whose last event is fund_closed is restored as closed even if the
// process stopped mid-sweep: it must not be swept twice.
//
// When the payment capturer keeps captured value in memory it is refilled
// with the total still held for open funds.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.journal == nil {
		return nil
	}
	events, err := l.journal.Load(ctx)
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	if err := domain.VerifyChain(events); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.registry.Len() > 0 || l.seq > 0 {
		return errors.New("ledger: restore into a non-empty ledger")
	}
	if len(events) == 0 {
		return nil
	}

	rewards := NewRewardLedger()
	registry := NewFundRegistry(rewards)
	closing := make(map[uint64]time.Time)
	for _, ev := range events {
		if err := applyEvent(registry, ev, closing); err != nil {
			return fmt.Errorf("%w: event %d (%s): %w", domain.ErrCorruptJournal, ev.Seq, ev.Kind, err)
		}
	}
	for id, at := range closing {
		if err := registry.FinishClose(id, at); err != nil {
			return err
		}
	}

	held, err := heldValue(registry)
	if err != nil {
		return err
	}
	if custody, ok := l.payments.(domain.CustodyRestorer); ok {
		if err := custody.RestoreCustody(ctx, held); err != nil {
			return fmt.Errorf("restore custody: %w", err)
		}
	}

	last := events[len(events)-1]
	l.rewards = rewards
	l.registry = registry
	l.seq = last.Seq
	l.head = last.Hash
	l.origin = events[0].Hash

	l.logger.Info().
		Int("events", len(events)).
		Int("funds", registry.Len()).
		Str("held", held.String()).
		Str("head", l.head).
		Msg("ledger restored from journal")
	return nil
}

func applyEvent(registry *FundRegistry, ev domain.Event, closing map[uint64]time.Time) error {
	switch ev.Kind {
	case domain.EventFundCreated:
		if ev.FundID != registry.NextID() {
			return fmt.Errorf("fund id %d out of order, expected %d", ev.FundID, registry.NextID())
		}
		_, err := registry.Create(ev.Name, ev.Account, ev.Receiver, ev.Description, ev.MetadataRef, ev.At)
		return err
	case domain.EventDonation:
		return registry.RecordDonation(ev.FundID, ev.Amount, ev.Account)
	case domain.EventFundClosed:
		fund, err := registry.BeginClose(ev.FundID, ev.Account)
		if err != nil {
			return err
		}
		if !fund.TotalDonated.Equal(ev.Amount) {
			return fmt.Errorf("swept %s but fund total is %s", ev.Amount.String(), fund.TotalDonated.String())
		}
		closing[ev.FundID] = ev.At
		return nil
	case domain.EventCloseReverted:
		if err := registry.AbortClose(ev.FundID); err != nil {
			return err
		}
		delete(closing, ev.FundID)
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

// heldValue sums the totals of funds that have not been swept.
func heldValue(registry *FundRegistry) (decimal.Decimal, error) {
	held := decimal.Zero
	for _, f := range registry.List() {
		if f.Status == domain.FundClosed {
			continue
		}
		sum, err := domain.CheckedAdd(held, f.TotalDonated)
		if err != nil {
			return decimal.Zero, err
		}
		held = sum
	}
	return held, nil
}
