package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundledger/internal/adapter/repo"
	"fundledger/internal/domain"
	"fundledger/internal/ledger"
	"fundledger/internal/transfer"
)

func restored(t *testing.T, journal domain.Journal) *ledger.Ledger {
	t.Helper()
	bank := transfer.NewBank(domain.RandomAddress(), zerolog.Nop())
	l := ledger.New(bank, ledger.WithJournal(journal), ledger.WithPayments(bank))
	require.NoError(t, l.Restore(context.Background()))
	return l
}

// stagedJournal serves whatever events the test put in it.
type stagedJournal struct {
	events []domain.Event
}

func (j *stagedJournal) Append(_ context.Context, ev domain.Event) error {
	j.events = append(j.events, ev)
	return nil
}

func (j *stagedJournal) Load(context.Context) ([]domain.Event, error) {
	return append([]domain.Event(nil), j.events...), nil
}

func assertSameFunds(t *testing.T, want, got []domain.Fund) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.ID, g.ID)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Description, g.Description)
		assert.Equal(t, w.MetadataRef, g.MetadataRef)
		assert.Equal(t, w.Owner, g.Owner)
		assert.Equal(t, w.Receiver, g.Receiver)
		assert.Equal(t, w.Status, g.Status)
		assert.True(t, w.TotalDonated.Equal(g.TotalDonated), "fund %d total %s != %s", w.ID, g.TotalDonated, w.TotalDonated)
		assert.True(t, w.CreatedAt.Equal(g.CreatedAt))
		assert.True(t, w.ClosedAt.Equal(g.ClosedAt))
	}
}

func TestRestoreReplaysJournal(t *testing.T) {
	f := newFixture(t, nil)
	a := f.create(t, "a")
	b := f.create(t, "b")
	other := domain.RandomAddress()
	f.donate(t, f.donor, a, 5)
	f.donate(t, other, a, 7)
	f.donate(t, other, b, 1)

	f.bank.OnReceive(f.owner, func(context.Context, domain.Address, decimal.Decimal) error { return errors.New("later") })
	_, err := f.close(b, f.owner)
	require.ErrorIs(t, err, domain.ErrTransferFailed)
	f.bank.OnReceive(f.owner, nil)
	_, err = f.close(a, f.owner)
	require.NoError(t, err)

	got := restored(t, f.journal)

	assertSameFunds(t, f.ledger.ListFunds(), got.ListFunds())
	assert.True(t, got.RewardBalance(f.donor).Equal(units(5)))
	assert.True(t, got.RewardBalance(other).Equal(units(8)))
	assert.Equal(t, f.ledger.Stats(), got.Stats())

	// The restored ledger keeps extending the same chain.
	_, err = got.CloseFund(context.Background(), ledger.Call{Caller: f.owner}, a)
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)
	_, err = got.CloseFund(context.Background(), ledger.Call{Caller: f.owner}, b)
	require.NoError(t, err)
	events, err := f.journal.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, domain.VerifyChain(events))
}

func TestRestoreFinishesInterruptedSweep(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t, "crash")
	f.donate(t, f.donor, id, 3)

	events, err := f.journal.Load(context.Background())
	require.NoError(t, err)
	last := events[len(events)-1]
	closed := domain.Event{
		Seq:      last.Seq + 1,
		Kind:     domain.EventFundClosed,
		FundID:   id,
		Account:  f.owner,
		Receiver: f.owner,
		Amount:   units(3),
		At:       last.At,
	}
	closed.Seal(last.Hash)
	require.NoError(t, f.journal.Append(context.Background(), closed))

	got := restored(t, f.journal)
	fund, err := got.GetFund(id)
	require.NoError(t, err)
	assert.Equal(t, domain.FundClosed, fund.Status)
	_, err = got.CloseFund(context.Background(), ledger.Call{Caller: f.owner}, id)
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)
}

func TestRestoreRejectsTamperedJournal(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t, "tamper")
	f.donate(t, f.donor, id, 3)

	events, err := f.journal.Load(context.Background())
	require.NoError(t, err)
	forged := repo.NewMemoryJournal()
	for _, ev := range events {
		if ev.Kind == domain.EventDonation {
			ev.Amount = units(3000)
		}
		require.NoError(t, forged.Append(context.Background(), ev))
	}

	l := ledger.New(transfer.NewBank(domain.RandomAddress(), zerolog.Nop()), ledger.WithJournal(forged))
	err = l.Restore(context.Background())
	require.ErrorIs(t, err, domain.ErrCorruptJournal)
	assert.Equal(t, 0, l.Stats().Funds)
}

func TestRestoreRejectsInconsistentEvents(t *testing.T) {
	owner := domain.RandomAddress()
	created := domain.Event{Seq: 1, Kind: domain.EventFundCreated, FundID: 0, Account: owner, Receiver: owner}
	created.Seal(domain.GenesisHash)
	// Sealed correctly but swept by someone who is not the owner.
	closed := domain.Event{Seq: 2, Kind: domain.EventFundClosed, FundID: 0, Account: domain.RandomAddress(), Receiver: owner, Amount: decimal.Zero}
	closed.Seal(created.Hash)

	journal := repo.NewMemoryJournal()
	require.NoError(t, journal.Append(context.Background(), created))
	require.NoError(t, journal.Append(context.Background(), closed))

	l := ledger.New(transfer.NewBank(domain.RandomAddress(), zerolog.Nop()), ledger.WithJournal(journal))
	err := l.Restore(context.Background())
	require.ErrorIs(t, err, domain.ErrCorruptJournal)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 0, l.Stats().Funds)
}

func TestFailedRestoreCanBeRetried(t *testing.T) {
	owner := domain.RandomAddress()
	created := domain.Event{Seq: 1, Kind: domain.EventFundCreated, FundID: 0, Account: owner, Receiver: owner, Name: "retry"}
	created.Seal(domain.GenesisHash)
	bad := domain.Event{Seq: 2, Kind: domain.EventDonation, FundID: 5, Account: domain.RandomAddress(), Amount: units(1)}
	bad.Seal(created.Hash)

	journal := &stagedJournal{events: []domain.Event{created, bad}}
	l := ledger.New(transfer.NewBank(domain.RandomAddress(), zerolog.Nop()), ledger.WithJournal(journal))
	require.ErrorIs(t, l.Restore(context.Background()), domain.ErrCorruptJournal)

	stats := l.Stats()
	assert.Equal(t, 0, stats.Funds)
	assert.Equal(t, uint64(0), stats.JournalSeq)
	assert.Equal(t, domain.GenesisHash, stats.JournalHead)

	journal.events = journal.events[:1]
	require.NoError(t, l.Restore(context.Background()))
	fund, err := l.GetFund(0)
	require.NoError(t, err)
	assert.Equal(t, "retry", fund.Name)
	assert.Equal(t, created.Hash, l.Stats().JournalHead)
}

func TestRestartThenSweepPaysReceiver(t *testing.T) {
	f := newFixture(t, nil)
	game := f.create(t, "Game")
	paid := f.create(t, "paid")
	f.donate(t, f.donor, game, 10)
	f.donate(t, f.donor, paid, 4)
	_, err := f.close(paid, f.owner)
	require.NoError(t, err)

	// Same custody account, but every wallet starts empty again.
	bank := transfer.NewBank(f.bank.Custody(), zerolog.Nop())
	l := ledger.New(bank, ledger.WithJournal(f.journal), ledger.WithPayments(bank))
	require.NoError(t, l.Restore(context.Background()))
	assert.True(t, bank.BalanceOf(bank.Custody()).Equal(units(10)), "custody holds only what open funds are owed")

	late := domain.RandomAddress()
	require.NoError(t, bank.Mint(late, units(5)))
	require.NoError(t, l.Donate(context.Background(), ledger.Call{Caller: late, Value: units(5)}, game))
	receipt, err := l.CloseFund(context.Background(), ledger.Call{Caller: f.owner}, game)
	require.NoError(t, err)
	assert.True(t, receipt.Amount.Equal(units(15)))
	assert.True(t, bank.BalanceOf(f.owner).Equal(units(15)))
	assert.True(t, bank.BalanceOf(bank.Custody()).IsZero())

	fund, err := l.GetFund(game)
	require.NoError(t, err)
	assert.False(t, fund.IsOpen())
}

func TestRestoreRefusesCustodySurplus(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t, "x")
	f.donate(t, f.donor, id, 2)

	bank := transfer.NewBank(domain.RandomAddress(), zerolog.Nop())
	require.NoError(t, bank.Mint(bank.Custody(), units(50)))
	l := ledger.New(bank, ledger.WithJournal(f.journal), ledger.WithPayments(bank))
	require.Error(t, l.Restore(context.Background()))
	assert.Equal(t, 0, l.Stats().Funds)
}

func TestRestoreIntoUsedLedgerFails(t *testing.T) {
	f := newFixture(t, nil)
	f.create(t, "x")
	require.Error(t, f.ledger.Restore(context.Background()))
}
