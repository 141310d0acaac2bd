// Package transfer holds the ledger's value transfer gateways: an in-process
// wallet book for single-node deployments and tests, and an HTTP client for
// an external payout service.
package transfer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

// ReceiveHook runs when an account receives a transfer. A non-nil error
// rejects the transfer. Hooks run without the bank lock held and may call
// back into the bank or the ledger.
type ReceiveHook func(ctx context.Context, from domain.Address, amount decimal.Decimal) error

// Bank is an in-memory wallet book with one custody account holding the
// value captured from donors until it is swept to receivers.
type Bank struct {
	mu       sync.Mutex
	custody  domain.Address
	balances map[domain.Address]decimal.Decimal
	hooks    map[domain.Address]ReceiveHook
	settled  map[string]domain.TransferReceipt
	logger   zerolog.Logger
	now      func() time.Time
}

// NewBank returns an empty bank whose custody account is custody.
func NewBank(custody domain.Address, logger zerolog.Logger) *Bank {
	return &Bank{
		custody:  custody,
		balances: make(map[domain.Address]decimal.Decimal),
		hooks:    make(map[domain.Address]ReceiveHook),
		settled:  make(map[string]domain.TransferReceipt),
		logger:   logger,
		now:      time.Now,
	}
}

// Custody returns the custody account.
func (b *Bank) Custody() domain.Address {
	return b.custody
}

// Mint credits amount to an account out of thin air. It backs the
// development faucet.
func (b *Bank) Mint(to domain.Address, amount decimal.Decimal) error {
	if err := to.Validate(); err != nil {
		return err
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.credit(to, amount); err != nil {
		return err
	}
	b.logger.Debug().Str("to", to.String()).Str("amount", amount.String()).Msg("minted")
	return nil
}

// BalanceOf returns the account's wallet balance.
func (b *Bank) BalanceOf(addr domain.Address) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[addr]
}

// TotalSupply returns the sum of every wallet balance.
func (b *Bank) TotalSupply() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := decimal.Zero
	for _, v := range b.balances {
		total = total.Add(v)
	}
	return total
}

// OnReceive registers hook for transfers into addr. A nil hook removes it.
func (b *Bank) OnReceive(addr domain.Address, hook ReceiveHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if hook == nil {
		delete(b.hooks, addr)
		return
	}
	b.hooks[addr] = hook
}

// Capture moves amount from the donor's wallet into custody.
func (b *Bank) Capture(_ context.Context, from domain.Address, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.move(from, b.custody, amount); err != nil {
		return fmt.Errorf("capture from %s: %w", from, err)
	}
	return nil
}

// Refund returns captured value from custody to the donor.
func (b *Bank) Refund(_ context.Context, to domain.Address, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.move(b.custody, to, amount); err != nil {
		return fmt.Errorf("refund to %s: %w", to, err)
	}
	return nil
}

// RestoreCustody tops custody up to held. Wallets live only in memory, so
// after a restart the value captured for open funds is re-issued into
// custody from the journal's totals.
func (b *Bank) RestoreCustody(_ context.Context, held decimal.Decimal) error {
	if err := domain.ValidateAmount(held); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	current := b.balances[b.custody]
	if current.GreaterThan(held) {
		return fmt.Errorf("custody %s holds %s, more than the %s owed to open funds", b.custody, current.String(), held.String())
	}
	b.balances[b.custody] = held
	b.logger.Info().Str("custody", b.custody.String()).Str("amount", held.Sub(current).String()).Msg("custody restored")
	return nil
}

// Transfer sweeps amount from custody to the receiver. The value is reserved
// before the receiver's hook runs and handed back to custody if the hook
// rejects it. A transfer key already settled returns its original receipt
// without moving value again.
func (b *Bank) Transfer(ctx context.Context, to domain.Address, amount decimal.Decimal) (domain.TransferReceipt, error) {
	key := domain.TransferKey(ctx)
	if key == "" {
		key = uuid.NewString()
	}

	b.mu.Lock()
	if prev, ok := b.settled[key]; ok {
		b.mu.Unlock()
		if prev.To != to || !prev.Amount.Equal(amount) {
			return domain.TransferReceipt{}, fmt.Errorf("%w: key %s already settled %s to %s", domain.ErrTransferFailed, key, prev.Amount.String(), prev.To)
		}
		return prev, nil
	}
	left, err := domain.CheckedSub(b.balances[b.custody], amount)
	if err != nil {
		b.mu.Unlock()
		return domain.TransferReceipt{}, fmt.Errorf("%w: %w", domain.ErrTransferFailed, err)
	}
	b.balances[b.custody] = left
	hook := b.hooks[to]
	b.mu.Unlock()

	var hookErr error
	if hook != nil {
		hookErr = hook(ctx, b.custody, amount)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if hookErr == nil {
		hookErr = b.credit(to, amount)
	}
	if hookErr != nil {
		// Reservation came out of custody, so giving it back cannot overflow.
		b.balances[b.custody] = b.balances[b.custody].Add(amount)
		b.logger.Warn().Err(hookErr).Str("to", to.String()).Str("amount", amount.String()).Msg("transfer rejected")
		return domain.TransferReceipt{}, fmt.Errorf("%w: receiver %s: %w", domain.ErrTransferFailed, to, hookErr)
	}
	receipt := domain.TransferReceipt{
		ID:     key,
		To:     to,
		Amount: amount,
		At:     b.now().UTC(),
	}
	b.settled[key] = receipt
	return receipt, nil
}

// move debits from and credits to. Callers hold b.mu.
func (b *Bank) move(from, to domain.Address, amount decimal.Decimal) error {
	if err := domain.ValidateAmount(amount); err != nil {
		return err
	}
	left, err := domain.CheckedSub(b.balances[from], amount)
	if err != nil {
		return err
	}
	sum, err := domain.CheckedAdd(b.balances[to], amount)
	if err != nil {
		return err
	}
	b.balances[from] = left
	b.balances[to] = sum
	return nil
}

func (b *Bank) credit(to domain.Address, amount decimal.Decimal) error {
	sum, err := domain.CheckedAdd(b.balances[to], amount)
	if err != nil {
		return err
	}
	b.balances[to] = sum
	return nil
}

var _ domain.CustodyRestorer = (*Bank)(nil)
