package transfer

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
)

// Attested accepts the value attached to a donation as already settled by
// the upstream payment rail. It only records what it was told.
type Attested struct {
	Logger zerolog.Logger
}

func (a Attested) Capture(_ context.Context, from domain.Address, amount decimal.Decimal) error {
	a.Logger.Debug().Str("from", from.String()).Str("amount", amount.String()).Msg("payment attested")
	return nil
}

func (a Attested) Refund(_ context.Context, to domain.Address, amount decimal.Decimal) error {
	// Nothing was taken into custody here; the upstream rail owns the refund.
	a.Logger.Warn().Str("to", to.String()).Str("amount", amount.String()).Msg("attested payment needs upstream refund")
	return nil
}
