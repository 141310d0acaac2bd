package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Journal persists the ordered event log the ledger is rebuilt from.
type Journal interface {
	Append(ctx context.Context, ev Event) error
	Load(ctx context.Context) ([]Event, error)
}

// TransferReceipt describes a completed outbound transfer.
type TransferReceipt struct {
	ID        string
	To        Address
	Amount    decimal.Decimal
	Reference string // gateway-side reference, when the gateway returns one
	At        time.Time
}

// TransferGateway moves value out of the ledger's custody. A failed transfer
// returns an error wrapping ErrTransferFailed and moves nothing. Gateways do
// not retry.
type TransferGateway interface {
	Transfer(ctx context.Context, to Address, amount decimal.Decimal) (TransferReceipt, error)
}

// PaymentCapturer takes the value attached to a donation into custody and
// gives it back when the donation cannot be committed.
type PaymentCapturer interface {
	Capture(ctx context.Context, from Address, amount decimal.Decimal) error
	Refund(ctx context.Context, to Address, amount decimal.Decimal) error
}

// CustodyRestorer is implemented by capturers that hold captured value only
// in memory. After a restart the ledger hands them the total it still owes
// receivers of open funds.
type CustodyRestorer interface {
	RestoreCustody(ctx context.Context, held decimal.Decimal) error
}
