package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundStatus enumerates the fund lifecycle.
type FundStatus string

const (
	FundOpen    FundStatus = "open"
	FundClosing FundStatus = "closing" // sweep in flight
	FundClosed  FundStatus = "closed"
)

// Fund is a registered crowdfunding project.
type Fund struct {
	ID           uint64
	Name         string
	Description  string
	MetadataRef  string
	Owner        Address
	Receiver     Address
	TotalDonated decimal.Decimal
	Status       FundStatus
	CreatedAt    time.Time
	ClosedAt     time.Time
}

// IsOpen reports whether the fund accepts donations.
func (f Fund) IsOpen() bool {
	return f.Status == FundOpen
}

// Tuple returns the fund in its ordered wire form:
// id, name, isOpen, owner, receiver, totalDonated, description.
func (f Fund) Tuple() []any {
	return []any{f.ID, f.Name, f.IsOpen(), f.Owner, f.Receiver, f.TotalDonated, f.Description}
}
