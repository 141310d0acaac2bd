package handlers

import (
	"time"

	"fundledger/internal/domain"
)

type fundDTO struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name"`
	IsOpen       bool       `json:"is_open"`
	Status       string     `json:"status"`
	Owner        string     `json:"owner"`
	Receiver     string     `json:"receiver"`
	TotalDonated string     `json:"total_donated"`
	Description  string     `json:"description"`
	MetadataRef  string     `json:"metadata_ref,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

func toFundDTO(f domain.Fund) fundDTO {
	dto := fundDTO{
		ID:           f.ID,
		Name:         f.Name,
		IsOpen:       f.IsOpen(),
		Status:       string(f.Status),
		Owner:        f.Owner.String(),
		Receiver:     f.Receiver.String(),
		TotalDonated: f.TotalDonated.String(),
		Description:  f.Description,
		MetadataRef:  f.MetadataRef,
		CreatedAt:    f.CreatedAt,
	}
	if !f.ClosedAt.IsZero() {
		closed := f.ClosedAt
		dto.ClosedAt = &closed
	}
	return dto
}

// fundTuple renders the ordered record (id, name, isOpen, owner, receiver,
// totalDonated, description) with the amount as a decimal string.
func fundTuple(f domain.Fund) []any {
	t := f.Tuple()
	t[5] = f.TotalDonated.String()
	return t
}

type receiptDTO struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	At        time.Time `json:"at"`
}

func toReceiptDTO(r domain.TransferReceipt) receiptDTO {
	return receiptDTO{
		ID:        r.ID,
		To:        r.To.String(),
		Amount:    r.Amount.String(),
		Reference: r.Reference,
		At:        r.At,
	}
}

type balanceDTO struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
	Ether   string `json:"ether"`
}
