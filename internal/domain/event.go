package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind enumerates journal entries.
type EventKind string

const (
	EventFundCreated   EventKind = "fund_created"
	EventDonation      EventKind = "donation"
	EventFundClosed    EventKind = "fund_closed"
	EventCloseReverted EventKind = "close_reverted"
)

// GenesisHash is the PrevHash of the first event in a journal.
const GenesisHash = "0"

// Event is one committed ledger mutation. Events form a hash chain: each
// Hash covers the event fields and the previous event's Hash.
//
// Account holds the owner for fund_created, the donor for donation and the
// closing caller for fund_closed. Receiver is set for fund_created and
// fund_closed.
type Event struct {
	Seq         uint64
	Kind        EventKind
	FundID      uint64
	Account     Address
	Receiver    Address
	Amount      decimal.Decimal
	Name        string
	Description string
	MetadataRef string
	At          time.Time
	PrevHash    string
	Hash        string
}

type eventDigest struct {
	Seq         uint64 `json:"seq"`
	Kind        string `json:"kind"`
	FundID      uint64 `json:"fund_id"`
	Account     string `json:"account"`
	Receiver    string `json:"receiver"`
	Amount      string `json:"amount"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MetadataRef string `json:"metadata_ref"`
	AtMicros    int64  `json:"at"`
	PrevHash    string `json:"prev"`
}

// ComputeHash returns the hex SHA-256 digest of the event's content.
// Timestamps are hashed at microsecond precision, the resolution the SQL
// journals keep.
func (e Event) ComputeHash() string {
	payload, _ := json.Marshal(eventDigest{
		Seq:         e.Seq,
		Kind:        string(e.Kind),
		FundID:      e.FundID,
		Account:     string(e.Account),
		Receiver:    string(e.Receiver),
		Amount:      e.Amount.String(),
		Name:        e.Name,
		Description: e.Description,
		MetadataRef: e.MetadataRef,
		AtMicros:    e.At.UTC().UnixMicro(),
		PrevHash:    e.PrevHash,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Seal links the event to prev and fills in its Hash.
func (e *Event) Seal(prev string) {
	e.PrevHash = prev
	e.Hash = e.ComputeHash()
}

// VerifyChain checks sequence continuity, hash linkage and each event's hash.
func VerifyChain(events []Event) error {
	prev := GenesisHash
	for i, ev := range events {
		if want := uint64(i) + 1; ev.Seq != want {
			return fmt.Errorf("%w: event %d: expected seq %d, got %d", ErrCorruptJournal, i, want, ev.Seq)
		}
		if ev.PrevHash != prev {
			return fmt.Errorf("%w: event %d: prev hash mismatch", ErrCorruptJournal, ev.Seq)
		}
		if got := ev.ComputeHash(); got != ev.Hash {
			return fmt.Errorf("%w: event %d: hash mismatch", ErrCorruptJournal, ev.Seq)
		}
		prev = ev.Hash
	}
	return nil
}
