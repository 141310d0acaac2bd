package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fundledger/internal/domain"
	"fundledger/internal/infra"
	"fundledger/internal/sqlinline"
)

// PGJournal stores the event chain in Postgres.
type PGJournal struct {
	sql infra.SQLExecutor
}

func NewPGJournal(sql infra.SQLExecutor) *PGJournal {
	return &PGJournal{sql: sql}
}

// EnsureSchema creates the events table when it is missing.
func (j *PGJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.sql.Exec(ctx, sqlinline.QEnsureLedgerEvents); err != nil {
		return fmt.Errorf("ensure ledger_events: %w", err)
	}
	return nil
}

func (j *PGJournal) Append(ctx context.Context, ev domain.Event) error {
	_, err := j.sql.Exec(ctx, sqlinline.QInsertLedgerEvent,
		int64(ev.Seq),
		string(ev.Kind),
		int64(ev.FundID),
		string(ev.Account),
		string(ev.Receiver),
		ev.Amount.String(),
		ev.Name,
		ev.Description,
		ev.MetadataRef,
		ev.At.UTC(),
		ev.PrevHash,
		ev.Hash,
	)
	return err
}

func (j *PGJournal) Load(ctx context.Context) ([]domain.Event, error) {
	rows, err := j.sql.Query(ctx, sqlinline.QSelectLedgerEvents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev                domain.Event
			seq, fundID       int64
			kind              string
			account, receiver string
			amount            string
			at                time.Time
		)
		if err := rows.Scan(&seq, &kind, &fundID, &account, &receiver, &amount,
			&ev.Name, &ev.Description, &ev.MetadataRef, &at, &ev.PrevHash, &ev.Hash); err != nil {
			return nil, err
		}
		ev.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d amount %q", domain.ErrCorruptJournal, seq, amount)
		}
		ev.Seq = uint64(seq)
		ev.FundID = uint64(fundID)
		ev.Kind = domain.EventKind(kind)
		ev.Account = domain.Address(account)
		ev.Receiver = domain.Address(receiver)
		ev.At = at.UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
