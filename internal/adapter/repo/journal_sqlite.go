package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"fundledger/internal/domain"
	"fundledger/internal/sqlinline"
)

// SQLiteJournal stores the event chain in a local SQLite file. The schema
// comes from the embedded migrations applied by infra.OpenSQLite.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLiteJournal(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

func (j *SQLiteJournal) Append(ctx context.Context, ev domain.Event) error {
	_, err := j.db.ExecContext(ctx, sqlinline.QSQLiteInsertLedgerEvent,
		int64(ev.Seq),
		string(ev.Kind),
		int64(ev.FundID),
		string(ev.Account),
		string(ev.Receiver),
		ev.Amount.String(),
		ev.Name,
		ev.Description,
		ev.MetadataRef,
		ev.At.UTC().UnixMicro(),
		ev.PrevHash,
		ev.Hash,
	)
	if isConstraintError(err) {
		return fmt.Errorf("event %d already journaled: %w", ev.Seq, err)
	}
	return err
}

func (j *SQLiteJournal) Load(ctx context.Context) ([]domain.Event, error) {
	rows, err := j.db.QueryContext(ctx, sqlinline.QSQLiteSelectLedgerEvents)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev                domain.Event
			seq, fundID, at   int64
			kind, amount      string
			account, receiver string
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
		ev.At = time.UnixMicro(at).UTC()
		events = append(events, ev)
	}
	return events, rows.Err()
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
