package sqlinline

// Postgres journal.

const QEnsureLedgerEvents = `--sql 4f16729e-03d0-4d6a-98b1-5bc5d90dbb4c
create table if not exists ledger_events (
  seq          bigint primary key,
  kind         text not null,
  fund_id      bigint not null,
  account      text not null default '',
  receiver     text not null default '',
  amount       numeric(78, 0) not null default 0,
  name         text not null default '',
  description  text not null default '',
  metadata_ref text not null default '',
  at           timestamptz not null,
  prev_hash    text not null,
  hash         text not null unique
);
`

const QInsertLedgerEvent = `--sql 16e0e112-7729-40bc-83dc-e1f501927ef5
insert into ledger_events(
  seq,
  kind,
  fund_id,
  account,
  receiver,
  amount,
  name,
  description,
  metadata_ref,
  at,
  prev_hash,
  hash
) values (
  $1::bigint,
  $2,
  $3::bigint,
  $4,
  $5,
  $6::numeric,
  $7,
  $8,
  $9,
  $10::timestamptz,
  $11,
  $12
);
`

const QSelectLedgerEvents = `--sql 5fd95bca-6b93-493c-9818-8d49af4e9823
select
  seq,
  kind,
  fund_id,
  account,
  receiver,
  amount::text,
  name,
  description,
  metadata_ref,
  at,
  prev_hash,
  hash
from ledger_events
order by seq asc;
`

// SQLite journal. The schema lives in the embedded migrations.

const QSQLiteInsertLedgerEvent = `--sql ca4c6345-dd8e-4b6d-9d2f-7a1fa46e6573
insert into ledger_events(
  seq, kind, fund_id, account, receiver, amount,
  name, description, metadata_ref, at_micros, prev_hash, hash
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const QSQLiteSelectLedgerEvents = `--sql 35a5e8c0-42c3-4ed6-a9ba-6654a8aff246
select
  seq, kind, fund_id, account, receiver, amount,
  name, description, metadata_ref, at_micros, prev_hash, hash
from ledger_events
order by seq asc;
`
