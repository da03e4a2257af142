// Package store provides SQLite-backed durable storage for the dlog ledger.
//
// The store keeps three append-only tables:
//   - journal: every accepted transaction, in the order it was applied
//   - snapshots: one row per fold, with the journal position it covers
//   - snapshot_balances: the supporting data each snapshot was folded from
//
// # Ordering
//
// Journal rows are ordered by seq, a logical sequence assigned by the node,
// never by wall time. A snapshot's journal_seq is the last journal seq that
// was applied before the fold, so recovery is "restore latest snapshot, then
// replay journal rows with seq > journal_seq".
//
// # Encoding
//
// Amounts are stored as base-10 TEXT so arbitrary-precision balances survive
// a round trip. Roots are stored as lowercase hex.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: snapshot_balances rows require their snapshot
package store
