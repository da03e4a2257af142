// Package node runs a universe against durable storage.
//
// A Node owns one universe.Universe and one store.Store and keeps them in
// step:
//
//   - Submit checks a transaction, appends it to the journal, then applies
//     it. Rejected transactions are never journaled.
//   - Fold folds the universe and persists the snapshot with its supporting
//     data in the same critical section, so the stored snapshot always
//     matches the ledger it summarizes.
//   - Open recovers by restoring the latest stored snapshot (a verified
//     unfold) and replaying the journal written after it.
//   - When another process has written the same database, the store
//     rejects the stale write and the node repeats recovery, then retries.
//
// Journal entries are stamped with a logical sequence number, never wall
// time, so replay reproduces the exact order in which transactions were
// applied.
package node
