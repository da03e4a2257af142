// Package universe implements the dlog ledger state machine.
//
// A Universe owns one Ledger (label -> balance) and moves it through a
// repeating cycle:
//
//	empty -> Apply(tx)* -> Fold -> Snapshot -> Unfold/Restore -> ledger
//
// Apply validates and commits balance-affecting transactions atomically.
// Fold derives a Snapshot whose root is a Merkle root over the canonically
// ordered, canonically encoded entries. Unfold recomputes that root from
// supporting data and refuses anything that does not match exactly.
//
// Concurrency: every Universe method takes a single RWMutex. Mutations and
// folds hold it exclusively, so a fold never observes a half-applied
// transaction.
package universe
