package universe

import (
	"sync"
)

// Universe is the single owner of a Ledger and its snapshot history.
// All methods are safe for concurrent use.
type Universe struct {
	mu     sync.RWMutex
	ledger *Ledger
	last   *Snapshot
	clock  Clock
}

// Option configures a Universe.
type Option func(*Universe)

// WithClock sets the clock used for snapshot timestamps.
func WithClock(c Clock) Option {
	return func(u *Universe) {
		u.clock = c
	}
}

// New returns an empty universe with no snapshots.
func New(opts ...Option) *Universe {
	u := &Universe{
		ledger: NewLedger(),
		clock:  SystemClock{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// BalanceOf returns the balance of label, zero if the label is unknown.
func (u *Universe) BalanceOf(label LabelID) Balance {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ledger.BalanceOf(label)
}

// TotalSupply returns the sum of every balance.
func (u *Universe) TotalSupply() Balance {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ledger.TotalSupply()
}

// Entries returns the current balances in canonical order.
func (u *Universe) Entries() []Entry {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ledger.Entries()
}

// Ledger returns a copy of the current ledger.
func (u *Universe) Ledger() *Ledger {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.ledger.Clone()
}

// ApplyTransfer validates and applies tx. On error the ledger is unchanged.
func (u *Universe) ApplyTransfer(tx TransferTx) error {
	return u.Apply(tx)
}

// Apply validates and commits any Transaction atomically.
func (u *Universe) Apply(tx Transaction) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := tx.check(u.ledger); err != nil {
		return err
	}
	tx.commit(u.ledger)
	return nil
}

// Check reports whether tx would apply against the current state without
// changing anything.
func (u *Universe) Check(tx Transaction) error {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return tx.check(u.ledger)
}

// LastSnapshot returns the most recent snapshot, if any fold has happened.
func (u *Universe) LastSnapshot() (Snapshot, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.last == nil {
		return Snapshot{}, false
	}
	return *u.last, true
}

// Restore verifies snapshot against data and, on success, replaces the
// ledger and the last snapshot with them. The next fold continues from
// snapshot.Height + 1. On error nothing changes.
func (u *Universe) Restore(snapshot Snapshot, data SupportingData) error {
	ledger, err := Unfold(snapshot, data)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.ledger = ledger
	s := snapshot
	u.last = &s
	return nil
}
