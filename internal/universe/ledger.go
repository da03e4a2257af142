package universe

import (
	"sort"
)

// Ledger maps labels to balances. Absent labels have an implicit zero
// balance and zero balances are never stored.
//
// A Ledger is not safe for concurrent use on its own; the Universe that
// owns it serializes access.
type Ledger struct {
	balances map[LabelID]Balance
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[LabelID]Balance)}
}

// BalanceOf returns the balance for label, zero if absent. It never fails.
func (l *Ledger) BalanceOf(label LabelID) Balance {
	return l.balances[label.normalized()]
}

// setBalance stores balance for label, dropping the entry when it is zero.
func (l *Ledger) setBalance(label LabelID, balance Balance) {
	label = label.normalized()
	if balance.IsZero() {
		delete(l.balances, label)
		return
	}
	l.balances[label] = balance
}

// Len returns the number of materialized (non-zero) entries.
func (l *Ledger) Len() int {
	return len(l.balances)
}

// TotalSupply returns the sum of all balances.
func (l *Ledger) TotalSupply() Balance {
	total := Zero
	for _, b := range l.balances {
		total = total.Add(b)
	}
	return total
}

// Entries returns every materialized entry in canonical order.
func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, 0, len(l.balances))
	for label, balance := range l.balances {
		entries = append(entries, Entry{Label: label, Balance: balance})
	}
	sortEntries(entries)
	return entries
}

// Clone returns an independent copy. Balances are immutable, so sharing
// them is safe.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{balances: make(map[LabelID]Balance, len(l.balances))}
	for k, v := range l.balances {
		c.balances[k] = v
	}
	return c
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return compareLabels(entries[i].Label, entries[j].Label) < 0
	})
}
