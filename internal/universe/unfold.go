package universe

import (
	"fmt"
)

// Unfold rebuilds the ledger a snapshot was folded from and verifies it.
//
// data must be the full balance set. Zero entries are skipped, since the
// ledger never materializes them; a label listed twice is a GENERIC error.
// If the recomputed root differs from snapshot.Root in any way, Unfold
// fails with ROOT_MISMATCH.
func Unfold(snapshot Snapshot, data SupportingData) (*Ledger, error) {
	entries, err := canonicalize(data)
	if err != nil {
		return nil, err
	}

	root, err := computeRoot(entries)
	if err != nil {
		return nil, err
	}
	if root != snapshot.Root {
		return nil, NewRootMismatchError(snapshot.Height, snapshot.Root, root)
	}

	ledger := NewLedger()
	for _, e := range entries {
		ledger.balances[e.Label] = e.Balance
	}
	return ledger, nil
}

// canonicalize validates supporting data and returns its non-zero entries
// with normalized labels, in canonical order.
func canonicalize(data SupportingData) ([]Entry, error) {
	seen := make(map[LabelID]struct{}, len(data))
	entries := make([]Entry, 0, len(data))

	for _, e := range data {
		label := e.Label.normalized()
		if err := label.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[label]; dup {
			return nil, NewGenericError(fmt.Sprintf("duplicate entry for label %s", label))
		}
		seen[label] = struct{}{}

		if e.Balance.IsZero() {
			continue
		}
		entries = append(entries, Entry{Label: label, Balance: e.Balance})
	}

	sortEntries(entries)
	return entries, nil
}
