package universe

import (
	"github.com/roach88/dlog/internal/merkle"
)

// Fold summarizes the current ledger into a new Snapshot and records it as
// the last snapshot. Height is 0 for the first fold and grows by exactly one
// on every fold, even when nothing changed since the previous one.
func (u *Universe) Fold() (Snapshot, error) {
	return u.FoldWith(nil)
}

// FoldState is Fold that also returns the entries the root was computed
// from, captured under the same lock so they always match the snapshot.
func (u *Universe) FoldState() (Snapshot, SupportingData, error) {
	var data SupportingData
	snap, err := u.FoldWith(func(_ Snapshot, d SupportingData) error {
		data = d
		return nil
	})
	if err != nil {
		return Snapshot{}, nil, err
	}
	return snap, data, nil
}

// FoldWith computes the next snapshot and hands it to commit before
// recording it. If commit fails the fold is abandoned: the last snapshot
// and the next height stay as they were. A nil commit always succeeds.
//
// commit runs under the write lock, so no transaction can land between
// the fold and whatever commit persists.
func (u *Universe) FoldWith(commit func(Snapshot, SupportingData) error) (Snapshot, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	entries := u.ledger.Entries()
	root, err := computeRoot(entries)
	if err != nil {
		return Snapshot{}, err
	}

	var height uint64
	if u.last != nil {
		height = u.last.Height + 1
	}

	snap := Snapshot{
		Height:      height,
		Root:        root,
		TimestampMs: u.clock.Now().UnixMilli(),
	}
	if commit != nil {
		if err := commit(snap, SupportingData(entries)); err != nil {
			return Snapshot{}, err
		}
	}
	u.last = &snap
	return snap, nil
}

// Root computes the root of the current ledger without folding.
func (u *Universe) Root() (merkle.Digest, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return computeRoot(u.ledger.Entries())
}

// leafDigests hashes entries, which must already be in canonical order.
func leafDigests(entries []Entry) ([]merkle.Digest, error) {
	leaves := make([]merkle.Digest, len(entries))
	for i, e := range entries {
		d, err := e.LeafDigest()
		if err != nil {
			return nil, err
		}
		leaves[i] = d
	}
	return leaves, nil
}

// computeRoot is the one root algorithm shared by Fold and Unfold.
func computeRoot(entries []Entry) (merkle.Digest, error) {
	leaves, err := leafDigests(entries)
	if err != nil {
		return merkle.Digest{}, err
	}
	return merkle.Root(leaves), nil
}

// ComputeRoot returns the root that Fold would record for data. Zero
// entries are ignored and order does not matter.
func ComputeRoot(data SupportingData) (merkle.Digest, error) {
	entries, err := canonicalize(data)
	if err != nil {
		return merkle.Digest{}, err
	}
	return computeRoot(entries)
}
