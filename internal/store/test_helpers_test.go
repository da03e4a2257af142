package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/dlog/internal/universe"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestTransfer creates a transfer journal entry with minimal fields.
func createTestTransfer(seq int64, id string, from, to universe.LabelID, amount uint64) JournalEntry {
	return JournalEntry{
		Seq:       seq,
		ID:        id,
		Kind:      universe.KindTransfer,
		From:      from,
		To:        to,
		Amount:    universe.NewBalance(amount),
		CreatedMs: 1000 + seq,
	}
}

// createTestSnapshot folds data into a snapshot record at height.
func createTestSnapshot(t *testing.T, height uint64, journalSeq int64, data universe.SupportingData) SnapshotRecord {
	t.Helper()
	root, err := universe.ComputeRoot(data)
	if err != nil {
		t.Fatalf("ComputeRoot() failed: %v", err)
	}
	return SnapshotRecord{
		Snapshot: universe.Snapshot{
			Height:      height,
			Root:        root,
			TimestampMs: int64(height) * 1000,
		},
		JournalSeq: journalSeq,
	}
}

func entry(owner, label string, amount uint64) universe.Entry {
	return universe.Entry{
		Label:   universe.NewLabelID(owner, label),
		Balance: universe.NewBalance(amount),
	}
}
