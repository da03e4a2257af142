package store

import (
	"context"
	"fmt"

	"github.com/roach88/dlog/internal/universe"
)

// AppendJournal inserts accepted transactions in a single transaction.
//
// The entries must carry consecutive seqs continuing the stored journal:
// if the first seq is not MAX(seq)+1, another writer has appended since
// the caller last read the journal and ErrJournalMoved is returned.
// Reusing a transaction id returns ErrDuplicateID. Either way nothing is
// written.
func (s *Store) AppendJournal(ctx context.Context, entries ...JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append journal: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	last, err := lastJournalSeq(ctx, tx)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO journal
		(seq, id, kind, from_owner, from_label, to_owner, to_label, amount, created_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("append journal: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.Seq != last+1 {
			return fmt.Errorf("append journal %s: seq %d after %d: %w", e.ID, e.Seq, last, ErrJournalMoved)
		}
		result, err := stmt.ExecContext(ctx,
			e.Seq,
			e.ID,
			string(e.Kind),
			e.From.Owner,
			e.From.Label,
			e.To.Owner,
			e.To.Label,
			encodeAmount(e.Amount),
			e.CreatedMs,
		)
		if err != nil {
			return fmt.Errorf("append journal %s: %w", e.ID, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("append journal %s: rows affected: %w", e.ID, err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("append journal %s: %w", e.ID, ErrDuplicateID)
		}
		last = e.Seq
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append journal: commit: %w", err)
	}
	return nil
}

// WriteSnapshot stores a snapshot together with the supporting data it was
// folded from, in a single transaction. Zero entries are not stored.
//
// Writing a height that already exists returns ErrSnapshotExists and
// leaves the stored snapshot untouched. A record whose JournalSeq is not
// the current end of the journal returns ErrJournalMoved: the snapshot
// would not cover what another writer appended.
func (s *Store) WriteSnapshot(ctx context.Context, rec SnapshotRecord, data universe.SupportingData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	last, err := lastJournalSeq(ctx, tx)
	if err != nil {
		return err
	}
	if last != rec.JournalSeq {
		return fmt.Errorf("write snapshot %d: folded at seq %d, journal at %d: %w", rec.Height, rec.JournalSeq, last, ErrJournalMoved)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(height, root, timestamp_ms, journal_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(height) DO NOTHING
	`,
		rec.Height,
		rec.Root.String(),
		rec.TimestampMs,
		rec.JournalSeq,
	)
	if err != nil {
		return fmt.Errorf("write snapshot: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write snapshot: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("write snapshot %d: %w", rec.Height, ErrSnapshotExists)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_balances
		(height, owner, label, amount)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write snapshot: prepare balances: %w", err)
	}
	defer stmt.Close()

	for _, e := range data {
		if e.Balance.IsZero() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, rec.Height, e.Label.Owner, e.Label.Label, encodeAmount(e.Balance)); err != nil {
			return fmt.Errorf("write snapshot: balance %s: %w", e.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write snapshot: commit: %w", err)
	}
	return nil
}
