package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/dlog/internal/universe"
)

// ReadJournalAfter returns every journal entry with seq > after, in seq
// order. This is the replay tail applied on top of a restored snapshot.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadJournalAfter(ctx context.Context, after int64) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, kind, from_owner, from_label, to_owner, to_label, amount, created_ms
		FROM journal
		WHERE seq > ?
		ORDER BY seq ASC
	`, after)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var (
			e      JournalEntry
			kind   string
			amount string
		)
		if err := rows.Scan(
			&e.Seq,
			&e.ID,
			&kind,
			&e.From.Owner,
			&e.From.Label,
			&e.To.Owner,
			&e.To.Label,
			&amount,
			&e.CreatedMs,
		); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.Kind = universe.TxKind(kind)
		if e.Amount, err = decodeAmount(amount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// LastJournalSeq returns the highest seq in the journal, or 0 if empty.
// Used to resume the logical clock after a restart.
func (s *Store) LastJournalSeq(ctx context.Context) (int64, error) {
	return lastJournalSeq(ctx, s.db)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func lastJournalSeq(ctx context.Context, q queryRower) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM journal`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last journal seq: %w", err)
	}
	return seq, nil
}
