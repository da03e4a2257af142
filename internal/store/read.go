package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dlog/internal/universe"
)

const snapshotColumns = `height, root, timestamp_ms, journal_seq`

// LatestSnapshot returns the snapshot with the greatest height.
// Returns an error wrapping sql.ErrNoRows if nothing was folded yet.
func (s *Store) LatestSnapshot(ctx context.Context) (SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		ORDER BY height DESC
		LIMIT 1
	`)
	rec, err := scanSnapshot(row)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("latest snapshot: %w", err)
	}
	return rec, nil
}

// ReadSnapshot retrieves a single snapshot by height.
// Returns an error wrapping sql.ErrNoRows if not found.
func (s *Store) ReadSnapshot(ctx context.Context, height uint64) (SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE height = ?
	`, height)
	rec, err := scanSnapshot(row)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("read snapshot %d: %w", height, err)
	}
	return rec, nil
}

// ListSnapshots returns up to limit snapshots, newest first.
// A limit <= 0 returns all of them.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM snapshots
		ORDER BY height DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	records := []SnapshotRecord{}
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return records, nil
}

// ReadSnapshotBalances returns the supporting data stored with a snapshot,
// in canonical label order. A height with no snapshot yields an error
// wrapping sql.ErrNoRows; an empty ledger yields an empty slice.
func (s *Store) ReadSnapshotBalances(ctx context.Context, height uint64) (universe.SupportingData, error) {
	if _, err := s.ReadSnapshot(ctx, height); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT owner, label, amount
		FROM snapshot_balances
		WHERE height = ?
		ORDER BY owner COLLATE BINARY ASC, label COLLATE BINARY ASC
	`, height)
	if err != nil {
		return nil, fmt.Errorf("query snapshot balances: %w", err)
	}
	defer rows.Close()

	data := universe.SupportingData{}
	for rows.Next() {
		var owner, label, amount string
		if err := rows.Scan(&owner, &label, &amount); err != nil {
			return nil, fmt.Errorf("scan snapshot balance: %w", err)
		}
		balance, err := decodeAmount(amount)
		if err != nil {
			return nil, err
		}
		data = append(data, universe.Entry{
			Label:   universe.LabelID{Owner: owner, Label: label},
			Balance: balance,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot balances: %w", err)
	}
	return data, nil
}

// ReadBalanceAt returns the balance label had when snapshot height was
// folded, zero if it had none.
func (s *Store) ReadBalanceAt(ctx context.Context, height uint64, label universe.LabelID) (universe.Balance, error) {
	var amount string
	err := s.db.QueryRowContext(ctx, `
		SELECT amount
		FROM snapshot_balances
		WHERE height = ? AND owner = ? AND label = ?
	`, height, label.Owner, label.Label).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return universe.Zero, nil
	}
	if err != nil {
		return universe.Zero, fmt.Errorf("read balance %s at %d: %w", label, height, err)
	}
	return decodeAmount(amount)
}

// ReadBalanceHistory returns every stored non-zero balance of label,
// oldest snapshot first. Heights where the label was zero are absent.
func (s *Store) ReadBalanceHistory(ctx context.Context, label universe.LabelID) ([]BalancePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT height, amount
		FROM snapshot_balances
		WHERE owner = ? AND label = ?
		ORDER BY height ASC
	`, label.Owner, label.Label)
	if err != nil {
		return nil, fmt.Errorf("query balance history: %w", err)
	}
	defer rows.Close()

	points := []BalancePoint{}
	for rows.Next() {
		var (
			p      BalancePoint
			amount string
		)
		if err := rows.Scan(&p.Height, &amount); err != nil {
			return nil, fmt.Errorf("scan balance history: %w", err)
		}
		if p.Balance, err = decodeAmount(amount); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance history: %w", err)
	}
	return points, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (SnapshotRecord, error) {
	var (
		rec  SnapshotRecord
		root string
	)
	if err := row.Scan(&rec.Height, &root, &rec.TimestampMs, &rec.JournalSeq); err != nil {
		return SnapshotRecord{}, err
	}
	d, err := decodeRoot(root)
	if err != nil {
		return SnapshotRecord{}, err
	}
	rec.Root = d
	return rec, nil
}
