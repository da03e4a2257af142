package node

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/universe"
)

// Node keeps a universe and its store in step.
//
// Thread-safety model:
//   - Submit and Fold serialize on mu, so journal order equals apply order
//     and a fold always persists exactly the state it summarizes
//   - read methods go straight to the universe, which has its own lock
//
// Other processes may write the same database. The store rejects a write
// prepared against a stale journal position; the node then reloads its
// state from the store and retries once.
type Node struct {
	mu       sync.Mutex
	universe atomic.Pointer[universe.Universe]
	store    *store.Store
	seq      *Sequence
	ids      IDGenerator
	clock    universe.Clock
	logger   *slog.Logger

	// foldedSeq is the journal seq covered by the last persisted snapshot,
	// -1 before the first fold.
	foldedSeq int64

	subsMu sync.Mutex
	subs   map[chan store.SnapshotRecord]struct{}
}

// Option configures a Node.
type Option func(*Node)

// WithIDGenerator sets the transaction id generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(n *Node) {
		n.ids = g
	}
}

// WithClock sets the wall clock used for snapshot and journal timestamps.
// Default: universe.SystemClock.
func WithClock(c universe.Clock) Option {
	return func(n *Node) {
		n.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		n.logger = l
	}
}

// Receipt describes an accepted transaction.
type Receipt struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	Kind      universe.TxKind `json:"kind"`
	CreatedMs int64           `json:"created_ms"`
}

// Open builds a node on s and recovers its state: the latest snapshot is
// restored (and verified), then every journal entry written after it is
// replayed. A snapshot that fails verification aborts Open with the
// ROOT_MISMATCH error.
func Open(ctx context.Context, s *store.Store, opts ...Option) (*Node, error) {
	n := &Node{
		store:     s,
		ids:       UUIDv7Generator{},
		clock:     universe.SystemClock{},
		logger:    slog.Default(),
		foldedSeq: -1,
		subs:      make(map[chan store.SnapshotRecord]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	u, last, folded, err := n.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}
	n.universe.Store(u)
	n.seq = NewSequenceAt(last)
	n.foldedSeq = folded
	return n, nil
}

// load rebuilds a universe from the store. It returns the universe, the
// last journal seq and the journal seq covered by the latest snapshot (-1
// if there is none).
func (n *Node) load(ctx context.Context) (*universe.Universe, int64, int64, error) {
	u := universe.New(universe.WithClock(n.clock))
	var after int64
	folded := int64(-1)

	rec, err := n.store.LatestSnapshot(ctx)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		n.logger.Info("no snapshot found, replaying full journal")
	case err != nil:
		return nil, 0, 0, err
	default:
		data, err := n.store.ReadSnapshotBalances(ctx, rec.Height)
		if err != nil {
			return nil, 0, 0, err
		}
		if err := u.Restore(rec.Snapshot, data); err != nil {
			return nil, 0, 0, err
		}
		after = rec.JournalSeq
		folded = rec.JournalSeq
		n.logger.Info("snapshot restored",
			"height", rec.Height,
			"root", rec.Root.String(),
			"entries", len(data),
		)
	}

	entries, err := n.store.ReadJournalAfter(ctx, after)
	if err != nil {
		return nil, 0, 0, err
	}
	last := after
	for _, e := range entries {
		tx, err := e.Transaction()
		if err != nil {
			return nil, 0, 0, err
		}
		if err := u.Apply(tx); err != nil {
			return nil, 0, 0, fmt.Errorf("replay journal seq %d (%s): %w", e.Seq, e.ID, err)
		}
		last = e.Seq
	}

	n.logger.Info("node recovered",
		"replayed", len(entries),
		"journal_seq", last,
	)
	return u, last, folded, nil
}

// resyncLocked replaces the in-memory state with what the store holds.
// Callers must hold n.mu.
func (n *Node) resyncLocked(ctx context.Context) error {
	u, last, folded, err := n.load(ctx)
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}
	n.universe.Store(u)
	n.seq.Set(last)
	n.foldedSeq = folded
	return nil
}

// checkFresh returns ErrJournalMoved if the stored journal is ahead of
// this node, so a transaction is never checked against stale balances.
// The store repeats the check when the entry is appended.
func (n *Node) checkFresh(ctx context.Context) error {
	last, err := n.store.LastJournalSeq(ctx)
	if err != nil {
		return err
	}
	if last != n.seq.Current() {
		return fmt.Errorf("node at seq %d, journal at %d: %w", n.seq.Current(), last, store.ErrJournalMoved)
	}
	return nil
}

// withResync runs op and, if another writer moved the store underneath
// it, resyncs and runs op once more. Callers must hold n.mu.
func (n *Node) withResync(ctx context.Context, op func() error) error {
	err := op()
	if !errors.Is(err, store.ErrJournalMoved) && !errors.Is(err, store.ErrSnapshotExists) {
		return err
	}
	n.logger.Warn("store changed by another writer, resyncing", "error", err)
	if err := n.resyncLocked(ctx); err != nil {
		return err
	}
	return op()
}

// Submit validates tx, journals it and applies it. A transaction that
// fails validation is returned as a *universe.LedgerError and never
// reaches the journal. If the journal write fails the ledger and the
// journal seq are left as they were.
func (n *Node) Submit(ctx context.Context, tx universe.Transaction) (Receipt, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var receipt Receipt
	err := n.withResync(ctx, func() error {
		var err error
		receipt, err = n.submitLocked(ctx, tx)
		return err
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

func (n *Node) submitLocked(ctx context.Context, tx universe.Transaction) (Receipt, error) {
	if err := n.checkFresh(ctx); err != nil {
		return Receipt{}, err
	}

	u := n.universe.Load()
	if err := u.Check(tx); err != nil {
		n.logger.Debug("transaction rejected",
			"kind", tx.Kind(),
			"code", universe.CodeOf(err),
			"error", err,
		)
		return Receipt{}, err
	}

	entry, err := store.NewJournalEntry(n.seq.Current()+1, n.ids.Generate(), tx, n.clock.Now().UnixMilli())
	if err != nil {
		return Receipt{}, err
	}
	if err := n.store.AppendJournal(ctx, entry); err != nil {
		return Receipt{}, fmt.Errorf("submit: %w", err)
	}
	n.seq.Set(entry.Seq)

	// Check passed under n.mu and only this node's writes reach u, so
	// Apply cannot fail here.
	if err := u.Apply(tx); err != nil {
		return Receipt{}, fmt.Errorf("apply journaled seq %d: %w", entry.Seq, err)
	}

	n.logger.Info("transaction applied",
		"id", entry.ID,
		"seq", entry.Seq,
		"kind", entry.Kind,
		"amount", entry.Amount.String(),
	)

	return Receipt{
		ID:        entry.ID,
		Seq:       entry.Seq,
		Kind:      entry.Kind,
		CreatedMs: entry.CreatedMs,
	}, nil
}

// Fold folds the universe and persists the snapshot with its supporting
// data. If persisting fails the fold is abandoned and the next fold reuses
// the same height.
func (n *Node) Fold(ctx context.Context) (store.SnapshotRecord, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var rec store.SnapshotRecord
	err := n.withResync(ctx, func() error {
		var err error
		rec, err = n.foldLocked(ctx)
		return err
	})
	if err != nil {
		return store.SnapshotRecord{}, err
	}
	return rec, nil
}

func (n *Node) foldLocked(ctx context.Context) (store.SnapshotRecord, error) {
	journalSeq := n.seq.Current()

	var rec store.SnapshotRecord
	_, err := n.universe.Load().FoldWith(func(snap universe.Snapshot, data universe.SupportingData) error {
		rec = store.SnapshotRecord{Snapshot: snap, JournalSeq: journalSeq}
		return n.store.WriteSnapshot(ctx, rec, data)
	})
	if err != nil {
		return store.SnapshotRecord{}, fmt.Errorf("fold: %w", err)
	}
	n.foldedSeq = journalSeq

	n.logger.Info("snapshot folded",
		"height", rec.Height,
		"root", rec.Root.String(),
		"journal_seq", rec.JournalSeq,
	)
	n.publish(rec)
	return rec, nil
}

// Verify unfolds the stored snapshot at height against its stored
// supporting data. It returns ROOT_MISMATCH if they disagree and an error
// wrapping ErrSnapshotNotFound if the height was never folded.
func (n *Node) Verify(ctx context.Context, height uint64) (store.SnapshotRecord, error) {
	rec, data, err := n.readSnapshot(ctx, height)
	if err != nil {
		return store.SnapshotRecord{}, err
	}
	if _, err := universe.Unfold(rec.Snapshot, data); err != nil {
		n.logger.Warn("snapshot verification failed",
			"height", height,
			"error", err,
		)
		return rec, err
	}
	return rec, nil
}

// Prove builds an inclusion proof for label's balance at height.
// A label with no balance at that height is UNKNOWN_LABEL.
func (n *Node) Prove(ctx context.Context, height uint64, label universe.LabelID) (universe.BalanceProof, store.SnapshotRecord, error) {
	rec, data, err := n.readSnapshot(ctx, height)
	if err != nil {
		return universe.BalanceProof{}, store.SnapshotRecord{}, err
	}
	proof, err := universe.ProveBalance(data, label)
	if err != nil {
		return universe.BalanceProof{}, rec, err
	}
	return proof, rec, nil
}

func (n *Node) readSnapshot(ctx context.Context, height uint64) (store.SnapshotRecord, universe.SupportingData, error) {
	rec, err := n.store.ReadSnapshot(ctx, height)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SnapshotRecord{}, nil, fmt.Errorf("height %d: %w", height, ErrSnapshotNotFound)
	}
	if err != nil {
		return store.SnapshotRecord{}, nil, err
	}
	data, err := n.store.ReadSnapshotBalances(ctx, height)
	if err != nil {
		return store.SnapshotRecord{}, nil, err
	}
	return rec, data, nil
}

// Snapshot returns the stored snapshot at height.
func (n *Node) Snapshot(ctx context.Context, height uint64) (store.SnapshotRecord, error) {
	rec, err := n.store.ReadSnapshot(ctx, height)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SnapshotRecord{}, fmt.Errorf("height %d: %w", height, ErrSnapshotNotFound)
	}
	return rec, err
}

// LatestSnapshot returns the most recent stored snapshot.
func (n *Node) LatestSnapshot(ctx context.Context) (store.SnapshotRecord, error) {
	rec, err := n.store.LatestSnapshot(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SnapshotRecord{}, fmt.Errorf("latest: %w", ErrSnapshotNotFound)
	}
	return rec, err
}

// Snapshots lists up to limit stored snapshots, newest first.
func (n *Node) Snapshots(ctx context.Context, limit int) ([]store.SnapshotRecord, error) {
	return n.store.ListSnapshots(ctx, limit)
}

// BalanceOf returns the live balance of label.
func (n *Node) BalanceOf(label universe.LabelID) universe.Balance {
	return n.universe.Load().BalanceOf(label)
}

// BalanceAt returns label's balance in the snapshot at height. A label
// absent from that snapshot has a zero balance; a height that was never
// folded wraps ErrSnapshotNotFound.
func (n *Node) BalanceAt(ctx context.Context, height uint64, label universe.LabelID) (universe.Balance, error) {
	if _, err := n.Snapshot(ctx, height); err != nil {
		return universe.Zero, err
	}
	return n.store.ReadBalanceAt(ctx, height, universe.NewLabelID(label.Owner, label.Label))
}

// BalanceHistory returns label's balance at every snapshot where it was
// non-zero.
func (n *Node) BalanceHistory(ctx context.Context, label universe.LabelID) ([]store.BalancePoint, error) {
	return n.store.ReadBalanceHistory(ctx, universe.NewLabelID(label.Owner, label.Label))
}

// Entries returns the live ledger in canonical order.
func (n *Node) Entries() []universe.Entry {
	return n.universe.Load().Entries()
}

// TotalSupply returns the live total supply.
func (n *Node) TotalSupply() universe.Balance {
	return n.universe.Load().TotalSupply()
}

// JournalSeq returns the seq of the last journaled transaction.
func (n *Node) JournalSeq() int64 {
	return n.seq.Current()
}

// Ping checks the store. Used by health checks.
func (n *Node) Ping(ctx context.Context) error {
	return n.store.Ping(ctx)
}
