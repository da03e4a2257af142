package node

import (
	"context"
	"fmt"

	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/universe"
)

// ApplyGenesis journals the initial mints in one store transaction and
// applies them. Either every allocation lands or none does. It refuses to
// run once anything has been journaled, so restarting with the same
// genesis file is safe.
func (n *Node) ApplyGenesis(ctx context.Context, mints []universe.MintTx) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.withResync(ctx, func() error {
		return n.applyGenesisLocked(ctx, mints)
	})
	if err != nil {
		return 0, err
	}

	n.logger.Info("genesis applied", "allocations", len(mints))
	return len(mints), nil
}

func (n *Node) applyGenesisLocked(ctx context.Context, mints []universe.MintTx) error {
	if err := n.checkFresh(ctx); err != nil {
		return err
	}
	if n.seq.Current() > 0 {
		return ErrNotEmpty
	}

	u := n.universe.Load()
	now := n.clock.Now().UnixMilli()
	entries := make([]store.JournalEntry, 0, len(mints))
	for i, tx := range mints {
		if err := u.Check(tx); err != nil {
			return fmt.Errorf("genesis allocation %d (%s): %w", i, tx.To, err)
		}
		e, err := store.NewJournalEntry(int64(i+1), n.ids.Generate(), tx, now)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	if err := n.store.AppendJournal(ctx, entries...); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	n.seq.Set(int64(len(entries)))

	for _, tx := range mints {
		if err := u.Apply(tx); err != nil {
			return fmt.Errorf("apply genesis mint to %s: %w", tx.To, err)
		}
	}
	return nil
}
