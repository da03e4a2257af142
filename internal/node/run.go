package node

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/dlog/internal/store"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind
// before further snapshots are dropped for it.
const subscriberBuffer = 16

// Run folds every interval until ctx is cancelled. A tick with no new
// journal entries since the last persisted snapshot is skipped, except
// that the very first tick always folds.
//
// Fold failures are logged and the loop continues; the next tick retries
// at the same height.
//
// Run returns ctx.Err() when cancelled.
func (n *Node) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("run: fold interval must be positive")
	}

	n.logger.Info("fold loop starting", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("fold loop stopping: context cancelled")
			return ctx.Err()

		case <-ticker.C:
			if _, err := n.foldIfChanged(ctx); err != nil {
				n.logger.Error("scheduled fold failed", "error", err)
			}
		}
	}
}

// foldIfChanged folds only when the journal moved since the last
// persisted snapshot. It reports whether a fold happened.
func (n *Node) foldIfChanged(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var folded bool
	err := n.withResync(ctx, func() error {
		if n.foldedSeq >= 0 && n.foldedSeq == n.seq.Current() {
			folded = false
			return nil
		}
		if _, err := n.foldLocked(ctx); err != nil {
			return err
		}
		folded = true
		return nil
	})
	return folded, err
}

// Subscribe returns a channel that receives the record of every snapshot
// folded after the call, and a cancel func that unsubscribes and closes
// the channel.
//
// Delivery is best effort: a subscriber more than subscriberBuffer
// snapshots behind misses the newer ones.
func (n *Node) Subscribe() (<-chan store.SnapshotRecord, func()) {
	ch := make(chan store.SnapshotRecord, subscriberBuffer)

	n.subsMu.Lock()
	n.subs[ch] = struct{}{}
	n.subsMu.Unlock()

	cancel := func() {
		n.subsMu.Lock()
		defer n.subsMu.Unlock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (n *Node) publish(rec store.SnapshotRecord) {
	n.subsMu.Lock()
	defer n.subsMu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- rec:
		default:
			n.logger.Warn("subscriber lagging, snapshot dropped", "height", rec.Height)
		}
	}
}
