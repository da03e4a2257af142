package store

import (
	"errors"
	"fmt"

	"github.com/roach88/dlog/internal/universe"
)

var (
	// ErrSnapshotExists is returned when a snapshot height is written twice.
	ErrSnapshotExists = errors.New("snapshot already exists")

	// ErrJournalMoved is returned when a write was prepared against a
	// journal position that another writer has since advanced.
	ErrJournalMoved = errors.New("journal moved")

	// ErrDuplicateID is returned when a journal entry reuses a transaction id.
	ErrDuplicateID = errors.New("duplicate transaction id")
)

// JournalEntry is one accepted transaction as it was applied.
// From is empty for mints and To is empty for burns.
type JournalEntry struct {
	Seq       int64            `json:"seq"`
	ID        string           `json:"id"`
	Kind      universe.TxKind  `json:"kind"`
	From      universe.LabelID `json:"from"`
	To        universe.LabelID `json:"to"`
	Amount    universe.Balance `json:"amount"`
	CreatedMs int64            `json:"created_ms"`
}

// NewJournalEntry records tx under the given sequence number and id.
func NewJournalEntry(seq int64, id string, tx universe.Transaction, createdMs int64) (JournalEntry, error) {
	e := JournalEntry{Seq: seq, ID: id, Kind: tx.Kind(), CreatedMs: createdMs}

	switch t := tx.(type) {
	case universe.TransferTx:
		e.From, e.To, e.Amount = t.From, t.To, t.Amount
	case universe.MintTx:
		e.To, e.Amount = t.To, t.Amount
	case universe.BurnTx:
		e.From, e.Amount = t.From, t.Amount
	default:
		return JournalEntry{}, fmt.Errorf("journal entry: unsupported transaction %T", tx)
	}
	return e, nil
}

// Transaction rebuilds the transaction for replay.
func (e JournalEntry) Transaction() (universe.Transaction, error) {
	switch e.Kind {
	case universe.KindTransfer:
		return universe.TransferTx{From: e.From, To: e.To, Amount: e.Amount}, nil
	case universe.KindMint:
		return universe.MintTx{To: e.To, Amount: e.Amount}, nil
	case universe.KindBurn:
		return universe.BurnTx{From: e.From, Amount: e.Amount}, nil
	default:
		return nil, fmt.Errorf("journal entry %s: unknown kind %q", e.ID, e.Kind)
	}
}

// SnapshotRecord is a persisted snapshot plus the journal position it
// covers: every journal entry with Seq <= JournalSeq is folded into it.
type SnapshotRecord struct {
	universe.Snapshot
	JournalSeq int64 `json:"journal_seq"`
}

// BalancePoint is the balance of one label at one snapshot height.
type BalancePoint struct {
	Height  uint64           `json:"height"`
	Balance universe.Balance `json:"balance"`
}
