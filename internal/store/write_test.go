package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dlog/internal/universe"
)

var (
	alice = universe.NewLabelID("alice", "main")
	bob   = universe.NewLabelID("bob", "main")
)

func TestAppendJournal_DuplicateIDFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendJournal(ctx, createTestTransfer(1, "tx-1", alice, bob, 5)))
	err := s.AppendJournal(ctx, createTestTransfer(2, "tx-1", alice, bob, 5))
	require.ErrorIs(t, err, ErrDuplicateID)

	entries, err := s.ReadJournalAfter(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppendJournal_SeqReuseFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendJournal(ctx, createTestTransfer(1, "tx-1", alice, bob, 5)))
	err := s.AppendJournal(ctx, createTestTransfer(1, "tx-2", alice, bob, 5))
	assert.ErrorIs(t, err, ErrJournalMoved)
}

func TestAppendJournal_GapFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.AppendJournal(ctx, createTestTransfer(2, "tx-2", alice, bob, 5))
	assert.ErrorIs(t, err, ErrJournalMoved)

	seq, err := s.LastJournalSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)
}

func TestAppendJournal_BatchIsAtomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.AppendJournal(ctx,
		createTestTransfer(1, "tx-1", alice, bob, 1),
		createTestTransfer(2, "tx-2", alice, bob, 2),
		createTestTransfer(3, "tx-1", alice, bob, 3),
	)
	require.ErrorIs(t, err, ErrDuplicateID)

	entries, err := s.ReadJournalAfter(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed batch writes nothing")

	require.NoError(t, s.AppendJournal(ctx,
		createTestTransfer(1, "tx-1", alice, bob, 1),
		createTestTransfer(2, "tx-2", alice, bob, 2),
	))
	seq, err := s.LastJournalSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestAppendJournal_NoEntries(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.AppendJournal(context.Background()))
}

func TestWriteSnapshot_StoresBalances(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	data := universe.SupportingData{
		entry("bob", "main", 7),
		entry("alice", "main", 3),
		entry("carol", "main", 0),
	}
	rec := createTestSnapshot(t, 0, 0, data)
	require.NoError(t, s.WriteSnapshot(ctx, rec, data))

	got, err := s.ReadSnapshot(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	balances, err := s.ReadSnapshotBalances(ctx, 0)
	require.NoError(t, err)
	require.Len(t, balances, 2, "zero entries are not stored")
	assert.Equal(t, alice, balances[0].Label)
	assert.Equal(t, "3", balances[0].Balance.String())
	assert.Equal(t, bob, balances[1].Label)
	assert.Equal(t, "7", balances[1].Balance.String())
}

func TestWriteSnapshot_DuplicateHeight(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := universe.SupportingData{entry("alice", "main", 1)}
	require.NoError(t, s.WriteSnapshot(ctx, createTestSnapshot(t, 0, 0, first), first))

	second := universe.SupportingData{entry("alice", "main", 2)}
	err := s.WriteSnapshot(ctx, createTestSnapshot(t, 0, 0, second), second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSnapshotExists))

	// The original balances must survive the rejected write.
	balances, err := s.ReadSnapshotBalances(ctx, 0)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "1", balances[0].Balance.String())
}

func TestWriteSnapshot_DuplicateLabelRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	data := universe.SupportingData{entry("alice", "main", 1), entry("alice", "main", 2)}
	rec := createTestSnapshot(t, 0, 0, universe.SupportingData{entry("alice", "main", 1)})

	err := s.WriteSnapshot(ctx, rec, data)
	require.Error(t, err)

	_, err = s.ReadSnapshot(ctx, 0)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWriteSnapshot_StaleJournalSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendJournal(ctx, createTestTransfer(1, "tx-1", alice, bob, 5)))

	data := universe.SupportingData{entry("alice", "main", 1)}
	err := s.WriteSnapshot(ctx, createTestSnapshot(t, 0, 0, data), data)
	require.ErrorIs(t, err, ErrJournalMoved)

	_, err = s.ReadSnapshot(ctx, 0)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, s.WriteSnapshot(ctx, createTestSnapshot(t, 0, 1, data), data))
}

func TestWriteSnapshot_LargeAmounts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	huge := universe.MustParseBalance("340282366920938463463374607431768211456") // 2^128
	data := universe.SupportingData{{Label: alice, Balance: huge}}
	require.NoError(t, s.WriteSnapshot(ctx, createTestSnapshot(t, 0, 0, data), data))

	got, err := s.ReadBalanceAt(ctx, 0, alice)
	require.NoError(t, err)
	assert.True(t, huge.Equal(got))
}
