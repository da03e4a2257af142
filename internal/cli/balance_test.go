package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceCommand_UnknownLabelIsZero(t *testing.T) {
	opts := testOptions(t, "text")
	assert.Equal(t, "nobody/main: 0\n", mustExecute(t, opts, NewBalanceCommand, "nobody/main"))
}

func TestBalanceCommand_NormalizesLabel(t *testing.T) {
	opts := testOptions(t, "text")
	mustExecute(t, opts, NewMintCommand, "jose\u0301/main", "5")

	// Decomposed and precomposed spellings address the same account.
	assert.Equal(t, "jos\u00e9/main: 5\n", mustExecute(t, opts, NewBalanceCommand, "jos\u00e9/main"))
}

func TestBalanceCommand_History(t *testing.T) {
	opts := testOptions(t, "json")
	mustExecute(t, opts, NewMintCommand, "alice/main", "100")
	mustExecute(t, opts, NewFoldCommand)
	mustExecute(t, opts, NewTransferCommand, "alice/main", "bob/main", "100")
	mustExecute(t, opts, NewFoldCommand)
	mustExecute(t, opts, NewMintCommand, "alice/main", "7")
	mustExecute(t, opts, NewFoldCommand)

	var result BalanceResult
	decodeData(t, mustExecute(t, opts, NewBalanceCommand, "alice/main", "--history"), &result)

	assert.Equal(t, "alice", result.Owner)
	assert.Equal(t, "7", result.Balance.String())
	require.Len(t, result.History, 2, "height 1 held nothing for alice")
	assert.Equal(t, uint64(0), result.History[0].Height)
	assert.Equal(t, "100", result.History[0].Balance.String())
	assert.Equal(t, uint64(2), result.History[1].Height)
	assert.Equal(t, "7", result.History[1].Balance.String())
}

func TestBalanceCommand_HistoryText(t *testing.T) {
	opts := testOptions(t, "text")

	out := mustExecute(t, opts, NewBalanceCommand, "alice/main", "--history")
	assert.Equal(t, "alice/main: 0\nno snapshot holds a balance for this label\n", out)

	mustExecute(t, opts, NewMintCommand, "alice/main", "3")
	mustExecute(t, opts, NewFoldCommand)

	out = mustExecute(t, opts, NewBalanceCommand, "alice/main", "--history")
	assert.Equal(t, "alice/main: 3\n  height 0: 3\n", out)
}

func TestBalanceCommand_At(t *testing.T) {
	opts := testOptions(t, "json")
	mustExecute(t, opts, NewMintCommand, "alice/main", "100")
	mustExecute(t, opts, NewFoldCommand)
	mustExecute(t, opts, NewMintCommand, "alice/main", "5")

	var result BalanceResult
	decodeData(t, mustExecute(t, opts, NewBalanceCommand, "alice/main", "--at", "0"), &result)
	assert.Equal(t, "100", result.Balance.String())
	require.NotNil(t, result.Height)
	assert.Equal(t, uint64(0), *result.Height)

	var live BalanceResult
	decodeData(t, mustExecute(t, opts, NewBalanceCommand, "alice/main"), &live)
	assert.Equal(t, "105", live.Balance.String())
	assert.Nil(t, live.Height)
}

func TestBalanceCommand_AtText(t *testing.T) {
	opts := testOptions(t, "text")
	mustExecute(t, opts, NewMintCommand, "alice/main", "3")
	mustExecute(t, opts, NewFoldCommand)

	assert.Equal(t, "alice/main: 3 at height 0\n", mustExecute(t, opts, NewBalanceCommand, "alice/main", "--at", "0"))
	assert.Equal(t, "bob/main: 0 at height 0\n", mustExecute(t, opts, NewBalanceCommand, "bob/main", "--at", "0"))
}

func TestBalanceCommand_AtMissingHeight(t *testing.T) {
	opts := testOptions(t, "json")

	_, err := execute(t, opts, NewBalanceCommand, "alice/main", "--at", "4")
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitFailure, exitErr.Code)
}
