package universe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dlog/internal/testutil"
)

var (
	alice = NewLabelID("alice", "main")
	bob   = NewLabelID("bob", "main")
	carol = NewLabelID("carol", "savings")
)

// newTestUniverse returns a universe with a frozen clock, seeded by mints.
func newTestUniverse(t *testing.T, seed map[LabelID]uint64) *Universe {
	t.Helper()
	u := New(WithClock(testutil.NewFrozenClock()))
	for label, amount := range seed {
		require.NoError(t, u.Apply(MintTx{To: label, Amount: NewBalance(amount)}))
	}
	return u
}

func transfer(from, to LabelID, amount uint64) TransferTx {
	return TransferTx{From: from, To: to, Amount: NewBalance(amount)}
}
