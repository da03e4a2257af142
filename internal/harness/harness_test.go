package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dlog/internal/merkle"
)

func height(h uint64) *uint64 { return &h }

func TestRun_TransferAndFold(t *testing.T) {
	scenario := &Scenario{
		Name:        "transfer_and_fold",
		Description: "transfer then fold",
		Setup: []Step{
			{Op: OpMint, To: "alice/main", Amount: "50"},
		},
		Flow: []Step{
			{Op: OpTransfer, From: "alice/main", To: "bob/main", Amount: "20"},
			{Op: OpFold},
			{Op: OpVerify, Height: height(0)},
		},
		Assertions: []Assertion{
			{Type: AssertBalance, Label: "alice/main", Amount: "30"},
			{Type: AssertBalance, Label: "bob/main", Amount: "20"},
			{Type: AssertTotalSupply, Amount: "50"},
			{Type: AssertSnapshot, Height: height(0)},
			{Type: AssertRoundTrip},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 3)

	// Setup consumed tx-0001.
	transfer := result.Trace[0]
	assert.Equal(t, ExpectOK, transfer.Result)
	assert.Equal(t, "tx-0002", transfer.ID)
	assert.Equal(t, int64(2), transfer.Seq)

	fold := result.Trace[1]
	require.NotNil(t, fold.Height)
	assert.Equal(t, uint64(0), *fold.Height)
	assert.Len(t, fold.Root, 64)

	verify := result.Trace[2]
	assert.Equal(t, ExpectOK, verify.Result)
	assert.Equal(t, fold.Root, verify.Root)
}

func TestRun_ExpectedFailures(t *testing.T) {
	scenario := &Scenario{
		Name:        "expected_failures",
		Description: "rejections that the scenario expects",
		Flow: []Step{
			{Op: OpBurn, From: "alice/main", Amount: "1", Expect: "INSUFFICIENT_BALANCE"},
			{Op: OpMint, To: "alice/main", Amount: "-3", Expect: "INVALID_AMOUNT"},
			{Op: OpMint, To: "alice/main", Amount: "abc", Expect: "GENERIC"},
			{Op: OpVerify, Height: height(0), Expect: "GENERIC"},
			{Op: OpFold},
		},
		Assertions: []Assertion{
			{Type: AssertTotalSupply, Amount: "0"},
			{Type: AssertSnapshot, Height: height(0), Root: merkle.EmptyRoot.String()},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	for _, event := range result.Trace[:4] {
		assert.Empty(t, event.ID)
		assert.Zero(t, event.Seq)
		assert.Nil(t, event.Height)
	}
}

func TestRun_MismatchedExpectationFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "a step that should fail succeeds",
		Flow: []Step{
			{Op: OpMint, To: "alice/main", Amount: "1", Expect: "INSUFFICIENT_BALANCE"},
			{Op: OpBurn, From: "alice/main", Amount: "2"},
		},
		Assertions: []Assertion{
			{Type: AssertBalance, Label: "alice/main", Amount: "7"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "flow[0] mint: expected INSUFFICIENT_BALANCE, got ok", result.Errors[0])
	assert.Equal(t, "flow[1] burn: expected ok, got INSUFFICIENT_BALANCE", result.Errors[1])
	assert.Contains(t, result.Errors[2], "assertions[0]")
	assert.Contains(t, result.Errors[2], "alice/main = 7")
}

func TestRun_SetupFailureIsAnError(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "setup overdraws",
		Setup: []Step{
			{Op: OpBurn, From: "alice/main", Amount: "1"},
		},
		Flow:       []Step{{Op: OpFold}},
		Assertions: []Assertion{{Type: AssertRoundTrip}},
	}

	result, err := Run(scenario)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "failed to execute setup: step 0 (burn): INSUFFICIENT_BALANCE")
}

func TestRun_Isolated(t *testing.T) {
	scenario := &Scenario{
		Name:        "isolated",
		Description: "each run starts from an empty ledger",
		Flow:        []Step{{Op: OpMint, To: "alice/main", Amount: "5"}},
		Assertions:  []Assertion{{Type: AssertTotalSupply, Amount: "5"}},
	}

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.True(t, second.Pass, "errors: %v", second.Errors)
	assert.Equal(t, first.Trace, second.Trace)
}
