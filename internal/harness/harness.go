package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/dlog/internal/node"
	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/testutil"
	"github.com/roach88/dlog/internal/universe"
)

// Harness runs scenarios against a node backed by an in-memory store,
// so every step goes through the same journal, apply and fold path as a
// served ledger.
type Harness struct {
	node   *node.Node
	store  *store.Store
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// clock is frozen and transaction ids are sequential, so traces are
// identical across runs.
//
// Execution flow:
// 1. Create fresh in-memory database and node
// 2. Execute setup steps (all must succeed)
// 3. Execute flow steps, comparing each outcome with its expectation
// 4. Evaluate assertions
//
// Run returns an error only when the scenario could not be executed; a
// scenario whose expectations fail returns a Result with Pass false.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n, err := node.Open(ctx, st,
		node.WithIDGenerator(testutil.NewSequentialIDGenerator("tx")),
		node.WithClock(testutil.NewFrozenClock()),
		node.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open node: %w", err)
	}

	h := &Harness{node: n, store: st, logger: logger}

	for i, step := range scenario.Setup {
		event := h.execute(ctx, i, step)
		if event.Result != ExpectOK {
			return nil, fmt.Errorf("failed to execute setup: step %d (%s): %s", i, step.Op, event.Result)
		}
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		event := h.execute(ctx, i, step)
		result.AddTrace(event)

		want := step.Expect
		if want == "" {
			want = ExpectOK
		}
		if event.Result != want {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected %s, got %s", i, step.Op, want, event.Result))
		}
	}

	actx := &AssertionContext{Node: n, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// execute runs one step and describes its outcome. Failures are reported
// in the event, never returned.
func (h *Harness) execute(ctx context.Context, index int, step Step) TraceEvent {
	event := TraceEvent{
		Step:   index,
		Op:     step.Op,
		From:   step.From,
		To:     step.To,
		Amount: step.Amount,
	}

	switch step.Op {
	case OpTransfer, OpMint, OpBurn:
		tx, err := buildTx(step)
		if err != nil {
			event.Result = outcome(err)
			return event
		}
		receipt, err := h.node.Submit(ctx, tx)
		if err != nil {
			event.Result = outcome(err)
			return event
		}
		event.ID = receipt.ID
		event.Seq = receipt.Seq

	case OpFold:
		rec, err := h.node.Fold(ctx)
		if err != nil {
			event.Result = outcome(err)
			return event
		}
		event.Height = &rec.Height
		event.Root = rec.Root.String()

	case OpVerify:
		rec, err := h.node.Verify(ctx, *step.Height)
		if err != nil {
			event.Result = outcome(err)
			return event
		}
		event.Height = &rec.Height
		event.Root = rec.Root.String()
	}

	event.Result = ExpectOK
	h.logger.Debug("step executed", "step", index, "op", step.Op)
	return event
}

func buildTx(step Step) (universe.Transaction, error) {
	amount, err := universe.ParseBalance(step.Amount)
	if err != nil {
		return nil, err
	}

	switch step.Op {
	case OpTransfer:
		from, err := parseLabelRef(step.From)
		if err != nil {
			return nil, universe.NewGenericError(err.Error())
		}
		to, err := parseLabelRef(step.To)
		if err != nil {
			return nil, universe.NewGenericError(err.Error())
		}
		return universe.TransferTx{From: from, To: to, Amount: amount}, nil
	case OpMint:
		to, err := parseLabelRef(step.To)
		if err != nil {
			return nil, universe.NewGenericError(err.Error())
		}
		return universe.MintTx{To: to, Amount: amount}, nil
	default:
		from, err := parseLabelRef(step.From)
		if err != nil {
			return nil, universe.NewGenericError(err.Error())
		}
		return universe.BurnTx{From: from, Amount: amount}, nil
	}
}

// outcome maps an error to the code recorded in the trace.
func outcome(err error) string {
	if errors.Is(err, node.ErrSnapshotNotFound) {
		return string(universe.CodeGeneric)
	}
	return string(universe.CodeOf(err))
}
