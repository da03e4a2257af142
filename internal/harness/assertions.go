package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dlog/internal/node"
	"github.com/roach88/dlog/internal/universe"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Step, event.Op)
			if event.From != "" {
				fmt.Fprintf(&buf, " from=%s", event.From)
			}
			if event.To != "" {
				fmt.Fprintf(&buf, " to=%s", event.To)
			}
			if event.Amount != "" {
				fmt.Fprintf(&buf, " amount=%s", event.Amount)
			}
			fmt.Fprintf(&buf, " -> %s\n", event.Result)
		}
	}

	return buf.String()
}

// AssertionContext provides what state assertions need.
type AssertionContext struct {
	Node *node.Node
	Ctx  context.Context
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result.Trace, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(trace []TraceEvent, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceCount:
		return assertTraceCount(trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(trace, a)
	}

	if actx == nil || actx.Node == nil {
		return fmt.Errorf("%s assertion requires a node", a.Type)
	}
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	switch a.Type {
	case AssertBalance:
		return assertBalance(actx.Node, a)
	case AssertTotalSupply:
		return assertTotalSupply(actx.Node, a)
	case AssertSnapshot:
		return assertSnapshot(ctx, actx.Node, a)
	case AssertRoundTrip:
		return assertRoundTrip(ctx, actx.Node)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceCount checks that op succeeded exactly count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == assertion.Op && event.Result == ExpectOK {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d successful %s steps", assertion.Count, assertion.Op),
			Actual:   fmt.Sprintf("%d successful %s steps", count, assertion.Op),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the first successful occurrence of each op
// comes in the given order. Intervening steps are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Result != ExpectOK {
			continue
		}
		if _, seen := positions[event.Op]; !seen {
			positions[event.Op] = i + 1 // 1-indexed for readability
		}
	}

	for _, op := range assertion.Ops {
		if positions[op] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", assertion.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Ops); i++ {
		prev, curr := assertion.Ops[i-1], assertion.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", assertion.Ops),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertBalance(n *node.Node, a Assertion) error {
	label, err := parseLabelRef(a.Label)
	if err != nil {
		return err
	}
	want, err := universe.ParseBalance(a.Amount)
	if err != nil {
		return fmt.Errorf("balance assertion amount: %w", err)
	}

	if got := n.BalanceOf(label); !got.Equal(want) {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("%s = %s", label, want),
			Actual:   fmt.Sprintf("%s = %s", label, got),
		}
	}
	return nil
}

func assertTotalSupply(n *node.Node, a Assertion) error {
	want, err := universe.ParseBalance(a.Amount)
	if err != nil {
		return fmt.Errorf("total_supply assertion amount: %w", err)
	}

	if got := n.TotalSupply(); !got.Equal(want) {
		return &AssertionError{
			Type:     AssertTotalSupply,
			Expected: want.String(),
			Actual:   got.String(),
		}
	}
	return nil
}

func assertSnapshot(ctx context.Context, n *node.Node, a Assertion) error {
	rec, err := n.Snapshot(ctx, *a.Height)
	if errors.Is(err, node.ErrSnapshotNotFound) {
		return &AssertionError{
			Type:     AssertSnapshot,
			Expected: fmt.Sprintf("snapshot at height %d", *a.Height),
			Actual:   "not found",
		}
	}
	if err != nil {
		return err
	}

	if a.Root != "" && rec.Root.String() != a.Root {
		return &AssertionError{
			Type:     AssertSnapshot,
			Expected: fmt.Sprintf("root %s at height %d", a.Root, *a.Height),
			Actual:   fmt.Sprintf("root %s", rec.Root),
		}
	}
	return nil
}

// assertRoundTrip unfolds the latest snapshot from its stored supporting
// data and compares the result with the live ledger. It only holds when
// nothing was applied after the last fold.
func assertRoundTrip(ctx context.Context, n *node.Node) error {
	latest, err := n.LatestSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("round_trip: %w", err)
	}
	if latest.JournalSeq != n.JournalSeq() {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: fmt.Sprintf("latest snapshot covers journal seq %d", n.JournalSeq()),
			Actual:   fmt.Sprintf("covers seq %d", latest.JournalSeq),
		}
	}

	if _, err := n.Verify(ctx, latest.Height); err != nil {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: fmt.Sprintf("snapshot %d unfolds", latest.Height),
			Actual:   err.Error(),
		}
	}

	// The same root recomputed over the live ledger proves the unfolded
	// ledger equals it.
	live := universe.New()
	if err := live.Restore(latest.Snapshot, n.Entries()); err != nil {
		return &AssertionError{
			Type:     AssertRoundTrip,
			Expected: "live ledger matches the latest snapshot",
			Actual:   err.Error(),
		}
	}
	return nil
}
