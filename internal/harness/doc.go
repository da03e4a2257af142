// Package harness runs ledger scenarios as executable tests.
//
// A scenario seeds a fresh ledger, runs a flow of operations with expected
// outcomes, then checks assertions against the trace and the final state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: basic_transfer
//	description: "A pays B and a fold summarizes the ledger"
//	setup:
//	  - op: mint
//	    to: alice/main
//	    amount: "100"
//	flow:
//	  - op: transfer
//	    from: alice/main
//	    to: bob/main
//	    amount: "30"
//	  - op: transfer
//	    from: bob/main
//	    to: alice/main
//	    amount: "1000"
//	    expect: INSUFFICIENT_BALANCE
//	  - op: fold
//	  - op: verify
//	    height: 0
//	assertions:
//	  - type: balance
//	    label: bob/main
//	    amount: "30"
//	  - type: round_trip
//
// Operations are transfer, mint, burn, fold and verify. A step's expect is
// "ok" unless given.
//
// # Assertion Types
//
//   - balance: a label holds exactly the given amount
//   - total_supply: all balances sum to the given amount
//   - trace_count: an op succeeded exactly N times
//   - trace_order: ops first succeeded in the given order
//   - snapshot: a snapshot exists at a height, optionally with a given root
//   - round_trip: the latest snapshot unfolds to the live ledger
//
// # Deterministic Testing
//
// Every scenario runs against an in-memory SQLite store with a frozen clock
// and sequential transaction ids, so traces are byte-identical across runs
// and can be compared with golden files in testdata/golden.
package harness
