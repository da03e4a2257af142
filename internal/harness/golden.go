package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/dlog/internal/canonical"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonical converts a TraceSnapshot to a canonical.Object.
// Optional fields are left out rather than written empty.
func (s *TraceSnapshot) toCanonical() canonical.Object {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		obj := canonical.Object{
			"step":   event.Step,
			"op":     event.Op,
			"result": event.Result,
		}
		if event.From != "" {
			obj["from"] = event.From
		}
		if event.To != "" {
			obj["to"] = event.To
		}
		if event.Amount != "" {
			obj["amount"] = event.Amount
		}
		if event.ID != "" {
			obj["id"] = event.ID
		}
		if event.Seq != 0 {
			obj["seq"] = event.Seq
		}
		if event.Height != nil {
			obj["height"] = *event.Height
		}
		if event.Root != "" {
			obj["root"] = event.Root
		}
		traceList[i] = obj
	}

	return canonical.Object{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// MarshalTrace returns the canonical JSON of a scenario trace, the exact
// bytes stored in golden files.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	return canonical.Marshal(snapshot.toCanonical())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
