package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dlog/internal/universe"
)

// Scenario defines a ledger behaviour test.
// It seeds a fresh ledger, runs a flow of operations with expected outcomes,
// then asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup contains operations applied before the flow. Every setup step
	// must succeed; setup steps are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the operations under test, in order.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one ledger operation.
type Step struct {
	// Op is one of transfer, mint, burn, fold, verify.
	Op string `yaml:"op"`

	// From and To are "owner/label" references.
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`

	// Amount is a base-10 string.
	Amount string `yaml:"amount,omitempty"`

	// Height selects the snapshot for verify.
	Height *uint64 `yaml:"height,omitempty"`

	// Expect is "ok" (the default) or the error code the step must fail
	// with, e.g. INSUFFICIENT_BALANCE.
	Expect string `yaml:"expect,omitempty"`
}

// Operation names.
const (
	OpTransfer = "transfer"
	OpMint     = "mint"
	OpBurn     = "burn"
	OpFold     = "fold"
	OpVerify   = "verify"
)

// ExpectOK is the outcome of a step that succeeded.
const ExpectOK = "ok"

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "balance": label holds exactly amount
	// - "total_supply": the ledger sums to amount
	// - "trace_count": op appears exactly count times
	// - "trace_order": ops appear in this order
	// - "snapshot": a snapshot exists at height (with root, if given)
	// - "round_trip": the latest snapshot unfolds to the live ledger
	Type string `yaml:"type"`

	// Label is an "owner/label" reference (balance).
	Label string `yaml:"label,omitempty"`

	// Amount is the expected base-10 amount (balance, total_supply).
	Amount string `yaml:"amount,omitempty"`

	// Op and Count are used by trace_count.
	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`

	// Ops is the expected order (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Height and Root are used by snapshot. Root is optional.
	Height *uint64 `yaml:"height,omitempty"`
	Root   string  `yaml:"root,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance     = "balance"
	AssertTotalSupply = "total_supply"
	AssertTraceCount  = "trace_count"
	AssertTraceOrder  = "trace_order"
	AssertSnapshot    = "snapshot"
	AssertRoundTrip   = "round_trip"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob scenarios: %w", err)
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	names := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := names[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", filepath.Base(path), s.Name, prev)
		}
		names[s.Name] = filepath.Base(path)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != "" && step.Expect != ExpectOK {
			return fmt.Errorf("setup[%d]: setup steps must succeed", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks the fields each op needs. Amounts are not parsed
// here so a scenario can exercise malformed input.
func validateStep(step Step) error {
	switch step.Op {
	case OpTransfer:
		if step.From == "" || step.To == "" {
			return fmt.Errorf("transfer requires from and to")
		}
	case OpMint:
		if step.To == "" {
			return fmt.Errorf("mint requires to")
		}
	case OpBurn:
		if step.From == "" {
			return fmt.Errorf("burn requires from")
		}
	case OpFold:
	case OpVerify:
		if step.Height == nil {
			return fmt.Errorf("verify requires height")
		}
	case "":
		return fmt.Errorf("op is required")
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}

	switch step.Op {
	case OpTransfer, OpMint, OpBurn:
		if step.Amount == "" {
			return fmt.Errorf("%s requires amount", step.Op)
		}
	}

	switch universe.ErrorCode(step.Expect) {
	case "", ExpectOK,
		universe.CodeInvalidAmount,
		universe.CodeInsufficientBalance,
		universe.CodeUnknownLabel,
		universe.CodeRootMismatch,
		universe.CodeGeneric:
	default:
		return fmt.Errorf("unknown expected outcome %q", step.Expect)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertBalance:
		if a.Label == "" || a.Amount == "" {
			return fmt.Errorf("assertions[%d]: label and amount are required for balance", index)
		}
	case AssertTotalSupply:
		if a.Amount == "" {
			return fmt.Errorf("assertions[%d]: amount is required for total_supply", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertSnapshot:
		if a.Height == nil {
			return fmt.Errorf("assertions[%d]: height is required for snapshot", index)
		}
	case AssertRoundTrip:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// parseLabelRef parses an "owner/label" reference.
func parseLabelRef(s string) (universe.LabelID, error) {
	owner, label, ok := strings.Cut(s, "/")
	if !ok {
		return universe.LabelID{}, fmt.Errorf("label %q: want owner/label", s)
	}
	return universe.NewLabelID(owner, label), nil
}
