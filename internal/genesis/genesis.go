// Package genesis loads the initial allocations of a ledger.
//
// A genesis file lists the balances that exist before the first
// transaction. It is written in YAML or CUE, picked by file extension, and
// is applied as one mint per allocation on an empty journal.
package genesis

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dlog/internal/universe"
)

// Allocation is one initial balance. Amount is a base-10 string so large
// values are never rounded through a float.
type Allocation struct {
	Owner  string `yaml:"owner" json:"owner"`
	Label  string `yaml:"label" json:"label"`
	Amount string `yaml:"amount" json:"amount"`
}

// Genesis is the parsed content of a genesis file.
type Genesis struct {
	Allocations []Allocation `yaml:"allocations" json:"allocations"`
}

// LoadFile reads path as YAML (.yaml, .yml) or CUE (.cue).
func LoadFile(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return ParseCUE(data, filepath.Base(path))
	default:
		return nil, fmt.Errorf("unsupported genesis format %q (want .yaml, .yml or .cue)", ext)
	}
}

// ParseYAML parses a YAML genesis document. Unknown fields are rejected.
func ParseYAML(data []byte) (*Genesis, error) {
	var g Genesis
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &g, nil
}

// Mints validates every allocation and converts it to a mint.
//
// Amounts must be positive integers and labels non-empty. An owner/label
// pair listed twice is rejected rather than summed.
func (g *Genesis) Mints() ([]universe.MintTx, error) {
	seen := make(map[universe.LabelID]int, len(g.Allocations))
	mints := make([]universe.MintTx, 0, len(g.Allocations))

	for i, a := range g.Allocations {
		label := universe.NewLabelID(a.Owner, a.Label)
		if err := label.Validate(); err != nil {
			return nil, fmt.Errorf("allocation %d: %w", i, err)
		}
		if prev, dup := seen[label]; dup {
			return nil, fmt.Errorf("allocation %d: %s already allocated by allocation %d", i, label, prev)
		}
		seen[label] = i

		amount, err := universe.ParseBalance(a.Amount)
		if err != nil {
			return nil, fmt.Errorf("allocation %d: %w", i, err)
		}
		if amount.IsZero() {
			return nil, fmt.Errorf("allocation %d: %w", i,
				universe.NewInvalidAmountError(fmt.Sprintf("allocation for %s must be greater than zero", label)))
		}

		mints = append(mints, universe.MintTx{To: label, Amount: amount})
	}
	return mints, nil
}

// TotalSupply is the sum of all allocations. Invalid amounts count as zero;
// call Mints first to validate.
func (g *Genesis) TotalSupply() universe.Balance {
	total := universe.Zero
	for _, a := range g.Allocations {
		if b, err := universe.ParseBalance(a.Amount); err == nil {
			total = total.Add(b)
		}
	}
	return total
}
