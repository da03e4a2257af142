package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: test_scenario
description: "Test scenario for validation"
setup:
  - op: mint
    to: alice/main
    amount: "10"
flow:
  - op: transfer
    from: alice/main
    to: bob/main
    amount: "4"
  - op: verify
    height: 3
    expect: GENERIC
assertions:
  - type: balance
    label: bob/main
    amount: "4"
`

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Setup, 1)
	require.Len(t, scenario.Flow, 2)
	require.Len(t, scenario.Assertions, 1)

	assert.Equal(t, OpTransfer, scenario.Flow[0].Op)
	assert.Equal(t, "alice/main", scenario.Flow[0].From)
	assert.Equal(t, "4", scenario.Flow[0].Amount)
	require.NotNil(t, scenario.Flow[1].Height)
	assert.Equal(t, uint64(3), *scenario.Flow[1].Height)
	assert.Equal(t, "GENERIC", scenario.Flow[1].Expect)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	content := `
name: typo
description: "misspelled key"
flow:
  - op: fold
assertion:
  - type: round_trip
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nflow: [{op: fold}]\nassertions: [{type: round_trip}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nflow: [{op: fold}]\nassertions: [{type: round_trip}]",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\nassertions: [{type: round_trip}]",
			wantErr: "flow list is required",
		},
		{
			name:    "empty assertions",
			content: "name: n\ndescription: d\nflow: [{op: fold}]",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nflow: [{op: rebase}]\nassertions: [{type: round_trip}]",
			wantErr: `unknown op "rebase"`,
		},
		{
			name:    "transfer without to",
			content: "name: n\ndescription: d\nflow: [{op: transfer, from: a/b, amount: \"1\"}]\nassertions: [{type: round_trip}]",
			wantErr: "transfer requires from and to",
		},
		{
			name:    "mint without amount",
			content: "name: n\ndescription: d\nflow: [{op: mint, to: a/b}]\nassertions: [{type: round_trip}]",
			wantErr: "mint requires amount",
		},
		{
			name:    "verify without height",
			content: "name: n\ndescription: d\nflow: [{op: verify}]\nassertions: [{type: round_trip}]",
			wantErr: "verify requires height",
		},
		{
			name:    "unknown expectation",
			content: "name: n\ndescription: d\nflow: [{op: fold, expect: BOOM}]\nassertions: [{type: round_trip}]",
			wantErr: `unknown expected outcome "BOOM"`,
		},
		{
			name:    "failing setup",
			content: "name: n\ndescription: d\nsetup: [{op: burn, from: a/b, amount: \"1\", expect: INSUFFICIENT_BALANCE}]\nflow: [{op: fold}]\nassertions: [{type: round_trip}]",
			wantErr: "setup steps must succeed",
		},
		{
			name:    "balance without amount",
			content: "name: n\ndescription: d\nflow: [{op: fold}]\nassertions: [{type: balance, label: a/b}]",
			wantErr: "label and amount are required for balance",
		},
		{
			name:    "snapshot without height",
			content: "name: n\ndescription: d\nflow: [{op: fold}]\nassertions: [{type: snapshot}]",
			wantErr: "height is required for snapshot",
		},
		{
			name:    "trace_order without ops",
			content: "name: n\ndescription: d\nflow: [{op: fold}]\nassertions: [{type: trace_order}]",
			wantErr: "ops list is required for trace_order",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nflow: [{op: fold}]\nassertions: [{type: final_state}]",
			wantErr: `unknown assertion type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir_SortedAndUnique(t *testing.T) {
	dir := t.TempDir()
	write := func(file, name string) {
		content := "name: " + name + "\ndescription: d\nflow: [{op: fold}]\nassertions: [{type: round_trip}]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))
	}
	write("b.yaml", "second")
	write("a.yaml", "first")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first", scenarios[0].Name)
	assert.Equal(t, "second", scenarios[1].Name)

	write("c.yaml", "first")
	_, err = LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario name "first" already used by a.yaml`)
}

func TestParseLabelRef(t *testing.T) {
	label, err := parseLabelRef("alice/main/sub")
	require.NoError(t, err)
	assert.Equal(t, "alice", label.Owner)
	assert.Equal(t, "main/sub", label.Label)

	_, err = parseLabelRef("alice")
	require.Error(t, err)
}
