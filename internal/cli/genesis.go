package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dlog/internal/genesis"
	"github.com/roach88/dlog/internal/universe"
)

// GenesisOptions holds flags for the genesis command.
type GenesisOptions struct {
	*RootOptions
	Check bool
}

// GenesisResult is the JSON payload of the genesis command.
type GenesisResult struct {
	Allocations int              `json:"allocations"`
	Applied     int              `json:"applied"`
	TotalSupply universe.Balance `json:"total_supply"`
}

// NewGenesisCommand creates the genesis command.
func NewGenesisCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenesisOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "genesis <file>",
		Short: "Mint the initial allocations from a genesis file",
		Long: `Load a YAML (.yaml, .yml) or CUE (.cue) genesis file and mint every
allocation into an empty ledger. A ledger that already has journal entries
is refused.

With --check the file is only validated; the database is not opened.

Example:
  dlog genesis ./genesis.yaml
  dlog genesis --check ./genesis.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenesis(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "validate the file without applying it")

	return cmd
}

func runGenesis(opts *GenesisOptions, path string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	g, err := genesis.LoadFile(path)
	if err != nil {
		return genesisFailure(formatter, err)
	}
	mints, err := g.Mints()
	if err != nil {
		return genesisFailure(formatter, err)
	}
	formatter.VerboseLog("loaded %d allocations from %s", len(mints), path)

	result := GenesisResult{Allocations: len(mints), TotalSupply: g.TotalSupply()}
	if !opts.Check {
		n, closeFn, err := opts.openNode(ctx, opts.newLogger(cmd.ErrOrStderr(), true))
		if err != nil {
			return formatter.Fail("open ledger", err)
		}
		defer closeFn()

		result.Applied, err = n.ApplyGenesis(ctx, mints)
		if err != nil {
			return formatter.Fail("genesis", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	if opts.Check {
		return formatter.Success(fmt.Sprintf("genesis ok: %d allocations, total supply %s", result.Allocations, result.TotalSupply))
	}
	return formatter.Success(fmt.Sprintf("genesis applied: %d allocations, total supply %s", result.Applied, result.TotalSupply))
}

func genesisFailure(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeGenesis, err.Error(), nil)
	return WrapExitError(ExitCommandError, "invalid genesis", err)
}
