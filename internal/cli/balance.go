package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/universe"
)

// BalanceOptions holds flags for the balance command.
type BalanceOptions struct {
	*RootOptions
	History bool
	At      uint64
}

// BalanceResult is the JSON payload of the balance command.
type BalanceResult struct {
	Owner   string               `json:"owner"`
	Label   string               `json:"label"`
	Balance universe.Balance     `json:"balance"`
	Height  *uint64              `json:"height,omitempty"`
	History []store.BalancePoint `json:"history,omitempty"`
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BalanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balance <owner/label>",
		Short: "Show the balance of a label",
		Long: `Show the live balance of a label. Unknown labels have a zero balance.

With --at, show the balance recorded in the snapshot at that height
instead. With --history, also list the balance recorded at every snapshot
in which the label held funds.

Example:
  dlog balance alice/main
  dlog balance alice/main --at 3
  dlog balance alice/main --history --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.History, "history", false, "include per-snapshot history")
	cmd.Flags().Uint64Var(&opts.At, "at", 0, "read the balance from the snapshot at this height")

	return cmd
}

func runBalance(opts *BalanceOptions, arg string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	label, err := parseLabel(arg)
	if err != nil {
		return formatter.Fail("balance", err)
	}

	n, closeFn, err := opts.openNode(ctx, opts.newLogger(cmd.ErrOrStderr(), true))
	if err != nil {
		return formatter.Fail("open ledger", err)
	}
	defer closeFn()

	result := BalanceResult{
		Owner: label.Owner,
		Label: label.Label,
	}
	if cmd.Flags().Changed("at") {
		result.Balance, err = n.BalanceAt(ctx, opts.At, label)
		if err != nil {
			return formatter.Fail("balance", err)
		}
		result.Height = &opts.At
	} else {
		result.Balance = n.BalanceOf(label)
	}
	if opts.History {
		result.History, err = n.BalanceHistory(ctx, label)
		if err != nil {
			return formatter.Fail("balance history", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", label, result.Balance)
	if result.Height != nil {
		fmt.Fprintf(&b, " at height %d", *result.Height)
	}
	if opts.History {
		if len(result.History) == 0 {
			b.WriteString("\nno snapshot holds a balance for this label")
		}
		for _, p := range result.History {
			fmt.Fprintf(&b, "\n  height %d: %s", p.Height, p.Balance)
		}
	}
	return formatter.Success(b.String())
}
