package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dlog/internal/node"
	"github.com/roach88/dlog/internal/universe"
)

// NewTransferCommand creates the transfer command.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer <from-owner/label> <to-owner/label> <amount>",
		Short: "Move an amount between two labels",
		Long: `Move an amount from one label to another.

The transfer is journaled and applied to the ledger in the database. A
missing label is an empty account; the source must hold at least the
amount.

Example:
  dlog transfer alice/main bob/savings 25
  dlog transfer --db ./dlog.db --format json alice/main bob/main 1000`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseLabel(args[0])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("transfer rejected", err)
			}
			to, err := parseLabel(args[1])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("transfer rejected", err)
			}
			amount, err := parseAmount(args[2])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("transfer rejected", err)
			}
			return submitTx(rootOpts, cmd, universe.TransferTx{From: from, To: to, Amount: amount})
		},
	}
}

// NewMintCommand creates the mint command.
func NewMintCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <owner/label> <amount>",
		Short: "Create new supply in a label",
		Long: `Create an amount out of nothing and credit it to a label.

Example:
  dlog mint treasury/reserve 1000000`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseLabel(args[0])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("mint rejected", err)
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("mint rejected", err)
			}
			return submitTx(rootOpts, cmd, universe.MintTx{To: to, Amount: amount})
		},
	}
}

// NewBurnCommand creates the burn command.
func NewBurnCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "burn <owner/label> <amount>",
		Short: "Destroy supply held by a label",
		Long: `Debit an amount from a label and remove it from the total supply.

Example:
  dlog burn treasury/reserve 500`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseLabel(args[0])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("burn rejected", err)
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return rootOpts.formatter(cmd).Fail("burn rejected", err)
			}
			return submitTx(rootOpts, cmd, universe.BurnTx{From: from, Amount: amount})
		},
	}
}

// txResult is the JSON payload for an accepted transaction.
type txResult struct {
	node.Receipt
	TotalSupply universe.Balance `json:"total_supply"`
}

func submitTx(opts *RootOptions, cmd *cobra.Command, tx universe.Transaction) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)
	logger := opts.newLogger(cmd.ErrOrStderr(), true)

	n, closeFn, err := opts.openNode(ctx, logger)
	if err != nil {
		return formatter.Fail("open ledger", err)
	}
	defer closeFn()

	receipt, err := n.Submit(ctx, tx)
	if err != nil {
		return formatter.Fail(fmt.Sprintf("%s rejected", tx.Kind()), err)
	}

	if opts.Format == "json" {
		return formatter.Success(txResult{Receipt: receipt, TotalSupply: n.TotalSupply()})
	}
	return formatter.Success(fmt.Sprintf("%s accepted: id=%s seq=%d", receipt.Kind, receipt.ID, receipt.Seq))
}
