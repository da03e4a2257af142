package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/universe"
)

// NewFoldCommand creates the fold command.
func NewFoldCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fold",
		Short: "Fold the ledger into a new snapshot",
		Long: `Fold the current ledger into a snapshot and store it with its supporting
balances. Every fold advances the height by one, even when nothing changed.

Example:
  dlog fold
  dlog fold --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			formatter := rootOpts.formatter(cmd)

			n, closeFn, err := rootOpts.openNode(ctx, rootOpts.newLogger(cmd.ErrOrStderr(), true))
			if err != nil {
				return formatter.Fail("open ledger", err)
			}
			defer closeFn()

			rec, err := n.Fold(ctx)
			if err != nil {
				return formatter.Fail("fold", err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(rec)
			}
			return formatter.Success(formatSnapshot(rec))
		},
	}
}

// SnapshotsOptions holds flags for the snapshots command.
type SnapshotsOptions struct {
	*RootOptions
	Limit int
}

// NewSnapshotsCommand creates the snapshots command.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List stored snapshots, newest first",
		Long: `List stored snapshots, newest first.

Example:
  dlog snapshots --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshots(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum snapshots to list (0 lists all)")

	return cmd
}

func runSnapshots(opts *SnapshotsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	formatter := opts.formatter(cmd)

	if opts.Limit < 0 {
		return formatter.Fail("snapshots", badArgument("--limit must not be negative"))
	}

	n, closeFn, err := opts.openNode(ctx, opts.newLogger(cmd.ErrOrStderr(), true))
	if err != nil {
		return formatter.Fail("open ledger", err)
	}
	defer closeFn()

	recs, err := n.Snapshots(ctx, opts.Limit)
	if err != nil {
		return formatter.Fail("list snapshots", err)
	}

	if opts.Format == "json" {
		if recs == nil {
			recs = []store.SnapshotRecord{}
		}
		return formatter.Success(recs)
	}
	if len(recs) == 0 {
		return formatter.Success("no snapshots")
	}
	lines := make([]string, len(recs))
	for i, rec := range recs {
		lines[i] = formatSnapshot(rec)
	}
	return formatter.Success(strings.Join(lines, "\n"))
}

// VerifyResult is the JSON payload of the verify command.
type VerifyResult struct {
	store.SnapshotRecord
	Verified bool `json:"verified"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <height>",
		Short: "Unfold a stored snapshot and check its root",
		Long: `Recompute the root of a stored snapshot from its supporting balances.

Exits 1 with ROOT_MISMATCH if the stored balances no longer produce the
recorded root.

Example:
  dlog verify 12`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			formatter := rootOpts.formatter(cmd)

			height, err := parseHeight(args[0])
			if err != nil {
				return formatter.Fail("verify", err)
			}

			n, closeFn, err := rootOpts.openNode(ctx, rootOpts.newLogger(cmd.ErrOrStderr(), true))
			if err != nil {
				return formatter.Fail("open ledger", err)
			}
			defer closeFn()

			rec, err := n.Verify(ctx, height)
			if err != nil {
				return formatter.Fail(fmt.Sprintf("verify height %d", height), err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(VerifyResult{SnapshotRecord: rec, Verified: true})
			}
			return formatter.Success(fmt.Sprintf("verified %s", formatSnapshot(rec)))
		},
	}
}

// ProveResult is the JSON payload of the prove command.
type ProveResult struct {
	Snapshot store.SnapshotRecord  `json:"snapshot"`
	Proof    universe.BalanceProof `json:"proof"`
}

// NewProveCommand creates the prove command.
func NewProveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prove <height> <owner/label>",
		Short: "Print an inclusion proof for a balance at a snapshot",
		Long: `Build a Merkle inclusion proof showing the label's balance is part of the
snapshot at height. The proof is checked against the snapshot root before
it is printed. Labels without funds at that height are UNKNOWN_LABEL.

Example:
  dlog prove 12 alice/main --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			formatter := rootOpts.formatter(cmd)

			height, err := parseHeight(args[0])
			if err != nil {
				return formatter.Fail("prove", err)
			}
			label, err := parseLabel(args[1])
			if err != nil {
				return formatter.Fail("prove", err)
			}

			n, closeFn, err := rootOpts.openNode(ctx, rootOpts.newLogger(cmd.ErrOrStderr(), true))
			if err != nil {
				return formatter.Fail("open ledger", err)
			}
			defer closeFn()

			proof, rec, err := n.Prove(ctx, height, label)
			if err != nil {
				return formatter.Fail(fmt.Sprintf("prove %s at height %d", label, height), err)
			}
			if err := universe.VerifyBalance(rec.Snapshot, proof); err != nil {
				return formatter.Fail(fmt.Sprintf("prove %s at height %d", label, height), err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(ProveResult{Snapshot: rec, Proof: proof})
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%s holds %s in %s\n", label, proof.Entry.Balance, formatSnapshot(rec))
			fmt.Fprintf(&b, "leaf %s (%d of %d)", proof.Proof.Leaf, proof.Proof.Index, proof.Proof.Count)
			for _, step := range proof.Proof.Path {
				side := "right"
				if step.Left {
					side = "left"
				}
				fmt.Fprintf(&b, "\n  %-5s %s", side, step.Sibling)
			}
			return formatter.Success(b.String())
		},
	}
}

func formatSnapshot(rec store.SnapshotRecord) string {
	return fmt.Sprintf("height=%d root=%s timestamp_ms=%d journal_seq=%d",
		rec.Height, rec.Root, rec.TimestampMs, rec.JournalSeq)
}
