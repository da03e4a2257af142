package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/dlog/internal/api"
	"github.com/roach88/dlog/internal/genesis"
	"github.com/roach88/dlog/internal/node"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr         string
	FoldInterval time.Duration
	Genesis      string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger HTTP server",
		Long: `Recover the ledger from the database, then serve the HTTP API and fold
a new snapshot every --fold-interval while the journal keeps moving.

When --genesis is set and the journal is empty, the genesis allocations
are minted before the server starts. A non-empty journal skips genesis.

Example:
  dlog serve --db ./dlog.db --addr 127.0.0.1:8080
  dlog serve --genesis ./genesis.yaml --fold-interval 10s --log-format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", rootOpts.Config.Addr, "listen address")
	cmd.Flags().DurationVar(&opts.FoldInterval, "fold-interval", rootOpts.Config.FoldInterval, "scheduled fold interval (0 disables)")
	cmd.Flags().StringVar(&opts.Genesis, "genesis", rootOpts.Config.GenesisPath, "genesis allocations file (.yaml or .cue)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr(), false)

	if opts.Addr == "" {
		return NewExitError(ExitCommandError, "--addr must not be empty")
	}
	if opts.FoldInterval < 0 {
		return NewExitError(ExitCommandError, "--fold-interval must not be negative")
	}

	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	n, closeFn, err := opts.openNode(ctx, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if opts.Genesis != "" {
		if err := applyGenesisFile(ctx, n, opts.Genesis); err != nil {
			return err
		}
	}

	foldDone := make(chan struct{})
	if opts.FoldInterval > 0 {
		go func() {
			defer close(foldDone)
			if err := n.Run(ctx, opts.FoldInterval); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("fold loop stopped", "error", err)
			}
		}()
	} else {
		logger.Info("scheduled folds disabled")
		close(foldDone)
	}

	srv := api.New(n, logger)
	serveErr := srv.ListenAndServe(ctx, opts.Addr)
	cancel()
	<-foldDone

	if serveErr != nil {
		return WrapExitError(ExitFailure, "server error", serveErr)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// applyGenesisFile loads path and mints its allocations on an empty
// journal. A journal that already has entries is left alone.
func applyGenesisFile(ctx context.Context, n *node.Node, path string) error {
	g, err := genesis.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load genesis", err)
	}
	mints, err := g.Mints()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid genesis", err)
	}

	_, err = n.ApplyGenesis(ctx, mints)
	switch {
	case errors.Is(err, node.ErrNotEmpty):
		return nil
	case err != nil:
		return WrapExitError(ExitFailure, "genesis failed, no allocations applied", err)
	}
	return nil
}
