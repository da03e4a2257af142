package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/dlog/internal/config"
	"github.com/roach88/dlog/internal/node"
	"github.com/roach88/dlog/internal/store"
	"github.com/roach88/dlog/internal/universe"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Database  string
	LogLevel  string
	LogFormat string // "json" | "text"

	// Config is the environment configuration the flag defaults came from.
	Config config.Config

	// NodeOptions are passed to node.Open after the logger. Tests use it
	// to inject ID generators and clocks.
	NodeOptions []node.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the dlog CLI.
// Flag defaults come from the DLOG_* environment; an invalid environment
// is reported when a command runs.
func NewRootCommand() *cobra.Command {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Defaults()
	}
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:   "dlog",
		Short: "dlog - universe ledger",
		Long: `A deterministic ledger of labeled balances that folds its state into
verifiable snapshots.

Settings are read from DLOG_DB, DLOG_ADDR, DLOG_FOLD_INTERVAL, DLOG_GENESIS,
DLOG_LOG_LEVEL and DLOG_LOG_FORMAT; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return WrapExitError(ExitCommandError, "invalid environment", cfgErr)
			}
			return opts.validate()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.DBPath, "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", cfg.LogLevel, "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", cfg.LogFormat, "log format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTransferCommand(opts))
	cmd.AddCommand(NewMintCommand(opts))
	cmd.AddCommand(NewBurnCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewFoldCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))
	cmd.AddCommand(NewProveCommand(opts))
	cmd.AddCommand(NewGenesisCommand(opts))

	return cmd
}

func (o *RootOptions) validate() error {
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	if !isValidFormat(o.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be one of %v", o.LogFormat, ValidFormats)
	}
	if _, err := config.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter builds the OutputFormatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newLogger builds the slog logger for a command. --verbose forces debug.
// One-shot commands pass quiet so routine info logs stay off the
// terminal unless asked for.
func (o *RootOptions) newLogger(w io.Writer, quiet bool) *slog.Logger {
	level, err := config.ParseLevel(o.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if quiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	if o.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if o.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openNode opens the database and recovers a node from it. The returned
// func closes the database.
func (o *RootOptions) openNode(ctx context.Context, logger *slog.Logger) (*node.Node, func(), error) {
	if o.Database == "" {
		return nil, nil, NewExitError(ExitCommandError, "--db must not be empty")
	}

	logger.Debug("opening database", "path", o.Database)
	st, err := store.Open(o.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	opts := append([]node.Option{node.WithLogger(logger)}, o.NodeOptions...)
	n, err := node.Open(ctx, st, opts...)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to recover ledger", err)
	}

	closeFn := func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}
	return n, closeFn, nil
}

// argumentError marks malformed positional arguments.
type argumentError struct {
	msg string
}

func (e *argumentError) Error() string { return e.msg }

func badArgument(format string, args ...any) error {
	return &argumentError{msg: fmt.Sprintf(format, args...)}
}

// parseLabel parses "owner/label". The owner may not contain '/', the
// label may.
func parseLabel(s string) (universe.LabelID, error) {
	owner, label, ok := strings.Cut(s, "/")
	if !ok {
		return universe.LabelID{}, badArgument("label %q: want owner/label", s)
	}
	id := universe.NewLabelID(owner, label)
	if err := id.Validate(); err != nil {
		return universe.LabelID{}, badArgument("label %q: %v", s, err)
	}
	return id, nil
}

// parseAmount parses a positive decimal amount. Zero is left for the
// ledger to reject with INVALID_AMOUNT.
func parseAmount(s string) (universe.Balance, error) {
	b, err := universe.ParseBalance(s)
	if universe.IsInvalidAmount(err) {
		return universe.Balance{}, err
	}
	if err != nil {
		return universe.Balance{}, badArgument("amount %q: want a decimal integer", s)
	}
	return b, nil
}

// parseHeight parses a snapshot height.
func parseHeight(s string) (uint64, error) {
	h, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, badArgument("height %q: want a non-negative integer", s)
	}
	return h, nil
}

// commandContext returns the command's context, or Background when it has
// none (commands built directly in tests).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
