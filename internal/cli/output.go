package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/dlog/internal/node"
	"github.com/roach88/dlog/internal/universe"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Ledger rejected the operation (insufficient balance, root mismatch, etc.)
	ExitCommandError = 2 // Command error (bad arguments, database unreadable, etc.)
)

// CLI-only error codes. Ledger errors are reported with their own codes
// (INVALID_AMOUNT, ROOT_MISMATCH, ...).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeBadArgument = "E002" // Malformed label, amount or height
	ErrCodeDatabase    = "E003" // Database open/recover failure
	ErrCodeNotFound    = "E005" // Snapshot not found
	ErrCodeGenesis     = "E006" // Genesis file unreadable or invalid
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "INSUFFICIENT_BALANCE", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// In text mode data is printed with fmt.Println, so callers usually pass
// a preformatted string.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports err through the formatter and returns the ExitError the
// command should return. Ledger errors keep their own code and exit with
// ExitFailure; anything else exits with ExitCommandError.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit := classify(err)

	var details any
	var le *universe.LedgerError
	if errors.As(err, &le) && le.Label != nil {
		details = map[string]string{"owner": le.Label.Owner, "label": le.Label.Label}
	}

	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), details)
	return WrapExitError(exit, message, err)
}

// classify picks the reported error code and exit code for err.
func classify(err error) (string, int) {
	var le *universe.LedgerError
	var exitErr *ExitError
	var argErr *argumentError
	switch {
	case errors.Is(err, node.ErrSnapshotNotFound):
		return ErrCodeNotFound, ExitFailure
	case errors.Is(err, node.ErrNotEmpty):
		return ErrCodeGenesis, ExitFailure
	case errors.As(err, &argErr):
		return ErrCodeBadArgument, ExitCommandError
	case errors.As(err, &le):
		return string(le.Code), ExitFailure
	case errors.As(err, &exitErr):
		return ErrCodeDatabase, exitErr.Code
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
