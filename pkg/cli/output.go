package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/eknihyzdarma/catalog-migrator/pkg/apperrors"
	"github.com/eknihyzdarma/catalog-migrator/pkg/models"
)

// Exit codes for CLI commands.
const (
	ExitSuccess     = 0 // Completed, possibly with per-entity failures
	ExitFailure     = 1 // Fatal error during a run
	ExitConfigError = 2 // Configuration error: missing credential, unreadable input
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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
// Returns ExitSuccess for nil and ExitFailure when the error is not an ExitError.
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

// exitErrorFor maps a command error to an exit code. Configuration problems exit with 2.
func exitErrorFor(message string, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if errors.Is(err, apperrors.ErrMissingCredential) || errors.Is(err, apperrors.ErrSourceUnreadable) {
		return WrapExitError(ExitConfigError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success prints a result. Text output uses the value's Text method when it has one.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	if t, ok := data.(interface{ Text(io.Writer) error }); ok {
		return t.Text(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error prints a fatal error.
func (f *OutputFormatter) Error(err error) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: err.Error()})
	}
	_, werr := fmt.Fprintf(f.Writer, "Error: %v\n", err)
	return werr
}

// migrationReport is the printable result of the migrate command.
type migrationReport struct {
	*models.Summary
}

func (r migrationReport) Text(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run\t%s\n", r.RunID)
	if r.DryRun {
		fmt.Fprintln(tw, "Mode\tdry run")
	}
	fmt.Fprintln(tw, "\nENTITY\tCREATED\tSKIPPED\tFAILED")
	for _, name := range []string{models.EntityCategories, models.EntityAuthors, models.EntityBooks} {
		c := r.Entities[name]
		if c == nil {
			c = &models.Counts{}
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", name, c.Created, c.Skipped, c.Failed)
	}
	fmt.Fprintf(tw, "\nassets\tuploaded %d\tmissing %d\tfailed %d\n", r.Assets.Uploaded, r.Assets.Missing, r.Assets.Failed)
	if r.Republished > 0 {
		fmt.Fprintf(tw, "republished\t%d\n", r.Republished)
	}
	return tw.Flush()
}

// passReport is the printable result of a corrective pass.
type passReport struct {
	*models.PassSummary
}

func (r passReport) Text(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Pass\t%s\n", r.Pass)
	fmt.Fprintf(tw, "Run\t%s\n", r.RunID)
	if r.DryRun {
		fmt.Fprintln(tw, "Mode\tdry run")
	}
	fmt.Fprintf(tw, "Examined\t%d\n", r.Examined)
	fmt.Fprintf(tw, "Changed\t%d\n", r.Changed)
	fmt.Fprintf(tw, "Skipped\t%d\n", r.Skipped)
	fmt.Fprintf(tw, "Failed\t%d\n", r.Failed)
	return tw.Flush()
}

// failureReport lists failed keys of a run per collection.
type failureReport struct {
	RunID    string              `json:"runId"`
	Failures map[string][]string `json:"failures"`
}

func (r failureReport) Text(w io.Writer) error {
	if len(r.Failures) == 0 {
		_, err := fmt.Fprintf(w, "No failures recorded for run %s\n", r.RunID)
		return err
	}
	collections := make([]string, 0, len(r.Failures))
	for c := range r.Failures {
		collections = append(collections, c)
	}
	sort.Strings(collections)
	for _, c := range collections {
		fmt.Fprintf(w, "%s (%d)\n", c, len(r.Failures[c]))
		for _, key := range r.Failures[c] {
			fmt.Fprintf(w, "  %s\n", key)
		}
	}
	return nil
}
