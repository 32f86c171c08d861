package cmd

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/hitcall/packages/call"
	"github.com/pkg/errors"
)

// Exit codes for hitcall CLI
const (
	// ExitSuccess indicates the call succeeded
	ExitSuccess = 0

	// ExitCallFailure indicates the server answered with a failure envelope,
	// or a bench threshold was not met
	ExitCallFailure = 1

	// ExitDecodeError indicates a response that is not an envelope
	ExitDecodeError = 2

	// ExitConfigError indicates a configuration or request building error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the process exit code up to Execute. A nil err exits
// silently, for failures the command has already printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// callExitCode maps the code an OnError callback received to an exit code.
func callExitCode(code int) int {
	switch code {
	case call.CodeTransport:
		return ExitNetworkError
	case call.CodeDecode:
		return ExitDecodeError
	case call.CodeRequest:
		return ExitConfigError
	default:
		return ExitCallFailure
	}
}

// exitCode prints err to w and returns the code the process should exit with.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(w, "Error: %s\n", ue)
		fmt.Fprintln(w, "Run 'hitcall --help' for usage.")
		return ExitUsageError
	}

	code := ExitConfigError
	var ee *exitError
	if errors.As(err, &ee) {
		code = ee.code
		if ee.err == nil {
			return code
		}
	}
	fmt.Fprintf(w, "Error: %v\n", err)
	return code
}
