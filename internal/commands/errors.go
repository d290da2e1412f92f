package commands

import (
	"errors"
	"fmt"
	"io"

	"taskmate/internal/exitcode"
	"taskmate/internal/service"
)

// loginHint is appended to every authentication failure.
const loginHint = "(run: taskmate login)"

// ErrAmbiguous is returned when a task id prefix matches several tasks.
var ErrAmbiguous = errors.New("ambiguous task id")

// report prints err and returns the matching exit code. Unauthorized ends
// the command; it is never retried.
func report(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, service.ErrMissingToken):
		fmt.Fprintf(errOut, "error: not logged in %s\n", loginHint)
		return exitcode.AuthError
	case errors.Is(err, service.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: %s %s\n", authMessage(err), loginHint)
		return exitcode.AuthError
	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintln(errOut, "error: task not found")
		return exitcode.UserError
	case errors.Is(err, service.ErrValidation):
		fmt.Fprintf(errOut, "error: %s\n", service.MessageOf(err))
		return exitcode.UserError
	case errors.Is(err, ErrAmbiguous):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, service.ErrMalformed):
		fmt.Fprintf(errOut, "error: unexpected backend response: %v\n", err)
		return exitcode.BackendError
	case errors.Is(err, errNoBackend):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	var typed *service.Error
	if errors.As(err, &typed) {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
	// Untyped failures come from configuration (missing api_url and such).
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.AuthError
}

func authMessage(err error) string {
	var typed *service.Error
	if errors.As(err, &typed) && typed.Status == 0 {
		if typed.Message != "" {
			return typed.Message
		}
		return "not logged in"
	}
	return "session rejected by backend"
}

// usageError prints a user error.
func usageError(errOut io.Writer, format string, a ...interface{}) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", a...)
	return exitcode.UserError
}
