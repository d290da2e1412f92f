// Package exitcode defines exit codes for the CLI.
package exitcode

// Exit codes returned by every command.
const (
	// Success indicates successful completion.
	Success = 0

	// UserError indicates a user error (bad args, not found, ambiguous id,
	// rejected input).
	UserError = 1

	// AuthError indicates a missing or rejected session, or missing
	// configuration.
	AuthError = 2

	// BackendError indicates a failed or malformed backend response.
	BackendError = 3
)

// Describe names code for logs.
func Describe(code int) string {
	switch code {
	case Success:
		return "success"
	case UserError:
		return "user error"
	case AuthError:
		return "auth error"
	case BackendError:
		return "backend error"
	}
	return "unknown"
}
