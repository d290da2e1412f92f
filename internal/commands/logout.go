package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string               { return "logout" }
func (c *LogoutCmd) Aliases() []string          { return []string{"signout"} }
func (c *LogoutCmd) Synopsis() string           { return "Discard the stored session" }
func (c *LogoutCmd) Usage() string              { return "taskmate logout [common flags]" }
func (c *LogoutCmd) Route(args []string) string { return "/" }

func (c *LogoutCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if !env.Session.State().Authenticated() {
		if !env.quiet() {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	logoutURL, err := env.Session.SignOut(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
		if logoutURL != "" {
			fmt.Fprintln(out, "To end the identity provider session, open:")
			fmt.Fprintln(out, logoutURL)
		}
	}
	return exitcode.Success
}
