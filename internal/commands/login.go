package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command. The dispatcher never runs it
// with a session present.
type LoginCmd struct{}

func (c *LoginCmd) Name() string               { return "login" }
func (c *LoginCmd) Aliases() []string          { return []string{"signin"} }
func (c *LoginCmd) Synopsis() string           { return "Sign in with the identity provider" }
func (c *LoginCmd) Usage() string              { return "taskmate login [common flags]" }
func (c *LoginCmd) Route(args []string) string { return "/login" }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	if err := env.Session.SignIn(ctx, errOut); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(errOut, "error: cancelled")
			return exitcode.AuthError
		}
		if service.KindOf(err) != nil {
			return report(errOut, err)
		}
		fmt.Fprintf(errOut, "error: sign-in failed: %v\n", err)
		return exitcode.AuthError
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
