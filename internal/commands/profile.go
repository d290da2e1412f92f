package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/service"
)

func init() {
	Register(&ProfileCmd{})
}

// ProfileCmd implements the profile command.
type ProfileCmd struct{}

func (c *ProfileCmd) Name() string               { return "profile" }
func (c *ProfileCmd) Aliases() []string          { return []string{"whoami"} }
func (c *ProfileCmd) Synopsis() string           { return "Show the signed-in user" }
func (c *ProfileCmd) Usage() string              { return "taskmate profile" }
func (c *ProfileCmd) Route(args []string) string { return "/profile" }

func (c *ProfileCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ProfileCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	// Token refreshes an expired session so the expiry shown is current.
	if _, err := env.Session.Token(ctx); err != nil {
		return report(errOut, err)
	}
	u := env.Session.State().User
	if u == nil {
		return report(errOut, service.ErrMissingToken)
	}

	fmt.Fprintf(out, "%-11s %s\n", "Email:", orDash(u.Email))
	fmt.Fprintf(out, "%-11s %s\n", "Subject:", orDash(u.Subject))
	expires := "-"
	if !u.Expiry.IsZero() {
		expires = humanize.RelTime(u.Expiry, env.now(), "ago", "from now")
	}
	fmt.Fprintf(out, "%-11s %s\n", "Expires:", expires)
	return exitcode.Success
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
