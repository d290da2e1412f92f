package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
)

func init() {
	Register(&DetachCmd{})
}

// DetachCmd implements the detach command.
type DetachCmd struct{}

func (c *DetachCmd) Name() string               { return "detach" }
func (c *DetachCmd) Aliases() []string          { return nil }
func (c *DetachCmd) Synopsis() string           { return "Remove the file from a task" }
func (c *DetachCmd) Usage() string              { return "taskmate detach <id>" }
func (c *DetachCmd) Route(args []string) string { return taskRoute(args, "") }

func (c *DetachCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DetachCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, err := ParseTaskRef(args)
	if err != nil {
		return refError(errOut, err)
	}
	if len(rest) > 0 {
		return usageError(errOut, "unexpected argument: %s", rest[0])
	}

	d, r, err := openTask(ctx, env, ref)
	if err != nil {
		return report(errOut, err)
	}
	defer d.Close()

	// The attachment id is only known from a fresh read.
	if err := d.Refresh(ctx, r); err != nil {
		return report(errOut, err)
	}
	if err := d.Detach(ctx, r); err != nil {
		return report(errOut, err)
	}
	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
