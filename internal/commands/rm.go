package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/store"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string               { return "rm" }
func (c *RmCmd) Aliases() []string          { return []string{"delete"} }
func (c *RmCmd) Synopsis() string           { return "Delete a task" }
func (c *RmCmd) Usage() string              { return "taskmate rm <id>" }
func (c *RmCmd) Route(args []string) string { return taskRoute(args, "") }

func (c *RmCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
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

	err = d.Delete(ctx, r)
	switch {
	case store.AlreadyGone(err):
		// Deleted earlier, possibly from another session.
		if !env.quiet() {
			fmt.Fprintln(out, "already gone")
		}
		return exitcode.Success
	case err != nil:
		return report(errOut, err)
	}

	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
