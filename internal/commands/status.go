package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string               { return "status" }
func (c *StatusCmd) Aliases() []string          { return nil }
func (c *StatusCmd) Synopsis() string           { return "Set the status of a task" }
func (c *StatusCmd) Usage() string              { return "taskmate status <id> <pending|in-progress|done>" }
func (c *StatusCmd) Route(args []string) string { return taskRoute(args, "") }

func (c *StatusCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, err := ParseTaskRef(args)
	if err != nil {
		return refError(errOut, err)
	}
	if len(rest) == 0 {
		return usageError(errOut, "status required")
	}
	status, err := service.ParseStatus(strings.Join(rest, " "))
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	return setStatus(ctx, env, ref, status, out, errOut)
}

// setStatus changes the status of the referenced task.
func setStatus(ctx context.Context, env *Env, ref string, status service.Status, out, errOut io.Writer) int {
	d, r, err := openTask(ctx, env, ref)
	if err != nil {
		return report(errOut, err)
	}
	defer d.Close()

	if _, err := d.ChangeStatus(ctx, r, status); err != nil {
		return report(errOut, err)
	}
	if !env.quiet() {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
