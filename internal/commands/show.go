package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/output"
	"taskmate/internal/store"
)

func init() {
	Register(&ShowCmd{})
}

// ShowCmd implements the show command.
type ShowCmd struct{}

func (c *ShowCmd) Name() string               { return "show" }
func (c *ShowCmd) Aliases() []string          { return []string{"view"} }
func (c *ShowCmd) Synopsis() string           { return "Show a task" }
func (c *ShowCmd) Usage() string              { return "taskmate show <id>" }
func (c *ShowCmd) Route(args []string) string { return taskRoute(args, "") }

func (c *ShowCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ShowCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
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

	err = d.Refresh(ctx, r)
	if stateAfter(d, err) != store.Ready {
		return report(errOut, err)
	}
	task, _ := d.Task()
	output.FormatTaskDetail(out, task, env.now())
	return exitcode.Success
}
