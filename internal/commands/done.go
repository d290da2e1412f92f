package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string               { return "done" }
func (c *DoneCmd) Aliases() []string          { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string           { return "Mark a task done" }
func (c *DoneCmd) Usage() string              { return "taskmate done <id>" }
func (c *DoneCmd) Route(args []string) string { return taskRoute(args, "") }

func (c *DoneCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, err := ParseTaskRef(args)
	if err != nil {
		return refError(errOut, err)
	}
	if len(rest) > 0 {
		return usageError(errOut, "unexpected argument: %s", rest[0])
	}
	return setStatus(ctx, env, ref, service.StatusDone, out, errOut)
}
