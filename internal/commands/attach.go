package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/output"
)

func init() {
	Register(&AttachCmd{})
}

// AttachCmd implements the attach command.
type AttachCmd struct{}

func (c *AttachCmd) Name() string               { return "attach" }
func (c *AttachCmd) Aliases() []string          { return []string{"upload"} }
func (c *AttachCmd) Synopsis() string           { return "Upload a file to a task" }
func (c *AttachCmd) Usage() string              { return "taskmate attach <id> <path>" }
func (c *AttachCmd) Route(args []string) string { return taskRoute(args, "") }

func (c *AttachCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *AttachCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, err := ParseTaskRef(args)
	if err != nil {
		return refError(errOut, err)
	}
	switch {
	case len(rest) == 0:
		return usageError(errOut, "file path required")
	case len(rest) > 1:
		return usageError(errOut, "unexpected argument: %s", rest[1])
	}

	file, err := readFile(rest[0])
	if err != nil {
		return usageError(errOut, "%v", err)
	}

	d, r, err := openTask(ctx, env, ref)
	if err != nil {
		return report(errOut, err)
	}
	defer d.Close()

	a, err := d.Attach(ctx, r, file)
	if err != nil {
		return report(errOut, err)
	}
	if !env.quiet() {
		output.FormatAttachment(out, a, len(file.Data))
	}
	return exitcode.Success
}
