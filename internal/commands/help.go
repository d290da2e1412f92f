package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string               { return "help" }
func (c *HelpCmd) Aliases() []string          { return nil }
func (c *HelpCmd) Synopsis() string           { return "Print usage" }
func (c *HelpCmd) Usage() string              { return "taskmate help" }
func (c *HelpCmd) Route(args []string) string { return "/" }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskmate                                  Show the dashboard (or how to log in)
  taskmate dashboard [common flags]
  taskmate list [common flags] [--search <text>] [--priority <p>] [--status <s>]
  taskmate watch [common flags] [--interval <d>] [--count <n>] [list filters]
  taskmate show [common flags] <id>
  taskmate add [common flags] [--priority <p>] [--due <date>] [--file <path>] <title...>
  taskmate edit [common flags] <id> [--title ..] [--description ..] [--priority ..]
                [--status ..] [--due ..] [--file <path> | --remove-file]
  taskmate status [common flags] <id> <pending|in-progress|done>
  taskmate done [common flags] <id>
  taskmate rm [common flags] <id>
  taskmate attach [common flags] <id> <path>
  taskmate detach [common flags] <id>
  taskmate profile [common flags]
  taskmate login [common flags]
  taskmate logout [common flags]
  taskmate help
  taskmate version

Task ids may be shortened to a unique prefix of at least 4 characters.
Due dates: YYYY-MM-DD, today, tomorrow or +N (days from today).

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
