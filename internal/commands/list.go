package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/output"
	"taskmate/internal/store"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct {
	search   string
	priority string
	status   string
}

func (c *ListCmd) Name() string               { return "list" }
func (c *ListCmd) Aliases() []string          { return []string{"ls"} }
func (c *ListCmd) Synopsis() string           { return "List tasks" }
func (c *ListCmd) Usage() string              { return "taskmate list [--search <text>] [--priority <p>] [--status <s>]" }
func (c *ListCmd) Route(args []string) string { return "/tasks" }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.search, "search", "s", "", "")
	fs.StringVarP(&c.priority, "priority", "p", "", "")
	fs.StringVar(&c.status, "status", "", "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	priority, err := parsePriorityFilter(c.priority)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	status, err := parseStatusFilter(c.status)
	if err != nil {
		return usageError(errOut, "%v", err)
	}

	r, err := env.remote(ctx)
	if err != nil {
		return report(errOut, err)
	}

	list := store.NewList()
	defer list.Close()
	list.SetQuery(c.search)
	list.SetPriority(priority)
	list.SetStatus(status)

	err = list.Refresh(ctx, r)
	if stateAfter(list, err) != store.Ready {
		return report(errOut, err)
	}
	printList(out, list, env.quiet())
	return exitcode.Success
}

// printList prints the visible tasks of a loaded list.
func printList(out io.Writer, list *store.List, quiet bool) {
	visible := list.Visible()
	if len(visible) > 0 {
		for _, t := range visible {
			output.FormatTask(out, t)
		}
		return
	}
	if quiet {
		return
	}
	if len(list.All()) == 0 {
		fmt.Fprintln(out, "no tasks found")
	} else {
		fmt.Fprintln(out, "no matching tasks")
	}
}
