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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	title       string
	description string
	priority    string
	status      string
	due         string
	file        string
}

func (c *AddCmd) Name() string               { return "add" }
func (c *AddCmd) Aliases() []string          { return []string{"create", "new"} }
func (c *AddCmd) Synopsis() string           { return "Create a task" }
func (c *AddCmd) Usage() string              { return "taskmate add [--priority <p>] [--due <date>] [--file <path>] <title...>" }
func (c *AddCmd) Route(args []string) string { return "/tasks/new" }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.title, "title", "t", "", "")
	fs.StringVarP(&c.description, "description", "d", "", "")
	fs.StringVarP(&c.priority, "priority", "p", string(service.PriorityMedium), "")
	fs.StringVar(&c.status, "status", string(service.StatusPending), "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVarP(&c.file, "file", "f", "", "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	title := c.title
	if title == "" {
		title = strings.Join(args, " ")
	} else if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	if strings.TrimSpace(title) == "" {
		return usageError(errOut, "title required")
	}

	priority, err := service.ParsePriority(c.priority)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	status, err := service.ParseStatus(c.status)
	if err != nil {
		return usageError(errOut, "%v", err)
	}
	due, err := parseDue(c.due, env.now())
	if err != nil {
		return usageError(errOut, "%v", err)
	}

	in := service.TaskInput{
		Title:       strings.TrimSpace(title),
		Description: c.description,
		Priority:    priority,
		Status:      status,
		DueDate:     due,
	}
	if c.file != "" {
		in.File, err = readInlineFile(c.file)
		if err != nil {
			if service.KindOf(err) != nil {
				return report(errOut, err)
			}
			return usageError(errOut, "%v", err)
		}
	}
	if st := env.Session.State(); st.User != nil {
		in.Email = st.User.Email
	}

	svc, err := env.Service(ctx)
	if err != nil {
		return report(errOut, err)
	}
	token, err := env.Session.Token(ctx)
	if err != nil {
		return report(errOut, err)
	}
	task, err := svc.CreateTask(ctx, in, token)
	if err != nil {
		return report(errOut, err)
	}

	fmt.Fprintln(out, task.ID)
	return exitcode.Success
}
