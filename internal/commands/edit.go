package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/output"
	"taskmate/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Only flags given on the command
// line are sent.
type EditCmd struct {
	fs *pflag.FlagSet

	title       string
	description string
	priority    string
	status      string
	due         string
	file        string
	removeFile  bool
}

func (c *EditCmd) Name() string               { return "edit" }
func (c *EditCmd) Aliases() []string          { return []string{"update"} }
func (c *EditCmd) Synopsis() string           { return "Change a task" }
func (c *EditCmd) Usage() string              { return "taskmate edit <id> [--title ..] [--priority ..] [--file <path> | --remove-file]" }
func (c *EditCmd) Route(args []string) string { return taskRoute(args, "/edit") }

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.fs = fs
	fs.StringVarP(&c.title, "title", "t", "", "")
	fs.StringVarP(&c.description, "description", "d", "", "")
	fs.StringVarP(&c.priority, "priority", "p", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVarP(&c.file, "file", "f", "", "")
	fs.BoolVar(&c.removeFile, "remove-file", false, "")
}

func (c *EditCmd) changed(name string) bool {
	return c.fs != nil && c.fs.Changed(name)
}

func (c *EditCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	ref, rest, err := ParseTaskRef(args)
	if err != nil {
		return refError(errOut, err)
	}
	if len(rest) > 0 {
		return usageError(errOut, "unexpected argument: %s", rest[0])
	}
	if c.file != "" && c.removeFile {
		return usageError(errOut, "cannot use both --file and --remove-file")
	}

	var patch service.TaskPatch
	if c.changed("title") {
		patch.Title = &c.title
	}
	if c.changed("description") {
		patch.Description = &c.description
	}
	if c.changed("priority") {
		p, err := service.ParsePriority(c.priority)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		patch.Priority = &p
	}
	if c.changed("status") {
		s, err := service.ParseStatus(c.status)
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		patch.Status = &s
	}
	if c.changed("due") {
		d, err := parseDue(c.due, env.now())
		if err != nil {
			return usageError(errOut, "%v", err)
		}
		patch.DueDate = &d
	}
	switch {
	case c.removeFile:
		patch.FileChange = service.FileRemove
	case c.file != "":
		f, err := readInlineFile(c.file)
		if err != nil {
			if service.KindOf(err) != nil {
				return report(errOut, err)
			}
			return usageError(errOut, "%v", err)
		}
		patch.FileChange = service.FileReplace
		patch.File = f
	}
	if patch.IsEmpty() {
		return usageError(errOut, "nothing to change")
	}
	if err := patch.Validate(); err != nil {
		return report(errOut, err)
	}

	d, r, err := openTask(ctx, env, ref)
	if err != nil {
		return report(errOut, err)
	}
	defer d.Close()

	task, err := d.Update(ctx, r, patch)
	if err != nil {
		return report(errOut, err)
	}
	if !env.quiet() {
		output.FormatTaskDetail(out, task, env.now())
	}
	return exitcode.Success
}
