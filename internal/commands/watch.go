package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-kit/kit/log/level"
	"github.com/spf13/pflag"

	"taskmate/internal/exitcode"
	"taskmate/internal/output"
	"taskmate/internal/store"
)

// DefaultWatchInterval is the refresh period of the watch command.
const DefaultWatchInterval = 30 * time.Second

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: the task list, refreshed on an
// interval until interrupted.
type WatchCmd struct {
	interval time.Duration
	count    int
	search   string
	priority string
	status   string
}

func (c *WatchCmd) Name() string               { return "watch" }
func (c *WatchCmd) Aliases() []string          { return nil }
func (c *WatchCmd) Synopsis() string           { return "List tasks and refresh periodically" }
func (c *WatchCmd) Usage() string              { return "taskmate watch [--interval <d>] [--count <n>] [list filters]" }
func (c *WatchCmd) Route(args []string) string { return "/tasks" }

func (c *WatchCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.DurationVarP(&c.interval, "interval", "n", DefaultWatchInterval, "")
	fs.IntVar(&c.count, "count", 0, "")
	fs.StringVarP(&c.search, "search", "s", "", "")
	fs.StringVarP(&c.priority, "priority", "p", "", "")
	fs.StringVar(&c.status, "status", "", "")
}

func (c *WatchCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		return usageError(errOut, "unexpected argument: %s", args[0])
	}
	if c.interval <= 0 {
		return usageError(errOut, "interval must be positive")
	}
	if c.count < 0 {
		return usageError(errOut, "count must not be negative")
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

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		err := list.Refresh(ctx, r)
		if ctx.Err() != nil {
			return exitcode.Success
		}
		state := stateAfter(list, err)
		level.Debug(env.logger()).Log("msg", "refresh", "n", n, "state", state, "err", err)

		switch {
		case errors.Is(err, store.ErrStale):
		case state == store.Unauthenticated, state == store.Failed:
			return report(errOut, err)
		case state == store.Ready && err != nil:
			// Keep showing the last good list.
			fmt.Fprintf(errOut, "warning: refresh failed: %v\n", err)
		case state == store.Ready:
			output.FormatHeading(out, "Tasks at "+env.now().Format("15:04:05"))
			printList(out, list, env.quiet())
		}

		if c.count > 0 && n >= c.count {
			return exitcode.Success
		}
		select {
		case <-ctx.Done():
			return exitcode.Success
		case <-ticker.C:
		}
	}
}
