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
	Register(&DashboardCmd{})
}

// DashboardCmd implements the dashboard command.
type DashboardCmd struct{}

func (c *DashboardCmd) Name() string               { return "dashboard" }
func (c *DashboardCmd) Aliases() []string          { return []string{"dash"} }
func (c *DashboardCmd) Synopsis() string           { return "Show task summary" }
func (c *DashboardCmd) Usage() string              { return "taskmate dashboard" }
func (c *DashboardCmd) Route(args []string) string { return "/dashboard" }

func (c *DashboardCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DashboardCmd) Run(ctx context.Context, env *Env, args []string, out, errOut io.Writer) int {
	return showDashboard(ctx, env, out, errOut)
}

// showDashboard fetches all tasks and prints the dashboard.
func showDashboard(ctx context.Context, env *Env, out, errOut io.Writer) int {
	r, err := env.remote(ctx)
	if err != nil {
		return report(errOut, err)
	}

	d := store.NewDashboard()
	defer d.Close()
	err = d.Refresh(ctx, r)
	if stateAfter(d, err) != store.Ready {
		return report(errOut, err)
	}

	now := env.now()
	output.FormatDashboard(out, d.Summary(now), now)
	return exitcode.Success
}
