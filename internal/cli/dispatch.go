package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/spf13/pflag"

	"taskmate/internal/commands"
	"taskmate/internal/config"
	"taskmate/internal/exitcode"
	"taskmate/internal/guard"
	"taskmate/internal/logging"
	"taskmate/internal/service"
	"taskmate/internal/session"
)

// ServiceFactory creates a Service from config.
// Used to inject the backend during dispatch.
type ServiceFactory = commands.ServiceFactory

// SessionFactory creates the session provider for a run.
type SessionFactory func(cfg *config.Config, logger log.Logger) session.Provider

// Dispatcher handles command-line parsing and dispatch. Every command is
// routed through the guard before it runs.
type Dispatcher struct {
	registry *commands.Registry
	sessions SessionFactory
	services ServiceFactory
	routes   guard.Routes
}

// NewDispatcher creates a new dispatcher with the given registry and
// factories.
func NewDispatcher(registry *commands.Registry, sessions SessionFactory, services ServiceFactory) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		sessions: sessions,
		services: services,
		routes:   guard.DefaultRoutes,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return d.landing(ctx, out, errOut)
	}

	cmdName := args[0]

	// If first token starts with -, it's an error (flags require a command)
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args[1:], out, errOut)
}

// landing handles a bare invocation: the dashboard with a session, a
// sign-in hint without one.
func (d *Dispatcher) landing(ctx context.Context, out, errOut io.Writer) int {
	cmd, ok := d.registry.ForRoute(d.routes.Home)
	if !ok {
		fmt.Fprintf(errOut, "error: no command for %s\n", d.routes.Home)
		return exitcode.UserError
	}
	env, code := d.newEnv("", false, false, errOut)
	if env == nil {
		return code
	}
	if !env.Session.State().Authenticated() {
		fmt.Fprintln(out, "Not logged in. Run 'taskmate login' to sign in, or 'taskmate help' for usage.")
		return exitcode.Success
	}
	return d.run(ctx, cmd, env, nil, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(out, "Usage: %s\n", cmd.Usage())
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	// Check if first positional arg starts with - (should have been parsed as flag)
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	env, code := d.newEnv(configDir, quiet, debug, errOut)
	if env == nil {
		return code
	}

	route := cmd.Route(positionalArgs)
	decision := d.routes.Decide(env.Session.State().Authenticated(), route)
	level.Debug(env.Logger).Log("msg", "route", "path", route, "allow", decision.Allow, "target", decision.Target)

	switch {
	case decision.Allow:
		return d.run(ctx, cmd, env, positionalArgs, out, errOut)
	case decision.Target == d.routes.Entry:
		fmt.Fprintln(errOut, "error: not logged in (run: taskmate login)")
		return exitcode.AuthError
	}

	// Signed in users never see the public pages; they land at home.
	home, ok := d.registry.ForRoute(decision.Target)
	if !ok {
		fmt.Fprintf(errOut, "error: no command for %s\n", decision.Target)
		return exitcode.UserError
	}
	if !quiet {
		fmt.Fprintln(out, "already logged in")
	}
	return d.run(ctx, home, env, nil, out, errOut)
}

// newEnv loads the config and builds the command environment. On failure
// it prints the error and returns a nil Env with the exit code.
func (d *Dispatcher) newEnv(configDir string, quiet, debug bool, errOut io.Writer) (*commands.Env, int) {
	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return nil, exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := logging.New(errOut, debug)

	env := &commands.Env{
		Cfg:     cfg,
		Session: d.sessions(cfg, logger),
		Logger:  logger,
	}
	if d.services != nil {
		env.NewService = func(ctx context.Context, cfg *config.Config, logger log.Logger) (service.Service, error) {
			svc, err := d.services(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return service.LoggingMiddleware(logger)(svc), nil
		}
	}
	return env, exitcode.Success
}

func (d *Dispatcher) run(ctx context.Context, cmd commands.Command, env *commands.Env, args []string, out, errOut io.Writer) int {
	env.Logger = log.With(env.Logger, "cmd", cmd.Name())
	code := cmd.Run(ctx, env, args, out, errOut)
	level.Debug(env.Logger).Log("msg", "done", "exit", code, "result", exitcode.Describe(code))
	return code
}
