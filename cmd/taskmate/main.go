// Package main is the entry point for the taskmate CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/kit/log"

	"taskmate/internal/backend/taskapi"
	"taskmate/internal/cli"
	"taskmate/internal/commands"
	"taskmate/internal/config"
	"taskmate/internal/service"
	"taskmate/internal/session"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	sessions := func(cfg *config.Config, logger log.Logger) session.Provider {
		return session.NewOIDC(cfg, logger)
	}
	services := func(ctx context.Context, cfg *config.Config, logger log.Logger) (service.Service, error) {
		c, err := taskapi.New(cfg, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, sessions, services)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
