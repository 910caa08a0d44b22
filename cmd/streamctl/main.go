// Command streamctl drives the event stream lifecycle from a terminal and lets
// operators repair resources whose status notification never arrived.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mikecbrant/event-streams/internal/app"
	"github.com/mikecbrant/event-streams/internal/config"
	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/lifecycle"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

func main() {
	cmd := newRootCommand(buildServices)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error (%d): %v\n", eventstream.HTTPStatus(err), err)
		os.Exit(1)
	}
}

func buildServices(ctx context.Context, opts *rootOptions) (*lifecycle.Services, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, cfg, logging.NewLogrus(os.Stderr, cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	return a.Services, nil
}
