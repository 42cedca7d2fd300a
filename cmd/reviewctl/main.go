package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resume-review/internal/bootstrap"
	"resume-review/internal/cli"
	"resume-review/internal/shared/config"
	"resume-review/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.SetOutput(os.Stderr)
	telemetry.Configure(cfg.LogLevel, true)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.Execute(ctx, cli.Deps{
		Reviews:  app.Reviews,
		Versions: app.Versions,
		Catalog:  app.Catalog,
	}, os.Args[1:])
	stop()
	app.Close()
	if err != nil {
		os.Exit(1)
	}
}
