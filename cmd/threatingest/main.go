package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ThreatIngest/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := app.NewRootCommand()
	root.SetContext(ctx)

	code := app.Execute(root)
	stop()
	os.Exit(code)
}
