package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"datenbriefd/internal/cli"
	logx "datenbriefd/pkg/logx"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		logx.NewConsole("info").Error("fatal", logx.Err(err))
		cancel()
		os.Exit(1)
	}
}
