package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/labtiva/esprobe/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	streams := cli.NewIOStreams()
	code := cli.Execute(ctx, cli.NewCommand(streams), streams)
	stop()
	os.Exit(code)
}
