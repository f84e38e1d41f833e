package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-article/internal/cli"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.Version = version
	code := cli.Execute(ctx, cli.NewRootCommand(cli.Options{}))
	stop()
	os.Exit(code)
}
