package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ImportFixer/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "importfixer:", err)
		os.Exit(1)
	}
}
