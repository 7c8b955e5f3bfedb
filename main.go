// simlink starts and tears down a simulation engine session.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"simlink/cmd"
	"simlink/internal/exithook"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:], exithook.Default()); err != nil {
		fmt.Fprintf(os.Stderr, "simlink: %v\n", err)
		cancel()
		exithook.Exit(1)
	}
	cancel()
	exithook.Exit(0)
}
