// Package main runs the chatflow HTTP server configured from the environment.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/server"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx, cfg); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "server error:", err)
		os.Exit(1)
	}
}
