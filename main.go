package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/m-mizutani/aiassist/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err.Message)
		stop()
		os.Exit(err.Code)
	}
}
