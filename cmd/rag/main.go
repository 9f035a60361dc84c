package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"ragpipe/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("rag: %v", err)
	}
}
