package main

import (
	"context"
	"log"
	"os"

	"user-etl/cmd/etl/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := app.WithSignal(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Printf("failed to initialize application: %v", err)
		return 1
	}

	report, err := a.Run(ctx)
	if err != nil {
		log.Printf("application exited with error: %v", err)
	}

	return a.ExitCode(report)
}
