package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/beatclash/beatclash/app"
	"github.com/beatclash/beatclash/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := app.WaitForShutdown(context.Background())
	defer stop()

	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	runErr := application.Run(ctx)
	if runErr != nil {
		application.Logger.Error("Application stopped unexpectedly", "error", runErr)
	}
	stop()

	if err := application.Close(); err != nil || runErr != nil {
		os.Exit(1)
	}
}
