package main

import (
	"context"
	"log"

	"github.com/verifield/fieldsync/internal/agent/cli"
	"github.com/verifield/fieldsync/internal/agent/config"
	"github.com/verifield/fieldsync/internal/logging"
)

func main() {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()

	logger, err := logging.NewDevelopment("info")
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	scheduler := app.Scheduler()
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("%v", err)
	}
	defer scheduler.Stop()

	app.Run(ctx)

}
