package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"SignalEngine/internal/di"
	"SignalEngine/internal/usecase"
	"SignalEngine/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	job := flag.String("job", "serve", "job to run: serve, refresh, predict, evaluate, correlate")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	log.Printf("env=%s job=%s clickhouse=%s:%d", cfg.Environment, *job, cfg.ClickHouse.Host, cfg.ClickHouse.Port)

	if err := run(app, *job); err != nil {
		log.Printf("job %s failed: %v", *job, err)
		os.Exit(1)
	}
}

func run(app *di.Application, job string) error {
	if job == "serve" {
		return app.App.Run()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	switch job {
	case "refresh":
		if err := usecase.SyncInstruments(ctx, app.Instruments, app.Config.Instruments, app.Logger); err != nil {
			return err
		}
		return app.Refresh.Run(ctx, time.Now())
	case "predict":
		return app.Prediction.Run(ctx, time.Now())
	case "evaluate":
		return app.Evaluation.Run(ctx, time.Now())
	case "correlate":
		return app.Prediction.Correlate(ctx, time.Now())
	default:
		flag.Usage()
		os.Exit(2)
		return nil
	}
}
