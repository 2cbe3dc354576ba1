package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joaovfcarvalho/robo-bordero/internal/config"
	"github.com/joaovfcarvalho/robo-bordero/internal/models"
	"github.com/joaovfcarvalho/robo-bordero/internal/pkg/logger"
	"github.com/joaovfcarvalho/robo-bordero/internal/services"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, envFile := config.Load(".env", "../.env", "../../.env")

	opFlag := flag.String("op", "full", "Operation: download (1), process (2) or full (3)")
	year := flag.Int("year", cfg.Year, "Season year to download")
	competitionList := flag.String("competitions", "", "Comma-separated competition codes (default from COMPETITIONS)")
	flag.Parse()

	appLogger, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Printf("Failed to create logger: %v", err)
		return 1
	}
	defer appLogger.Sync()

	if envFile != "" {
		appLogger.Info("Loaded .env", "path", envFile)
	} else {
		appLogger.Info("No .env file found, using environment variables")
	}

	op, err := services.ParseOperation(*opFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\nUsage:\n", err)
		flag.PrintDefaults()
		return 2
	}
	cfg.Year = *year
	if *competitionList != "" {
		cfg.Competitions = config.SplitList(*competitionList)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pipeline, err := services.NewPipeline(ctx, cfg, op, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize pipeline", "error", err)
		return 1
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			appLogger.Warn("Error closing clients", "error", err)
		}
	}()

	resp, err := pipeline.Run(ctx, models.IngestRequest{Operation: op}, nil)
	switch {
	case errors.Is(err, services.ErrDownloadCancelled), errors.Is(err, context.Canceled):
		appLogger.Warn("Run cancelled", "downloaded", resp.Downloaded, "recorded", resp.Recorded)
		return 130
	case err != nil:
		appLogger.Error("Run failed", "error", err)
		return 1
	}
	fmt.Printf("Done. downloaded=%d recorded=%d succeeded=%d failed=%d\n",
		resp.Downloaded, resp.Recorded, resp.Succeeded, resp.Failed)
	return 0
}
