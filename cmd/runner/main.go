package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/accounting-data/ar-aging/internal/config"
	"github.com/accounting-data/ar-aging/internal/events/kafka"
	"github.com/accounting-data/ar-aging/internal/pipeline"
	"github.com/accounting-data/ar-aging/internal/source/unified"
	"github.com/accounting-data/ar-aging/internal/storage/postgres"
)

func main() {
	var (
		mode      string
		partition string
		window    time.Duration
		timeout   time.Duration
	)
	flag.StringVar(&mode, "mode", "daily", "run mode: daily, partition, or backfill")
	flag.StringVar(&partition, "partition", "", "aging bucket partition key (0-5), required for -mode partition")
	flag.DurationVar(&window, "window", 24*time.Hour, "trailing window for the daily incremental run")
	flag.DurationVar(&timeout, "timeout", 15*time.Minute, "overall run timeout")
	flag.Parse()

	// Missing .env is fine; real deployments configure the environment directly.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}

	source := unified.NewClient(cfg.UnifiedBaseURL, cfg.UnifiedConnID, cfg.UnifiedAPIKey, cfg.UnifiedEnv)
	store := postgres.NewStore(db)

	opts := []pipeline.Option{pipeline.WithFetchLimit(cfg.FetchLimit)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		opts = append(opts, pipeline.WithPublisher(publisher))
	}
	p := pipeline.New(source, store, log, opts...)

	var results []pipeline.RunResult
	switch mode {
	case "daily":
		end := time.Now().UTC()
		results = append(results, p.RunIncremental(ctx, end.Add(-window), end))
	case "partition":
		if partition == "" {
			log.Fatal("-partition is required with -mode partition")
		}
		results = append(results, p.RunPartition(ctx, partition))
	case "backfill":
		results = p.RunAllPartitions(ctx)
	default:
		log.Fatal("unknown mode", zap.String("mode", mode))
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			log.Error("run unit failed", zap.String("scope", res.Scope), zap.Error(res.Err))
			continue
		}
		log.Info("run unit succeeded",
			zap.String("scope", res.Scope),
			zap.Int("customers", res.Customers),
			zap.Int("invoices", res.Invoices),
			zap.Int("payments", res.Payments),
		)
	}
	if failed > 0 {
		log.Error("run finished with failures", zap.Int("failed", failed), zap.Int("total", len(results)))
		os.Exit(1)
	}
}
