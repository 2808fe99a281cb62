// Seed tool: batch-generates reward codes for a prize ahead of a campaign.
//
//	go run ./cmd/seed -config config.yaml -prize <prize-id> -count 100
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"prizewheel/internal/config"
	pg "prizewheel/internal/infra/db/postgres"
	"prizewheel/internal/infra/logging"
	"prizewheel/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	prizeID := flag.String("prize", "", "prize id to issue codes for")
	count := flag.Int("count", 10, "number of codes to generate")
	flag.Parse()

	if *prizeID == "" {
		log.Fatal("-prize is required")
	}

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *count < 1 || *count > cfg.Codes.BatchMax {
		log.Fatalf("-count must be between 1 and %d", cfg.Codes.BatchMax)
	}

	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	uc := usecase.NewRedemptionUseCase(
		pg.NewCodeRepo(pool), pg.NewTxManager(pool), usecase.RandomCode,
		cfg.Codes.ValidityWindow, cfg.Codes.MaxGenerateRetries, logger,
	)

	records, err := uc.GenerateBatch(ctx, *prizeID, *count)
	if err != nil {
		log.Fatalf("generate batch: %v", err)
	}

	for _, rec := range records {
		fmt.Println(rec.Code)
	}
	logger.Info().Int("count", len(records)).Str("prize_id", *prizeID).Msg("codes generated")
}
