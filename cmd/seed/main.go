package main

import (
	"context"
	"flag"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"rebalancer/internal/catalog"
	"rebalancer/internal/config"
	"rebalancer/internal/database"
	"rebalancer/internal/portfolio"
)

// seed copies the YAML price catalog into the Postgres catalog tables.
func main() {
	cfg := config.Load()
	logger := cfg.Logger()

	stocksFile := flag.String("stocks", cfg.StocksFile, "YAML file of symbol: price")
	flag.Parse()

	if cfg.PostgresURL == "" {
		logger.Fatal("POSTGRES_URL is required")
	}

	db, err := sqlx.Connect("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	prices, err := catalog.FileSource{Path: *stocksFile}.Prices(ctx)
	if err != nil {
		logger.Fatalf("read %s: %v", *stocksFile, err)
	}

	repo := database.New(db, logger)
	symbols := make([]string, 0, len(prices))
	for s := range prices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	now := time.Now().UTC()
	seeded := 0
	for _, s := range symbols {
		sym, err := portfolio.NormalizeSymbol(s)
		if err != nil || prices[s] <= 0 {
			logger.Warnf("skipping %q: invalid symbol or price %v", s, prices[s])
			continue
		}
		if err := repo.EnsureStockExists(ctx, sym, sym); err != nil {
			logger.Warnf("could not insert stock %s: %v", sym, err)
			continue
		}
		if err := repo.UpsertPrice(ctx, sym, decimal.NewFromFloat(prices[s]), now); err != nil {
			logger.Warnf("could not insert price for %s: %v", sym, err)
			continue
		}
		seeded++
	}
	logger.Infof("seeded %d of %d prices from %s", seeded, len(symbols), *stocksFile)
}
