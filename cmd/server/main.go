package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"rebalancer/internal/catalog"
	"rebalancer/internal/config"
	"rebalancer/internal/database"
	"rebalancer/internal/handlers"
	"rebalancer/internal/portfolio"
	"rebalancer/internal/service"
)

func main() {
	cfg := config.Load()
	logger := cfg.Logger()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	src, closeSrc, err := openSource(cfg, logger)
	if err != nil {
		logger.Fatalf("catalog source: %v", err)
	}
	defer closeSrc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := portfolio.NewRegistry(logger)
	refresher := catalog.NewRefresher(src, reg, logger)
	if err := refresher.Refresh(ctx); err != nil {
		logger.Fatalf("load catalog: %v", err)
	}
	logger.Infof("loaded %d instruments", reg.Len())
	if cfg.RefreshEvery > 0 {
		refresher.Start(ctx, cfg.RefreshEvery)
	}

	presets, err := catalog.LoadPresets(cfg.AllocationsDir)
	if err != nil {
		logger.Warnf("no allocation presets loaded: %v", err)
	}

	svc := service.NewPortfolioService(reg, presets, logger)
	h := handlers.NewHandler(svc, logger)

	rg := gin.Default()
	h.Register(rg)

	logger.Infof("server starting on :%s", cfg.Port)
	if err := rg.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

func openSource(cfg *config.Config, logger *logrus.Logger) (catalog.Source, func(), error) {
	if cfg.CatalogSource != config.SourcePostgres {
		return catalog.FileSource{Path: cfg.StocksFile}, func() {}, nil
	}
	db, err := initDB(cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	return database.New(db, logger), func() { db.Close() }, nil
}

func initDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}
