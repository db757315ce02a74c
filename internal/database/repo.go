package database

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Repo reads and writes the stock price catalog. It only stores instrument
// prices; portfolios live in memory.
type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

func (r *Repo) EnsureStockExists(ctx context.Context, symbol, name string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO stocks (symbol, name) VALUES ($1, $2) ON CONFLICT (symbol) DO NOTHING`, strings.ToUpper(symbol), name)
	return err
}

func (r *Repo) UpsertPrice(ctx context.Context, symbol string, price decimal.Decimal, ts time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO price_history (symbol, price, timestamp) VALUES ($1, $2::numeric, $3)`, strings.ToUpper(symbol), price.StringFixed(6), ts)
	return err
}

func (r *Repo) GetLatestPrice(ctx context.Context, symbol string) (decimal.Decimal, time.Time, error) {
	var priceStr string
	var ts time.Time
	if err := r.db.QueryRowContext(ctx, `SELECT price::text, timestamp FROM price_history WHERE symbol = $1 ORDER BY timestamp DESC LIMIT 1`, strings.ToUpper(symbol)).Scan(&priceStr, &ts); err != nil {
		return decimal.Zero, time.Time{}, err
	}
	p, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, time.Time{}, err
	}
	return p, ts, nil
}

func (r *Repo) GetAllSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT symbol FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			r.log.Warnf("scan symbol failed: %v", err)
			continue
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Catalog returns the latest price of every stock that has one.
func (r *Repo) Catalog(ctx context.Context) ([]CatalogItem, error) {
	rows, err := r.db.QueryxContext(ctx, `
		SELECT DISTINCT ON (symbol) symbol, price, timestamp
		FROM price_history
		ORDER BY symbol, timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []CatalogItem{}
	for rows.Next() {
		var item CatalogItem
		if err := rows.StructScan(&item); err != nil {
			r.log.Warnf("scan catalog row failed: %v", err)
			continue
		}
		res = append(res, item)
	}
	return res, rows.Err()
}

// Prices implements catalog.Source.
func (r *Repo) Prices(ctx context.Context) (map[string]float64, error) {
	items, err := r.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]float64, len(items))
	for _, it := range items {
		prices[it.Symbol] = it.Price.InexactFloat64()
	}
	return prices, nil
}
