package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rebalancer/internal/catalog"
	"rebalancer/internal/portfolio"
)

func setupDB(t *testing.T) *sqlx.DB {
	url := os.Getenv("POSTGRES_URL")
	if url == "" {
		t.Skip("POSTGRES_URL is not set; skipping integration tests")
	}
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files := []string{"../../migrations/0001_init.up.sql"}
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read migration %s: %v", f, err)
		}
		if _, err := db.Exec(string(b)); err != nil {
			t.Logf("exec migration %s: %v", f, err)
		}
	}
	return db
}

func cleanup(t *testing.T, db *sqlx.DB, symbols ...string) {
	for _, s := range symbols {
		_, _ = db.Exec(`DELETE FROM price_history WHERE symbol = $1`, s)
		_, _ = db.Exec(`DELETE FROM stocks WHERE symbol = $1`, s)
	}
}

func TestRepo_LatestPrice(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()
	cleanup(t, db, "ZZTEST")

	require.NoError(t, r.EnsureStockExists(ctx, "zztest", "Test Corp"))
	require.NoError(t, r.EnsureStockExists(ctx, "ZZTEST", "Test Corp"))

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, r.UpsertPrice(ctx, "ZZTEST", decimal.NewFromFloat(100.25), old))
	require.NoError(t, r.UpsertPrice(ctx, "zztest", decimal.NewFromFloat(101.5), old.Add(30*time.Minute)))

	price, _, err := r.GetLatestPrice(ctx, "ZZTEST")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromFloat(101.5)), "got %s", price)

	symbols, err := r.GetAllSymbols(ctx)
	require.NoError(t, err)
	assert.Contains(t, symbols, "ZZTEST")
}

func TestRepo_PricesFeedRegistry(t *testing.T) {
	db := setupDB(t)
	r := New(db, logrus.New())
	ctx := context.Background()
	cleanup(t, db, "ZZA", "ZZB")

	for sym, p := range map[string]float64{"ZZA": 10, "ZZB": 20.5} {
		require.NoError(t, r.EnsureStockExists(ctx, sym, sym))
		require.NoError(t, r.UpsertPrice(ctx, sym, decimal.NewFromFloat(p), time.Now().UTC()))
	}

	reg := portfolio.NewRegistry(nil)
	_, err := catalog.Apply(ctx, r, reg)
	require.NoError(t, err)

	b, err := reg.Get("ZZB")
	require.NoError(t, err)
	assert.InDelta(t, 20.5, b.Price(), 1e-9)
	assert.True(t, reg.Exists("ZZA"))
}
