package database

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogItem is the latest known price of one stock.
type CatalogItem struct {
	Symbol    string          `db:"symbol" json:"symbol"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
}
