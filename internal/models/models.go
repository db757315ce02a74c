package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Instruction is one line of a rebalance plan.
type Instruction struct {
	Action   Action          `json:"action"`
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

func (i Instruction) String() string {
	switch i.Action {
	case ActionBuy:
		return fmt.Sprintf("Buy %s of %s", i.Quantity.StringFixed(5), i.Symbol)
	case ActionSell:
		return fmt.Sprintf("Sell %s of %s", i.Quantity.StringFixed(5), i.Symbol)
	default:
		return fmt.Sprintf("No action needed for %s", i.Symbol)
	}
}

// Preset is a named allocation shipped with the catalog.
type Preset struct {
	Name       string             `yaml:"name" json:"name"`
	Allocation map[string]float64 `yaml:"allocation" json:"allocation"`
	File       string             `yaml:"-" json:"file,omitempty"`
}
