package portfolio

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

// Instrument is a tradable symbol with a live price. Instruments are only
// created by a Registry; every holding set keeps a pointer to the registry's
// record, so a price update is visible everywhere the instrument is held.
type Instrument struct {
	symbol string
	price  float64
	mu     *sync.RWMutex
}

func (i *Instrument) Symbol() string { return i.symbol }

// Price returns the current price under the owning registry's lock.
func (i *Instrument) Price() float64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.price
}

func (i *Instrument) String() string { return i.symbol }

// NormalizeSymbol trims and uppercases a ticker.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

// CheckPrice normalizes symbol and validates price the way the registry does,
// without registering anything.
func CheckPrice(symbol string, price float64) (string, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return "", err
	}
	if !validPrice(price) {
		return "", fmt.Errorf("%w: %s at %v", ErrInvalidPrice, sym, price)
	}
	return sym, nil
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsInf(price, 1)
}
