package portfolio

import (
	"fmt"
	"math"
	"sort"
)

// SumTolerance is how far the sum of an allocation may drift from 1. An exact
// comparison rejects allocations such as three thirds.
const SumTolerance = 1e-9

// Allocation maps a symbol to the fraction of total value it should hold.
type Allocation map[string]float64

// CheckValidAllocation fails unless every fraction is in (0, 1] and the
// fractions sum to 1.
func CheckValidAllocation(alloc Allocation) error {
	sum := 0.0
	for _, sym := range alloc.symbols() {
		v := alloc[sym]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > 1 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidAllocationValue, sym, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > SumTolerance {
		return fmt.Errorf("%w: got %v", ErrAllocationSum, sum)
	}
	return nil
}

// Normalized returns a copy keyed by normalized symbols. Keys that collapse to
// the same symbol are summed.
func (a Allocation) Normalized() (Allocation, error) {
	out := make(Allocation, len(a))
	for _, sym := range a.symbols() {
		n, err := NormalizeSymbol(sym)
		if err != nil {
			return nil, err
		}
		out[n] += a[sym]
	}
	return out, nil
}

func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// symbols gives a stable iteration order so error messages are reproducible.
func (a Allocation) symbols() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
