package portfolio

import (
	"fmt"
	"math"
	"sort"
)

const (
	relTolerance = 1e-9
	absTolerance = 1e-12
)

// isClose mirrors the usual relative+absolute float comparison.
func isClose(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= math.Max(relTolerance*math.Max(math.Abs(a), math.Abs(b)), absTolerance)
}

type holding struct {
	inst *Instrument
	qty  float64
}

// Holdings is a set of instruments and the quantity held of each. Entries are
// keyed by normalized symbol and never carry a zero or negative quantity.
//
// A Holdings value is not safe for concurrent mutation; its owner serializes
// access.
type Holdings struct {
	entries map[string]holding
}

// Position is a read-only view of one entry.
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Value    float64 `json:"value"`
}

func NewHoldings() *Holdings {
	return &Holdings{entries: make(map[string]holding)}
}

// HoldingsFromQuantities builds a set from symbol quantities. Every entry is
// checked before anything is stored.
func HoldingsFromQuantities(reg *Registry, quantities map[string]float64) (*Holdings, error) {
	h := NewHoldings()
	for _, sym := range sortedKeys(quantities) {
		qty := quantities[sym]
		inst, err := reg.Get(sym)
		if err != nil {
			return nil, err
		}
		if !validQuantity(qty) {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidQuantity, inst.symbol, qty)
		}
		if cur, ok := h.entries[inst.symbol]; ok {
			qty += cur.qty
		}
		h.entries[inst.symbol] = holding{inst: inst, qty: qty}
	}
	return h, nil
}

// HoldingsFromAllocation builds the set that splits total across alloc at
// current prices: qty = fraction * total / price. Quantities are never rounded.
func HoldingsFromAllocation(reg *Registry, alloc Allocation, total float64) (*Holdings, error) {
	norm, err := alloc.Normalized()
	if err != nil {
		return nil, err
	}
	if err := CheckValidAllocation(norm); err != nil {
		return nil, err
	}
	if math.IsNaN(total) || math.IsInf(total, 0) || total < 0 {
		return nil, fmt.Errorf("%w: total value %v", ErrInvalidAmount, total)
	}

	insts := make(map[string]*Instrument, len(norm))
	for _, sym := range norm.symbols() {
		inst, err := reg.Get(sym)
		if err != nil {
			return nil, err
		}
		insts[sym] = inst
	}

	h := NewHoldings()
	for sym, fraction := range norm {
		inst := insts[sym]
		qty := fraction * total / inst.Price()
		if qty > 0 {
			h.entries[sym] = holding{inst: inst, qty: qty}
		}
	}
	return h, nil
}

// Value is the sum of quantity times live price.
func (h *Holdings) Value() float64 {
	total := 0.0
	for _, e := range h.entries {
		total += e.qty * e.inst.Price()
	}
	return total
}

// Allocation returns each held symbol's share of Value.
func (h *Holdings) Allocation() Allocation {
	alloc := make(Allocation, len(h.entries))
	total := h.Value()
	if total == 0 {
		return alloc
	}
	for sym, e := range h.entries {
		alloc[sym] = e.qty * e.inst.Price() / total
	}
	return alloc
}

// Instruments lists the held instruments sorted by symbol.
func (h *Holdings) Instruments() []*Instrument {
	res := make([]*Instrument, 0, len(h.entries))
	for _, sym := range h.symbols() {
		res = append(res, h.entries[sym].inst)
	}
	return res
}

func (h *Holdings) Len() int { return len(h.entries) }

func (h *Holdings) Contains(inst *Instrument) bool {
	_, ok := h.entries[inst.symbol]
	return ok
}

// Quantity returns the held quantity, 0 when absent.
func (h *Holdings) Quantity(inst *Instrument) float64 {
	return h.entries[inst.symbol].qty
}

// ModifyQuantity adds delta (which may be negative) to the held quantity.
// Reaching zero removes the entry.
func (h *Holdings) ModifyQuantity(inst *Instrument, delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return fmt.Errorf("%w: %s delta %v", ErrInvalidQuantity, inst.symbol, delta)
	}
	cur := h.entries[inst.symbol].qty
	next := cur + delta
	// cancellation noise from cur - cur*x must not leave dust or fail; only
	// an existing position can cancel out
	if cur > 0 && next != 0 && math.Abs(next) <= relTolerance*cur {
		next = 0
	}
	if next < 0 {
		return fmt.Errorf("%w: %s holds %v, change %v", ErrInsufficientQuantity, inst.symbol, cur, delta)
	}
	if next == 0 {
		delete(h.entries, inst.symbol)
		return nil
	}
	h.entries[inst.symbol] = holding{inst: inst, qty: next}
	return nil
}

// Delete drops an instrument regardless of quantity.
func (h *Holdings) Delete(inst *Instrument) error {
	if _, ok := h.entries[inst.symbol]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, inst.symbol)
	}
	delete(h.entries, inst.symbol)
	return nil
}

// Add buys qty more units of inst.
func (h *Holdings) Add(inst *Instrument, qty float64) error {
	if !validQuantity(qty) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidQuantity, inst.symbol, qty)
	}
	return h.ModifyQuantity(inst, qty)
}

// Remove sells qty units of a held instrument.
func (h *Holdings) Remove(inst *Instrument, qty float64) error {
	if !h.Contains(inst) {
		return fmt.Errorf("%w: %s", ErrNotFound, inst.symbol)
	}
	if !validQuantity(qty) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidQuantity, inst.symbol, qty)
	}
	return h.ModifyQuantity(inst, -qty)
}

// SetQuantity overwrites the quantity held of a registered symbol.
func (h *Holdings) SetQuantity(reg *Registry, symbol string, qty float64) error {
	inst, err := reg.Get(symbol)
	if err != nil {
		return err
	}
	if !validQuantity(qty) {
		return fmt.Errorf("%w: %s=%v", ErrInvalidQuantity, inst.symbol, qty)
	}
	h.entries[inst.symbol] = holding{inst: inst, qty: qty}
	return nil
}

// Equal reports whether both sets hold the same symbols in quantities equal
// within floating tolerance.
func (h *Holdings) Equal(other *Holdings) bool {
	if other == nil || len(h.entries) != len(other.entries) {
		return false
	}
	for sym, e := range h.entries {
		o, ok := other.entries[sym]
		if !ok || !isClose(e.qty, o.qty) {
			return false
		}
	}
	return true
}

// Clone copies the entries. Instrument handles stay shared.
func (h *Holdings) Clone() *Holdings {
	c := &Holdings{entries: make(map[string]holding, len(h.entries))}
	for sym, e := range h.entries {
		c.entries[sym] = e
	}
	return c
}

// Snapshot renders the set sorted by symbol at current prices.
func (h *Holdings) Snapshot() []Position {
	res := make([]Position, 0, len(h.entries))
	for _, sym := range h.symbols() {
		e := h.entries[sym]
		price := e.inst.Price()
		res = append(res, Position{Symbol: sym, Quantity: e.qty, Price: price, Value: e.qty * price})
	}
	return res
}

func (h *Holdings) symbols() []string {
	keys := make([]string, 0, len(h.entries))
	for k := range h.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validQuantity(qty float64) bool {
	return qty > 0 && !math.IsInf(qty, 1)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
