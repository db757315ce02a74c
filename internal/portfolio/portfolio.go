package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"rebalancer/internal/models"
)

// Portfolio couples a name, the holdings it owns and a target allocation.
// The target holding set is derived from the target and the current value on
// every read; it is never kept in sync with mutations.
type Portfolio struct {
	name           string
	reg            *Registry
	holdings       *Holdings
	target         Allocation
	targetHoldings *Holdings
}

// New wraps holdings, which the portfolio owns from now on. A nil holdings
// starts empty.
func New(reg *Registry, name string, holdings *Holdings) *Portfolio {
	if holdings == nil {
		holdings = NewHoldings()
	}
	return &Portfolio{name: name, reg: reg, holdings: holdings, target: Allocation{}}
}

// NewFromAllocation invests total according to alloc and keeps alloc as the
// target.
func NewFromAllocation(reg *Registry, name string, alloc Allocation, total float64) (*Portfolio, error) {
	h, err := HoldingsFromAllocation(reg, alloc, total)
	if err != nil {
		return nil, err
	}
	p := New(reg, name, h)
	if err := p.SetAllocationTarget(alloc); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Portfolio) Name() string { return p.name }

func (p *Portfolio) Holdings() *Holdings { return p.holdings }

func (p *Portfolio) Value() float64 { return p.holdings.Value() }

// Target returns a copy of the target allocation.
func (p *Portfolio) Target() Allocation { return p.target.Clone() }

// TargetHoldings returns the target set computed by the last
// UpdateTargetHoldings call, which may be stale.
func (p *Portfolio) TargetHoldings() *Holdings { return p.targetHoldings }

// SetAllocationTarget replaces the target allocation. Every symbol must be
// registered.
func (p *Portfolio) SetAllocationTarget(alloc Allocation) error {
	norm, err := alloc.Normalized()
	if err != nil {
		return err
	}
	if err := CheckValidAllocation(norm); err != nil {
		return err
	}
	for _, sym := range norm.symbols() {
		if _, err := p.reg.Get(sym); err != nil {
			return err
		}
	}
	p.target = norm
	p.targetHoldings = nil
	return nil
}

// UpdateTargetHoldings recomputes the target set from the target allocation and
// the current value.
func (p *Portfolio) UpdateTargetHoldings() (*Holdings, error) {
	if len(p.target) == 0 {
		return nil, ErrNoTarget
	}
	h, err := HoldingsFromAllocation(p.reg, p.target, p.holdings.Value())
	if err != nil {
		return nil, err
	}
	p.targetHoldings = h
	return h, nil
}

// Deviation is current minus target quantity per symbol. Positive means sell
// that many units, negative means buy.
type Deviation map[string]float64

// Deviation refreshes the target set and diffs it against current holdings
// over the union of both symbol sets.
func (p *Portfolio) Deviation() (Deviation, error) {
	target, err := p.UpdateTargetHoldings()
	if err != nil {
		return nil, err
	}
	dev := make(Deviation, len(target.entries)+len(p.holdings.entries))
	for sym, e := range p.holdings.entries {
		dev[sym] = e.qty - target.entries[sym].qty
	}
	for sym, e := range target.entries {
		if _, ok := p.holdings.entries[sym]; !ok {
			dev[sym] = -e.qty
		}
	}
	return dev, nil
}

// Rebalance trades holdings into the target set at current prices. Value is
// unchanged. Nothing is applied if any adjustment fails.
func (p *Portfolio) Rebalance() (Deviation, error) {
	dev, err := p.Deviation()
	if err != nil {
		return nil, err
	}
	work := p.holdings.Clone()
	// sells before buys
	for _, sym := range dev.orderedSymbols() {
		inst, err := p.resolve(sym)
		if err != nil {
			return nil, err
		}
		if err := work.ModifyQuantity(inst, -dev[sym]); err != nil {
			return nil, fmt.Errorf("rebalance %s: %w", p.name, err)
		}
	}
	p.holdings = work
	return dev, nil
}

// IsBalanced reports whether current holdings already match the target set.
func (p *Portfolio) IsBalanced() (bool, error) {
	target, err := p.UpdateTargetHoldings()
	if err != nil {
		return false, err
	}
	return p.holdings.Equal(target), nil
}

// Deposit spreads amount over the held instruments following the current
// allocation, not the target.
func (p *Portfolio) Deposit(amount float64) error {
	if !validAmount(amount) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if p.holdings.Len() == 0 {
		return fmt.Errorf("deposit into %s: %w", p.name, ErrEmptyHoldings)
	}
	return p.spread(amount)
}

// Withdraw sells amount worth of holdings following the current allocation.
func (p *Portfolio) Withdraw(amount float64) error {
	if !validAmount(amount) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	value := p.holdings.Value()
	if amount > value && !isClose(amount, value) {
		return fmt.Errorf("%w: withdraw %v from %s worth %v", ErrInsufficientFunds, amount, p.name, value)
	}
	return p.spread(-amount)
}

func (p *Portfolio) spread(amount float64) error {
	alloc := p.holdings.Allocation()
	work := p.holdings.Clone()
	for _, inst := range p.holdings.Instruments() {
		delta := alloc[inst.symbol] * amount / inst.Price()
		if err := work.ModifyQuantity(inst, delta); err != nil {
			return err
		}
	}
	p.holdings = work
	return nil
}

func (p *Portfolio) resolve(sym string) (*Instrument, error) {
	if e, ok := p.holdings.entries[sym]; ok {
		return e.inst, nil
	}
	return p.reg.Get(sym)
}

// orderedSymbols puts sells (positive deviations) before buys, each group
// sorted by symbol.
func (d Deviation) orderedSymbols() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := d[keys[i]] > 0, d[keys[j]] > 0
		if si != sj {
			return si
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Instructions renders the deviation as buy/sell orders sorted by symbol.
// Deviations whose magnitude is at most tolerance need no action.
func (d Deviation) Instructions(tolerance float64) []models.Instruction {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	res := make([]models.Instruction, 0, len(keys))
	for _, sym := range keys {
		v := d[sym]
		in := models.Instruction{Symbol: sym, Action: models.ActionHold, Quantity: decimal.Zero}
		switch {
		case math.Abs(v) <= tolerance:
		case v > 0:
			in.Action = models.ActionSell
			in.Quantity = decimal.NewFromFloat(v)
		default:
			in.Action = models.ActionBuy
			in.Quantity = decimal.NewFromFloat(-v)
		}
		res = append(res, in)
	}
	return res
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 1)
}
