package portfolio

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry is the identity map of instruments: one record per normalized
// symbol. It is owned by the application (or a test) and passed to whatever
// needs to resolve symbols.
type Registry struct {
	mu          sync.RWMutex
	instruments map[string]*Instrument
	log         logrus.FieldLogger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Registry{instruments: make(map[string]*Instrument), log: log}
}

// Set registers symbol at price, or updates the price of the existing record.
func (r *Registry) Set(symbol string, price float64) (*Instrument, error) {
	return r.GetOrCreate(symbol, &price)
}

// Get resolves an already registered symbol.
func (r *Registry) Get(symbol string) (*Instrument, error) {
	return r.GetOrCreate(symbol, nil)
}

// GetOrCreate returns the record for symbol. When price is non-nil the record
// is created, or its price replaced in place if it already exists. When price
// is nil the symbol must already be registered.
func (r *Registry) GetOrCreate(symbol string, price *float64) (*Instrument, error) {
	var (
		sym string
		err error
	)
	if price != nil {
		sym, err = CheckPrice(symbol, *price)
	} else {
		sym, err = NormalizeSymbol(symbol)
	}
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instruments[sym]; ok {
		if price != nil && *price != inst.price {
			r.log.WithFields(logrus.Fields{"symbol": sym, "from": inst.price, "to": *price}).Debug("updating instrument price")
			inst.price = *price
		}
		return inst, nil
	}
	if price == nil {
		return nil, fmt.Errorf("%w: %s (a price is required to register it)", ErrInstrumentNotFound, sym)
	}

	inst := &Instrument{symbol: sym, price: *price, mu: &r.mu}
	r.instruments[sym] = inst
	r.log.WithFields(logrus.Fields{"symbol": sym, "price": *price}).Debug("registered instrument")
	return inst, nil
}

// Exists reports whether symbol has been registered. Invalid symbols are
// never registered.
func (r *Registry) Exists(symbol string) bool {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instruments[sym]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instruments)
}

// Instruments lists every registered instrument sorted by symbol.
func (r *Registry) Instruments() []*Instrument {
	r.mu.RLock()
	res := make([]*Instrument, 0, len(r.instruments))
	for _, inst := range r.instruments {
		res = append(res, inst)
	}
	r.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool { return res[i].symbol < res[j].symbol })
	return res
}
