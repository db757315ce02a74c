package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const delta = 1e-9

// newTestRegistry registers S100, S200 and S300 priced as their names say.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(nil)
	for sym, price := range map[string]float64{"S100": 100, "S200": 200, "S300": 300} {
		_, err := reg.Set(sym, price)
		require.NoError(t, err)
	}
	return reg
}

func mustGet(t *testing.T, reg *Registry, sym string) *Instrument {
	t.Helper()
	inst, err := reg.Get(sym)
	require.NoError(t, err)
	return inst
}

func evenAllocation() Allocation {
	return Allocation{"S100": 1.0 / 3, "S200": 1.0 / 3, "S300": 1.0 / 3}
}

// sameQtyAllocation yields one unit of each instrument per 600 invested.
func sameQtyAllocation() Allocation {
	return Allocation{"S100": 1.0 / 6, "S200": 1.0 / 3, "S300": 1.0 / 2}
}
