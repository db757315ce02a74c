package portfolio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SetCreatesInstrument(t *testing.T) {
	reg := NewRegistry(nil)

	inst, err := reg.Set("AAPL", 150)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", inst.Symbol())
	assert.Equal(t, 150.0, inst.Price())
	assert.True(t, reg.Exists("aapl"))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SameSymbolSameRecord(t *testing.T) {
	reg := NewRegistry(nil)

	first, err := reg.Set("aapl", 150)
	require.NoError(t, err)
	second, err := reg.Set("AAPL", 155)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 155.0, first.Price())
	assert.Equal(t, "AAPL", first.Symbol())
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_DifferentSymbols(t *testing.T) {
	reg := NewRegistry(nil)

	a, err := reg.Set("AAPL", 150)
	require.NoError(t, err)
	g, err := reg.Set("GOOGL", 155)
	require.NoError(t, err)

	assert.NotSame(t, a, g)
	assert.Equal(t, 150.0, a.Price())
	assert.Equal(t, 155.0, g.Price())
}

func TestRegistry_GetWithoutPrice(t *testing.T) {
	reg := NewRegistry(nil)

	_, err := reg.Get("MSFT")
	assert.ErrorIs(t, err, ErrInstrumentNotFound)

	created, err := reg.Set("MSFT", 300)
	require.NoError(t, err)
	got, err := reg.Get(" msft ")
	require.NoError(t, err)
	assert.Same(t, created, got)
	assert.Equal(t, 300.0, got.Price())
}

func TestRegistry_InvalidPrice(t *testing.T) {
	reg := NewRegistry(nil)

	_, err := reg.Set("AAPL", -150)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = reg.Set("AAPL", 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.False(t, reg.Exists("AAPL"))

	inst, err := reg.Set("AAPL", 150)
	require.NoError(t, err)
	_, err = reg.Set("AAPL", -155)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.Equal(t, 150.0, inst.Price())
}

func TestRegistry_InvalidSymbol(t *testing.T) {
	reg := NewRegistry(nil)

	for _, sym := range []string{"", "   ", "BRK B"} {
		_, err := reg.Set(sym, 10)
		assert.ErrorIs(t, err, ErrInvalidSymbol, "symbol %q", sym)
		assert.False(t, reg.Exists(sym))
	}
}

func TestRegistry_GetOrCreate(t *testing.T) {
	reg := NewRegistry(nil)
	price := 42.0

	inst, err := reg.GetOrCreate("ibm", &price)
	require.NoError(t, err)
	again, err := reg.GetOrCreate("IBM", nil)
	require.NoError(t, err)
	assert.Same(t, inst, again)
}

func TestRegistry_InstrumentsSorted(t *testing.T) {
	reg := NewRegistry(nil)
	for _, s := range []string{"c", "a", "b"} {
		_, err := reg.Set(s, 1)
		require.NoError(t, err)
	}

	var got []string
	for _, inst := range reg.Instruments() {
		got = append(got, inst.Symbol())
	}
	assert.Equal(t, []string{"A", "B", "C"}, got)
}

func TestRegistry_ConcurrentUpdates(t *testing.T) {
	reg := NewRegistry(nil)
	inst, err := reg.Set("SPY", 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(p float64) {
			defer wg.Done()
			_, _ = reg.Set("spy", p)
			_ = inst.Price()
			_ = reg.Exists("SPY")
		}(float64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, reg.Len())
	assert.Greater(t, inst.Price(), 0.0)
}
