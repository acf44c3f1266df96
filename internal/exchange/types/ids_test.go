package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelStringsRenderAsInvalid(t *testing.T) {
	assert.Equal(t, "INVALID", OrderIDInvalid.String())
	assert.Equal(t, "INVALID", TickerIDInvalid.String())
	assert.Equal(t, "INVALID", ClientIDInvalid.String())
	assert.Equal(t, "INVALID", PriceInvalid.String())
	assert.Equal(t, "INVALID", QtyInvalid.String())
	assert.Equal(t, "INVALID", PriorityInvalid.String())
	assert.Equal(t, "INVALID", SideInvalid.String())
}

func TestOrdinaryValuesRenderAsNumbers(t *testing.T) {
	assert.Equal(t, "42", OrderID(42).String())
	assert.Equal(t, "-7", Price(-7).String())
	assert.Equal(t, "BUY", SideBuy.String())
	assert.Equal(t, "SELL", SideSell.String())
}

func TestOrderIDSlot_WrapsAtModulus(t *testing.T) {
	assert.Equal(t, uint32(0), OrderIDSlot(0, 16))
	assert.Equal(t, uint32(15), OrderIDSlot(15, 16))
	assert.Equal(t, uint32(0), OrderIDSlot(16, 16))
	assert.Equal(t, uint32(1), OrderIDSlot(17, 16))
}

func TestPriceToIndex_HandlesNegativePricesWithoutNegativeIndex(t *testing.T) {
	idx := PriceToIndex(-1, 16)
	assert.Less(t, idx, uint32(16))
}

func TestPriceToIndex_SamePriceAlwaysMapsToSameIndex(t *testing.T) {
	a := PriceToIndex(12345, 256)
	b := PriceToIndex(12345, 256)
	assert.Equal(t, a, b)
}
