package rolling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mbo-features/internal/event"
)

func TestOnTradeTracksBuySellVolume(t *testing.T) {
	s := New(100, 3)
	s.OnTrade(100, 5, 1)
	s.OnTrade(101, 3, -1)
	assert.Equal(t, 5.0, s.BuyVolume())
	assert.Equal(t, 3.0, s.SellVolume())
}

func TestOnTradeEvictsOldestVolumeAndAdjustsSums(t *testing.T) {
	s := New(100, 2)
	s.OnTrade(100, 10, 1) // buy 10
	s.OnTrade(101, 5, 1)  // buy 15, window full at 2
	s.OnTrade(102, 7, -1) // evicts first (buy 10) -> buy 5, sell 7
	assert.Equal(t, 5.0, s.BuyVolume())
	assert.Equal(t, 7.0, s.SellVolume())
}

func TestOnTradeZeroDirectionNotAppendedToTradeDirections(t *testing.T) {
	s := New(100, 10)
	s.OnTrade(100, 5, 0)
	assert.Empty(t, s.TradeDirections())
}

func TestOnEventIncrementsAddsSinceLastSnapshot(t *testing.T) {
	s := New(100, 10)
	s.OnEvent(event.Add)
	s.OnEvent(event.Add)
	s.OnEvent(event.Cancel)
	assert.Equal(t, 2, s.AddsSinceLastSnapshot())
	s.ResetAddsSinceLastSnapshot()
	assert.Equal(t, 0, s.AddsSinceLastSnapshot())
}

func TestSampleMidSpreadDerivesTickDirection(t *testing.T) {
	s := New(100, 10)
	s.SampleMidSpread(10, 1)
	assert.Empty(t, s.TickDirections())
	s.SampleMidSpread(11, 1)
	assert.Equal(t, []int8{1}, s.TickDirections())
	s.SampleMidSpread(10, 1)
	assert.Equal(t, []int8{1, -1}, s.TickDirections())
	s.SampleMidSpread(10, 1)
	assert.Equal(t, []int8{1, -1, 0}, s.TickDirections())
}

func TestMidHistoryBoundEvictsOldest(t *testing.T) {
	s := New(2, 10)
	s.SampleMidSpread(1, 0)
	s.SampleMidSpread(2, 0)
	s.SampleMidSpread(3, 0)
	assert.Equal(t, []float64{2, 3}, s.MidPrices())
}

func TestRollingWindowBoundOnEventTypes(t *testing.T) {
	s := New(100, 2)
	s.OnEvent(event.Add)
	s.OnEvent(event.Modify)
	s.OnEvent(event.Cancel)
	assert.Equal(t, []event.Action{event.Modify, event.Cancel}, s.EventTypes())
}
