package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbo-features/internal/event"
	"mbo-features/internal/obslog"
)

func ev(ts uint64, instrument string, action event.Action, side event.Side, price float64, size uint64, orderID uint64, instrumentID int64) event.MarketEvent {
	return event.MarketEvent{
		TimestampNs:  ts,
		Instrument:   instrument,
		Action:       action,
		Side:         side,
		Price:        price,
		Size:         size,
		OrderID:      orderID,
		InstrumentID: instrumentID,
	}
}

func TestProcessEventAddThenCancel(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	require.NoError(t, e.ProcessEvent(ev(100, "ES", event.Add, event.Bid, 5000, 10, 1, 0)))
	b, _ := e.EnsureInstrument("ES")
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, 5000.0, bid)

	require.NoError(t, e.ProcessEvent(ev(200, "ES", event.Cancel, event.Bid, 5000, 10, 1, 0)))
	_, ok = b.BestBid()
	assert.False(t, ok)
}

func TestProcessEventOutOfOrderIsFatal(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	require.NoError(t, e.ProcessEvent(ev(200, "ES", event.Add, event.Bid, 5000, 10, 1, 0)))
	err := e.ProcessEvent(ev(100, "ES", event.Add, event.Bid, 5000, 10, 2, 0))
	require.ErrorIs(t, err, ErrOutOfOrderEvent)
}

func TestProcessEventFrontMonthFilter(t *testing.T) {
	e := New(10, 30000, 30000, "ES", 4916, obslog.Nop())
	// Not the front-month contract id: dropped silently.
	require.NoError(t, e.ProcessEvent(ev(100, "ES", event.Add, event.Bid, 5000, 10, 1, 1234)))
	b, _ := e.EnsureInstrument("ES")
	_, ok := b.BestBid()
	assert.False(t, ok)

	// Front-month id: applied.
	require.NoError(t, e.ProcessEvent(ev(200, "ES", event.Add, event.Bid, 5001, 10, 2, 4916)))
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, 5001.0, bid)
}

func TestProcessEventModifyUnknownOrderIDDroppedNotFatal(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	err := e.ProcessEvent(ev(100, "ES", event.Modify, event.Bid, 5000, 10, 99, 0))
	require.NoError(t, err)
}

func TestProcessEventCancelUnknownOrderIDDroppedNotFatal(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	err := e.ProcessEvent(ev(100, "ES", event.Cancel, event.Bid, 5000, 10, 99, 0))
	require.NoError(t, err)
}

func TestProcessEventDuplicateAddDroppedNotFatal(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	require.NoError(t, e.ProcessEvent(ev(100, "ES", event.Add, event.Bid, 5000, 10, 1, 0)))
	err := e.ProcessEvent(ev(200, "ES", event.Add, event.Bid, 5001, 10, 1, 0))
	require.NoError(t, err)
	b, _ := e.EnsureInstrument("ES")
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, 5000.0, bid)
}

func TestProcessEventTradeFeedsRolling(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	require.NoError(t, e.ProcessEvent(ev(100, "ES", event.Trade, event.Bid, 5000, 5, 0, 0)))
	_, fe := e.EnsureInstrument("ES")
	snap := fe.Snapshot(150)
	assert.Equal(t, 5.0, snap.BuyVolume)
	assert.Equal(t, 0.0, snap.SellVolume)
}

func TestProcessEventClearIsNoOp(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	require.NoError(t, e.ProcessEvent(ev(100, "ES", event.Add, event.Bid, 5000, 10, 1, 0)))
	require.NoError(t, e.ProcessEvent(ev(200, "ES", event.Clear, event.None, 0, 0, 0, 0)))
	b, _ := e.EnsureInstrument("ES")
	bid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, 5000.0, bid)
}

func TestCurrentTimestampAdvances(t *testing.T) {
	e := New(10, 30000, 30000, "", 0, obslog.Nop())
	require.NoError(t, e.ProcessEvent(ev(100, "ES", event.Add, event.Bid, 5000, 10, 1, 0)))
	assert.Equal(t, uint64(100), e.CurrentTimestamp())
}
