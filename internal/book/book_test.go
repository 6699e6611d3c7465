package book

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbo-features/internal/event"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// Single-add top of book.
func TestSingleAddTopOfBook(t *testing.T) {
	b := New(10)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(5), event.Bid))

	snap := b.TopNSnapshot()
	assert.Equal(t, 100.0, snap.Bids[0].Price)
	assert.Equal(t, 5.0, snap.Bids[0].Size)
	assert.True(t, math.IsNaN(b.MidPrice()))
	assert.True(t, math.IsNaN(b.Spread()))

	require.NoError(t, b.ApplyAdd(2, 101.0, dec(3), event.Ask))
	assert.InDelta(t, 100.5, b.MidPrice(), 1e-9)
	assert.InDelta(t, 1.0, b.Spread(), 1e-9)
	logSpread := math.Log(101.0) - math.Log(100.0)
	assert.InDelta(t, 0.009950, logSpread, 1e-6)
}

// Scenario 2: cancel removes level.
func TestCancelRemovesLevel(t *testing.T) {
	b := New(10)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(5), event.Bid))
	require.NoError(t, b.ApplyAdd(2, 101.0, dec(3), event.Ask))

	require.NoError(t, b.ApplyCancel(1))
	snap := b.TopNSnapshot()
	assert.Equal(t, 0.0, snap.Bids[0].Price)
	assert.Equal(t, 0.0, snap.Bids[0].Size)
	assert.True(t, math.IsNaN(b.MidPrice()))
}

// Scenario 3: depth-change direction.
func TestDepthChangeDirection(t *testing.T) {
	b := New(10)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(5), event.Bid))
	b.DepthChange() // seed cached snapshot

	require.NoError(t, b.ApplyAdd(3, 100.0, dec(2), event.Bid))
	bidDir, _ := b.DepthChange()
	assert.EqualValues(t, 1, bidDir[0])

	bidDir2, _ := b.DepthChange()
	assert.EqualValues(t, 0, bidDir2[0])
}

func TestApplyAddDuplicateOrderID(t *testing.T) {
	b := New(5)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(1), event.Bid))
	err := b.ApplyAdd(1, 100.0, dec(1), event.Bid)
	assert.ErrorIs(t, err, ErrDuplicateOrderID)
}

func TestApplyModifyUnknownOrderID(t *testing.T) {
	b := New(5)
	err := b.ApplyModify(99, 100.0, dec(1))
	assert.ErrorIs(t, err, ErrUnknownOrderID)
}

func TestApplyCancelUnknownOrderID(t *testing.T) {
	b := New(5)
	err := b.ApplyCancel(99)
	assert.ErrorIs(t, err, ErrUnknownOrderID)
}

// apply_add then apply_cancel round trip: book returns to empty.
func TestAddCancelRoundTrip(t *testing.T) {
	b := New(5)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(5), event.Bid))
	require.NoError(t, b.ApplyCancel(1))
	snap := b.TopNSnapshot()
	for _, lvl := range snap.Bids {
		assert.Equal(t, Level{}, lvl)
	}
	_, ok := b.BestBid()
	assert.False(t, ok)
}

// apply_modify equals cancel+add in final state (FIFO priority lost either way).
func TestModifyEquivalentToCancelThenAdd(t *testing.T) {
	a := New(5)
	require.NoError(t, a.ApplyAdd(1, 100.0, dec(5), event.Bid))
	require.NoError(t, a.ApplyModify(1, 101.0, dec(7)))

	b := New(5)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(5), event.Bid))
	require.NoError(t, b.ApplyCancel(1))
	require.NoError(t, b.ApplyAdd(1, 101.0, dec(7), event.Bid))

	assert.Equal(t, a.TopNSnapshot(), b.TopNSnapshot())
}

func TestAggregateSizeInvariant(t *testing.T) {
	b := New(5)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(5), event.Bid))
	require.NoError(t, b.ApplyAdd(2, 100.0, dec(3), event.Bid))
	snap := b.TopNSnapshot()
	assert.Equal(t, 8.0, snap.Bids[0].Size)
}

func TestDepthChangeIdempotentWithoutMutation(t *testing.T) {
	b := New(5)
	require.NoError(t, b.ApplyAdd(1, 100.0, dec(5), event.Bid))
	b.DepthChange()
	bidDir, askDir := b.DepthChange()
	for _, d := range bidDir {
		assert.EqualValues(t, 0, d)
	}
	for _, d := range askDir {
		assert.EqualValues(t, 0, d)
	}
}
