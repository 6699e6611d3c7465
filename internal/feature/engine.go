package feature

import (
	"math"

	"mbo-features/internal/book"
	"mbo-features/internal/event"
	"mbo-features/internal/rolling"
)

// InputSnapshot is a transient, consistent view handed to the
// FeatureProcessor. It borrows the rolling deques rather than copying them.
type InputSnapshot struct {
	Instrument  string
	TimestampNs uint64

	BestBid float64 // NaN if the bid side is empty
	BestAsk float64 // NaN if the ask side is empty

	Bids []book.Level
	Asks []book.Level

	BidDepthChangeDir []int8
	AskDepthChangeDir []int8

	BuyVolume             float64
	SellVolume            float64
	AddsSinceLastSnapshot int

	Rolling *rolling.State
}

// Engine is the FeatureEngine: owns a RollingState, applies OrderEngine
// notifications to it, and on demand assembles an InputSnapshot combining
// order-book depth, rolling aggregates, and a depth-change delta.
type Engine struct {
	instrument string
	book       *book.OrderBook
	rolling    *rolling.State

	lastEventTimestampNs uint64
}

// NewEngine builds a FeatureEngine over an already-constructed OrderBook and
// RollingState (both owned by the same instrument's OrderEngine entry).
func NewEngine(instrument string, b *book.OrderBook, r *rolling.State) *Engine {
	return &Engine{instrument: instrument, book: b, rolling: r}
}

// OnEvent forwards a dispatched event kind to the RollingState.
func (e *Engine) OnEvent(kind event.Action) { e.rolling.OnEvent(kind) }

// OnTrade forwards a trade to the RollingState.
func (e *Engine) OnTrade(price, size float64, direction int8) {
	e.rolling.OnTrade(price, size, direction)
}

// SampleMidSpread forwards a 50 ms sub-clock sample to the RollingState.
func (e *Engine) SampleMidSpread(mid, spread float64) { e.rolling.SampleMidSpread(mid, spread) }

// SetLastEventTimestamp records the OrderEngine's current event-time.
func (e *Engine) SetLastEventTimestamp(ts uint64) { e.lastEventTimestampNs = ts }

// LastEventTimestamp returns the most recently dispatched event's timestamp.
func (e *Engine) LastEventTimestamp() uint64 { return e.lastEventTimestampNs }

// Snapshot reads top-N and depth-change from the book, populates rolling
// aggregates, and resets adds_since_last_snapshot.
func (e *Engine) Snapshot(timestampNs uint64) InputSnapshot {
	top := e.book.TopNSnapshot()
	bidDir, askDir := e.book.DepthChange()

	bestBid, ok := e.book.BestBid()
	if !ok {
		bestBid = math.NaN()
	}
	bestAsk, ok := e.book.BestAsk()
	if !ok {
		bestAsk = math.NaN()
	}

	in := InputSnapshot{
		Instrument:            e.instrument,
		TimestampNs:           timestampNs,
		BestBid:               bestBid,
		BestAsk:               bestAsk,
		Bids:                  top.Bids,
		Asks:                  top.Asks,
		BidDepthChangeDir:     bidDir,
		AskDepthChangeDir:     askDir,
		BuyVolume:             e.rolling.BuyVolume(),
		SellVolume:            e.rolling.SellVolume(),
		AddsSinceLastSnapshot: e.rolling.AddsSinceLastSnapshot(),
		Rolling:               e.rolling,
	}
	e.rolling.ResetAddsSinceLastSnapshot()
	return in
}
