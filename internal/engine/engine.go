// Package engine implements the OrderEngine: it applies a merged event
// stream to the correct per-instrument OrderBook, tracks
// order_id -> (instrument, side, price) for O(1) modify/cancel dispatch,
// detects out-of-order events, and notifies each instrument's FeatureEngine.
//
// The dispatch table and error-swallowing policy (duplicate/unknown ids are
// caught and logged, the engine continues) follow the reference
// implementation's process_event, including its front-month futures filter.
package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mbo-features/internal/book"
	"mbo-features/internal/event"
	"mbo-features/internal/feature"
	"mbo-features/internal/rolling"
)

// ErrOutOfOrderEvent is fatal: the caller must terminate the
// pipeline with a non-zero status.
var ErrOutOfOrderEvent = errors.New("engine: out-of-order event")

type locatorInfo struct {
	instrument string
	side       event.Side
	price      float64
}

// instrumentState bundles the per-instrument OrderBook, RollingState, and
// FeatureEngine the OrderEngine owns.
type instrumentState struct {
	book    *book.OrderBook
	rolling *rolling.State
	feature *feature.Engine
}

// Engine is the OrderEngine.
type Engine struct {
	depthLevels   int
	rollingWindow int
	midHistory    int

	futuresSymbol string
	frontMonthID  int64

	instruments map[string]*instrumentState
	locator     map[uint64]locatorInfo

	currentTimestampNs uint64

	logger zerolog.Logger
}

// New builds an OrderEngine. futuresSymbol/frontMonthID implement the
// front-month filter; pass an empty futuresSymbol to disable it (e.g.
// single-instrument tests).
func New(depthLevels, rollingWindow, midHistory int, futuresSymbol string, frontMonthID int64, logger zerolog.Logger) *Engine {
	return &Engine{
		depthLevels:   depthLevels,
		rollingWindow: rollingWindow,
		midHistory:    midHistory,
		futuresSymbol: futuresSymbol,
		frontMonthID:  frontMonthID,
		instruments:   make(map[string]*instrumentState),
		locator:       make(map[uint64]locatorInfo),
		logger:        logger,
	}
}

// EnsureInstrument creates (if absent) and returns the book/feature-engine
// pair for instrument, so the Pipeline can sample mid/spread or take a
// snapshot for a symbol before any event for it has arrived.
func (e *Engine) EnsureInstrument(instrument string) (*book.OrderBook, *feature.Engine) {
	st := e.getOrCreate(instrument)
	return st.book, st.feature
}

func (e *Engine) getOrCreate(instrument string) *instrumentState {
	st, ok := e.instruments[instrument]
	if ok {
		return st
	}
	b := book.New(e.depthLevels)
	r := rolling.New(e.midHistory, e.rollingWindow)
	st = &instrumentState{book: b, rolling: r, feature: feature.NewEngine(instrument, b, r)}
	e.instruments[instrument] = st
	return st
}

// ProcessEvent implements process_event. It returns
// ErrOutOfOrderEvent (fatal) when the stream violates monotonic ordering;
// all other per-event failures (duplicate/unknown order id) are caught,
// logged, and the event is dropped — ProcessEvent still returns nil.
func (e *Engine) ProcessEvent(ev event.MarketEvent) error {
	if ev.TimestampNs < e.currentTimestampNs {
		return fmt.Errorf("%w: got %d, have %d", ErrOutOfOrderEvent, ev.TimestampNs, e.currentTimestampNs)
	}
	if e.futuresSymbol != "" && ev.Instrument == e.futuresSymbol && ev.InstrumentID != e.frontMonthID {
		return nil
	}

	e.currentTimestampNs = ev.TimestampNs
	st := e.getOrCreate(ev.Instrument)
	st.feature.SetLastEventTimestamp(ev.TimestampNs)

	switch ev.Action {
	case event.Add:
		size := decimal.NewFromInt(int64(ev.Size))
		if err := st.book.ApplyAdd(ev.OrderID, ev.Price, size, ev.Side); err != nil {
			e.logger.Warn().Err(err).Uint64("order_id", ev.OrderID).Msg("add dropped")
			return nil
		}
		e.locator[ev.OrderID] = locatorInfo{instrument: ev.Instrument, side: ev.Side, price: ev.Price}
		st.feature.OnEvent(event.Add)

	case event.Modify:
		loc, ok := e.locator[ev.OrderID]
		if !ok {
			e.logger.Warn().Uint64("order_id", ev.OrderID).Msg("modify for unknown order id")
			return nil
		}
		size := decimal.NewFromInt(int64(ev.Size))
		if err := st.book.ApplyModify(ev.OrderID, ev.Price, size); err != nil {
			e.logger.Warn().Err(err).Uint64("order_id", ev.OrderID).Msg("modify dropped")
			return nil
		}
		loc.price = ev.Price
		e.locator[ev.OrderID] = loc
		st.feature.OnEvent(event.Modify)

	case event.Cancel:
		loc, ok := e.locator[ev.OrderID]
		if !ok {
			e.logger.Warn().Uint64("order_id", ev.OrderID).Msg("cancel for unknown order id")
			return nil
		}
		if err := st.book.ApplyCancel(ev.OrderID); err != nil {
			e.logger.Warn().Err(err).Uint64("order_id", ev.OrderID).Msg("cancel dropped")
			return nil
		}
		delete(e.locator, ev.OrderID)
		_ = loc
		st.feature.OnEvent(event.Cancel)

	case event.Trade:
		direction := int8(1)
		if ev.Side != event.Bid {
			direction = -1
		}
		st.feature.OnTrade(ev.Price, float64(ev.Size), direction)

	case event.Fill:
		// no-op

	case event.Clear: // == event.Replace, same byte 'R'
		e.logger.Info().Str("instrument", ev.Instrument).Uint64("ts", ev.TimestampNs).Msg("clear event received (no-op)")

	default:
		e.logger.Warn().Uint8("action", uint8(ev.Action)).Msg("unknown event action")
	}
	return nil
}

// CurrentTimestamp returns the engine's last-accepted event timestamp.
func (e *Engine) CurrentTimestamp() uint64 { return e.currentTimestampNs }
