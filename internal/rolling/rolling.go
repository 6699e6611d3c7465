// Package rolling implements per-instrument bounded deques (mid-prices,
// spreads, tick/trade directions, event-type log, trade volumes with
// running buy/sell sums).
//
// The fixed-capacity, evict-oldest discipline is generalized across six
// bounded deques of four element types. No sync.RWMutex is needed: the
// pipeline is single-threaded, so there is exactly one writer and no
// concurrent reader.
package rolling

import "mbo-features/internal/event"

// volumeEntry is one trade_volumes deque element.
type volumeEntry struct {
	direction int8
	size      float64
}

// State is the per-instrument RollingState.
type State struct {
	midHistory    int
	rollingWindow int

	midprices []float64
	spreads   []float64

	tickDirections  []int8
	tradeDirections []int8
	eventTypes      []event.Action

	tradeVolumes []volumeEntry
	buyVolume    float64
	sellVolume   float64

	addsSinceLastSnapshot int
}

// New creates a RollingState bounded by midHistory (mid/spread deques) and
// rollingWindow (tick/trade/event deques).
func New(midHistory, rollingWindow int) *State {
	return &State{midHistory: midHistory, rollingWindow: rollingWindow}
}

// OnTrade records a trade. price is accepted for signature symmetry but is
// not retained — only direction and size feed the rolling aggregates.
func (s *State) OnTrade(price, size float64, direction int8) {
	_ = price
	if direction != 0 {
		s.tradeDirections = pushBounded(s.tradeDirections, direction, s.rollingWindow)
	}

	s.tradeVolumes = append(s.tradeVolumes, volumeEntry{direction: direction, size: size})
	if direction > 0 {
		s.buyVolume += size
	} else if direction < 0 {
		s.sellVolume += size
	}
	if len(s.tradeVolumes) > s.rollingWindow {
		evicted := s.tradeVolumes[0]
		s.tradeVolumes = s.tradeVolumes[1:]
		if evicted.direction > 0 {
			s.buyVolume -= evicted.size
		} else if evicted.direction < 0 {
			s.sellVolume -= evicted.size
		}
	}
}

// OnEvent records one dispatched event's kind.
func (s *State) OnEvent(kind event.Action) {
	if kind == event.Add {
		s.addsSinceLastSnapshot++
	}
	s.eventTypes = pushBounded(s.eventTypes, kind, s.rollingWindow)
}

// SampleMidSpread records one mid/spread sample, invoked by the Pipeline on
// the 50 ms sub-clock rather than per event.
func (s *State) SampleMidSpread(mid, spread float64) {
	prevLen := len(s.midprices)
	s.midprices = pushBounded(s.midprices, mid, s.midHistory)
	s.spreads = pushBounded(s.spreads, spread, s.midHistory)

	if prevLen >= 1 {
		last := s.midprices[len(s.midprices)-1]
		prev := s.midprices[len(s.midprices)-2]
		s.tickDirections = pushBounded(s.tickDirections, int8(sign(last-prev)), s.rollingWindow)
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// ResetAddsSinceLastSnapshot zeroes the add counter after a snapshot is taken.
func (s *State) ResetAddsSinceLastSnapshot() { s.addsSinceLastSnapshot = 0 }

// Accessors used by FeatureEngine.snapshot()/FeatureProcessor.

func (s *State) MidPrices() []float64          { return s.midprices }
func (s *State) Spreads() []float64            { return s.spreads }
func (s *State) TickDirections() []int8        { return s.tickDirections }
func (s *State) TradeDirections() []int8       { return s.tradeDirections }
func (s *State) EventTypes() []event.Action    { return s.eventTypes }
func (s *State) BuyVolume() float64            { return s.buyVolume }
func (s *State) SellVolume() float64           { return s.sellVolume }
func (s *State) AddsSinceLastSnapshot() int    { return s.addsSinceLastSnapshot }
func (s *State) RollingWindow() int            { return s.rollingWindow }

// pushBounded appends v to the bounded deque s, evicting the oldest entry
// when the bound is exceeded.
func pushBounded[T any](s []T, v T, bound int) []T {
	s = append(s, v)
	if len(s) > bound {
		s = s[1:]
	}
	return s
}
