// Package book implements a per-instrument limit order book keyed by
// order_id, with FIFO price-level queues and O(1) order lookup/removal.
//
// The reference implementation encodes the order_id -> queue-entry
// back-reference with a stable iterator into a linked list. This package
// takes an intrusive-arena restatement: each price level owns a
// container/list.List of *orderEntry, and the order index stores a
// *list.Element locator directly, giving O(1) removal without index
// invalidation on adjacent removals.
package book

import (
	"container/list"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"mbo-features/internal/event"
)

// Sentinel errors
var (
	ErrDuplicateOrderID = errors.New("book: duplicate order id")
	ErrUnknownOrderID   = errors.New("book: unknown order id")
)

const priceEpsilon = 1e-10

// orderEntry is the FIFO queue element for one resting order.
type orderEntry struct {
	orderID uint64
	size    decimal.Decimal
}

// priceLevel is a price and its FIFO queue of orders. Aggregate size is
// derived on demand by summing the queue,
type priceLevel struct {
	price float64
	queue *list.List // of *orderEntry
}

func (p *priceLevel) aggregateSize() decimal.Decimal {
	total := decimal.Zero
	for e := p.queue.Front(); e != nil; e = e.Next() {
		total = total.Add(e.Value.(*orderEntry).size)
	}
	return total
}

// locator is the order_index entry: O(1) path from an order_id to its
// containing price level and queue position.
type locator struct {
	side  event.Side
	price float64
	elem  *list.Element
	level *priceLevel
}

// Level is one row of a top-N snapshot: zero-filled {0, 0} for unfilled
// positions,
type Level struct {
	Price float64
	Size  float64
}

// Snapshot is a top-N bid/ask view, the argument and result type of
// TopNSnapshot and the comparison basis for DepthChange.
type Snapshot struct {
	Bids []Level
	Asks []Level
}

// OrderBook is the per-instrument book. Not safe for concurrent use — the
// core is single-threaded
type OrderBook struct {
	depth int

	bidLevels map[float64]*priceLevel
	askLevels map[float64]*priceLevel
	bidPrices []float64 // descending
	askPrices []float64 // ascending

	index map[uint64]*locator

	lastSnapshot Snapshot
}

// New creates an OrderBook that captures the top `depth` levels per side.
func New(depth int) *OrderBook {
	b := &OrderBook{depth: depth}
	b.reset()
	return b
}

func (b *OrderBook) reset() {
	b.bidLevels = make(map[float64]*priceLevel)
	b.askLevels = make(map[float64]*priceLevel)
	b.bidPrices = nil
	b.askPrices = nil
	b.index = make(map[uint64]*locator)
	b.lastSnapshot = b.zeroSnapshot()
}

func (b *OrderBook) zeroSnapshot() Snapshot {
	s := Snapshot{Bids: make([]Level, b.depth), Asks: make([]Level, b.depth)}
	return s
}

func (b *OrderBook) levelsFor(side event.Side) (map[float64]*priceLevel, *[]float64) {
	if side == event.Bid {
		return b.bidLevels, &b.bidPrices
	}
	return b.askLevels, &b.askPrices
}

// ApplyAdd appends a new order to the end of the FIFO queue at price on
// side. Fails with ErrDuplicateOrderID if order_id is already indexed.
func (b *OrderBook) ApplyAdd(orderID uint64, price float64, size decimal.Decimal, side event.Side) error {
	if _, exists := b.index[orderID]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateOrderID, orderID)
	}
	levels, prices := b.levelsFor(side)
	lvl, ok := levels[price]
	if !ok {
		lvl = &priceLevel{price: price, queue: list.New()}
		levels[price] = lvl
		insertSorted(prices, price, side == event.Bid)
	}
	elem := lvl.queue.PushBack(&orderEntry{orderID: orderID, size: size})
	b.index[orderID] = &locator{side: side, price: price, elem: elem, level: lvl}
	return nil
}

// ApplyModify removes the existing order from its current queue (dropping
// the level if it empties) and appends a new entry at new_price/new_size on
// the same side, losing FIFO priority — the deliberate policy this modify
// semantics follows. Fails with ErrUnknownOrderID if absent.
func (b *OrderBook) ApplyModify(orderID uint64, newPrice float64, newSize decimal.Decimal) error {
	loc, ok := b.index[orderID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrderID, orderID)
	}
	side := loc.side
	b.removeLocated(orderID, loc)
	return b.ApplyAdd(orderID, newPrice, newSize, side)
}

// ApplyCancel removes the located order and its index entry, dropping the
// price level if it empties. A canceled_size argument carried by the
// upstream cancel event is purely informational and is not modelled: the
// order is always fully removed. Fails with ErrUnknownOrderID.
func (b *OrderBook) ApplyCancel(orderID uint64) error {
	loc, ok := b.index[orderID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOrderID, orderID)
	}
	b.removeLocated(orderID, loc)
	return nil
}

func (b *OrderBook) removeLocated(orderID uint64, loc *locator) {
	loc.level.queue.Remove(loc.elem)
	delete(b.index, orderID)
	if loc.level.queue.Len() == 0 {
		levels, prices := b.levelsFor(loc.side)
		delete(levels, loc.price)
		*prices = removeSorted(*prices, loc.price)
	}
}

// ApplyClear empties both maps, the order index, and the cached snapshot.
func (b *OrderBook) ApplyClear() {
	b.reset()
}

// TopNSnapshot writes the top-N bid and ask price levels, zero-filling
// unfilled positions with {0.0, 0}.
func (b *OrderBook) TopNSnapshot() Snapshot {
	out := b.zeroSnapshot()
	for i := 0; i < b.depth && i < len(b.bidPrices); i++ {
		lvl := b.bidLevels[b.bidPrices[i]]
		out.Bids[i] = Level{Price: lvl.price, Size: lvl.aggregateSize().InexactFloat64()}
	}
	for i := 0; i < b.depth && i < len(b.askPrices); i++ {
		lvl := b.askLevels[b.askPrices[i]]
		out.Asks[i] = Level{Price: lvl.price, Size: lvl.aggregateSize().InexactFloat64()}
	}
	return out
}

// DepthChange compares the current top-N snapshot against the previously
// returned one policy, then replaces the cached
// snapshot — two successive calls with no intervening mutation return all
// zeros on the second call.
func (b *OrderBook) DepthChange() (bidDir, askDir []int8) {
	cur := b.TopNSnapshot()
	bidDir = diffLevels(b.lastSnapshot.Bids, cur.Bids)
	askDir = diffLevels(b.lastSnapshot.Asks, cur.Asks)
	b.lastSnapshot = cur
	return bidDir, askDir
}

func diffLevels(prev, cur []Level) []int8 {
	out := make([]int8, len(cur))
	for i := range cur {
		var p Level
		if i < len(prev) {
			p = prev[i]
		}
		c := cur[i]
		switch {
		case math.Abs(p.Price-c.Price) < priceEpsilon:
			switch {
			case c.Size > p.Size:
				out[i] = 1
			case c.Size < p.Size:
				out[i] = -1
			default:
				out[i] = 0
			}
		default:
			switch {
			case c.Size == p.Size:
				out[i] = 0
			case c.Size > p.Size:
				out[i] = 1
			default:
				out[i] = -1
			}
		}
	}
	return out
}

// BestBid returns the best bid price and whether the bid side is non-empty.
func (b *OrderBook) BestBid() (float64, bool) {
	if len(b.bidPrices) == 0 {
		return 0, false
	}
	return b.bidPrices[0], true
}

// BestAsk returns the best ask price and whether the ask side is non-empty.
func (b *OrderBook) BestAsk() (float64, bool) {
	if len(b.askPrices) == 0 {
		return 0, false
	}
	return b.askPrices[0], true
}

// MidPrice is the arithmetic mean of best bid and best ask; NaN if either
// side is empty.
func (b *OrderBook) MidPrice() float64 {
	bid, ok1 := b.BestBid()
	ask, ok2 := b.BestAsk()
	if !ok1 || !ok2 {
		return math.NaN()
	}
	return (bid + ask) / 2
}

// Spread is best ask minus best bid; NaN if either side is empty.
func (b *OrderBook) Spread() float64 {
	bid, ok1 := b.BestBid()
	ask, ok2 := b.BestAsk()
	if !ok1 || !ok2 {
		return math.NaN()
	}
	return ask - bid
}

// Depth returns the configured top-N depth.
func (b *OrderBook) Depth() int { return b.depth }

// insertSorted inserts price into a sorted slice, descending for bids and
// ascending for asks, maintaining the book's "natural iteration order"
// invariant from 
func insertSorted(prices *[]float64, price float64, descending bool) {
	s := *prices
	i := sort.Search(len(s), func(i int) bool {
		if descending {
			return s[i] <= price
		}
		return s[i] >= price
	})
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = price
	*prices = s
}

func removeSorted(prices []float64, price float64) []float64 {
	for i, p := range prices {
		if p == price {
			return append(prices[:i], prices[i+1:]...)
		}
	}
	return prices
}
