// Package replay is a reference Source implementation: a finite,
// timestamp-ordered sequence of MarketEvent decoded from a plain CSV file.
// Decoding Databento's on-disk DBN binary format is out of scope; this is
// the stand-in used by the CLI harness and by tests.
//
// Uses a column-index-by-header parsing idiom, decoding one MarketEvent per
// row, in order, on demand.
package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mbo-features/internal/event"
)

// Source decodes one event.MarketEvent per CSV row on each Next() call.
// Expected header (order-independent, looked up by name):
//
//	timestamp_ns,instrument,action,side,price,size,order_id,flags,instrument_id,channel_id,sequence
type Source struct {
	file   *os.File
	reader *csv.Reader
	idx    map[string]int
}

// Open reads and indexes the header row, then returns a Source positioned
// at the first data row.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: open %s: %w", path, err)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("replay: read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	return &Source{file: f, reader: r, idx: idx}, nil
}

// Next decodes and returns the next row, event.ErrEndOfStream when the file
// is exhausted, or a *event.DecodeError for a single malformed row (the
// caller skips it and calls Next again).
func (s *Source) Next() (event.MarketEvent, error) {
	row, err := s.reader.Read()
	if err == io.EOF {
		return event.MarketEvent{}, event.ErrEndOfStream
	}
	if err != nil {
		return event.MarketEvent{}, &event.DecodeError{Cause: err}
	}
	ev, err := rowToEvent(row, s.idx)
	if err != nil {
		return event.MarketEvent{}, &event.DecodeError{Cause: err}
	}
	return ev, nil
}

// Close releases the underlying file handle.
func (s *Source) Close() error { return s.file.Close() }

func rowToEvent(row []string, idx map[string]int) (event.MarketEvent, error) {
	get := func(col string) (string, bool) {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}
	getUint := func(col string) (uint64, error) {
		v, ok := get(col)
		if !ok {
			return 0, nil
		}
		return strconv.ParseUint(v, 10, 64)
	}
	getInt := func(col string) (int64, error) {
		v, ok := get(col)
		if !ok {
			return 0, nil
		}
		return strconv.ParseInt(v, 10, 64)
	}
	getFloat := func(col string) (float64, error) {
		v, ok := get(col)
		if !ok {
			return 0, nil
		}
		return strconv.ParseFloat(v, 64)
	}

	tsNs, err := getUint("timestamp_ns")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("timestamp_ns: %w", err)
	}
	price, err := getFloat("price")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("price: %w", err)
	}
	size, err := getUint("size")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("size: %w", err)
	}
	orderID, err := getUint("order_id")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("order_id: %w", err)
	}
	flags, err := getUint("flags")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("flags: %w", err)
	}
	instrumentID, err := getInt("instrument_id")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("instrument_id: %w", err)
	}
	channelID, err := getUint("channel_id")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("channel_id: %w", err)
	}
	sequence, err := getUint("sequence")
	if err != nil {
		return event.MarketEvent{}, fmt.Errorf("sequence: %w", err)
	}

	instrument, _ := get("instrument")
	actionStr, _ := get("action")
	sideStr, _ := get("side")

	if len(actionStr) != 1 {
		return event.MarketEvent{}, fmt.Errorf("action: expected single character, got %q", actionStr)
	}
	var side event.Side
	if len(sideStr) == 1 {
		side = event.Side(sideStr[0])
	}

	return event.MarketEvent{
		TimestampNs:  tsNs,
		Instrument:   instrument,
		Action:       event.Action(actionStr[0]),
		Side:         side,
		Price:        price,
		Size:         size,
		OrderID:      orderID,
		Flags:        uint32(flags),
		InstrumentID: instrumentID,
		ChannelID:    uint16(channelID),
		Sequence:     sequence,
	}, nil
}
