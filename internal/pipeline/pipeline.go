// Package pipeline drives two Sources (a base instrument and its correlated
// futures contract) through a deterministic merge, dispatches events to a
// shared OrderEngine, samples the mid/spread sub-clock, and emits (raw,
// normalised) feature pairs to a Sink at each snapshot boundary.
//
// The overall "construct components, then drive a loop until a source
// drains" shape is a single-threaded, synchronous adaptation of a more
// typical live multi-goroutine ingest wiring order.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"mbo-features/internal/engine"
	"mbo-features/internal/event"
	"mbo-features/internal/feature"
)

// Stream bundles everything the Pipeline needs for one instrument leg: its
// Source, its Sink, and the Processor/Normalizer pair that turns a snapshot
// into a (raw, normalised) emission.
type Stream struct {
	Instrument string
	Source     event.Source
	Sink       feature.Sink
	Processor  *feature.Processor
	Normalizer *feature.Normalizer
}

// Config carries the session bounds and the snapshot/mid-sample/prefetch
// cadences.
type Config struct {
	SessionStartNs      uint64
	SessionEndNs        uint64
	SnapshotIntervalNs  uint64
	MidSampleIntervalNs uint64
	PrefetchOffsetNs    uint64
}

// Pipeline owns the merge/schedule loop over one base/futures stream pair.
type Pipeline struct {
	cfg    Config
	engine *engine.Engine
	base   Stream
	futures Stream
	logger zerolog.Logger
}

// New builds a Pipeline over an already-constructed OrderEngine (which owns
// both instruments' OrderBook/RollingState/FeatureEngine triples) and two
// Streams.
func New(cfg Config, eng *engine.Engine, base, futures Stream, logger zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, engine: eng, base: base, futures: futures, logger: logger}
}

// nextValid repeatedly calls src.Next(), dropping single records that fail
// to decode, until it returns a decoded MarketEvent or the terminal
// ErrEndOfStream.
func nextValid(src event.Source, logger zerolog.Logger) (event.MarketEvent, error) {
	for {
		ev, err := src.Next()
		if err == nil {
			return ev, nil
		}
		if errors.Is(err, event.ErrEndOfStream) {
			return event.MarketEvent{}, err
		}
		var decErr *event.DecodeError
		if errors.As(err, &decErr) {
			logger.Warn().Err(decErr).Msg("dropping undecodable record")
			continue
		}
		return event.MarketEvent{}, err
	}
}

// Run drives the merge loop to completion. It returns nil on any of the
// normal termination paths (prefetch starvation, session-end reached,
// either source draining) and a non-nil error only for a fatal condition
// (ErrOutOfOrderEvent from the OrderEngine, or a non-decode Source error).
func (p *Pipeline) Run() error {
	baseEv, err := nextValid(p.base.Source, p.logger)
	if errors.Is(err, event.ErrEndOfStream) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pipeline: prefetch base: %w", err)
	}
	futuresEv, err := nextValid(p.futures.Source, p.logger)
	if errors.Is(err, event.ErrEndOfStream) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pipeline: prefetch futures: %w", err)
	}

	nextSnapshot := p.cfg.SessionStartNs + p.cfg.PrefetchOffsetNs
	lastMidSample := min64(baseEv.TimestampNs, futuresEv.TimestampNs)
	interval := p.cfg.MidSampleIntervalNs

	baseBook, baseFeature := p.engine.EnsureInstrument(p.base.Instrument)
	futuresBook, futuresFeature := p.engine.EnsureInstrument(p.futures.Instrument)

	for {
		t := min64(baseEv.TimestampNs, futuresEv.TimestampNs)

		for i := lastMidSample + interval; i <= t; i += interval {
			baseFeature.SampleMidSpread(baseBook.MidPrice(), baseBook.Spread())
			futuresFeature.SampleMidSpread(futuresBook.MidPrice(), futuresBook.Spread())
			lastMidSample = i
		}

		var dispatchErr error
		if baseEv.TimestampNs <= futuresEv.TimestampNs {
			dispatchErr = p.engine.ProcessEvent(baseEv)
			if dispatchErr != nil {
				return p.fatal(dispatchErr)
			}
			baseEv, err = nextValid(p.base.Source, p.logger)
		} else {
			dispatchErr = p.engine.ProcessEvent(futuresEv)
			if dispatchErr != nil {
				return p.fatal(dispatchErr)
			}
			futuresEv, err = nextValid(p.futures.Source, p.logger)
		}
		if errors.Is(err, event.ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("pipeline: advance stream: %w", err)
		}

		if nextSnapshot > p.cfg.SessionEndNs {
			return nil
		}

		if nextSnapshot > p.cfg.SessionStartNs && baseEv.TimestampNs >= nextSnapshot && futuresEv.TimestampNs >= nextSnapshot {
			if err := p.emit(p.base, baseFeature, nextSnapshot); err != nil {
				return err
			}
			if err := p.emit(p.futures, futuresFeature, nextSnapshot); err != nil {
				return err
			}
			nextSnapshot += p.cfg.SnapshotIntervalNs
		}
	}
}

func (p *Pipeline) fatal(err error) error {
	return fmt.Errorf("pipeline: %w", err)
}

func (p *Pipeline) emit(s Stream, fe *feature.Engine, timestampNs uint64) error {
	in := fe.Snapshot(timestampNs)
	raw := s.Processor.ComputeRaw(in, s.Normalizer)
	normalised := s.Normalizer.Normalize(raw)
	s.Normalizer.Add(raw)
	if err := s.Sink.IngestFeatureSet(s.Instrument, timestampNs, raw, normalised); err != nil {
		return fmt.Errorf("pipeline: sink %s: %w", s.Instrument, err)
	}
	return nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
