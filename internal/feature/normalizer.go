package feature

import (
	"math"

	"github.com/rs/zerolog"
)

// Normalizer is a trailing window of Sets with incrementally updated sum and
// sum-of-squares per numeric field, producing a z-scored Set.
//
// The incremental sum/sum-of-squares window is kept rather than a
// numerically stabler Welford/M2 variant. Subtracting evicted values from
// the running sums accumulates floating-point error over long runs; no
// compensation or periodic recomputation is applied.
//
// A single window is maintained and all 19 numeric fields are z-scored with
// no passthrough exception — including reversal_rate and aggressor_bias,
// which a fuller implementation might otherwise treat as pass-through
// fields. See DESIGN.md for the reasoning behind this choice.
//
// Call order: Normalize(fs) z-scores fs against the window as it stands
// *before* fs joins it (five prior entries produce mean=12, std=sqrt(2) when
// normalizing a sixth not yet added). Callers call Add(fs) after
// Normalize(fs) to fold the new point in for the next emission.
type Normalizer struct {
	windowSize int
	window     []Set
	sums       []float64
	sums2      []float64
	logger     zerolog.Logger
}

// NewNormalizer builds an empty Normalizer bounded to windowSize entries.
func NewNormalizer(windowSize int, logger zerolog.Logger) *Normalizer {
	return &Normalizer{
		windowSize: windowSize,
		sums:       make([]float64, len(numericFields)),
		sums2:      make([]float64, len(numericFields)),
		logger:     logger,
	}
}

// Add appends fs to the window, updating the running sums; if the bound is
// exceeded the oldest entry is evicted and its contribution subtracted.
func (n *Normalizer) Add(fs Set) {
	n.window = append(n.window, fs)
	for i, f := range numericFields {
		v := f.get(&fs)
		n.sums[i] += v
		n.sums2[i] += v * v
	}
	if len(n.window) > n.windowSize {
		evicted := n.window[0]
		n.window = n.window[1:]
		for i, f := range numericFields {
			v := f.get(&evicted)
			n.sums[i] -= v
			n.sums2[i] -= v * v
		}
	}
}

// Normalize returns the z-scored Set: (x-mean)/stddev per numeric field,
// with stddev substituted by 1 (and a warning logged) when the window
// variance is non-positive. timestamp_ns and instrument pass through.
func (n *Normalizer) Normalize(fs Set) Set {
	out := Set{TimestampNs: fs.TimestampNs, Instrument: fs.Instrument}
	count := float64(len(n.window))
	if count == 0 {
		return out
	}
	for i, f := range numericFields {
		mean := n.sums[i] / count
		variance := n.sums2[i]/count - mean*mean
		var stddev float64
		if variance > 0 {
			stddev = math.Sqrt(variance)
		} else {
			n.logger.Warn().Str("field", f.name).Msg("variance is non-positive, setting to 1.0")
			stddev = 1.0
		}
		f.set(&out, (f.get(&fs)-mean)/stddev)
	}
	return out
}

// OldMidprice returns the midprice of the k-th most recent window entry
// (k=0 is the most recent), or 0 if k is out of range.
func (n *Normalizer) OldMidprice(k int) float64 {
	idx := len(n.window) - 1 - k
	if idx < 0 || idx >= len(n.window) {
		return 0
	}
	return n.window[idx].Midprice
}

// Len reports the current window length.
func (n *Normalizer) Len() int { return len(n.window) }
