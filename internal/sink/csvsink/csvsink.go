// Package csvsink is a reference Sink implementation: two append-only CSV
// files per instrument, "<prefix>_raw.csv" and "<prefix>_norm.csv", written
// synchronously on every IngestFeatureSet call.
//
// Uses a bufio-buffered file pattern with the header written at Open. No background
// goroutine, channel, or daily-rotation machinery: the pipeline is
// single-threaded and synchronous, and a run produces output for exactly one
// session, not a rotating multi-day log.
package csvsink

import (
	"bufio"
	"fmt"
	"os"

	"mbo-features/internal/feature"
)

// header is "timestamp_ns,instrument," followed by the 19 feature columns
// in their canonical order.
const header = "timestamp_ns,instrument,midprice,log_spread,log_return,ewm_volatility,realized_variance,directional_volatility,spread_volatility,ofi,signed_volume_pressure,order_arrival_rate,depth_imbalance,market_depth,lob_slope,price_gap,tick_direction_entropy,reversal_rate,aggressor_bias,shannon_entropy,liquidity_stress\n"

// Sink writes raw.csv/norm.csv for one instrument under prefix.
type Sink struct {
	rawFile  *os.File
	normFile *os.File
	raw      *bufio.Writer
	norm     *bufio.Writer
}

// Open creates (or truncates) "<prefix>_raw.csv" and "<prefix>_norm.csv",
// writing the fixed header to each.
func Open(prefix string) (*Sink, error) {
	rawFile, err := os.Create(prefix + "_raw.csv")
	if err != nil {
		return nil, fmt.Errorf("csvsink: open raw: %w", err)
	}
	normFile, err := os.Create(prefix + "_norm.csv")
	if err != nil {
		rawFile.Close()
		return nil, fmt.Errorf("csvsink: open norm: %w", err)
	}
	s := &Sink{
		rawFile:  rawFile,
		normFile: normFile,
		raw:      bufio.NewWriterSize(rawFile, 1<<20),
		norm:     bufio.NewWriterSize(normFile, 1<<20),
	}
	if _, err := s.raw.WriteString(header); err != nil {
		return nil, fmt.Errorf("csvsink: write raw header: %w", err)
	}
	if _, err := s.norm.WriteString(header); err != nil {
		return nil, fmt.Errorf("csvsink: write norm header: %w", err)
	}
	return s, nil
}

// IngestFeatureSet implements feature.Sink: one synchronous append to each
// file per call.
func (s *Sink) IngestFeatureSet(instrument string, timestampNs uint64, raw, normalised feature.Set) error {
	if err := writeRow(s.raw, instrument, timestampNs, raw); err != nil {
		return fmt.Errorf("csvsink: write raw row: %w", err)
	}
	if err := writeRow(s.norm, instrument, timestampNs, normalised); err != nil {
		return fmt.Errorf("csvsink: write norm row: %w", err)
	}
	return nil
}

func writeRow(w *bufio.Writer, instrument string, timestampNs uint64, fs feature.Set) error {
	_, err := fmt.Fprintf(w,
		"%d,%s,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e,%.14e\n",
		timestampNs, instrument,
		fs.Midprice, fs.LogSpread, fs.LogReturn, fs.EWMVolatility, fs.RealizedVariance,
		fs.DirectionalVolatility, fs.SpreadVolatility, fs.OFI, fs.SignedVolumePressure,
		fs.OrderArrivalRate, fs.DepthImbalance, fs.MarketDepth, fs.LOBSlope, fs.PriceGap,
		fs.TickDirectionEntropy, fs.ReversalRate, fs.AggressorBias, fs.ShannonEntropy, fs.LiquidityStress,
	)
	return err
}

// Close flushes both buffers and closes both files.
func (s *Sink) Close() error {
	if err := s.raw.Flush(); err != nil {
		return err
	}
	if err := s.norm.Flush(); err != nil {
		return err
	}
	if err := s.rawFile.Close(); err != nil {
		return err
	}
	return s.normFile.Close()
}
