// Package feature implements the FeatureEngine (rolling-state owner and
// snapshot producer), the FeatureProcessor (closed-form feature formulas),
// and the FeatureNormalizer (incremental rolling z-score window).
package feature

// Set is the feature output type: timestamp_ns and instrument pass through
// normalisation unchanged; the remaining 19 fields are the numeric ones a
// FeatureNormalizer z-scores.
type Set struct {
	TimestampNs uint64
	Instrument  string

	Midprice               float64
	LogSpread              float64
	LogReturn              float64
	EWMVolatility          float64
	RealizedVariance       float64
	DirectionalVolatility  float64
	SpreadVolatility       float64
	OFI                    float64
	SignedVolumePressure   float64
	OrderArrivalRate       float64
	DepthImbalance         float64
	MarketDepth            float64
	LOBSlope               float64
	PriceGap               float64
	TickDirectionEntropy   float64
	ReversalRate           float64
	AggressorBias          float64
	ShannonEntropy         float64
	LiquidityStress        float64
}

// numericField is a compile-time accessor pair over one of the 19 numeric
// fields, replacing a string-keyed lookup with direct field access.
type numericField struct {
	name string
	get  func(*Set) float64
	set  func(*Set, float64)
}

// numericFields enumerates, in order, every field a FeatureNormalizer
// maintains running sums for.
var numericFields = []numericField{
	{"midprice", func(s *Set) float64 { return s.Midprice }, func(s *Set, v float64) { s.Midprice = v }},
	{"log_spread", func(s *Set) float64 { return s.LogSpread }, func(s *Set, v float64) { s.LogSpread = v }},
	{"log_return", func(s *Set) float64 { return s.LogReturn }, func(s *Set, v float64) { s.LogReturn = v }},
	{"ewm_volatility", func(s *Set) float64 { return s.EWMVolatility }, func(s *Set, v float64) { s.EWMVolatility = v }},
	{"realized_variance", func(s *Set) float64 { return s.RealizedVariance }, func(s *Set, v float64) { s.RealizedVariance = v }},
	{"directional_volatility", func(s *Set) float64 { return s.DirectionalVolatility }, func(s *Set, v float64) { s.DirectionalVolatility = v }},
	{"spread_volatility", func(s *Set) float64 { return s.SpreadVolatility }, func(s *Set, v float64) { s.SpreadVolatility = v }},
	{"ofi", func(s *Set) float64 { return s.OFI }, func(s *Set, v float64) { s.OFI = v }},
	{"signed_volume_pressure", func(s *Set) float64 { return s.SignedVolumePressure }, func(s *Set, v float64) { s.SignedVolumePressure = v }},
	{"order_arrival_rate", func(s *Set) float64 { return s.OrderArrivalRate }, func(s *Set, v float64) { s.OrderArrivalRate = v }},
	{"depth_imbalance", func(s *Set) float64 { return s.DepthImbalance }, func(s *Set, v float64) { s.DepthImbalance = v }},
	{"market_depth", func(s *Set) float64 { return s.MarketDepth }, func(s *Set, v float64) { s.MarketDepth = v }},
	{"lob_slope", func(s *Set) float64 { return s.LOBSlope }, func(s *Set, v float64) { s.LOBSlope = v }},
	{"price_gap", func(s *Set) float64 { return s.PriceGap }, func(s *Set, v float64) { s.PriceGap = v }},
	{"tick_direction_entropy", func(s *Set) float64 { return s.TickDirectionEntropy }, func(s *Set, v float64) { s.TickDirectionEntropy = v }},
	{"reversal_rate", func(s *Set) float64 { return s.ReversalRate }, func(s *Set, v float64) { s.ReversalRate = v }},
	{"aggressor_bias", func(s *Set) float64 { return s.AggressorBias }, func(s *Set, v float64) { s.AggressorBias = v }},
	{"shannon_entropy", func(s *Set) float64 { return s.ShannonEntropy }, func(s *Set, v float64) { s.ShannonEntropy = v }},
	{"liquidity_stress", func(s *Set) float64 { return s.LiquidityStress }, func(s *Set, v float64) { s.LiquidityStress = v }},
}

// Sink receives one (raw, normalised) FeatureSet pair per instrument per
// snapshot boundary. Modelled as a single-method capability interface,
// not a class hierarchy.
type Sink interface {
	IngestFeatureSet(instrument string, timestampNs uint64, raw, normalised Set) error
}
