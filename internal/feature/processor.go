package feature

import "math"

// Processor transforms an InputSnapshot into a raw Set using closed-form
// formulas for order flow, volatility, liquidity, and microstructure
// features. Where a division boundary or first-call condition is left
// implicit by the underlying formula, the guard is documented inline only
// where it would otherwise surprise a reader.
//
// A Processor is owned by one instrument: OFI smoothing, the arrival-rate
// clock, and the liquidity-stress EMA are all per-instrument running state,
// carried as unexported fields rather than process-wide globals.
type Processor struct {
	rollingWindow      int
	depthLevels        int
	snapshotIntervalNs uint64

	prevOFI             float64
	lastArrivalTimeNs    uint64
	prevLiquidity        float64
	prevLiquidityStress  float64
}

// NewProcessor builds a Processor for one instrument.
func NewProcessor(rollingWindow, depthLevels int, snapshotIntervalNs uint64) *Processor {
	return &Processor{
		rollingWindow:      rollingWindow,
		depthLevels:        depthLevels,
		snapshotIntervalNs: snapshotIntervalNs,
	}
}

// ComputeRaw implements FeatureProcessor.compute_raw(): it queries norm for
// the 10-second-back midprice (log_return) using the window as it stands
// before this point joins it. The caller completes the pipeline stage by
// calling Normalizer.Normalize(result) next, then Normalizer.Add(result) to
// fold this point into the window for the next emission (see DESIGN.md,
// "Normalizer call-order resolution").
func (p *Processor) ComputeRaw(in InputSnapshot, norm *Normalizer) Set {
	fs := Set{TimestampNs: in.TimestampNs, Instrument: in.Instrument}
	p.processPriceAndSpread(&fs, in, norm)
	p.processVolatility(&fs, in)
	p.processOrderFlow(&fs, in)
	p.processLiquidity(&fs, in)
	p.processMicrostructureTransitions(&fs, in)
	p.processEngineeredFeatures(&fs, in)
	return fs
}

func isValidPrice(v float64) bool { return v != 0 }

func (p *Processor) processPriceAndSpread(fs *Set, in InputSnapshot, norm *Normalizer) {
	b, a := in.BestBid, in.BestAsk
	fs.Midprice = (a + b) / 2
	fs.LogSpread = math.Log(a) - math.Log(b)

	k := int(10_000_000_000 / p.snapshotIntervalNs)
	oldMid := norm.OldMidprice(k)
	if oldMid > 0.0 {
		fs.LogReturn = math.Log(fs.Midprice) - math.Log(oldMid)
	} else {
		fs.LogReturn = 0.0
	}
}

// logReturns walks the RollingState's 50ms-sampled midprice series and
// returns the consecutive log-returns, skipping any pair that straddles a
// zero (empty-book) sample. A NaN mid (one side of the book empty) is not
// filtered here and propagates into the resulting return, matching the
// reference's behavior of letting realized_variance/ewm_volatility/
// directional_volatility go NaN rather than silently suppressing it.
func logReturns(mids []float64) []float64 {
	if len(mids) < 2 {
		return nil
	}
	out := make([]float64, 0, len(mids)-1)
	for i := 0; i+1 < len(mids); i++ {
		if !isValidPrice(mids[i]) || !isValidPrice(mids[i+1]) {
			continue
		}
		out = append(out, math.Log(mids[i+1])-math.Log(mids[i]))
	}
	return out
}

func (p *Processor) processVolatility(fs *Set, in InputSnapshot) {
	rets := logReturns(in.Rolling.MidPrices())

	// realized_variance: mean of squared log-returns.
	if len(rets) > 0 {
		var sumSq float64
		for _, r := range rets {
			sumSq += r * r
		}
		fs.RealizedVariance = sumSq / float64(len(rets))
	}

	// ewm_volatility: sqrt(EWM-variance), alpha = 2/(W+1), seeded by the
	// first valid return's square.
	if len(rets) > 0 {
		alpha := 2.0 / (float64(p.rollingWindow) + 1)
		ewmVar := rets[0] * rets[0]
		for _, r := range rets[1:] {
			ewmVar = (1-alpha)*ewmVar + alpha*r*r
		}
		fs.EWMVolatility = math.Sqrt(ewmVar)
	}

	// directional_volatility: asymmetric variance between up-moves (r>0)
	// and down-moves (r<=0).
	var upVar, upCount, downVar, downCount float64
	for _, r := range rets {
		if r > 0 {
			upVar += r * r
			upCount++
		} else {
			downVar += r * r
			downCount++
		}
	}
	var avgUp, avgDown float64
	if upCount > 0 {
		avgUp = upVar / upCount
	}
	if downCount > 0 {
		avgDown = downVar / downCount
	}
	diff := avgUp - avgDown
	sign := 1.0
	if diff < 0 {
		sign = -1.0
	}
	fs.DirectionalVolatility = math.Sqrt(math.Abs(diff)) * sign

	// spread_volatility: population standard deviation of the spread
	// deque, divided by the configured rolling_window rather than the
	// deque's current length (matches the reference exactly).
	spreads := in.Rolling.Spreads()
	var sum float64
	for _, s := range spreads {
		sum += s
	}
	meanSpread := sum / float64(p.rollingWindow)
	var varSum float64
	for _, s := range spreads {
		d := s - meanSpread
		varSum += d * d
	}
	fs.SpreadVolatility = math.Sqrt(varSum / float64(p.rollingWindow))
}

const (
	depthDecay      = 0.5
	ofiSmoothAlpha  = 0.2
	minTotalVolume  = 1e-6
)

func (p *Processor) processOrderFlow(fs *Set, in InputSnapshot) {
	var rawOFI float64
	for i := 0; i < p.depthLevels && i < len(in.Bids) && i < len(in.Asks); i++ {
		decay := math.Exp(-float64(i) * depthDecay)
		rawOFI += decay * (float64(in.BidDepthChangeDir[i])*in.Bids[i].Size - float64(in.AskDepthChangeDir[i])*in.Asks[i].Size)
	}
	totalVolume := in.BuyVolume + in.SellVolume

	var normalizedOFI float64
	if totalVolume > minTotalVolume {
		normalizedOFI = rawOFI / totalVolume
	}
	fs.OFI = ofiSmoothAlpha*normalizedOFI + (1-ofiSmoothAlpha)*p.prevOFI
	p.prevOFI = fs.OFI

	if totalVolume > 0.0 {
		fs.SignedVolumePressure = (in.BuyVolume - in.SellVolume) / totalVolume
	}

	if p.lastArrivalTimeNs > 0 {
		deltaNs := in.TimestampNs - p.lastArrivalTimeNs
		seconds := float64(deltaNs) * 1e-9
		if seconds > 0 {
			fs.OrderArrivalRate = float64(in.AddsSinceLastSnapshot) / seconds
		}
	}
	p.lastArrivalTimeNs = in.TimestampNs
}

func (p *Processor) processLiquidity(fs *Set, in InputSnapshot) {
	logMid := math.Log(fs.Midprice)

	var bidWeighted, bidDepth, askWeighted, askDepth float64
	for i := 0; i < p.depthLevels && i < len(in.Bids); i++ {
		if in.Bids[i].Price > 0 {
			dist := math.Abs(logMid - math.Log(in.Bids[i].Price))
			bidWeighted += dist * in.Bids[i].Size
			bidDepth += in.Bids[i].Size
		}
	}
	for i := 0; i < p.depthLevels && i < len(in.Asks); i++ {
		if in.Asks[i].Price > 0 {
			dist := math.Abs(math.Log(in.Asks[i].Price) - logMid)
			askWeighted += dist * in.Asks[i].Size
			askDepth += in.Asks[i].Size
		}
	}

	fs.MarketDepth = bidDepth + askDepth
	if bidDepth+askDepth > 0 {
		fs.DepthImbalance = (bidDepth - askDepth) / (bidDepth + askDepth)
	}

	var bidSlope, askSlope float64
	if bidDepth > 0 {
		bidSlope = bidWeighted / bidDepth
	}
	if askDepth > 0 {
		askSlope = askWeighted / askDepth
	}
	fs.LOBSlope = bidSlope + askSlope

	if len(in.Bids) >= 2 && len(in.Asks) >= 2 {
		b0, b1 := in.Bids[0], in.Bids[1]
		a0, a1 := in.Asks[0], in.Asks[1]
		bidGap := (b0.Price*b0.Size - b1.Price*b1.Size) / (b0.Size + b1.Size)
		askGap := (a0.Price*a0.Size - a1.Price*a1.Size) / (a0.Size + a1.Size)
		fs.PriceGap = bidGap + askGap
	}
}

func (p *Processor) processMicrostructureTransitions(fs *Set, in InputSnapshot) {
	ticks := in.Rolling.TickDirections()
	var up, down, zero float64
	for _, t := range ticks {
		switch {
		case t > 0:
			up++
		case t < 0:
			down++
		default:
			zero++
		}
	}
	total := up + down + zero
	var entropy float64
	for _, prob := range [...]float64{up / total, down / total, zero / total} {
		if prob > 0 {
			entropy -= prob * math.Log2(prob)
		}
	}
	fs.TickDirectionEntropy = entropy

	dirs := in.Rolling.TradeDirections()
	var reversals int
	for i := 1; i < len(dirs); i++ {
		if dirs[i] != 0 && dirs[i] == -dirs[i-1] {
			reversals++
		}
	}
	if len(dirs) > 1 {
		fs.ReversalRate = float64(reversals) / float64(len(dirs)-1)
	}

	var sumDir int
	for _, d := range dirs {
		sumDir += int(d)
	}
	// No empty-deque guard: an empty trade-direction deque divides 0/0,
	// producing NaN rather than a silently suppressed 0.0, matching the
	// reference.
	fs.AggressorBias = float64(sumDir) / float64(len(dirs))
}

const (
	liquidityLevelsToUse  = 5
	minQuoteSizeForStress = 5.0
	liquidityDistanceDecay = 10.0
	stressSmoothAlpha     = 0.1
)

func (p *Processor) processEngineeredFeatures(fs *Set, in InputSnapshot) {
	dirs := in.Rolling.TradeDirections()
	var pos, neg float64
	for _, d := range dirs {
		if d > 0 {
			pos++
		} else if d < 0 {
			neg++
		}
	}
	total := pos + neg
	var entropy float64
	if total > 0 {
		for _, prob := range [...]float64{pos / total, neg / total} {
			if prob > 0 {
				entropy -= prob * math.Log2(prob)
			}
		}
	}
	fs.ShannonEntropy = entropy

	var totalWeighted float64
	for i := 0; i < liquidityLevelsToUse && i < len(in.Bids); i++ {
		bp, bs := in.Bids[i].Price, in.Bids[i].Size
		if bp > 0 && bs >= minQuoteSizeForStress {
			totalWeighted += math.Exp(-(in.BestBid-bp)*liquidityDistanceDecay) * bs
		}
	}
	for i := 0; i < liquidityLevelsToUse && i < len(in.Asks); i++ {
		ap, asz := in.Asks[i].Price, in.Asks[i].Size
		if ap > 0 && asz >= minQuoteSizeForStress {
			totalWeighted += math.Exp(-(ap-in.BestAsk)*liquidityDistanceDecay) * asz
		}
	}

	var rawStress float64
	if p.prevLiquidity > 0.0 {
		rawStress = -(totalWeighted - p.prevLiquidity) / p.prevLiquidity
	}
	fs.LiquidityStress = stressSmoothAlpha*rawStress + (1-stressSmoothAlpha)*p.prevLiquidityStress

	p.prevLiquidity = totalWeighted
	p.prevLiquidityStress = fs.LiquidityStress
}
