package strategy

import (
	"math"

	"github.com/volatiq/gotdi/config"
	"github.com/volatiq/gotdi/indicator"
	"github.com/volatiq/gotdi/risk"
	"github.com/volatiq/gotdi/types"
)

// fractalCount is how many confirmed fractals back the entry stop.
const fractalCount = 3

// TimeframeSet holds the four signal frames one decision cycle reads.
type TimeframeSet struct {
	Macro     *indicator.SignalFrame // trend direction
	Strategy  *indicator.SignalFrame // confirmation
	Execution *indicator.SignalFrame // timing
	Micro     *indicator.SignalFrame // entry fine-tuning
}

func (t *TimeframeSet) complete() bool {
	return t != nil && t.Macro != nil && t.Strategy != nil && t.Execution != nil && t.Micro != nil
}

// CorrelationGate carries the cross-market correlation inputs for the
// entry filter. The filter is deliberately asymmetric: only positive
// correlation above 0.6 gates entries; negative correlation passes
// unfiltered.
type CorrelationGate struct {
	Enabled     bool
	Coefficient float64 // NaN when no correlation value is available
	LastClose   float64 // correlated instrument, latest bar
	PrevClose   float64 // correlated instrument, previous bar
}

// EntryDecision is the confluence evaluator's output.
type EntryDecision struct {
	Enter      bool
	Direction  types.Direction
	EntryPrice float64
	StopLoss   float64
}

// EvaluateEntry fuses the latest bar of all four timeframes, the
// correlation gate and the volatility circuit breaker into a single
// entry decision. It is stateless: same inputs, same answer.
func EvaluateEntry(frames *TimeframeSet, corr CorrelationGate, price float64, cfg config.StrategyConfig) EntryDecision {
	none := EntryDecision{}
	if !frames.complete() || price <= 0 {
		return none
	}

	macro, strat, exec, micro := frames.Macro, frames.Strategy, frames.Execution, frames.Micro
	mi, si, ei, ui := macro.LastIndex(), strat.LastIndex(), exec.LastIndex(), micro.LastIndex()

	longOK := macro.Baseline[mi] > 50 && macro.BaselineSlope[mi] > 0 &&
		strat.ChannelExpanding[si] && strat.RSI[si] > strat.Baseline[si] &&
		exec.StrongBuySignal[ei] && exec.RSI[ei] > 45 && exec.RSI[ei] < 70 &&
		micro.FastCrossAboveSlow[ui] && microVWAPBelow(micro, ui) && microVolumeSpike(micro, ui)

	shortOK := macro.Baseline[mi] < 50 && macro.BaselineSlope[mi] < 0 &&
		strat.ChannelExpanding[si] && strat.RSI[si] < strat.Baseline[si] &&
		exec.StrongSellSignal[ei] && exec.RSI[ei] < 55 && exec.RSI[ei] > 30 &&
		micro.FastCrossBelowSlow[ui] && microVWAPAbove(micro, ui) && microVolumeSpike(micro, ui)

	if corr.Enabled && !math.IsNaN(corr.Coefficient) && math.Abs(corr.Coefficient) > 0.6 && corr.Coefficient > 0 {
		// Positive correlation: the correlated instrument must agree.
		if longOK && !(corr.LastClose > corr.PrevClose) {
			longOK = false
		}
		if shortOK && !(corr.LastClose < corr.PrevClose) {
			shortOK = false
		}
	}

	if !longOK && !shortOK {
		return none
	}

	// Extreme-move circuit breaker, applied regardless of direction.
	execBar := exec.Series.Candles[ei]
	atr := exec.ATR[ei]
	if execBar.Close != 0 && indicator.Defined(atr) {
		recentVol := math.Abs(execBar.Close-execBar.Open) / execBar.Close
		if recentVol > atr*3/price {
			return none
		}
	}

	dir := types.Long
	if shortOK {
		dir = types.Short
	}
	return EntryDecision{
		Enter:      true,
		Direction:  dir,
		EntryPrice: price,
		StopLoss:   entryStop(exec, price, atr, dir, cfg),
	}
}

// entryStop picks the tighter of the fractal stop and a 1.5xATR buffer,
// falling back to the fixed ATR stop when no fractal exists.
func entryStop(exec *indicator.SignalFrame, entry, atr float64, dir types.Direction, cfg config.StrategyConfig) float64 {
	fractal, ok := risk.FractalStop(exec.Series.Candles, exec.FractalHigh, exec.FractalLow,
		exec.LastIndex(), fractalCount, dir)
	if !ok {
		return risk.StopLossPrice(entry, atr, cfg.ATRStopMultiplier, dir)
	}
	if dir == types.Long {
		return math.Min(fractal, entry-atr*1.5)
	}
	return math.Max(fractal, entry+atr*1.5)
}

func microVWAPBelow(micro *indicator.SignalFrame, i int) bool {
	v := micro.VWAP[i]
	return indicator.Defined(v) && micro.Series.Candles[i].Close < v
}

func microVWAPAbove(micro *indicator.SignalFrame, i int) bool {
	v := micro.VWAP[i]
	return indicator.Defined(v) && micro.Series.Candles[i].Close > v
}

// microVolumeSpike requires the latest volume to exceed 1.4x its 3-bar
// rolling mean, the current bar included.
func microVolumeSpike(micro *indicator.SignalFrame, i int) bool {
	if i < 2 {
		return false
	}
	c := micro.Series.Candles
	mean := (c[i].Volume + c[i-1].Volume + c[i-2].Volume) / 3
	return c[i].Volume > mean*1.4
}
