// Package risk provides the pure position-sizing and exit-level
// calculations. Nothing here holds state; every function maps price and
// volatility inputs to sizes and levels.
package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/volatiq/gotdi/types"
)

// ErrInvalidRiskInput is returned for degenerate sizing inputs, such as
// an entry price equal to the stop price.
var ErrInvalidRiskInput = errors.New("invalid risk input")

// PositionSize converts an account risk budget into a quantity of the
// base asset: (balance x riskFraction / distancePct) / entry x leverage,
// where distancePct = |entry - stop| / entry.
func PositionSize(balance, riskFraction, entry, stop, leverage float64) (float64, error) {
	if entry <= 0 {
		return 0, fmt.Errorf("%w: entry price %f must be positive", ErrInvalidRiskInput, entry)
	}
	if entry == stop {
		return 0, fmt.Errorf("%w: entry equals stop (%f), zero risk distance", ErrInvalidRiskInput, entry)
	}
	riskAmt := balance * riskFraction
	distancePct := math.Abs(entry-stop) / entry
	return (riskAmt / distancePct) / entry * leverage, nil
}

// DynamicLeverage scales leverage down as volatility rises. The result
// is always clamped to [1, maxLeverage]; degenerate atr or channel-width
// inputs collapse to the lower bound rather than failing.
func DynamicLeverage(atr, channelWidthPct, balance, maxLeverage, baseRisk float64) float64 {
	if maxLeverage < 1 {
		maxLeverage = 1
	}
	if atr <= 0 || channelWidthPct <= 0 || math.IsNaN(atr) || math.IsNaN(channelWidthPct) {
		return 1
	}
	volatilityFactor := 1 / (channelWidthPct * 10)
	base := (baseRisk * balance) / (atr * channelWidthPct)
	lev := base * volatilityFactor
	if lev > maxLeverage {
		return maxLeverage
	}
	if lev < 1 {
		return 1
	}
	return lev
}

// StopLossPrice is the fixed ATR stop: entry -/+ ATR x multiplier.
func StopLossPrice(entry, atr, multiplier float64, dir types.Direction) float64 {
	if dir == types.Long {
		return entry - atr*multiplier
	}
	return entry + atr*multiplier
}

// TakeProfitLevels builds the ladder of profit targets from ascending
// risk-reward ratios. Ascending ratios yield prices monotonically
// further from entry, always on the profit side.
func TakeProfitLevels(entry, stop float64, ratios []float64, dir types.Direction) []float64 {
	riskDist := math.Abs(entry - stop)
	out := make([]float64, len(ratios))
	for i, r := range ratios {
		if dir == types.Long {
			out[i] = entry + riskDist*r
		} else {
			out[i] = entry - riskDist*r
		}
	}
	return out
}

// TrailingStop tracks the best price since entry at an ATR distance,
// clamped so the stop never crosses past the current price on the
// adverse side.
func TrailingStop(current, extremum, atr, multiplier float64, dir types.Direction) float64 {
	if dir == types.Long {
		stop := extremum - atr*multiplier
		return math.Min(stop, current)
	}
	stop := extremum + atr*multiplier
	return math.Max(stop, current)
}

// FractalStop derives a stop level from recent confirmed fractals: the
// lowest of the last nFractals fractal lows for a long, the highest of
// the fractal highs for a short. ok is false when no qualifying fractal
// exists before the decision bar.
func FractalStop(candles []types.Candle, fractalHigh, fractalLow []bool, decisionIdx, nFractals int, dir types.Direction) (float64, bool) {
	if decisionIdx > len(candles) {
		decisionIdx = len(candles)
	}
	var levels []float64
	for i := decisionIdx - 1; i >= 0 && len(levels) < nFractals; i-- {
		if dir == types.Long && fractalLow[i] {
			levels = append(levels, candles[i].Low)
		}
		if dir == types.Short && fractalHigh[i] {
			levels = append(levels, candles[i].High)
		}
	}
	if len(levels) == 0 {
		return 0, false
	}
	best := levels[0]
	for _, v := range levels[1:] {
		if dir == types.Long && v < best {
			best = v
		}
		if dir == types.Short && v > best {
			best = v
		}
	}
	return best, true
}

// AdjustForCorrelation shrinks a position when the cross-market
// correlation is significant; below the 0.6 threshold the size passes
// through unchanged.
func AdjustForCorrelation(size, correlation, maxAdjustment float64) float64 {
	if math.Abs(correlation) > 0.6 {
		return size * (1 - math.Abs(correlation)*maxAdjustment)
	}
	return size
}

// MaxDrawdown returns the most negative peak-relative drop over an
// equity curve, as a fraction (e.g. -0.25 for a 25% drawdown).
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (v - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// RoundToStep floors a quantity to the exchange lot-step granularity.
// A small tolerance keeps exact multiples from flooring one step down
// due to float division.
func RoundToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	return math.Floor(qty/step+1e-9) * step
}
