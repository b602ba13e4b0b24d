package indicator

import (
	"math"

	"github.com/volatiq/gotdi/types"
)

// computeATR is the simple-moving-average ATR over the true range.
func computeATR(candles []types.Candle, period int) []float64 {
	tr := make([]float64, len(candles))
	for i, c := range candles {
		hl := c.High - c.Low
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := candles[i-1].Close
		hc := math.Abs(c.High - prevClose)
		lc := math.Abs(c.Low - prevClose)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return rollingMean(tr, period)
}

// computeVWAP is the rolling volume-weighted average of the typical price.
func computeVWAP(candles []types.Candle, window int) []float64 {
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = undef()
	}
	for i := window - 1; i < len(candles); i++ {
		var pv, vol float64
		for j := i - window + 1; j <= i; j++ {
			c := candles[j]
			typical := (c.High + c.Low + c.Close) / 3
			pv += typical * c.Volume
			vol += c.Volume
		}
		if vol > 0 {
			out[i] = pv / vol
		}
	}
	return out
}

// detectFractals marks local extrema strictly more extreme than `wing`
// bars on each side. A fractal is only confirmed `wing` bars after the
// extremum, so the trailing edge of the series carries no flags.
func detectFractals(candles []types.Candle, wing int) (highs, lows []bool) {
	highs = make([]bool, len(candles))
	lows = make([]bool, len(candles))
	for i := wing; i < len(candles)-wing; i++ {
		isHigh, isLow := true, true
		for j := 1; j <= wing; j++ {
			if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
				isHigh = false
			}
			if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
				isLow = false
			}
		}
		highs[i] = isHigh
		lows[i] = isLow
	}
	return highs, lows
}

// RollingCorrelation computes the rolling Pearson correlation of two
// equally long close series. Undefined until a full window is available
// or when either window has zero variance.
func RollingCorrelation(a, b []float64, window int) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = undef()
	}
	for i := window - 1; i < n; i++ {
		var sumA, sumB float64
		for j := i - window + 1; j <= i; j++ {
			sumA += a[j]
			sumB += b[j]
		}
		meanA := sumA / float64(window)
		meanB := sumB / float64(window)
		var cov, varA, varB float64
		for j := i - window + 1; j <= i; j++ {
			da := a[j] - meanA
			db := b[j] - meanB
			cov += da * db
			varA += da * da
			varB += db * db
		}
		if varA == 0 || varB == 0 {
			continue
		}
		out[i] = cov / math.Sqrt(varA*varB)
	}
	return out
}
