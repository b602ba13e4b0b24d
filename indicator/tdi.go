// Package indicator computes the Traders Dynamic Index (TDI) composite
// and its derived signal events from OHLCV candle series.
//
// Every derived column at index i depends only on bars at indices <= i;
// columns hold the NaN sentinel for the first W-1 bars of any rolling
// window of length W. This causality property is what makes the frames
// safe for backtesting.
package indicator

import (
	"errors"
	"fmt"

	"github.com/volatiq/gotdi/types"
)

// ErrInsufficientData is returned when a candle series is shorter than
// the minimum warm-up requirement of the indicator configuration.
var ErrInsufficientData = errors.New("insufficient candle data")

const (
	atrPeriod   = 14
	vwapWindow  = 20
	fractalWing = 2 // bars on each side of a fractal extremum
)

// Config holds the TDI indicator parameters.
type Config struct {
	RSILength        int
	FastMA           int
	SlowMA           int
	BandLength       int
	StdDevMultiplier float64
}

// DefaultConfig returns the stock parameter set, tuned for crypto.
func DefaultConfig() Config {
	return Config{
		RSILength:        8,
		FastMA:           2,
		SlowMA:           7,
		BandLength:       20,
		StdDevMultiplier: 2.2,
	}
}

// MinBars is the shortest series Compute accepts.
func (c Config) MinBars() int {
	n := c.RSILength
	if c.BandLength > n {
		n = c.BandLength
	}
	return n + c.SlowMA
}

// Frame is a candle series extended with the TDI columns plus the ATR,
// rolling VWAP and fractal flags the strategy layer consumes. All float
// columns use NaN as the "no value" sentinel.
type Frame struct {
	Series types.CandleSeries

	RSI             []float64
	FastLine        []float64
	SlowLine        []float64
	Baseline        []float64
	UpperBand       []float64
	LowerBand       []float64
	ChannelWidth    []float64
	ChannelWidthPct []float64
	RSISlope        []float64
	BaselineSlope   []float64

	ATR  []float64
	VWAP []float64

	FractalHigh []bool
	FractalLow  []bool
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int { return len(f.Series.Candles) }

// LastIndex returns the index of the most recent bar.
func (f *Frame) LastIndex() int { return len(f.Series.Candles) - 1 }

// Compute derives the full TDI frame from a candle series. It is a pure
// transform: the input series is not modified.
func Compute(series types.CandleSeries, cfg Config) (*Frame, error) {
	if series.Len() < cfg.MinBars() {
		return nil, fmt.Errorf("%w: need %d bars for %s/%s, have %d",
			ErrInsufficientData, cfg.MinBars(), series.Symbol, series.Timeframe, series.Len())
	}

	closes := series.Closes()

	f := &Frame{Series: series}
	f.RSI = wilderRSI(closes, cfg.RSILength)
	f.FastLine = rollingMean(f.RSI, cfg.FastMA)
	f.SlowLine = rollingMean(f.RSI, cfg.SlowMA)
	f.Baseline = rollingMean(f.RSI, cfg.BandLength)

	std := rollingStd(f.RSI, cfg.BandLength)
	n := len(closes)
	f.UpperBand = make([]float64, n)
	f.LowerBand = make([]float64, n)
	f.ChannelWidth = make([]float64, n)
	f.ChannelWidthPct = make([]float64, n)
	for i := 0; i < n; i++ {
		if Defined(f.Baseline[i]) && Defined(std[i]) {
			f.UpperBand[i] = f.Baseline[i] + std[i]*cfg.StdDevMultiplier
			f.LowerBand[i] = f.Baseline[i] - std[i]*cfg.StdDevMultiplier
			f.ChannelWidth[i] = f.UpperBand[i] - f.LowerBand[i]
			if f.Baseline[i] != 0 {
				f.ChannelWidthPct[i] = f.ChannelWidth[i] / f.Baseline[i]
			} else {
				f.ChannelWidthPct[i] = undef()
			}
		} else {
			f.UpperBand[i] = undef()
			f.LowerBand[i] = undef()
			f.ChannelWidth[i] = undef()
			f.ChannelWidthPct[i] = undef()
		}
	}

	f.RSISlope = diffSlope(f.RSI, 3)
	f.BaselineSlope = diffSlope(f.Baseline, 5)

	f.ATR = computeATR(series.Candles, atrPeriod)
	f.VWAP = computeVWAP(series.Candles, vwapWindow)
	f.FractalHigh, f.FractalLow = detectFractals(series.Candles, fractalWing)

	return f, nil
}

// wilderRSI computes the smoothed relative-strength oscillator of the
// close-to-close deltas. Defined from index length onward.
func wilderRSI(closes []float64, length int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = undef()
	}
	if length <= 0 || len(closes) <= length {
		return out
	}

	// Seed with the simple mean of the first `length` gains/losses.
	var avgGain, avgLoss float64
	for i := 1; i <= length; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(length)
	avgLoss /= float64(length)
	out[length] = rsiValue(avgGain, avgLoss)

	alpha := 1.0 / float64(length)
	for i := length + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
