package indicator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/volatiq/gotdi/types"
)

// syntheticSeries builds a deterministic wavy series long enough for all
// warm-up windows.
func syntheticSeries(n int) types.CandleSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, n)
	for i := 0; i < n; i++ {
		base := 100 + 10*math.Sin(float64(i)/7) + 0.05*float64(i)
		candles[i] = types.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     base - 0.5,
			High:     base + 1.5,
			Low:      base - 1.5,
			Close:    base,
			Volume:   1000 + 50*math.Cos(float64(i)/3),
		}
	}
	return types.CandleSeries{Symbol: "BTCUSDT", Timeframe: types.TF1h, Candles: candles}
}

func TestComputeRejectsShortSeries(t *testing.T) {
	cfg := DefaultConfig()
	series := syntheticSeries(cfg.MinBars() - 1)
	if _, err := Compute(series, cfg); !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("error = %v, want ErrInsufficientData", err)
	}
}

func TestComputeWarmupSentinels(t *testing.T) {
	cfg := DefaultConfig()
	f, err := Compute(syntheticSeries(120), cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// RSI is undefined for the first RSILength bars, defined after.
	for i := 0; i < cfg.RSILength; i++ {
		if Defined(f.RSI[i]) {
			t.Fatalf("RSI[%d] = %f, want undefined during warm-up", i, f.RSI[i])
		}
	}
	if !Defined(f.RSI[cfg.RSILength]) {
		t.Fatalf("RSI[%d] undefined, want first defined value", cfg.RSILength)
	}

	// Baseline needs a full band window of defined RSI values.
	firstBaseline := cfg.RSILength + cfg.BandLength - 1
	if Defined(f.Baseline[firstBaseline-1]) {
		t.Fatalf("Baseline[%d] defined too early", firstBaseline-1)
	}
	if !Defined(f.Baseline[firstBaseline]) {
		t.Fatalf("Baseline[%d] undefined, want defined", firstBaseline)
	}

	// Bands and channel width appear together with the baseline stddev.
	last := f.LastIndex()
	if !Defined(f.UpperBand[last]) || !Defined(f.LowerBand[last]) || !Defined(f.ChannelWidth[last]) {
		t.Fatal("bands undefined at the last bar of a long series")
	}
	if f.UpperBand[last] <= f.LowerBand[last] {
		t.Fatalf("upper band %f not above lower band %f", f.UpperBand[last], f.LowerBand[last])
	}
	width := f.UpperBand[last] - f.LowerBand[last]
	if math.Abs(width-f.ChannelWidth[last]) > 1e-9 {
		t.Fatalf("channel width %f != band spread %f", f.ChannelWidth[last], width)
	}
}

func TestComputeBandsAroundBaseline(t *testing.T) {
	cfg := DefaultConfig()
	f, err := Compute(syntheticSeries(120), cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	for i := range f.Baseline {
		if !Defined(f.Baseline[i]) {
			continue
		}
		up := f.UpperBand[i] - f.Baseline[i]
		down := f.Baseline[i] - f.LowerBand[i]
		if math.Abs(up-down) > 1e-9 {
			t.Fatalf("bands asymmetric at %d: +%f / -%f", i, up, down)
		}
	}
}

// TestComputeCausality appends future bars and verifies no historical
// column value changes.
func TestComputeCausality(t *testing.T) {
	cfg := DefaultConfig()
	full := syntheticSeries(150)
	truncated := types.CandleSeries{
		Symbol:    full.Symbol,
		Timeframe: full.Timeframe,
		Candles:   full.Candles[:120],
	}

	a, err := Compute(truncated, cfg)
	if err != nil {
		t.Fatalf("Compute truncated: %v", err)
	}
	b, err := Compute(full, cfg)
	if err != nil {
		t.Fatalf("Compute full: %v", err)
	}

	columns := map[string][2][]float64{
		"rsi":            {a.RSI, b.RSI},
		"fast":           {a.FastLine, b.FastLine},
		"slow":           {a.SlowLine, b.SlowLine},
		"baseline":       {a.Baseline, b.Baseline},
		"upper":          {a.UpperBand, b.UpperBand},
		"lower":          {a.LowerBand, b.LowerBand},
		"width":          {a.ChannelWidth, b.ChannelWidth},
		"rsi_slope":      {a.RSISlope, b.RSISlope},
		"baseline_slope": {a.BaselineSlope, b.BaselineSlope},
		"atr":            {a.ATR, b.ATR},
		"vwap":           {a.VWAP, b.VWAP},
	}
	for name, pair := range columns {
		for i := range pair[0] {
			av, bv := pair[0][i], pair[1][i]
			if math.IsNaN(av) && math.IsNaN(bv) {
				continue
			}
			if av != bv {
				t.Fatalf("%s[%d] changed after appending future bars: %f vs %f", name, i, av, bv)
			}
		}
	}
}

func TestWilderRSIExtremes(t *testing.T) {
	// Monotonically rising closes leave no losses: RSI pins at 100.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := wilderRSI(closes, 8)
	if rsi[len(rsi)-1] != 100 {
		t.Fatalf("rising-only RSI = %f, want 100", rsi[len(rsi)-1])
	}

	// A flat series has neither gains nor losses: RSI settles at 50.
	for i := range closes {
		closes[i] = 100
	}
	rsi = wilderRSI(closes, 8)
	if rsi[len(rsi)-1] != 50 {
		t.Fatalf("flat RSI = %f, want 50", rsi[len(rsi)-1])
	}
}

func TestDetectFractals(t *testing.T) {
	// A clean peak at index 4 and trough at index 10, flat elsewhere.
	highs := []float64{5, 5, 5, 6, 9, 6, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	lows := []float64{4, 4, 4, 4, 4, 4, 4, 3, 2, 1.5, 1, 1.5, 2, 4, 4}
	candles := make([]types.Candle, len(highs))
	for i := range candles {
		candles[i] = types.Candle{High: highs[i], Low: lows[i]}
	}

	fh, fl := detectFractals(candles, 2)
	if !fh[4] {
		t.Fatal("expected a fractal high at index 4")
	}
	if !fl[10] {
		t.Fatal("expected a fractal low at index 10")
	}

	// The trailing wing can never carry a confirmed fractal.
	for _, i := range []int{len(candles) - 1, len(candles) - 2} {
		if fh[i] || fl[i] {
			t.Fatalf("unconfirmed fractal flagged at trailing index %d", i)
		}
	}

	// Equal neighbours do not qualify as strict extrema.
	for i := range fh {
		if i != 4 && fh[i] {
			t.Fatalf("spurious fractal high at %d", i)
		}
	}
}

func TestRollingCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	b := []float64{2, 4, 6, 8, 10, 12, 14, 16}
	out := RollingCorrelation(a, b, 5)
	if Defined(out[3]) {
		t.Fatal("correlation defined before a full window")
	}
	if math.Abs(out[7]-1) > 1e-9 {
		t.Fatalf("perfectly correlated series: rho = %f, want 1", out[7])
	}

	inv := []float64{16, 14, 12, 10, 8, 6, 4, 2}
	out = RollingCorrelation(a, inv, 5)
	if math.Abs(out[7]+1) > 1e-9 {
		t.Fatalf("inverse series: rho = %f, want -1", out[7])
	}

	flat := []float64{3, 3, 3, 3, 3, 3, 3, 3}
	out = RollingCorrelation(a, flat, 5)
	if Defined(out[7]) {
		t.Fatal("zero-variance window should stay undefined")
	}
}
