package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/volatiq/gotdi/types"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPositionSize(t *testing.T) {
	// Risking 2% of 1000 over a 4% stop distance at 10x.
	size, err := PositionSize(1000, 0.02, 100, 96, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almost(size, 50) {
		t.Fatalf("size = %f, want 50", size)
	}
}

func TestPositionSizeShortDirection(t *testing.T) {
	// Stop above entry; the distance is symmetric so the size matches.
	size, err := PositionSize(1000, 0.02, 100, 104, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almost(size, 50) {
		t.Fatalf("size = %f, want 50", size)
	}
}

func TestPositionSizeDegenerateInputs(t *testing.T) {
	if _, err := PositionSize(1000, 0.02, 100, 100, 10); !errors.Is(err, ErrInvalidRiskInput) {
		t.Fatalf("entry==stop error = %v, want ErrInvalidRiskInput", err)
	}
	if _, err := PositionSize(1000, 0.02, 0, 96, 10); !errors.Is(err, ErrInvalidRiskInput) {
		t.Fatalf("zero entry error = %v, want ErrInvalidRiskInput", err)
	}
}

func TestDynamicLeverageClamps(t *testing.T) {
	// Huge volatility pushes the raw value far below 1.
	if lev := DynamicLeverage(500, 2.0, 1000, 10, 0.1); lev != 1 {
		t.Fatalf("high volatility leverage = %f, want 1", lev)
	}
	// Tiny volatility pushes the raw value far above the cap.
	if lev := DynamicLeverage(0.01, 0.01, 1000, 10, 0.1); lev != 10 {
		t.Fatalf("low volatility leverage = %f, want 10", lev)
	}
}

func TestDynamicLeverageDegenerateInputs(t *testing.T) {
	cases := []struct {
		name string
		atr  float64
		cwp  float64
	}{
		{"zero atr", 0, 0.1},
		{"zero channel width", 1, 0},
		{"nan atr", math.NaN(), 0.1},
		{"nan channel width", 1, math.NaN()},
	}
	for _, tc := range cases {
		if lev := DynamicLeverage(tc.atr, tc.cwp, 1000, 10, 0.1); lev != 1 {
			t.Errorf("%s: leverage = %f, want 1", tc.name, lev)
		}
	}
}

func TestStopLossPrice(t *testing.T) {
	if got := StopLossPrice(100, 2, 2, types.Long); !almost(got, 96) {
		t.Fatalf("long stop = %f, want 96", got)
	}
	if got := StopLossPrice(100, 2, 2, types.Short); !almost(got, 104) {
		t.Fatalf("short stop = %f, want 104", got)
	}
}

func TestTakeProfitLevels(t *testing.T) {
	tps := TakeProfitLevels(100, 96, []float64{1.5, 2.5, 3.5}, types.Long)
	want := []float64{106, 109, 112}
	for i := range want {
		if !almost(tps[i], want[i]) {
			t.Fatalf("long tp[%d] = %f, want %f", i, tps[i], want[i])
		}
	}

	tps = TakeProfitLevels(100, 104, []float64{1.5, 2.5, 3.5}, types.Short)
	want = []float64{94, 90, 86}
	for i := range want {
		if !almost(tps[i], want[i]) {
			t.Fatalf("short tp[%d] = %f, want %f", i, tps[i], want[i])
		}
	}
}

func TestTrailingStopClampsToCurrentPrice(t *testing.T) {
	// Long: raw stop (106) would sit above the current price; clamp down.
	if got := TrailingStop(105, 110, 2, 2, types.Long); !almost(got, 105) {
		t.Fatalf("long trailing = %f, want 105", got)
	}
	// Normal case: extremum minus the ATR buffer.
	if got := TrailingStop(109, 110, 2, 2, types.Long); !almost(got, 106) {
		t.Fatalf("long trailing = %f, want 106", got)
	}
	// Short mirror: clamp up to the current price.
	if got := TrailingStop(95, 90, 2, 2, types.Short); !almost(got, 95) {
		t.Fatalf("short trailing = %f, want 95", got)
	}
}

func fractalCandles() ([]types.Candle, []bool, []bool) {
	lows := []float64{95, 94, 93.5, 95, 96, 93, 95, 97, 98, 99}
	highs := []float64{105, 106, 107, 105, 104, 108, 106, 105, 104, 103}
	candles := make([]types.Candle, len(lows))
	fh := make([]bool, len(lows))
	fl := make([]bool, len(lows))
	for i := range candles {
		candles[i] = types.Candle{Low: lows[i], High: highs[i]}
	}
	fl[2] = true // low 93.5
	fl[5] = true // low 93
	fh[2] = true // high 107
	fh[5] = true // high 108
	return candles, fh, fl
}

func TestFractalStop(t *testing.T) {
	candles, fh, fl := fractalCandles()

	stop, ok := FractalStop(candles, fh, fl, len(candles), 3, types.Long)
	if !ok {
		t.Fatal("expected a long fractal stop")
	}
	if !almost(stop, 93) {
		t.Fatalf("long fractal stop = %f, want 93", stop)
	}

	stop, ok = FractalStop(candles, fh, fl, len(candles), 3, types.Short)
	if !ok {
		t.Fatal("expected a short fractal stop")
	}
	if !almost(stop, 108) {
		t.Fatalf("short fractal stop = %f, want 108", stop)
	}
}

func TestFractalStopRespectsDecisionBar(t *testing.T) {
	candles, fh, fl := fractalCandles()

	// Only the fractal at index 2 is visible from decision bar 4.
	stop, ok := FractalStop(candles, fh, fl, 4, 3, types.Long)
	if !ok || !almost(stop, 93.5) {
		t.Fatalf("stop = %f ok=%v, want 93.5", stop, ok)
	}

	// No fractal before index 2 at all.
	if _, ok := FractalStop(candles, fh, fl, 2, 3, types.Long); ok {
		t.Fatal("expected no fractal before the decision bar")
	}
}

func TestAdjustForCorrelation(t *testing.T) {
	if got := AdjustForCorrelation(100, 0.8, 0.5); !almost(got, 60) {
		t.Fatalf("adjusted size = %f, want 60", got)
	}
	// Below the 0.6 threshold the size passes through.
	if got := AdjustForCorrelation(100, 0.5, 0.5); !almost(got, 100) {
		t.Fatalf("unadjusted size = %f, want 100", got)
	}
	// Negative correlation shrinks by magnitude too.
	if got := AdjustForCorrelation(100, -0.8, 0.5); !almost(got, 60) {
		t.Fatalf("negative correlation size = %f, want 60", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	got := MaxDrawdown([]float64{100, 120, 90, 110, 80})
	if !almost(got, (80.0-120.0)/120.0) {
		t.Fatalf("max drawdown = %f, want %f", got, (80.0-120.0)/120.0)
	}
	if got := MaxDrawdown([]float64{100, 110, 120}); got != 0 {
		t.Fatalf("monotone curve drawdown = %f, want 0", got)
	}
	if got := MaxDrawdown(nil); got != 0 {
		t.Fatalf("empty curve drawdown = %f, want 0", got)
	}
}

func TestRoundToStep(t *testing.T) {
	if got := RoundToStep(0.1239, 0.001); !almost(got, 0.123) {
		t.Fatalf("rounded = %f, want 0.123", got)
	}
	if got := RoundToStep(1.5, 0); !almost(got, 1.5) {
		t.Fatalf("zero step should pass through, got %f", got)
	}
}
