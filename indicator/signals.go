package indicator

// SignalFrame extends a Frame with boolean event columns. A signal at
// index i looks back at most two bars for crossings and never forward.
type SignalFrame struct {
	*Frame

	FastCrossAboveSlow []bool
	FastCrossBelowSlow []bool
	RSICrossAboveBase  []bool
	RSICrossBelowBase  []bool
	RSICrossAboveUpper []bool
	RSICrossBelowLower []bool

	ChannelExpanding []bool
	StrongUptrend    []bool
	StrongDowntrend  []bool

	BearishDivergence []bool
	BullishDivergence []bool

	BuySignal        []bool
	SellSignal       []bool
	StrongBuySignal  []bool
	StrongSellSignal []bool

	// Correlation against a reference instrument, attached by the data
	// refresh when the cross-market filter is enabled. Nil otherwise.
	Correlation []float64
}

// Signals derives the boolean event columns from an indicator frame.
func Signals(f *Frame) *SignalFrame {
	n := f.Len()
	s := &SignalFrame{
		Frame:              f,
		FastCrossAboveSlow: make([]bool, n),
		FastCrossBelowSlow: make([]bool, n),
		RSICrossAboveBase:  make([]bool, n),
		RSICrossBelowBase:  make([]bool, n),
		RSICrossAboveUpper: make([]bool, n),
		RSICrossBelowLower: make([]bool, n),
		ChannelExpanding:   make([]bool, n),
		StrongUptrend:      make([]bool, n),
		StrongDowntrend:    make([]bool, n),
		BearishDivergence:  make([]bool, n),
		BullishDivergence:  make([]bool, n),
		BuySignal:          make([]bool, n),
		SellSignal:         make([]bool, n),
		StrongBuySignal:    make([]bool, n),
		StrongSellSignal:   make([]bool, n),
	}

	widthMean := rollingMean(f.ChannelWidth, 5)
	closes := f.Series.Closes()

	for i := 1; i < n; i++ {
		s.FastCrossAboveSlow[i] = crossAbove(f.FastLine, f.SlowLine, i)
		s.FastCrossBelowSlow[i] = crossBelow(f.FastLine, f.SlowLine, i)
		s.RSICrossAboveBase[i] = crossAbove(f.RSI, f.Baseline, i)
		s.RSICrossBelowBase[i] = crossBelow(f.RSI, f.Baseline, i)
		s.RSICrossAboveUpper[i] = crossAbove(f.RSI, f.UpperBand, i)
		s.RSICrossBelowLower[i] = crossBelow(f.RSI, f.LowerBand, i)
	}

	for i := 0; i < n; i++ {
		if Defined(f.ChannelWidth[i]) && Defined(widthMean[i]) {
			s.ChannelExpanding[i] = f.ChannelWidth[i] > widthMean[i]*1.15
		}
		if Defined(f.BaselineSlope[i]) && Defined(f.RSI[i]) {
			s.StrongUptrend[i] = f.BaselineSlope[i] > 0.2 && f.RSI[i] > 50
			s.StrongDowntrend[i] = f.BaselineSlope[i] < -0.2 && f.RSI[i] < 50
		}
	}

	// Two-bar divergences: price extreme against an oscillator extreme.
	for i := 2; i < n; i++ {
		if !Defined(f.RSI[i]) || !Defined(f.RSI[i-1]) || !Defined(f.RSI[i-2]) {
			continue
		}
		priceHH := closes[i] > closes[i-1] && closes[i-1] > closes[i-2]
		rsiLH := f.RSI[i] < f.RSI[i-1] && f.RSI[i-1] > f.RSI[i-2]
		s.BearishDivergence[i] = priceHH && rsiLH

		priceLL := closes[i] < closes[i-1] && closes[i-1] < closes[i-2]
		rsiHL := f.RSI[i] > f.RSI[i-1] && f.RSI[i-1] < f.RSI[i-2]
		s.BullishDivergence[i] = priceLL && rsiHL
	}

	for i := 0; i < n; i++ {
		if !Defined(f.RSI[i]) || !Defined(f.BaselineSlope[i]) {
			continue
		}
		if Defined(f.UpperBand[i]) {
			s.BuySignal[i] = s.FastCrossAboveSlow[i] &&
				f.RSI[i] > 45 && f.RSI[i] < f.UpperBand[i] &&
				f.BaselineSlope[i] > 0
		}
		if Defined(f.LowerBand[i]) {
			s.SellSignal[i] = s.FastCrossBelowSlow[i] &&
				f.RSI[i] < 55 && f.RSI[i] > f.LowerBand[i] &&
				f.BaselineSlope[i] < 0
		}
		if Defined(f.Baseline[i]) {
			s.StrongBuySignal[i] = s.BuySignal[i] && s.ChannelExpanding[i] &&
				f.RSI[i] > f.Baseline[i] && !s.BearishDivergence[i]
			s.StrongSellSignal[i] = s.SellSignal[i] && s.ChannelExpanding[i] &&
				f.RSI[i] < f.Baseline[i] && !s.BullishDivergence[i]
		}
	}

	return s
}

// crossAbove reports a strict inequality flip of a over b between bars
// i-1 and i. Undefined inputs never produce a crossing.
func crossAbove(a, b []float64, i int) bool {
	if !Defined(a[i]) || !Defined(b[i]) || !Defined(a[i-1]) || !Defined(b[i-1]) {
		return false
	}
	return a[i] > b[i] && a[i-1] <= b[i-1]
}

func crossBelow(a, b []float64, i int) bool {
	if !Defined(a[i]) || !Defined(b[i]) || !Defined(a[i-1]) || !Defined(b[i-1]) {
		return false
	}
	return a[i] < b[i] && a[i-1] >= b[i-1]
}
