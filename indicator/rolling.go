package indicator

import "math"

// undef is the sentinel for "no value yet" during indicator warm-up.
func undef() float64 { return math.NaN() }

// Defined reports whether a derived value exists at this index.
func Defined(v float64) bool { return !math.IsNaN(v) }

// rollingMean computes a simple moving average over window w. The result
// is undefined until a full window of defined inputs is available.
func rollingMean(vals []float64, w int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = undef()
	}
	if w <= 0 {
		return out
	}
	for i := w - 1; i < len(vals); i++ {
		sum := 0.0
		ok := true
		for j := i - w + 1; j <= i; j++ {
			if !Defined(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
		}
		if ok {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// rollingStd computes the rolling sample standard deviation over window w.
func rollingStd(vals []float64, w int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = undef()
	}
	if w <= 1 {
		return out
	}
	for i := w - 1; i < len(vals); i++ {
		sum := 0.0
		ok := true
		for j := i - w + 1; j <= i; j++ {
			if !Defined(vals[j]) {
				ok = false
				break
			}
			sum += vals[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(w)
		ss := 0.0
		for j := i - w + 1; j <= i; j++ {
			d := vals[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(w-1))
	}
	return out
}

// diffSlope computes (v[i] - v[i-k]) / k, undefined when either endpoint is.
func diffSlope(vals []float64, k int) []float64 {
	out := make([]float64, len(vals))
	for i := range out {
		out[i] = undef()
	}
	for i := k; i < len(vals); i++ {
		if Defined(vals[i]) && Defined(vals[i-k]) {
			out[i] = (vals[i] - vals[i-k]) / float64(k)
		}
	}
	return out
}
