package types

import "time"

// Timeframe is an exchange kline interval.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF1w  Timeframe = "1w"
)

// tfSpec maps an interval to its calendar unit and bar count per day.
// The table lives at the data-refresh boundary so the core never does
// interval-string arithmetic.
type tfSpec struct {
	duration      time.Duration
	candlesPerDay int
}

var tfTable = map[Timeframe]tfSpec{
	TF1m:  {time.Minute, 1440},
	TF5m:  {5 * time.Minute, 288},
	TF15m: {15 * time.Minute, 96},
	TF30m: {30 * time.Minute, 48},
	TF1h:  {time.Hour, 24},
	TF4h:  {4 * time.Hour, 6},
	TF1d:  {24 * time.Hour, 1},
	TF1w:  {7 * 24 * time.Hour, 0},
}

// Valid reports whether the interval is a known exchange timeframe.
func (tf Timeframe) Valid() bool {
	_, ok := tfTable[tf]
	return ok
}

// Duration returns the bar length; zero for unknown intervals.
func (tf Timeframe) Duration() time.Duration {
	return tfTable[tf].duration
}

// CandlesPerDay returns how many bars of this interval fit in one day
// (zero for intervals of a day or longer where the ratio is not useful).
func (tf Timeframe) CandlesPerDay() int {
	return tfTable[tf].candlesPerDay
}
