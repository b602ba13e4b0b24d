package types

import "time"

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Direction of an open position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// EntrySide returns the order side that opens a position.
func (d Direction) EntrySide() Side {
	if d == Long {
		return Buy
	}
	return Sell
}

// CloseSide returns the order side that flattens a position.
func (d Direction) CloseSide() Side {
	if d == Long {
		return Sell
	}
	return Buy
}

// Candle is a single OHLCV bar.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// CandleSeries is an ordered sequence of bars for one symbol and one
// timeframe. Timestamps increase monotonically with no duplicates; the
// series is replaced wholesale on each refresh.
type CandleSeries struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Candles   []Candle  `json:"candles"`
}

func (s CandleSeries) Len() int { return len(s.Candles) }

// Last returns the most recent bar; ok is false for an empty series.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// Closes extracts the close column.
func (s CandleSeries) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// OrderAck is the acknowledgment handle the exchange returns for an
// accepted order.
type OrderAck struct {
	OrderID  int64
	Symbol   string
	Side     Side
	Qty      float64
	Price    float64
	Status   string
	PlacedAt time.Time
}

// ExitReason identifies which trigger closed a position.
type ExitReason string

const (
	ExitStopLoss       ExitReason = "stop_loss"
	ExitTakeProfit     ExitReason = "take_profit"
	ExitSignalReversal ExitReason = "signal_reversal"
	ExitTrailingStop   ExitReason = "trailing_stop"
	ExitTrendChange    ExitReason = "trend_change"
)

// Position is the mutable state of one open position. The lifecycle
// manager owns it exclusively: either fully populated or absent, never
// partially filled in.
type Position struct {
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	Size        float64   `json:"size"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"`
	HighestSeen float64   `json:"highest_seen"` // running high since entry (longs)
	LowestSeen  float64   `json:"lowest_seen"`  // running low since entry (shorts)
	OpenedAt    time.Time `json:"opened_at"`
}

// UnrealizedPnLPct returns the open profit relative to entry.
func (p *Position) UnrealizedPnLPct(price float64) float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	if p.Direction == Long {
		return (price - p.EntryPrice) / p.EntryPrice
	}
	return (p.EntryPrice - price) / p.EntryPrice
}

// Trade is the immutable record appended exactly once per closed position.
type Trade struct {
	Symbol     string     `json:"symbol"`
	Direction  Direction  `json:"direction"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Size       float64    `json:"size"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	PnLPct     float64    `json:"pnl_pct"`
	ExitReason ExitReason `json:"exit_reason"`
}

// EquitySample is one point of the account equity curve, recorded after
// each closed trade.
type EquitySample struct {
	Time    time.Time `json:"time"`
	Balance float64   `json:"balance"`
}

// CycleResult is the outcome of one full decision cycle. Entry and exit
// are mutually exclusive within a cycle.
type CycleResult string

const (
	EnteredLong  CycleResult = "entered_long"
	EnteredShort CycleResult = "entered_short"
	Exited       CycleResult = "exited"
	EntryFailed  CycleResult = "entry_failed"
	ExitFailed   CycleResult = "exit_failed"
	NoAction     CycleResult = "no_action"
)

// PerformanceStats aggregates the closed-trade history.
type PerformanceStats struct {
	TotalTrades int     `json:"total_trades"`
	WinRate     float64 `json:"win_rate"`
	AvgPnLPct   float64 `json:"avg_pnl_pct"`
	MaxDrawdown float64 `json:"max_drawdown"`
}
