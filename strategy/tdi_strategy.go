// Package strategy contains the TDI multi-timeframe decision core: the
// stateless confluence evaluator and the stateful position lifecycle
// manager that drives entries and protective exits.
package strategy

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/volatiq/gotdi/config"
	"github.com/volatiq/gotdi/exchange"
	"github.com/volatiq/gotdi/indicator"
	"github.com/volatiq/gotdi/logger"
	"github.com/volatiq/gotdi/metrics"
	"github.com/volatiq/gotdi/risk"
	"github.com/volatiq/gotdi/types"
)

const (
	correlationWindow    = 5
	correlationMaxAdjust = 0.5
	dynamicLevBaseRisk   = 0.1
	partialTakeProfit    = 0.5 // fraction of size closed at the first ladder level
)

// TDIStrategy manages one symbol's position lifecycle. A cycle runs to
// completion on a single goroutine; only the snapshot accessors are safe
// to call concurrently (the dashboard reads them).
type TDIStrategy struct {
	Symbol string
	Cfg    config.StrategyConfig
	Client exchange.Client
	Log    logger.Logger

	mu     sync.RWMutex
	state  State
	frames *TimeframeSet
	corr   CorrelationGate
}

// NewTDIStrategy validates the config and builds a flat strategy instance.
func NewTDIStrategy(symbol string, cfg config.StrategyConfig, client exchange.Client, log logger.Logger) (*TDIStrategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	return &TDIStrategy{
		Symbol: symbol,
		Cfg:    cfg,
		Client: client,
		Log:    log,
	}, nil
}

// RunCycle executes one full decision cycle: refresh all timeframes,
// then either manage the open position's exits or evaluate a new entry.
// Entry and exit are mutually exclusive within one cycle.
func (s *TDIStrategy) RunCycle() types.CycleResult {
	res := s.runCycle()
	metrics.CyclesTotal.WithLabelValues(s.Symbol, string(res)).Inc()
	return res
}

func (s *TDIStrategy) runCycle() types.CycleResult {
	if err := s.refresh(); err != nil {
		msg := "cycle_skipped"
		if errors.Is(err, indicator.ErrInsufficientData) {
			msg = "cycle_skipped_warmup"
		}
		s.Log.Warn(msg,
			logger.String("symbol", s.Symbol),
			logger.Err(err),
		)
		return types.NoAction
	}
	return s.decide()
}

// decide runs the decision half of a cycle against the already-refreshed
// frames. Split out from RunCycle so tests can drive it with injected
// frames.
func (s *TDIStrategy) decide() types.CycleResult {
	price, err := s.Client.CurrentPrice(s.Symbol)
	if err != nil {
		s.Log.Warn("price_unavailable",
			logger.String("symbol", s.Symbol),
			logger.Err(err),
		)
		return types.NoAction
	}

	if s.state.Position != nil {
		return s.exitPath(price)
	}
	return s.entryPath(price)
}

// refresh replaces all four timeframe frames wholesale, plus the
// correlation series when the cross-market filter is enabled. Any
// unavailable timeframe aborts the refresh so a cycle never mixes data
// ages.
func (s *TDIStrategy) refresh() error {
	icfg := indicator.Config{
		RSILength:        s.Cfg.RSILength,
		FastMA:           s.Cfg.FastMA,
		SlowMA:           s.Cfg.SlowMA,
		BandLength:       s.Cfg.BandLength,
		StdDevMultiplier: s.Cfg.StdDevMultiplier,
	}

	load := func(tf types.Timeframe) (*indicator.SignalFrame, error) {
		series, err := s.Client.FetchCandles(s.Symbol, tf, s.Cfg.Lookback)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", tf, err)
		}
		if series.Len() == 0 {
			return nil, fmt.Errorf("timeframe %s unavailable", tf)
		}
		frame, err := indicator.Compute(series, icfg)
		if err != nil {
			return nil, err
		}
		return indicator.Signals(frame), nil
	}

	frames := &TimeframeSet{}
	var err error
	if frames.Macro, err = load(s.Cfg.MacroTimeframe); err != nil {
		return err
	}
	if frames.Strategy, err = load(s.Cfg.StrategyTimeframe); err != nil {
		return err
	}
	if frames.Execution, err = load(s.Cfg.ExecutionTimeframe); err != nil {
		return err
	}
	if frames.Micro, err = load(s.Cfg.MicroTimeframe); err != nil {
		return err
	}

	corr := CorrelationGate{Enabled: false, Coefficient: math.NaN()}
	if s.Cfg.UseCorrelation && s.Cfg.CorrelationSymbol != s.Symbol {
		if g, err := s.refreshCorrelation(frames.Execution); err != nil {
			// Correlation is a filter, not a data dependency: degrade to
			// unfiltered rather than skipping the cycle.
			s.Log.Warn("correlation_unavailable",
				logger.String("symbol", s.Symbol),
				logger.Err(err),
			)
		} else {
			corr = g
		}
	}

	s.frames = frames
	s.corr = corr
	return nil
}

func (s *TDIStrategy) refreshCorrelation(exec *indicator.SignalFrame) (CorrelationGate, error) {
	series, err := s.Client.FetchCandles(s.Cfg.CorrelationSymbol, s.Cfg.ExecutionTimeframe, s.Cfg.Lookback)
	if err != nil {
		return CorrelationGate{}, err
	}
	if series.Len() < 2 {
		return CorrelationGate{}, fmt.Errorf("correlation series too short (%d bars)", series.Len())
	}

	// Align both close series on their common tail.
	a := exec.Series.Closes()
	b := series.Closes()
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	vals := indicator.RollingCorrelation(a, b, correlationWindow)
	coef := math.NaN()
	if len(vals) > 0 {
		coef = vals[len(vals)-1]
	}
	exec.Correlation = vals

	candles := series.Candles
	return CorrelationGate{
		Enabled:     true,
		Coefficient: coef,
		LastClose:   candles[len(candles)-1].Close,
		PrevClose:   candles[len(candles)-2].Close,
	}, nil
}

// ---------------------------------------------------------------------
// Entry path
// ---------------------------------------------------------------------

func (s *TDIStrategy) entryPath(price float64) types.CycleResult {
	dec := EvaluateEntry(s.frames, s.corr, price, s.Cfg)
	if !dec.Enter {
		return types.NoAction
	}
	if err := s.enterPosition(dec); err != nil {
		s.Log.Error("entry_failed",
			logger.String("symbol", s.Symbol),
			logger.String("direction", string(dec.Direction)),
			logger.Err(err),
		)
		return types.EntryFailed
	}
	if dec.Direction == types.Long {
		return types.EnteredLong
	}
	return types.EnteredShort
}

// enterPosition sizes, levers and submits a new position. The Position
// record is committed only after the entry order is acknowledged; any
// failure before that leaves the state flat and untouched.
func (s *TDIStrategy) enterPosition(dec EntryDecision) error {
	balance, err := s.Client.AccountBalance(s.Cfg.QuoteAsset)
	if err != nil {
		return fmt.Errorf("account balance: %w", err)
	}
	if balance <= 0 {
		return fmt.Errorf("account balance %f is not positive", balance)
	}

	exec := s.frames.Execution
	ei := exec.LastIndex()
	leverage := risk.DynamicLeverage(exec.ATR[ei], exec.ChannelWidthPct[ei], balance,
		s.Cfg.MaxLeverage, dynamicLevBaseRisk)
	if err := s.Client.SetLeverage(s.Symbol, int(leverage)); err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}

	size, err := risk.PositionSize(balance, s.Cfg.AccountRisk, dec.EntryPrice, dec.StopLoss, leverage)
	if err != nil {
		return err
	}
	if s.corr.Enabled && !math.IsNaN(s.corr.Coefficient) {
		size = risk.AdjustForCorrelation(size, s.corr.Coefficient, correlationMaxAdjust)
	}
	step, err := s.Client.LotStep(s.Symbol)
	if err != nil {
		return fmt.Errorf("lot step: %w", err)
	}
	size = risk.RoundToStep(size, step)
	if size <= 0 {
		return fmt.Errorf("position size rounded to zero (step %f)", step)
	}

	takeProfits := risk.TakeProfitLevels(dec.EntryPrice, dec.StopLoss, s.Cfg.RiskRewardRatios, dec.Direction)

	ack, err := s.Client.PlaceMarketOrder(s.Symbol, dec.Direction.EntrySide(), size)
	if err != nil {
		return fmt.Errorf("entry order: %w", err)
	}
	metrics.OrdersSubmitted.WithLabelValues("entry").Inc()

	// Protective orders ride on the committed position; their failure is
	// logged but does not roll the entry back (the exchange position is
	// already open).
	if _, err := s.Client.PlaceStopOrder(s.Symbol, dec.Direction.CloseSide(), size, dec.StopLoss); err != nil {
		s.Log.Warn("stop_order_failed",
			logger.String("symbol", s.Symbol),
			logger.Float64("stop", dec.StopLoss),
			logger.Err(err),
		)
	} else {
		metrics.OrdersSubmitted.WithLabelValues("stop_loss").Inc()
	}
	if _, err := s.Client.PlaceTakeProfitOrder(s.Symbol, dec.Direction.CloseSide(),
		size*partialTakeProfit, takeProfits[0]); err != nil {
		s.Log.Warn("take_profit_order_failed",
			logger.String("symbol", s.Symbol),
			logger.Float64("level", takeProfits[0]),
			logger.Err(err),
		)
	} else {
		metrics.OrdersSubmitted.WithLabelValues("take_profit").Inc()
	}

	s.mu.Lock()
	s.state.Position = &types.Position{
		Symbol:      s.Symbol,
		Direction:   dec.Direction,
		EntryPrice:  dec.EntryPrice,
		Size:        size,
		StopLoss:    dec.StopLoss,
		TakeProfits: takeProfits,
		HighestSeen: dec.EntryPrice,
		LowestSeen:  dec.EntryPrice,
		OpenedAt:    ack.PlacedAt,
	}
	s.mu.Unlock()
	metrics.PositionsOpen.WithLabelValues(s.Symbol).Set(1)

	s.Log.Info("position_opened",
		logger.String("symbol", s.Symbol),
		logger.String("direction", string(dec.Direction)),
		logger.Float64("entry", dec.EntryPrice),
		logger.Float64("size", size),
		logger.Float64("stop", dec.StopLoss),
		logger.Float64("leverage", leverage),
	)
	return nil
}

// ---------------------------------------------------------------------
// Exit path
// ---------------------------------------------------------------------

func (s *TDIStrategy) exitPath(price float64) types.CycleResult {
	pos := s.state.Position

	// Extremum tracking runs every cycle, whether or not an exit fires.
	s.mu.Lock()
	if pos.Direction == types.Long {
		pos.HighestSeen = math.Max(pos.HighestSeen, price)
	} else {
		pos.LowestSeen = math.Min(pos.LowestSeen, price)
	}
	s.mu.Unlock()

	reason, triggered := s.exitTrigger(pos, price)
	if !triggered {
		return types.NoAction
	}
	if err := s.exitPosition(pos, price, reason); err != nil {
		s.Log.Error("exit_failed",
			logger.String("symbol", s.Symbol),
			logger.String("reason", string(reason)),
			logger.Err(err),
		)
		return types.ExitFailed
	}
	return types.Exited
}

// exitTrigger evaluates the exit conditions in their fixed priority:
// stop loss, first take-profit level, signal reversal, trailing stop,
// baseline-slope flip. The first match wins.
func (s *TDIStrategy) exitTrigger(pos *types.Position, price float64) (types.ExitReason, bool) {
	exec, micro := s.frames.Execution, s.frames.Micro
	ei, ui := exec.LastIndex(), micro.LastIndex()
	long := pos.Direction == types.Long

	// 1. Stop-loss breach.
	if (long && price <= pos.StopLoss) || (!long && price >= pos.StopLoss) {
		return types.ExitStopLoss, true
	}

	// 2. First take-profit ladder level.
	if len(pos.TakeProfits) > 0 {
		tp := pos.TakeProfits[0]
		if (long && price >= tp) || (!long && price <= tp) {
			return types.ExitTakeProfit, true
		}
	}

	// 3. Signal reversal against the position.
	if long {
		if micro.StrongSellSignal[ui] ||
			(exec.FastCrossBelowSlow[ei] && exec.RSI[ei] < exec.Baseline[ei]) {
			return types.ExitSignalReversal, true
		}
	} else {
		if micro.StrongBuySignal[ui] ||
			(exec.FastCrossAboveSlow[ei] && exec.RSI[ei] > exec.Baseline[ei]) {
			return types.ExitSignalReversal, true
		}
	}

	// 4. Trailing stop, armed only past the profit-activation threshold.
	atr := exec.ATR[ei]
	if long {
		if price > pos.EntryPrice*(1+s.Cfg.TrailingActivationPct) {
			ts := risk.TrailingStop(price, pos.HighestSeen, atr, s.Cfg.ATRStopMultiplier, types.Long)
			if price <= ts {
				return types.ExitTrailingStop, true
			}
		}
	} else {
		if price < pos.EntryPrice*(1-s.Cfg.TrailingActivationPct) {
			ts := risk.TrailingStop(price, pos.LowestSeen, atr, s.Cfg.ATRStopMultiplier, types.Short)
			if price >= ts {
				return types.ExitTrailingStop, true
			}
		}
	}

	// 5. Baseline slope flipped against the position.
	if long && exec.BaselineSlope[ei] < 0 {
		return types.ExitTrendChange, true
	}
	if !long && exec.BaselineSlope[ei] > 0 {
		return types.ExitTrendChange, true
	}

	return "", false
}

// exitPosition cancels outstanding orders and flattens the position.
// The Trade record, equity sample and position clear happen only after
// the closing order is acknowledged; on failure the position stays open
// and the next cycle retries.
func (s *TDIStrategy) exitPosition(pos *types.Position, price float64, reason types.ExitReason) error {
	if err := s.Client.CancelAllOrders(s.Symbol); err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}
	if _, err := s.Client.PlaceMarketOrder(s.Symbol, pos.Direction.CloseSide(), pos.Size); err != nil {
		return fmt.Errorf("close order: %w", err)
	}
	metrics.OrdersSubmitted.WithLabelValues("exit").Inc()

	pnlPct := pos.UnrealizedPnLPct(price)
	now := time.Now().UTC()

	s.mu.Lock()
	s.state.Trades = append(s.state.Trades, types.Trade{
		Symbol:     s.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Size:       pos.Size,
		EntryTime:  pos.OpenedAt,
		ExitTime:   now,
		PnLPct:     pnlPct,
		ExitReason: reason,
	})
	s.state.Position = nil
	s.mu.Unlock()

	metrics.TradesClosed.WithLabelValues(s.Symbol, string(reason)).Inc()
	metrics.PositionsOpen.WithLabelValues(s.Symbol).Set(0)

	if balance, err := s.Client.AccountBalance(s.Cfg.QuoteAsset); err != nil {
		s.Log.Warn("equity_sample_skipped",
			logger.String("symbol", s.Symbol),
			logger.Err(err),
		)
	} else {
		s.mu.Lock()
		s.state.Equity = append(s.state.Equity, types.EquitySample{Time: now, Balance: balance})
		s.mu.Unlock()
		metrics.EquityGauge.Set(balance)
	}

	s.Log.Info("position_closed",
		logger.String("symbol", s.Symbol),
		logger.String("direction", string(pos.Direction)),
		logger.String("reason", string(reason)),
		logger.Float64("exit", price),
		logger.Float64("pnl_pct", pnlPct),
	)
	return nil
}

// ---------------------------------------------------------------------
// Read-only accessors (safe for concurrent use by the dashboard)
// ---------------------------------------------------------------------

// CurrentPosition returns a copy of the open position, or nil when flat.
func (s *TDIStrategy) CurrentPosition() *types.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Position == nil {
		return nil
	}
	cp := *s.state.Position
	cp.TakeProfits = append([]float64(nil), s.state.Position.TakeProfits...)
	return &cp
}

// TradeHistory returns the closed trades, oldest first.
func (s *TDIStrategy) TradeHistory() []types.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Trade(nil), s.state.Trades...)
}

// PerformanceStats aggregates the closed-trade history.
func (s *TDIStrategy) PerformanceStats() types.PerformanceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.PerformanceStats{TotalTrades: len(s.state.Trades)}
	if stats.TotalTrades == 0 {
		return stats
	}
	wins := 0
	sum := 0.0
	for _, t := range s.state.Trades {
		if t.PnLPct > 0 {
			wins++
		}
		sum += t.PnLPct
	}
	stats.WinRate = float64(wins) / float64(stats.TotalTrades)
	stats.AvgPnLPct = sum / float64(stats.TotalTrades)
	if len(s.state.Equity) > 1 {
		stats.MaxDrawdown = risk.MaxDrawdown(s.state.equityBalances())
	}
	return stats
}
