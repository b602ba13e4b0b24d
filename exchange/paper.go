package exchange

import (
	"fmt"
	"sync"
	"time"

	"github.com/volatiq/gotdi/types"
)

// PaperClient is an in-memory exchange for dry runs and backtests:
// perfect fills at the seeded price, no slippage, no fees.
type PaperClient struct {
	mu      sync.RWMutex
	balance float64
	prices  map[string]float64
	series  map[string]types.CandleSeries
	steps   map[string]float64
	nextID  int64
	open    map[string]int // outstanding order count per symbol
}

// NewPaperClient creates a paper exchange with the supplied quote balance.
func NewPaperClient(startBalance float64) *PaperClient {
	return &PaperClient{
		balance: startBalance,
		prices:  make(map[string]float64),
		series:  make(map[string]types.CandleSeries),
		steps:   make(map[string]float64),
		open:    make(map[string]int),
	}
}

func seriesKey(symbol string, tf types.Timeframe) string {
	return symbol + "/" + string(tf)
}

// SeedSeries installs the candle history served for a symbol/timeframe.
func (p *PaperClient) SeedSeries(s types.CandleSeries) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.series[seriesKey(s.Symbol, s.Timeframe)] = s
}

// SetPrice sets the mark price used for fills and quotes.
func (p *PaperClient) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[symbol] = price
}

// SetLotStep overrides the default lot step for a symbol.
func (p *PaperClient) SetLotStep(symbol string, step float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps[symbol] = step
}

// SetBalance replaces the account balance (used when replaying fills).
func (p *PaperClient) SetBalance(balance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance = balance
}

func (p *PaperClient) FetchCandles(symbol string, tf types.Timeframe, limit int) (types.CandleSeries, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.series[seriesKey(symbol, tf)]
	if !ok {
		return types.CandleSeries{Symbol: symbol, Timeframe: tf}, nil
	}
	if limit > 0 && s.Len() > limit {
		s.Candles = s.Candles[s.Len()-limit:]
	}
	return s, nil
}

func (p *PaperClient) CurrentPrice(symbol string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("paper: no price seeded for %s", symbol)
	}
	return price, nil
}

func (p *PaperClient) AccountBalance(string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance, nil
}

func (p *PaperClient) SetLeverage(string, int) error { return nil }

func (p *PaperClient) PlaceMarketOrder(symbol string, side types.Side, qty float64) (*types.OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price := p.prices[symbol]
	if qty <= 0 {
		return nil, fmt.Errorf("paper: non-positive qty %f", qty)
	}
	p.nextID++
	return &types.OrderAck{
		OrderID:  p.nextID,
		Symbol:   symbol,
		Side:     side,
		Qty:      qty,
		Price:    price,
		Status:   "FILLED",
		PlacedAt: time.Now().UTC(),
	}, nil
}

func (p *PaperClient) PlaceStopOrder(symbol string, side types.Side, qty, stopPrice float64) (*types.OrderAck, error) {
	return p.placeResting(symbol, side, qty, stopPrice)
}

func (p *PaperClient) PlaceTakeProfitOrder(symbol string, side types.Side, qty, price float64) (*types.OrderAck, error) {
	return p.placeResting(symbol, side, qty, price)
}

func (p *PaperClient) placeResting(symbol string, side types.Side, qty, price float64) (*types.OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if qty <= 0 {
		return nil, fmt.Errorf("paper: non-positive qty %f", qty)
	}
	p.nextID++
	p.open[symbol]++
	return &types.OrderAck{
		OrderID:  p.nextID,
		Symbol:   symbol,
		Side:     side,
		Qty:      qty,
		Price:    price,
		Status:   "NEW",
		PlacedAt: time.Now().UTC(),
	}, nil
}

func (p *PaperClient) CancelAllOrders(symbol string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open[symbol] = 0
	return nil
}

// OpenOrders reports the resting order count, useful in tests.
func (p *PaperClient) OpenOrders(symbol string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.open[symbol]
}

func (p *PaperClient) LotStep(symbol string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if step, ok := p.steps[symbol]; ok {
		return step, nil
	}
	return 0.001, nil
}
