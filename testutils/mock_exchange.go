// Package testutils provides scripted doubles for the exchange client
// and logger used across package tests.
package testutils

import (
	"fmt"
	"sync"

	"github.com/volatiq/gotdi/types"
)

// MockOrder records one order submission for later assertions.
type MockOrder struct {
	Symbol string
	Side   types.Side
	Qty    float64
	Price  float64 // stop or take-profit trigger, zero for market orders
	Type   string  // "market", "stop", "take_profit"
}

// MockExchange is a scripted exchange.Client. Seed it with candles,
// prices and balances, flip the Fail* switches to simulate outages, and
// inspect Orders afterwards.
type MockExchange struct {
	mu sync.Mutex

	Series   map[string]types.CandleSeries // keyed by symbol + "/" + timeframe
	Prices   map[string]float64
	Balance  float64
	Step     float64
	Leverage map[string]int

	FailFetch       bool
	FailPrice       bool
	FailBalance     bool
	FailLeverage    bool
	FailMarketOrder bool
	FailStopOrder   bool
	FailTPOrder     bool
	FailCancel      bool

	Orders  []MockOrder
	Cancels int

	nextID int64
}

// NewMockExchange builds a mock with the given balance and a 0.001 lot step.
func NewMockExchange(balance float64) *MockExchange {
	return &MockExchange{
		Series:   make(map[string]types.CandleSeries),
		Prices:   make(map[string]float64),
		Balance:  balance,
		Step:     0.001,
		Leverage: make(map[string]int),
	}
}

// Seed installs the candle history served for the series' symbol/timeframe.
func (m *MockExchange) Seed(s types.CandleSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Series[s.Symbol+"/"+string(s.Timeframe)] = s
}

func (m *MockExchange) FetchCandles(symbol string, tf types.Timeframe, limit int) (types.CandleSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailFetch {
		return types.CandleSeries{}, fmt.Errorf("mock: fetch failure")
	}
	s, ok := m.Series[symbol+"/"+string(tf)]
	if !ok {
		return types.CandleSeries{Symbol: symbol, Timeframe: tf}, nil
	}
	if limit > 0 && s.Len() > limit {
		s.Candles = s.Candles[s.Len()-limit:]
	}
	return s, nil
}

func (m *MockExchange) CurrentPrice(symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPrice {
		return 0, fmt.Errorf("mock: price failure")
	}
	price, ok := m.Prices[symbol]
	if !ok {
		return 0, fmt.Errorf("mock: no price for %s", symbol)
	}
	return price, nil
}

func (m *MockExchange) AccountBalance(string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailBalance {
		return 0, fmt.Errorf("mock: balance failure")
	}
	return m.Balance, nil
}

func (m *MockExchange) SetLeverage(symbol string, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLeverage {
		return fmt.Errorf("mock: leverage failure")
	}
	m.Leverage[symbol] = leverage
	return nil
}

func (m *MockExchange) PlaceMarketOrder(symbol string, side types.Side, qty float64) (*types.OrderAck, error) {
	return m.record(symbol, side, qty, 0, "market", m.failMarket())
}

func (m *MockExchange) PlaceStopOrder(symbol string, side types.Side, qty, stopPrice float64) (*types.OrderAck, error) {
	return m.record(symbol, side, qty, stopPrice, "stop", m.failStop())
}

func (m *MockExchange) PlaceTakeProfitOrder(symbol string, side types.Side, qty, price float64) (*types.OrderAck, error) {
	return m.record(symbol, side, qty, price, "take_profit", m.failTP())
}

func (m *MockExchange) failMarket() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.FailMarketOrder }
func (m *MockExchange) failStop() bool   { m.mu.Lock(); defer m.mu.Unlock(); return m.FailStopOrder }
func (m *MockExchange) failTP() bool     { m.mu.Lock(); defer m.mu.Unlock(); return m.FailTPOrder }

func (m *MockExchange) record(symbol string, side types.Side, qty, price float64, kind string, fail bool) (*types.OrderAck, error) {
	if fail {
		return nil, fmt.Errorf("mock: %s order failure", kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.Orders = append(m.Orders, MockOrder{
		Symbol: symbol,
		Side:   side,
		Qty:    qty,
		Price:  price,
		Type:   kind,
	})
	return &types.OrderAck{
		OrderID: m.nextID,
		Symbol:  symbol,
		Side:    side,
		Qty:     qty,
		Price:   price,
		Status:  "FILLED",
	}, nil
}

func (m *MockExchange) CancelAllOrders(string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCancel {
		return fmt.Errorf("mock: cancel failure")
	}
	m.Cancels++
	return nil
}

func (m *MockExchange) LotStep(string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Step, nil
}

// OrdersOfType filters the recorded orders by kind.
func (m *MockExchange) OrdersOfType(kind string) []MockOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockOrder
	for _, o := range m.Orders {
		if o.Type == kind {
			out = append(out, o)
		}
	}
	return out
}
