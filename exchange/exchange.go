// Package exchange defines the capability interface the strategy core
// consumes, plus the paper and Binance USD-M futures implementations.
package exchange

import (
	"github.com/volatiq/gotdi/types"
)

// Client is the connectivity contract injected into the strategy core.
// Every call may fail; the core recovers by aborting the current action
// and retrying on the next cycle.
type Client interface {
	// FetchCandles returns up to limit bars, oldest first. An empty
	// series means the timeframe is unavailable this cycle.
	FetchCandles(symbol string, tf types.Timeframe, limit int) (types.CandleSeries, error)
	CurrentPrice(symbol string) (float64, error)
	AccountBalance(asset string) (float64, error)

	SetLeverage(symbol string, leverage int) error
	PlaceMarketOrder(symbol string, side types.Side, qty float64) (*types.OrderAck, error)
	PlaceStopOrder(symbol string, side types.Side, qty, stopPrice float64) (*types.OrderAck, error)
	PlaceTakeProfitOrder(symbol string, side types.Side, qty, price float64) (*types.OrderAck, error)
	CancelAllOrders(symbol string) error

	// LotStep returns the quantity rounding granularity for a symbol.
	LotStep(symbol string) (float64, error)
}
