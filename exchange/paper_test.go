package exchange

import (
	"testing"
	"time"

	"github.com/volatiq/gotdi/types"
)

func TestPaperClientFillsAtSeededPrice(t *testing.T) {
	p := NewPaperClient(1000)
	p.SetPrice("BTCUSDT", 50_000)

	ack, err := p.PlaceMarketOrder("BTCUSDT", types.Buy, 0.5)
	if err != nil {
		t.Fatalf("PlaceMarketOrder: %v", err)
	}
	if ack.Status != "FILLED" || ack.Price != 50_000 || ack.Qty != 0.5 {
		t.Fatalf("ack = %+v", ack)
	}

	if _, err := p.PlaceMarketOrder("BTCUSDT", types.Buy, 0); err == nil {
		t.Fatal("zero quantity should be rejected")
	}
}

func TestPaperClientRestingOrders(t *testing.T) {
	p := NewPaperClient(1000)

	if _, err := p.PlaceStopOrder("BTCUSDT", types.Sell, 0.5, 48_000); err != nil {
		t.Fatalf("PlaceStopOrder: %v", err)
	}
	if _, err := p.PlaceTakeProfitOrder("BTCUSDT", types.Sell, 0.25, 55_000); err != nil {
		t.Fatalf("PlaceTakeProfitOrder: %v", err)
	}
	if n := p.OpenOrders("BTCUSDT"); n != 2 {
		t.Fatalf("open orders = %d, want 2", n)
	}

	if err := p.CancelAllOrders("BTCUSDT"); err != nil {
		t.Fatalf("CancelAllOrders: %v", err)
	}
	if n := p.OpenOrders("BTCUSDT"); n != 0 {
		t.Fatalf("open orders after cancel = %d, want 0", n)
	}
}

func TestPaperClientCandleLimit(t *testing.T) {
	p := NewPaperClient(1000)
	candles := make([]types.Candle, 10)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = types.Candle{OpenTime: start.Add(time.Duration(i) * time.Hour), Close: float64(100 + i)}
	}
	p.SeedSeries(types.CandleSeries{Symbol: "BTCUSDT", Timeframe: types.TF1h, Candles: candles})

	s, err := p.FetchCandles("BTCUSDT", types.TF1h, 4)
	if err != nil {
		t.Fatalf("FetchCandles: %v", err)
	}
	if s.Len() != 4 {
		t.Fatalf("len = %d, want 4", s.Len())
	}
	// The tail of the series survives the trim.
	if last, _ := s.Last(); last.Close != 109 {
		t.Fatalf("last close = %f, want 109", last.Close)
	}

	// Unseeded pairs return an empty series, not an error.
	s, err = p.FetchCandles("ETHUSDT", types.TF1h, 4)
	if err != nil || s.Len() != 0 {
		t.Fatalf("unseeded fetch = %+v, %v", s, err)
	}
}

func TestPaperClientBalanceAndLotStep(t *testing.T) {
	p := NewPaperClient(2500)
	if b, _ := p.AccountBalance("USDT"); b != 2500 {
		t.Fatalf("balance = %f, want 2500", b)
	}
	p.SetBalance(3000)
	if b, _ := p.AccountBalance("USDT"); b != 3000 {
		t.Fatalf("balance = %f, want 3000", b)
	}

	if step, _ := p.LotStep("BTCUSDT"); step != 0.001 {
		t.Fatalf("default lot step = %f, want 0.001", step)
	}
	p.SetLotStep("BTCUSDT", 0.01)
	if step, _ := p.LotStep("BTCUSDT"); step != 0.01 {
		t.Fatalf("lot step = %f, want 0.01", step)
	}
}
