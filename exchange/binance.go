package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/volatiq/gotdi/types"
)

const defaultFuturesBaseURL = "https://fapi.binance.com"

// BinanceClient talks to the Binance USD-M futures REST API.
type BinanceClient struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
}

// NewBinanceClient builds a futures client. baseURL may be empty to use
// production; point it at the testnet for paper-adjacent live testing.
func NewBinanceClient(baseURL, apiKey, apiSecret string) *BinanceClient {
	if baseURL == "" {
		baseURL = defaultFuturesBaseURL
	}
	return &BinanceClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (b *BinanceClient) FetchCandles(symbol string, tf types.Timeframe, limit int) (types.CandleSeries, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("limit", strconv.Itoa(limit))

	body, err := b.get("/fapi/v1/klines", q, false)
	if err != nil {
		return types.CandleSeries{}, fmt.Errorf("fetch klines %s/%s: %w", symbol, tf, err)
	}

	// Klines arrive as arrays of mixed strings and numbers.
	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return types.CandleSeries{}, fmt.Errorf("decode klines: %w", err)
	}
	series := types.CandleSeries{Symbol: symbol, Timeframe: tf, Candles: make([]types.Candle, 0, len(raw))}
	for _, k := range raw {
		if len(k) < 6 {
			continue
		}
		openMs, ok := k[0].(float64)
		if !ok {
			continue
		}
		c := types.Candle{OpenTime: time.UnixMilli(int64(openMs)).UTC()}
		if c.Open, err = fieldFloat(k[1]); err != nil {
			return types.CandleSeries{}, err
		}
		if c.High, err = fieldFloat(k[2]); err != nil {
			return types.CandleSeries{}, err
		}
		if c.Low, err = fieldFloat(k[3]); err != nil {
			return types.CandleSeries{}, err
		}
		if c.Close, err = fieldFloat(k[4]); err != nil {
			return types.CandleSeries{}, err
		}
		if c.Volume, err = fieldFloat(k[5]); err != nil {
			return types.CandleSeries{}, err
		}
		series.Candles = append(series.Candles, c)
	}
	return series, nil
}

func (b *BinanceClient) CurrentPrice(symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	body, err := b.get("/fapi/v1/ticker/price", q, false)
	if err != nil {
		return 0, fmt.Errorf("fetch price %s: %w", symbol, err)
	}
	var out struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode price: %w", err)
	}
	return strconv.ParseFloat(out.Price, 64)
}

func (b *BinanceClient) AccountBalance(asset string) (float64, error) {
	body, err := b.get("/fapi/v2/balance", url.Values{}, true)
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	var entries []struct {
		Asset   string `json:"asset"`
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}
	for _, e := range entries {
		if e.Asset == asset {
			return strconv.ParseFloat(e.Balance, 64)
		}
	}
	return 0, fmt.Errorf("asset %s not found in balance response", asset)
}

func (b *BinanceClient) SetLeverage(symbol string, leverage int) error {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("leverage", strconv.Itoa(leverage))
	_, err := b.post("/fapi/v1/leverage", q)
	if err != nil {
		return fmt.Errorf("set leverage %s=%d: %w", symbol, leverage, err)
	}
	return nil
}

func (b *BinanceClient) PlaceMarketOrder(symbol string, side types.Side, qty float64) (*types.OrderAck, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "MARKET")
	q.Set("quantity", formatQty(qty))
	return b.placeOrder(q, side, qty)
}

func (b *BinanceClient) PlaceStopOrder(symbol string, side types.Side, qty, stopPrice float64) (*types.OrderAck, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "STOP_MARKET")
	q.Set("stopPrice", formatQty(stopPrice))
	q.Set("quantity", formatQty(qty))
	return b.placeOrder(q, side, qty)
}

func (b *BinanceClient) PlaceTakeProfitOrder(symbol string, side types.Side, qty, price float64) (*types.OrderAck, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("side", string(side))
	q.Set("type", "TAKE_PROFIT_MARKET")
	q.Set("stopPrice", formatQty(price))
	q.Set("quantity", formatQty(qty))
	return b.placeOrder(q, side, qty)
}

func (b *BinanceClient) placeOrder(q url.Values, side types.Side, qty float64) (*types.OrderAck, error) {
	body, err := b.post("/fapi/v1/order", q)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}
	var out struct {
		OrderID int64  `json:"orderId"`
		Symbol  string `json:"symbol"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode order ack: %w", err)
	}
	return &types.OrderAck{
		OrderID:  out.OrderID,
		Symbol:   out.Symbol,
		Side:     side,
		Qty:      qty,
		Status:   out.Status,
		PlacedAt: time.Now().UTC(),
	}, nil
}

func (b *BinanceClient) CancelAllOrders(symbol string) error {
	q := url.Values{}
	q.Set("symbol", symbol)
	req, err := b.signedRequest(http.MethodDelete, "/fapi/v1/allOpenOrders", q)
	if err != nil {
		return err
	}
	_, err = b.do(req)
	if err != nil {
		return fmt.Errorf("cancel all orders %s: %w", symbol, err)
	}
	return nil
}

func (b *BinanceClient) LotStep(symbol string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	body, err := b.get("/fapi/v1/exchangeInfo", q, false)
	if err != nil {
		return 0, fmt.Errorf("fetch exchange info: %w", err)
	}
	var out struct {
		Symbols []struct {
			Symbol  string `json:"symbol"`
			Filters []struct {
				FilterType string `json:"filterType"`
				StepSize   string `json:"stepSize"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode exchange info: %w", err)
	}
	for _, s := range out.Symbols {
		if s.Symbol != symbol {
			continue
		}
		for _, f := range s.Filters {
			if f.FilterType == "LOT_SIZE" {
				return strconv.ParseFloat(f.StepSize, 64)
			}
		}
	}
	return 0, fmt.Errorf("no LOT_SIZE filter for %s", symbol)
}

func (b *BinanceClient) get(path string, q url.Values, signed bool) ([]byte, error) {
	var req *http.Request
	var err error
	if signed {
		req, err = b.signedRequest(http.MethodGet, path, q)
	} else {
		req, err = http.NewRequest(http.MethodGet, b.baseURL+path+"?"+q.Encode(), nil)
		if err == nil && b.apiKey != "" {
			req.Header.Set("X-MBX-APIKEY", b.apiKey)
		}
	}
	if err != nil {
		return nil, err
	}
	return b.do(req)
}

func (b *BinanceClient) post(path string, q url.Values) ([]byte, error) {
	req, err := b.signedRequest(http.MethodPost, path, q)
	if err != nil {
		return nil, err
	}
	return b.do(req)
}

// signedRequest appends a timestamp and HMAC-SHA256 signature over the
// query string, as the futures API requires for account endpoints.
func (b *BinanceClient) signedRequest(method, path string, q url.Values) (*http.Request, error) {
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	q.Set("recvWindow", "5000")
	payload := q.Encode()

	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(payload))
	sig := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequest(method, b.baseURL+path+"?"+payload+"&signature="+sig, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)
	return req, nil
}

func (b *BinanceClient) do(req *http.Request) ([]byte, error) {
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func fieldFloat(v any) (float64, error) {
	switch t := v.(type) {
	case string:
		return strconv.ParseFloat(t, 64)
	case float64:
		return t, nil
	default:
		return 0, fmt.Errorf("unexpected kline field type %T", v)
	}
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
