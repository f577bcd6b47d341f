package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	apperrors "okx-trader/internal/errors"
	"okx-trader/internal/models"
)

const okxBaseURL = "https://www.okx.com"

// OKXClient implements the Client interface against the OKX v5 REST API.
type OKXClient struct {
	apiKey     string
	apiSecret  string
	passphrase string
	demo       bool
	baseURL    string
	httpClient *http.Client
}

// OKXConfig holds configuration for the OKX client.
type OKXConfig struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Demo       bool
	BaseURL    string
}

// NewOKXClient creates a new OKX REST client.
func NewOKXClient(cfg OKXConfig) *OKXClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = okxBaseURL
	}
	return &OKXClient{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		passphrase: cfg.Passphrase,
		demo:       cfg.Demo,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// apiResponse is the envelope of every OKX v5 response.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *OKXClient) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*apiResponse, error) {
	requestPath := path
	if len(query) > 0 {
		requestPath = path + "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(ts, method, requestPath, payload))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passphrase)
	}
	if c.demo {
		req.Header.Set("x-simulated-trading", "1")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding response of %s: %w", path, err)
	}
	return &out, nil
}

// sign computes the OKX v5 request signature:
// Base64(HMAC-SHA256(secret, timestamp + method + requestPath + body)).
func (c *OKXClient) sign(timestamp, method, requestPath string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp + method + requestPath))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// GetAvailableBalance returns the available balance of one currency.
func (c *OKXClient) GetAvailableBalance(ctx context.Context, currency string) (float64, error) {
	q := url.Values{}
	q.Set("ccy", currency)
	resp, err := c.do(ctx, http.MethodGet, "/api/v5/account/balance", q, nil)
	if err != nil {
		return 0, err
	}
	if resp.Code != "0" {
		return 0, apperrors.NewExchangeError(resp.Code, "get balance", resp.Msg)
	}

	var data []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
		} `json:"details"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("decoding balance: %w", err)
	}
	for _, acct := range data {
		for _, d := range acct.Details {
			if d.Ccy == currency {
				return parseFloat(d.AvailBal), nil
			}
		}
	}
	return 0, nil
}

// okxPosition mirrors the position fields the bot consumes.
type okxPosition struct {
	InstID      string `json:"instId"`
	PosSide     string `json:"posSide"`
	AvgPx       string `json:"avgPx"`
	MarkPx      string `json:"markPx"`
	Lever       string `json:"lever"`
	Margin      string `json:"margin"`
	NotionalUSD string `json:"notionalUsd"`
	Pos         string `json:"pos"`
}

// GetPositions returns the exchange's open positions for an instrument type.
func (c *OKXClient) GetPositions(ctx context.Context, instType string) ([]models.Position, error) {
	q := url.Values{}
	q.Set("instType", instType)
	resp, err := c.do(ctx, http.MethodGet, "/api/v5/account/positions", q, nil)
	if err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, apperrors.NewExchangeError(resp.Code, "get positions", resp.Msg)
	}

	var raw []okxPosition
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, fmt.Errorf("decoding positions: %w", err)
	}

	positions := make([]models.Position, 0, len(raw))
	for _, p := range raw {
		// Zero-sized rows linger briefly after a close.
		if parseFloat(p.Pos) == 0 {
			continue
		}
		positions = append(positions, models.Position{
			InstID:      p.InstID,
			Side:        models.Side(p.PosSide),
			AvgPrice:    parseFloat(p.AvgPx),
			MarkPrice:   parseFloat(p.MarkPx),
			Leverage:    parseFloat(p.Lever),
			Margin:      parseFloat(p.Margin),
			NotionalUSD: parseFloat(p.NotionalUSD),
		})
	}
	return positions, nil
}

// GetInstrumentMetadata returns contract metadata for the requested instruments.
func (c *OKXClient) GetInstrumentMetadata(ctx context.Context, instType string, instIDs []string) (map[string]models.InstrumentMeta, error) {
	q := url.Values{}
	q.Set("instType", instType)
	resp, err := c.do(ctx, http.MethodGet, "/api/v5/public/instruments", q, nil)
	if err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, apperrors.NewExchangeError(resp.Code, "get instruments", resp.Msg)
	}

	var raw []struct {
		InstID string `json:"instId"`
		CtVal  string `json:"ctVal"`
		MinSz  string `json:"minSz"`
		LotSz  string `json:"lotSz"`
	}
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, fmt.Errorf("decoding instruments: %w", err)
	}

	wanted := make(map[string]bool, len(instIDs))
	for _, id := range instIDs {
		wanted[id] = true
	}

	meta := make(map[string]models.InstrumentMeta)
	for _, inst := range raw {
		if !wanted[inst.InstID] {
			continue
		}
		meta[inst.InstID] = models.InstrumentMeta{
			InstID:   inst.InstID,
			CtVal:    parseFloat(inst.CtVal),
			MinSize:  parseFloat(inst.MinSz),
			StepSize: parseFloat(inst.LotSz),
		}
	}
	return meta, nil
}

// SetLeverage sets isolated leverage for both position sides of an instrument.
func (c *OKXClient) SetLeverage(ctx context.Context, instID string, leverage float64) error {
	for _, posSide := range []models.Side{models.SideLong, models.SideShort} {
		body := map[string]string{
			"instId":  instID,
			"lever":   formatFloat(leverage),
			"mgnMode": "isolated",
			"posSide": string(posSide),
		}
		resp, err := c.do(ctx, http.MethodPost, "/api/v5/account/set-leverage", nil, body)
		if err != nil {
			return err
		}
		if resp.Code != "0" {
			return apperrors.NewExchangeError(resp.Code, "set leverage "+instID, resp.Msg)
		}
	}
	return nil
}

// orderAckData is the per-order element of a trade endpoint response.
type orderAckData struct {
	OrdID string `json:"ordId"`
	SCode string `json:"sCode"`
	SMsg  string `json:"sMsg"`
}

// SubmitMarketOrder places an isolated-margin market order tagged with
// the caller's client order id.
func (c *OKXClient) SubmitMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderAck, error) {
	side := "buy"
	if req.PosSide == models.SideShort {
		side = "sell"
	}
	body := map[string]string{
		"instId":     req.InstID,
		"tdMode":     "isolated",
		"ccy":        "USDT",
		"clOrdId":    req.ClOrdID,
		"side":       side,
		"posSide":    string(req.PosSide),
		"ordType":    "market",
		"sz":         formatFloat(req.Size),
		"reduceOnly": strconv.FormatBool(req.ReduceOnly),
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", nil, body)
	if err != nil {
		return OrderAck{}, err
	}
	return decodeAck(resp), nil
}

// ClosePosition uses the exchange's close-position primitive. The
// client order id is sent so the fill can be queried afterwards; the
// endpoint itself does not return an order id.
func (c *OKXClient) ClosePosition(ctx context.Context, instID string, posSide models.Side, clOrdID string) (OrderAck, error) {
	body := map[string]string{
		"instId":  instID,
		"mgnMode": "isolated",
		"posSide": string(posSide),
		"ccy":     "USDT",
		"autoCxl": "true",
		"clOrdId": clOrdID,
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/v5/trade/close-position", nil, body)
	if err != nil {
		return OrderAck{}, err
	}
	return decodeAck(resp), nil
}

func decodeAck(resp *apiResponse) OrderAck {
	ack := OrderAck{Code: resp.Code, Message: resp.Msg}
	var data []orderAckData
	if err := json.Unmarshal(resp.Data, &data); err == nil && len(data) > 0 {
		ack.OrderID = data[0].OrdID
		// Per-order codes override the envelope when present.
		if data[0].SCode != "" {
			ack.Code = data[0].SCode
			if data[0].SMsg != "" {
				ack.Message = data[0].SMsg
			}
		}
	}
	return ack
}

// GetOrderByClientID queries an order by client order id. A not-found
// answer is reported as Found=false, not as an error: order indexing
// on the exchange lags the submission by up to a second.
func (c *OKXClient) GetOrderByClientID(ctx context.Context, instID, clOrdID string) (models.OrderStatus, error) {
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("clOrdId", clOrdID)
	resp, err := c.do(ctx, http.MethodGet, "/api/v5/trade/order", q, nil)
	if err != nil {
		return models.OrderStatus{}, err
	}
	if resp.Code != "0" {
		// 51603: order does not exist (yet).
		if resp.Code == "51603" {
			return models.OrderStatus{}, nil
		}
		return models.OrderStatus{}, apperrors.NewExchangeError(resp.Code, "get order", resp.Msg)
	}

	var raw []struct {
		FillTime string `json:"fillTime"`
		AvgPx    string `json:"avgPx"`
		FillSz   string `json:"accFillSz"`
		Fee      string `json:"fee"`
		PnL      string `json:"pnl"`
		State    string `json:"state"`
	}
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return models.OrderStatus{}, fmt.Errorf("decoding order: %w", err)
	}
	if len(raw) == 0 {
		return models.OrderStatus{}, nil
	}

	o := raw[0]
	return models.OrderStatus{
		Found:    true,
		FillTime: parseInt(o.FillTime),
		AvgPrice: parseFloat(o.AvgPx),
		FillSize: parseFloat(o.FillSz),
		Fee:      parseFloat(o.Fee),
		PnL:      parseFloat(o.PnL),
		State:    o.State,
	}, nil
}

// GetCandles returns confirmed candles in ascending time order. The
// exchange sends newest-first rows with a confirm flag; unconfirmed
// (in-progress) bars are dropped here so they can never be evaluated.
func (c *OKXClient) GetCandles(ctx context.Context, instID, bar string, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("bar", bar)
	q.Set("limit", strconv.Itoa(limit))
	resp, err := c.do(ctx, http.MethodGet, "/api/v5/market/candles", q, nil)
	if err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, apperrors.NewExchangeError(resp.Code, "get candles "+instID, resp.Msg)
	}

	var rows [][]string
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		return nil, fmt.Errorf("decoding candles: %w", err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 9 || row[8] != "1" {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: time.UnixMilli(parseInt(row[0])),
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
