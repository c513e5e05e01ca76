package broker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"StopLineTrader/internal/model"
)

// BridgeBroker implements Broker against a brokerage sidecar's REST API.
type BridgeBroker struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewBridgeBroker creates a bridge client with optional proxy support.
func NewBridgeBroker(baseURL, apiKey, proxyURL string) *BridgeBroker {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &BridgeBroker{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}
}

func (b *BridgeBroker) Name() string { return "bridge" }

func (b *BridgeBroker) do(method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d, body: %s", method, endpoint, resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (b *BridgeBroker) CurrentPrice(symbol string) (float64, error) {
	var result struct {
		Price float64 `json:"price"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/quote?symbol=%s", b.BaseURL, url.QueryEscape(symbol))
	if err := b.do("GET", endpoint, nil, &result); err != nil {
		return 0, err
	}
	return result.Price, nil
}

func (b *BridgeBroker) PriceHistory(symbol string, count int) ([]float64, error) {
	var result struct {
		Prices []float64 `json:"prices"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/history?symbol=%s&count=%d", b.BaseURL, url.QueryEscape(symbol), count)
	if err := b.do("GET", endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result.Prices, nil
}

// bridgePosition is the expected JSON shape of the sidecar's position view.
type bridgePosition struct {
	Shares    int     `json:"shares"`
	CostBasis float64 `json:"cost_basis"`
}

func (b *BridgeBroker) position(symbol string) (bridgePosition, error) {
	var pos bridgePosition
	endpoint := fmt.Sprintf("%s/api/v1/position?symbol=%s", b.BaseURL, url.QueryEscape(symbol))
	err := b.do("GET", endpoint, nil, &pos)
	return pos, err
}

func (b *BridgeBroker) CostBasis(symbol string) (float64, bool) {
	pos, err := b.position(symbol)
	if err != nil {
		log.Printf("[WARN] bridge position %s: %v", symbol, err)
		return 0, false
	}
	if pos.Shares == 0 {
		return 0, false
	}
	return pos.CostBasis, true
}

func (b *BridgeBroker) SharesHeld(symbol string) int {
	pos, err := b.position(symbol)
	if err != nil {
		log.Printf("[WARN] bridge position %s: %v", symbol, err)
		return 0
	}
	return pos.Shares
}

func (b *BridgeBroker) PlaceOrder(symbol string, qty int, limit float64) (string, error) {
	payload := map[string]any{
		"symbol":   symbol,
		"quantity": qty,
		"limit":    limit,
	}
	var result struct {
		Handle string `json:"handle"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/orders", b.BaseURL)
	if err := b.do("POST", endpoint, payload, &result); err != nil {
		return "", err
	}
	return result.Handle, nil
}

func (b *BridgeBroker) OpenOrders(symbol string) ([]model.OpenOrder, error) {
	var result struct {
		Orders []struct {
			Symbol   string `json:"symbol"`
			Quantity int    `json:"quantity"`
			Filled   int    `json:"filled"`
			Handle   string `json:"handle"`
		} `json:"orders"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/orders", b.BaseURL)
	if symbol != "" {
		endpoint += "?symbol=" + url.QueryEscape(symbol)
	}
	if err := b.do("GET", endpoint, nil, &result); err != nil {
		return nil, err
	}
	orders := make([]model.OpenOrder, len(result.Orders))
	for i, o := range result.Orders {
		orders[i] = model.OpenOrder{Symbol: o.Symbol, Qty: o.Quantity, Filled: o.Filled, Handle: o.Handle}
	}
	return orders, nil
}

func (b *BridgeBroker) CancelOrder(handle string) error {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%s", b.BaseURL, url.PathEscape(handle))
	return b.do("DELETE", endpoint, nil, nil)
}
