// Package pricing fetches metal spot prices and USD exchange rates and keeps
// a periodically refreshed snapshot of them.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

const (
	defaultMetalBaseURL = "https://api.gold-api.com"
	primaryFXURL        = "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies/usd.json"
	fallbackFXURL       = "https://latest.currency-api.pages.dev/v1/currencies/usd.json"
)

// ErrInvalidPrice is returned when a provider answers without a usable number.
var ErrInvalidPrice = errors.New("invalid price data")

// Metal symbols understood by gold-api.com.
const (
	Gold   = "XAU"
	Silver = "XAG"
)

// Quote is one metal's USD price per troy ounce.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	UpdatedAt string  `json:"updated_at"`
}

// MetalClient talks to gold-api.com.
type MetalClient struct {
	httpClient *http.Client
	// BaseURL is exported for testing with httptest.
	BaseURL string
}

// NewMetalClient returns a client; a nil hc uses a 10s timeout client.
func NewMetalClient(hc *http.Client) *MetalClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &MetalClient{httpClient: hc, BaseURL: defaultMetalBaseURL}
}

// FetchPrice fetches the current price for symbol (XAU or XAG).
func (c *MetalClient) FetchPrice(ctx context.Context, symbol string) (Quote, error) {
	var body struct {
		Price             *float64 `json:"price"`
		UpdatedAt         string   `json:"updatedAt"`
		UpdatedAtReadable string   `json:"updatedAtReadable"`
	}
	if err := getJSON(ctx, c.httpClient, c.BaseURL+"/price/"+symbol, &body); err != nil {
		return Quote{}, fmt.Errorf("fetch %s price: %w", symbol, err)
	}
	if body.Price == nil || *body.Price <= 0 {
		return Quote{}, fmt.Errorf("fetch %s price: %w", symbol, ErrInvalidPrice)
	}

	updated := body.UpdatedAtReadable
	if updated == "" {
		updated = body.UpdatedAt
	}
	return Quote{Symbol: symbol, Price: *body.Price, UpdatedAt: updated}, nil
}

// FXClient reads USD conversion rates, trying each URL in order.
type FXClient struct {
	httpClient *http.Client
	URLs       []string
}

// NewFXClient returns a client for the jsDelivr feed with the Cloudflare
// mirror as fallback.
func NewFXClient(hc *http.Client) *FXClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &FXClient{httpClient: hc, URLs: []string{primaryFXURL, fallbackFXURL}}
}

// FetchRates returns USD→INR and USD→EUR from the first URL that answers
// with both.
func (c *FXClient) FetchRates(ctx context.Context) (map[zakaat.Currency]float64, error) {
	var errs []error
	for _, u := range c.URLs {
		rates, err := c.fetch(ctx, u)
		if err == nil {
			return rates, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("fetch FX rates: %w", errors.Join(errs...))
}

func (c *FXClient) fetch(ctx context.Context, u string) (map[zakaat.Currency]float64, error) {
	var body struct {
		USD struct {
			INR *float64 `json:"inr"`
			EUR *float64 `json:"eur"`
		} `json:"usd"`
	}
	if err := getJSON(ctx, c.httpClient, u, &body); err != nil {
		return nil, err
	}
	if body.USD.INR == nil || body.USD.EUR == nil || *body.USD.INR <= 0 || *body.USD.EUR <= 0 {
		return nil, fmt.Errorf("%s: FX rate missing: %w", u, ErrInvalidPrice)
	}
	return map[zakaat.Currency]float64{
		zakaat.INR: *body.USD.INR,
		zakaat.EUR: *body.USD.EUR,
	}, nil
}

func getJSON(ctx context.Context, hc *http.Client, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned status %d", u, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w: %v", u, ErrInvalidPrice, err)
	}
	return nil
}
