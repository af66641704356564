package pricing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smokyabdulrahman/namaz/internal/zakaat"
)

// FallbackNotice is shown whenever any price had to be substituted.
const FallbackNotice = "Live prices unavailable, using fallback values."

// Snapshot is the result of one fetch of every price source. Values that
// could not be fetched are zero and named in Err.
type Snapshot struct {
	GoldPerOunce   float64                     `json:"gold_per_ounce"`
	SilverPerOunce float64                     `json:"silver_per_ounce"`
	Rates          map[zakaat.Currency]float64 `json:"rates"`
	UpdatedAt      string                      `json:"updated_at,omitempty"`
	FetchedAt      time.Time                   `json:"fetched_at"`
	Err            string                      `json:"error,omitempty"`
}

// Complete reports whether every source answered.
func (s Snapshot) Complete() bool {
	return s.Err == "" && s.GoldPerOunce > 0 && s.SilverPerOunce > 0 &&
		s.Rates[zakaat.INR] > 0 && s.Rates[zakaat.EUR] > 0
}

// Resolve fills whatever is missing from profile. The returned Prices are
// flagged Fallback when anything was substituted.
func (s Snapshot) Resolve(profile zakaat.Profile) zakaat.Prices {
	return zakaat.Prices{
		GoldPerOunce:   s.GoldPerOunce,
		SilverPerOunce: s.SilverPerOunce,
		Rates:          s.Rates,
		Fallback:       s.Err != "",
	}.WithFallback(profile)
}

// Fetcher fetches a Snapshot from the metal and FX providers.
type Fetcher struct {
	Metals *MetalClient
	FX     *FXClient
}

// NewFetcher returns a Fetcher using hc for every provider.
func NewFetcher(hc *http.Client) *Fetcher {
	return &Fetcher{Metals: NewMetalClient(hc), FX: NewFXClient(hc)}
}

// FetchSnapshot queries gold, silver and FX concurrently. A failing source
// does not cancel the others; its error is recorded in Snapshot.Err.
func (f *Fetcher) FetchSnapshot(ctx context.Context) Snapshot {
	var (
		gold, silver       Quote
		rates              map[zakaat.Currency]float64
		goldErr, silverErr error
		fxErr              error
	)

	var g errgroup.Group
	g.Go(func() error {
		gold, goldErr = f.Metals.FetchPrice(ctx, Gold)
		return nil
	})
	g.Go(func() error {
		silver, silverErr = f.Metals.FetchPrice(ctx, Silver)
		return nil
	})
	g.Go(func() error {
		rates, fxErr = f.FX.FetchRates(ctx)
		return nil
	})
	g.Wait()

	snap := Snapshot{
		GoldPerOunce:   gold.Price,
		SilverPerOunce: silver.Price,
		Rates:          rates,
		UpdatedAt:      gold.UpdatedAt,
		FetchedAt:      time.Now(),
	}
	if snap.UpdatedAt == "" {
		snap.UpdatedAt = silver.UpdatedAt
	}

	var msgs []string
	for _, err := range []error{goldErr, silverErr, fxErr} {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	snap.Err = strings.Join(msgs, "; ")
	return snap
}
