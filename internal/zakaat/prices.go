package zakaat

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// TroyOunceGrams is the mass of one troy ounce.
	TroyOunceGrams = 31.1034768
	// GoldNisabOunces is the Nisab measured in gold.
	GoldNisabOunces = 2.5
	// SilverNisabOunces is the Nisab measured in silver.
	SilverNisabOunces = 52.5
	// Rate is the share of qualifying wealth due as Zakaat.
	Rate = 0.025
)

var (
	troyOunce   = decimal.NewFromFloat(TroyOunceGrams)
	goldNisab   = decimal.NewFromFloat(GoldNisabOunces).Mul(troyOunce)
	silverNisab = decimal.NewFromFloat(SilverNisabOunces).Mul(troyOunce)
	zakaatRate  = decimal.NewFromFloat(Rate)
)

// Prices are USD spot prices per troy ounce plus USD conversion rates.
// A zero value means "not known"; WithFallback fills those in.
type Prices struct {
	GoldPerOunce   float64              `json:"gold_per_ounce"`
	SilverPerOunce float64              `json:"silver_per_ounce"`
	Rates          map[Currency]float64 `json:"rates"`
	// Fallback is set when any value came from a Profile instead of a live source.
	Fallback bool `json:"fallback"`
}

// Profile is a named set of substitute prices used when live data is missing.
type Profile struct {
	Name           string
	GoldPerOunce   float64
	SilverPerOunce float64
	Rates          map[Currency]float64
}

// FallbackProfile holds the static values used when the price feeds are down.
var FallbackProfile = Profile{
	Name:           "static",
	GoldPerOunce:   2000,
	SilverPerOunce: 25,
	Rates: map[Currency]float64{
		INR: 83.5,
		EUR: 0.92,
	},
}

// WithFallback returns a copy of p with every missing value taken from profile.
func (p Prices) WithFallback(profile Profile) Prices {
	out := Prices{
		GoldPerOunce:   p.GoldPerOunce,
		SilverPerOunce: p.SilverPerOunce,
		Rates:          make(map[Currency]float64, len(profile.Rates)),
		Fallback:       p.Fallback,
	}
	if out.GoldPerOunce <= 0 {
		out.GoldPerOunce = profile.GoldPerOunce
		out.Fallback = true
	}
	if out.SilverPerOunce <= 0 {
		out.SilverPerOunce = profile.SilverPerOunce
		out.Fallback = true
	}
	for c, r := range p.Rates {
		if r > 0 {
			out.Rates[c] = r
		}
	}
	for c, r := range profile.Rates {
		if _, ok := out.Rates[c]; !ok {
			out.Rates[c] = r
			out.Fallback = true
		}
	}
	return out
}

// RateFor returns the USD→currency multiplier. USD is always 1.
func (p Prices) RateFor(c Currency) (decimal.Decimal, error) {
	if c == USD {
		return decimal.NewFromInt(1), nil
	}
	r, ok := p.Rates[c]
	if !ok || r <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no USD rate for %s", ErrUnsupportedCurrency, c)
	}
	return decimal.NewFromFloat(r), nil
}

// Pricing is the per-gram view of Prices in one currency. Values are unrounded.
type Pricing struct {
	Currency         Currency        `json:"currency"`
	GoldPerGram      decimal.Decimal `json:"gold_per_gram"`
	SilverPerGram    decimal.Decimal `json:"silver_per_gram"`
	GoldNisabValue   decimal.Decimal `json:"gold_nisab_value"`
	SilverNisabValue decimal.Decimal `json:"silver_nisab_value"`
	NisabThreshold   decimal.Decimal `json:"nisab_threshold"`
}

// PricePerGram converts a USD per-ounce price into currency per gram.
func PricePerGram(perOunce float64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(perOunce).Mul(rate).Div(troyOunce)
}

// DerivePricing computes per-gram prices and both Nisab values in currency.
// The threshold is the lower of the gold and silver Nisab.
func DerivePricing(p Prices, c Currency) (Pricing, error) {
	rate, err := p.RateFor(c)
	if err != nil {
		return Pricing{}, err
	}
	if p.GoldPerOunce <= 0 || p.SilverPerOunce <= 0 {
		return Pricing{}, fmt.Errorf("metal prices missing (gold=%v silver=%v)", p.GoldPerOunce, p.SilverPerOunce)
	}

	gold := PricePerGram(p.GoldPerOunce, rate)
	silver := PricePerGram(p.SilverPerOunce, rate)
	goldValue := goldNisab.Mul(gold)
	silverValue := silverNisab.Mul(silver)

	return Pricing{
		Currency:         c,
		GoldPerGram:      gold,
		SilverPerGram:    silver,
		GoldNisabValue:   goldValue,
		SilverNisabValue: silverValue,
		NisabThreshold:   decimal.Min(goldValue, silverValue),
	}, nil
}
