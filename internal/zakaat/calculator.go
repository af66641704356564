// Package zakaat computes the annual Zakaat due on declared wealth.
package zakaat

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// WealthDeclaration is what the user owns. Metals are in grams, everything
// else is already in the chosen currency.
type WealthDeclaration struct {
	Cash        float64 `json:"cash"`
	Savings     float64 `json:"savings"`
	GoldGrams   float64 `json:"gold_grams"`
	SilverGrams float64 `json:"silver_grams"`
	Stocks      float64 `json:"stocks"`
	Crypto      float64 `json:"crypto"`
	Other       float64 `json:"other"`
}

// Normalize clamps negative and non-finite fields to zero.
func (d WealthDeclaration) Normalize() WealthDeclaration {
	return WealthDeclaration{
		Cash:        clamp(d.Cash),
		Savings:     clamp(d.Savings),
		GoldGrams:   clamp(d.GoldGrams),
		SilverGrams: clamp(d.SilverGrams),
		Stocks:      clamp(d.Stocks),
		Crypto:      clamp(d.Crypto),
		Other:       clamp(d.Other),
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Amount is a money value rounded to cents. It encodes as a JSON string
// with exactly two decimal places.
type Amount struct {
	decimal.Decimal
}

func amount(d decimal.Decimal) Amount {
	return Amount{d.Round(2)}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.StringFixed(2))), nil
}

// Breakdown splits TotalWealth by asset class.
type Breakdown struct {
	GoldValue    Amount `json:"gold_value"`
	SilverValue  Amount `json:"silver_value"`
	LiquidAssets Amount `json:"liquid_assets"`
	Investments  Amount `json:"investments"`
}

// Sum adds the four components.
func (b Breakdown) Sum() decimal.Decimal {
	return b.GoldValue.Add(b.SilverValue.Decimal).Add(b.LiquidAssets.Decimal).Add(b.Investments.Decimal)
}

// Result is a completed calculation. All amounts carry two decimal places.
type Result struct {
	Currency       Currency  `json:"currency"`
	TotalWealth    Amount    `json:"total_wealth"`
	NisabThreshold Amount    `json:"nisab_threshold"`
	IsEligible     bool      `json:"is_eligible"`
	ZakaatAmount   Amount    `json:"zakaat_amount"`
	Breakdown      Breakdown `json:"breakdown"`
	Pricing        Pricing   `json:"pricing"`
	// Fallback is set when any price used came from the fallback profile.
	Fallback bool `json:"fallback"`
}

// Calculator computes Zakaat with missing prices filled from Profile.
type Calculator struct {
	Profile Profile
}

// NewCalculator returns a Calculator using FallbackProfile.
func NewCalculator() *Calculator {
	return &Calculator{Profile: FallbackProfile}
}

// Calculate evaluates decl against prices in currency c.
//
// Eligibility and the amount due are decided on full-precision values; every
// output is rounded to cents once. TotalWealth is the sum of the rounded
// breakdown components.
func (calc *Calculator) Calculate(decl WealthDeclaration, prices Prices, c Currency) (*Result, error) {
	prices = prices.WithFallback(calc.Profile)
	pricing, err := DerivePricing(prices, c)
	if err != nil {
		return nil, err
	}

	d := decl.Normalize()
	gold := decimal.NewFromFloat(d.GoldGrams).Mul(pricing.GoldPerGram)
	silver := decimal.NewFromFloat(d.SilverGrams).Mul(pricing.SilverPerGram)
	liquid := sum(d.Cash, d.Savings)
	investments := sum(d.Stocks, d.Crypto, d.Other)

	total := gold.Add(silver).Add(liquid).Add(investments)
	eligible := total.GreaterThanOrEqual(pricing.NisabThreshold)

	due := decimal.Zero
	if eligible {
		due = total.Mul(zakaatRate)
	}

	breakdown := Breakdown{
		GoldValue:    amount(gold),
		SilverValue:  amount(silver),
		LiquidAssets: amount(liquid),
		Investments:  amount(investments),
	}

	return &Result{
		Currency:       c,
		TotalWealth:    Amount{breakdown.Sum()},
		NisabThreshold: amount(pricing.NisabThreshold),
		IsEligible:     eligible,
		ZakaatAmount:   amount(due),
		Breakdown:      breakdown,
		Pricing:        pricing,
		Fallback:       prices.Fallback,
	}, nil
}

func sum(vs ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vs {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}
