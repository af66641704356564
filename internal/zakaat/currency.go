package zakaat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedCurrency is returned for a currency without a known USD rate.
var ErrUnsupportedCurrency = errors.New("unsupported currency")

// Currency is an ISO 4217 code.
type Currency string

const (
	USD Currency = "USD"
	INR Currency = "INR"
	EUR Currency = "EUR"
)

// Currencies lists the supported currencies in display order.
var Currencies = []Currency{INR, USD, EUR}

// DefaultCurrency is used when none is configured.
const DefaultCurrency = INR

// ParseCurrency accepts a currency code in any case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Currencies {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q (use INR, USD or EUR)", ErrUnsupportedCurrency, s)
}

// Symbol returns the display symbol for the currency.
func (c Currency) Symbol() string {
	switch c {
	case USD:
		return "$"
	case EUR:
		return "€"
	case INR:
		return "₹"
	default:
		return string(c) + " "
	}
}
