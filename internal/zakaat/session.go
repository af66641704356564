package zakaat

import (
	"errors"
	"sync"
)

// ErrStaleResult is returned by Session.Result after the currency changed
// and before the next Calculate.
var ErrStaleResult = errors.New("no current result: recalculate for the selected currency")

// Session tracks one user's currency, declaration and last result.
// Switching currency discards the result instead of converting it.
type Session struct {
	calc *Calculator

	mu       sync.Mutex
	currency Currency
	decl     WealthDeclaration
	result   *Result
}

// NewSession starts a session in currency c.
func NewSession(calc *Calculator, c Currency) *Session {
	if calc == nil {
		calc = NewCalculator()
	}
	return &Session{calc: calc, currency: c}
}

// Currency returns the selected currency.
func (s *Session) Currency() Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency
}

// SetCurrency selects c. A different currency clears the last result.
func (s *Session) SetCurrency(c Currency) error {
	if _, err := ParseCurrency(string(c)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c != s.currency {
		s.currency = c
		s.result = nil
	}
	return nil
}

// Declare replaces the wealth declaration. The last result is kept until
// the next Calculate, matching a form that is edited before resubmitting.
func (s *Session) Declare(d WealthDeclaration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decl = d.Normalize()
}

// Declaration returns the normalized declaration.
func (s *Session) Declaration() WealthDeclaration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decl
}

// Calculate runs the calculator for the current declaration and currency
// and stores the result.
func (s *Session) Calculate(prices Prices) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.calc.Calculate(s.decl, prices, s.currency)
	if err != nil {
		return nil, err
	}
	s.result = res
	return res, nil
}

// Result returns the last result, or ErrStaleResult if there is none for
// the selected currency.
func (s *Session) Result() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil, ErrStaleResult
	}
	return s.result, nil
}
