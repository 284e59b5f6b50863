package safety

import (
	"fmt"
	"math"
	"strings"
)

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
}

// Err converts a failed result to an error
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Code, r.Message)
}

// Validator checks order inputs before they reach an exchange
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidatePrice validates a price value for trading
func (v *Validator) ValidatePrice(price float64, symbol string) ValidationResult {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return ValidationResult{
			Message: fmt.Sprintf("invalid price for %s: %v", symbol, price),
			Code:    "INVALID_PRICE_NAN",
		}
	}
	if price <= 0 {
		return ValidationResult{
			Message: fmt.Sprintf("invalid price %.8f for %s: price must be positive", price, symbol),
			Code:    "INVALID_PRICE_NEGATIVE",
		}
	}
	// Prevent obvious data errors
	if price > 1e10 {
		return ValidationResult{
			Message: fmt.Sprintf("suspicious price %.8f for %s: exceeds reasonable bounds", price, symbol),
			Code:    "PRICE_OUT_OF_BOUNDS",
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateQuantity validates a quantity value for trading
func (v *Validator) ValidateQuantity(quantity float64, symbol string) ValidationResult {
	if math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return ValidationResult{
			Message: fmt.Sprintf("invalid quantity for %s: %v", symbol, quantity),
			Code:    "INVALID_QUANTITY_NAN",
		}
	}
	if quantity <= 0 {
		return ValidationResult{
			Message: fmt.Sprintf("invalid quantity %.8f for %s: quantity must be positive", quantity, symbol),
			Code:    "INVALID_QUANTITY_NEGATIVE",
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateSymbol checks a linear contract symbol such as BTCUSDT
func (v *Validator) ValidateSymbol(symbol string) ValidationResult {
	if strings.TrimSpace(symbol) == "" {
		return ValidationResult{Message: "symbol is empty", Code: "INVALID_SYMBOL_EMPTY"}
	}
	if symbol != strings.ToUpper(symbol) || strings.ContainsAny(symbol, " /-") {
		return ValidationResult{
			Message: fmt.Sprintf("symbol %q must be upper-case without separators", symbol),
			Code:    "INVALID_SYMBOL_FORMAT",
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateOrder runs the symbol, price and quantity checks in order
func (v *Validator) ValidateOrder(symbol string, price, quantity float64) error {
	for _, r := range []ValidationResult{
		v.ValidateSymbol(symbol),
		v.ValidatePrice(price, symbol),
		v.ValidateQuantity(quantity, symbol),
	} {
		if err := r.Err(); err != nil {
			return err
		}
	}
	return nil
}
