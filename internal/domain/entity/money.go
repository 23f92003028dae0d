package entity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	errs "github.com/amirhossein-jamali/settlement-engine/internal/domain/error"
)

// MaxDecimalPlaces defines the maximum number of decimal places allowed for money amounts.
// The external ledger settles in 18-decimal base units, so internal amounts share that precision.
const MaxDecimalPlaces = 18

// MaxIntegerDigits caps the integer part so any amount, and any balance built from them,
// fits the stored text form.
const MaxIntegerDigits = 40

// ParseAmount parses a decimal string and validates it as a settlement amount
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, err.Error())
	}

	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateAmount checks that an amount is strictly positive, not larger than MaxIntegerDigits
// integer digits and has at most MaxDecimalPlaces significant fractional digits
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", errs.ErrInvalidAmount, amount.String())
	}

	// exponent and coefficient are checked first; rendering a huge exponent is expensive
	exp := int64(amount.Exponent())
	if exp > MaxIntegerDigits {
		return fmt.Errorf("%w: maximum %d integer digits allowed", errs.ErrInvalidAmount, MaxIntegerDigits)
	}
	if exp < -(MaxDecimalPlaces + MaxIntegerDigits + MaxDecimalPlaces) {
		return fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
	}

	coefficient := amount.Coefficient().String()
	digits := int64(len(coefficient))
	if digits+exp > MaxIntegerDigits {
		return fmt.Errorf("%w: maximum %d integer digits allowed", errs.ErrInvalidAmount, MaxIntegerDigits)
	}

	// trailing zeros of the coefficient carry no precision
	trimmed := strings.TrimRight(coefficient, "0")
	if exp+digits-int64(len(trimmed)) < -MaxDecimalPlaces {
		return fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
	}
	return nil
}

// FormatAmount renders an amount without trailing zeros
func FormatAmount(amount decimal.Decimal) string {
	return amount.String()
}
