package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits of the ledger currency.
const MoneyScale int32 = 2

// maxAmountDigits is the number of integer digits of MaxAmount.
const maxAmountDigits = 14

// MaxAmount bounds a single deposit, transfer or opening balance.
var MaxAmount = decimal.New(1, maxAmountDigits-1)

var (
	ErrAmountNotPositive = errors.New("amount must be greater than zero")
	ErrAmountNegative    = errors.New("amount must not be negative")
	ErrAmountScale       = errors.New("amount must have at most 2 decimal places")
	ErrAmountTooLarge    = errors.New("amount exceeds the maximum allowed value")
)

// ValidateAmount checks an amount moved by a deposit or transfer.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountNotPositive
	}
	return checkBounds(amount)
}

// ValidateOpeningAmount checks the initial amount of a new account; zero is allowed.
func ValidateOpeningAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrAmountNegative
	}
	return checkBounds(amount)
}

// CheckMagnitude rejects amounts that cannot be money from the coefficient and exponent alone.
// It does no rescaling, so it is safe on untrusted input before any arithmetic or String call.
// Zero counts as a single digit, so "0.000" and "0e20" are rejected like their non-zero peers.
func CheckMagnitude(amount decimal.Decimal) error {
	digits := int64(amount.NumDigits())
	exp := int64(amount.Exponent())

	// The leading digit sits at 10^(digits-1+exp).
	if digits-1+exp >= maxAmountDigits {
		return ErrAmountTooLarge
	}
	// Fractional digits beyond MoneyScale must all be trailing zeros of the coefficient.
	if excess := -int64(MoneyScale) - exp; excess > 0 && excess >= digits {
		return ErrAmountScale
	}
	return nil
}

func checkBounds(amount decimal.Decimal) error {
	if err := CheckMagnitude(amount); err != nil {
		return err
	}
	if !amount.Equal(amount.Truncate(MoneyScale)) {
		return ErrAmountScale
	}
	if amount.GreaterThan(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}
