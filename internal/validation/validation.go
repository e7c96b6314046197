// Package validation registers the request-binding rules shared by the HTTP handlers.
package validation

import (
	"fmt"
	"reflect"

	"github.com/SscSPs/bank_ledger/internal/core/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	// TagMoney accepts a positive amount with at most two decimals, bounded by domain.MaxAmount.
	TagMoney = "money"
	// TagOpeningAmount is TagMoney that also accepts zero.
	TagOpeningAmount = "opening_amount"
)

// Register adds the custom tags to v. decimal.Decimal fields are validated through their
// canonical string form; amounts that cannot be money are replaced by an unparsable marker
// before that form is built.
func Register(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	if err := v.RegisterValidation(TagMoney, validateMoney); err != nil {
		return fmt.Errorf("register %s: %w", TagMoney, err)
	}
	if err := v.RegisterValidation(TagOpeningAmount, validateOpeningAmount); err != nil {
		return fmt.Errorf("register %s: %w", TagOpeningAmount, err)
	}
	return nil
}

// RegisterWithGin installs the custom tags on gin's default binding validator.
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}

// outOfRange never parses as a decimal, so the money tags fail on it.
const outOfRange = "out-of-range"

func decimalValue(field reflect.Value) interface{} {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}
	if domain.CheckMagnitude(d) != nil {
		return outOfRange
	}
	return d.String()
}

func fieldDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	if fl.Field().Kind() != reflect.String {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func validateMoney(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && domain.ValidateAmount(d) == nil
}

func validateOpeningAmount(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && domain.ValidateOpeningAmount(d) == nil
}
