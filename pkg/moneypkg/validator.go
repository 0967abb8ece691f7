// Package moneypkg provides request validation of monetary amounts.
package moneypkg

import (
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Tags registered by Register.
//
// The ledger handlers bind amounts with TagDecimal only and leave the sign to
// the service, which reports "Negative value X not allowed here". TagNonNegative
// is for requests that should fail at binding instead.
const (
	TagDecimal     = "decimal"
	TagNonNegative = "nonnegative"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// ValidDecimal accepts decimal.Decimal fields and strings parsable as decimals.
var ValidDecimal validator.Func = func(fl validator.FieldLevel) bool {
	_, ok := fieldDecimal(fl)
	return ok
}

// NonNegative accepts decimals that are zero or greater. It backs
// TagNonNegative and can be registered on its own under another tag.
var NonNegative validator.Func = func(fl validator.FieldLevel) bool {
	d, ok := fieldDecimal(fl)
	return ok && !d.IsNegative()
}

func fieldDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	field := fl.Field()

	if field.Type() == decimalType {
		return field.Interface().(decimal.Decimal), true
	}

	if field.Kind() == reflect.String {
		d, err := decimal.NewFromString(field.String())
		return d, err == nil
	}

	return decimal.Decimal{}, false
}

// Register adds the money tags to the validator. Decimal fields are
// validated through their string form.
func Register(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}

		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation(TagDecimal, ValidDecimal); err != nil {
		return err
	}

	return v.RegisterValidation(TagNonNegative, NonNegative)
}
