package validation

import (
	"errors"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Error is a user-correctable problem with a submission. Message is returned
// to the client verbatim.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validation failures, in the order they are checked.
var (
	ErrMissingField  = &Error{Message: "missing required field"}
	ErrEmptyCart     = &Error{Message: "empty cart"}
	ErrInvalidAmount = &Error{Message: "invalid amount"}
)

// New returns a configured validator.
func New() *validatorv10.Validate {
	return validatorv10.New()
}

// Validate runs struct validation and reduces the field errors to the first
// failing check: customer fields, then items, then total.
func Validate(v *validatorv10.Validate, req *CreateOrderRequest) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var first *Error
	rank := len(checkOrder)
	for _, fe := range fieldErrs {
		for i, check := range checkOrder {
			if i < rank && strings.HasPrefix(fe.StructNamespace(), check.prefix) {
				rank, first = i, check.err
			}
		}
	}
	if first == nil {
		return err
	}
	return first
}

var checkOrder = []struct {
	prefix string
	err    *Error
}{
	{"CreateOrderRequest.Customer.", ErrMissingField},
	{"CreateOrderRequest.Items", ErrEmptyCart},
	{"CreateOrderRequest.Total", ErrInvalidAmount},
}
