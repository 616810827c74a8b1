package store

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/ShuVe1/site-agreement/access"
	"github.com/ShuVe1/site-agreement/ledger"
)

// Records are validated on every write, in both store implementations.
// The enums are checked by custom tags so an out-of-enum role or status
// never reaches disk; "overdue" in particular is rejected as a stored
// payment status because it only exists as a derived view.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	must(v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return access.Role(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("contract_status", func(fl validator.FieldLevel) bool {
		return ledger.ContractStatus(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("stored_payment_status", func(fl validator.FieldLevel) bool {
		return ledger.PaymentStatus(fl.Field().String()).Storable()
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidateUser rejects users with missing required fields or a role
// outside the closed enum.
func ValidateUser(u ledger.User) error {
	return asValidationError("user", validate.Struct(u))
}

// ValidateContract rejects contracts with missing required fields or an
// out-of-enum status.
func ValidateContract(c ledger.Contract) error {
	return asValidationError("contract", validate.Struct(c))
}

// ValidatePayment rejects payments with no contract reference, missing
// required fields, or a non-storable status.
func ValidatePayment(p ledger.Payment) error {
	return asValidationError("payment", validate.Struct(p))
}

func asValidationError(entity string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ledger.ValidationError{
			Entity: entity,
			Field:  verrs[0].Field(),
			Reason: "failed rule " + verrs[0].Tag(),
		}
	}
	return err
}
