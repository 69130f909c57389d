package validator

import (
	"log"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Periods are the billing periods the catalog knows about.
var Periods = []string{"monthly", "quarterly", "annual", "event"}

var kePhone = regexp.MustCompile(`^(?:\+?254|0)(?:7|1)\d{8}$`)

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-period", validatePeriod)
	mustRegister("is-kes-amount", validateKESAmount)
	mustRegister("is-ke-phone", validateKEPhone)
}

func validatePeriod(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // пустые значения обрабатывает 'required'
	}
	for _, p := range Periods {
		if value == p {
			return true
		}
	}
	return false
}

func validateKESAmount(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return d.IsPositive() && d.Equal(d.Round(2))
}

func validateKEPhone(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return kePhone.MatchString(value)
}
