package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Email  string          `json:"email" validate:"required,email"`
	Period string          `json:"period" validate:"required,is-period"`
	Amount decimal.Decimal `json:"amount" validate:"is-kes-amount"`
	Phone  string          `json:"phone" validate:"omitempty,is-ke-phone"`
}

func TestValidate_OK(t *testing.T) {
	v := New()
	err := v.Validate(&sample{
		Email:  "a@x.com",
		Period: "monthly",
		Amount: decimal.RequireFromString("2099.50"),
		Phone:  "+254712345678",
	})
	assert.NoError(t, err)
}

func TestValidate_FieldNamesFromJSONTags(t *testing.T) {
	v := New()
	err := v.Validate(&sample{
		Email:  "nope",
		Period: "weekly",
		Amount: decimal.RequireFromString("10.001"),
		Phone:  "12345",
	})
	require.Error(t, err)

	vErr, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.Contains(t, vErr.Errors, "email")
	assert.Contains(t, vErr.Errors, "period")
	assert.Contains(t, vErr.Errors, "amount")
	assert.Contains(t, vErr.Errors, "phone")
}

func TestValidate_ZeroAmountRejected(t *testing.T) {
	v := New()
	err := v.Validate(&sample{Email: "a@x.com", Period: "event"})
	require.Error(t, err)
	assert.Contains(t, err.(*ValidationError).Errors, "amount")
}
