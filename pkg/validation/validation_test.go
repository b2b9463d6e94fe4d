package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "seqrpay/pkg/domain-errors"
)

type paymentInput struct {
	Payee    string `json:"payeeUsername" validate:"required,notblank"`
	Amount   string `json:"amount" validate:"required,positive_decimal"`
	Currency string `json:"currency" validate:"required,currency_code"`
}

func TestValidate(t *testing.T) {
	valid := paymentInput{Payee: "alice", Amount: "12.50", Currency: "USD"}
	require.NoError(t, Validate(valid))

	cases := []struct {
		name    string
		mutate  func(*paymentInput)
		message string
	}{
		{"blank payee", func(p *paymentInput) { p.Payee = "  " }, "payeeUsername must not be blank"},
		{"missing amount", func(p *paymentInput) { p.Amount = "" }, "amount is required"},
		{"zero amount", func(p *paymentInput) { p.Amount = "0.00" }, "amount must be a positive decimal"},
		{"negative amount", func(p *paymentInput) { p.Amount = "-1" }, "amount must be a positive decimal"},
		{"exponent amount", func(p *paymentInput) { p.Amount = "1e3" }, "amount must be a positive decimal"},
		{"lower-case currency", func(p *paymentInput) { p.Currency = "usd" }, "currency must be a 3-letter upper-case currency code"},
		{"long currency", func(p *paymentInput) { p.Currency = "USDT" }, "currency must be a 3-letter upper-case currency code"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := Validate(in)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tc.message, err.Error())
		})
	}
}

func TestIsPositiveDecimal(t *testing.T) {
	for _, ok := range []string{"1", "0.01", "12.50", "1000000.000001"} {
		assert.True(t, IsPositiveDecimal(ok), ok)
	}
	for _, bad := range []string{"", "0", "0.0", ".5", "5.", "+1", "1,000", "NaN", "1e2"} {
		assert.False(t, IsPositiveDecimal(bad), bad)
	}
}
