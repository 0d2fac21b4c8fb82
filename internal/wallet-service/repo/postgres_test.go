package repo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateKindAmount(t *testing.T) {
	dec := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }

	cases := []struct {
		name   string
		kind   string
		amount decimal.Decimal
		wantOK bool
	}{
		{"deposit positive", KindDeposit, dec("100.00"), true},
		{"deposit negative", KindDeposit, dec("-100.00"), false},
		{"settlement positive", KindBetSettlement, dec("90.00"), true},
		{"settlement negative", KindBetSettlement, dec("-90.00"), false},
		{"withdrawal negative", KindWithdrawal, dec("-50.00"), true},
		{"withdrawal positive", KindWithdrawal, dec("50.00"), false},
		{"stake negative", KindBetStake, dec("-25.00"), true},
		{"stake positive", KindBetStake, dec("25.00"), false},
		{"zero never valid", KindDeposit, dec("0"), false},
		{"unknown kind", "bonus", dec("10.00"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateKindAmount(tc.kind, tc.amount)
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAmount)
			}
		})
	}
}
