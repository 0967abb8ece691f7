package moneypkg

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	type amountRequest struct {
		Amount decimal.Decimal `validate:"decimal,nonnegative"`
	}

	type rawRequest struct {
		Amount string `validate:"decimal"`
	}

	testCases := []struct {
		name    string
		req     any
		wantErr bool
	}{
		{name: "Decimal", req: amountRequest{Amount: decimal.RequireFromString("10.00")}},
		{name: "Zero", req: amountRequest{}},
		{name: "Negative", req: amountRequest{Amount: decimal.RequireFromString("-1.00")}, wantErr: true},
		{name: "String", req: rawRequest{Amount: "12.5"}},
		{name: "BadString", req: rawRequest{Amount: "ten"}, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			err := v.Struct(tc.req)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestNonNegativeUnderCustomTag(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("balance", NonNegative))

	require.NoError(t, v.Var("0.00", "balance"))
	require.NoError(t, v.Var("15.5", "balance"))
	require.Error(t, v.Var("-0.01", "balance"))
	require.Error(t, v.Var("abc", "balance"))
}
