package valuation

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func mustInt(t *testing.T, s string) sdkmath.Int {
	t.Helper()
	v, ok := sdkmath.NewIntFromString(s)
	require.True(t, ok, "bad int literal %q", s)
	return v
}

func TestToUsd(t *testing.T) {
	cases := []struct {
		name          string
		amount        string
		assetDecimals uint8
		price         string
		priceDecimals uint8
		want          string
	}{
		{
			// 1 unit of an 18-decimal asset at 2000.00 from an 8-decimal feed.
			name:          "one 18-dec unit at 2000 usd",
			amount:        "1000000000000000000",
			assetDecimals: 18,
			price:         "200000000000",
			priceDecimals: 8,
			want:          "2000000000",
		},
		{
			name:          "one 6-dec unit at 1 usd",
			amount:        "1000000",
			assetDecimals: 6,
			price:         "100000000",
			priceDecimals: 8,
			want:          "1000000",
		},
		{
			name:          "fractional dust truncates toward zero",
			amount:        "1",
			assetDecimals: 18,
			price:         "200000000000",
			priceDecimals: 8,
			want:          "0",
		},
		{
			// 0.05 units * 1.50 usd = 0.075 usd, but the price-decimal division
			// truncates first (7.5 -> 7), so the result is 0.070000 usd.
			name:          "low-precision asset truncates before scaling up",
			amount:        "5",
			assetDecimals: 2,
			price:         "150000000", // 1.50 usd
			priceDecimals: 8,
			want:          "70000",
		},
		{
			name:          "zero price decimals",
			amount:        "3000000",
			assetDecimals: 6,
			price:         "7",
			priceDecimals: 0,
			want:          "21000000",
		},
		{
			name:          "zero amount short-circuits",
			amount:        "0",
			assetDecimals: 18,
			price:         "1",
			priceDecimals: 8,
			want:          "0",
		},
		{
			// Near the top of the uint256-style range: the widening multiply must
			// not truncate.
			name:          "huge amount does not overflow",
			amount:        "115792089237316195423570985008687907853269984665640564039457",
			assetDecimals: 18,
			price:         "100000000",
			priceDecimals: 8,
			want:          "115792089237316195423570985008687907853269984665",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToUsd(mustInt(t, tc.amount), tc.assetDecimals, mustInt(t, tc.price), tc.priceDecimals)
			require.NoError(t, err)
			require.Equal(t, tc.want, got.String())
		})
	}
}

func TestToUsdMonotonicInAmount(t *testing.T) {
	price := mustInt(t, "200000000000")
	prev := sdkmath.ZeroInt()
	amount := sdkmath.NewInt(1)
	for i := 0; i < 30; i++ {
		got, err := ToUsd(amount, 18, price, 8)
		require.NoError(t, err)
		require.True(t, got.GTE(prev), "usd value decreased when amount grew")
		prev = got
		amount = amount.MulRaw(7)
	}
}

func TestToUsdRejectsInvalidInputs(t *testing.T) {
	one := sdkmath.NewInt(1)

	_, err := ToUsd(sdkmath.Int{}, 6, one, 8)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = ToUsd(sdkmath.NewInt(-5), 6, one, 8)
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = ToUsd(one, 6, sdkmath.ZeroInt(), 8)
	require.ErrorIs(t, err, ErrPriceInvalid)

	_, err = ToUsd(one, 6, sdkmath.NewInt(-1), 8)
	require.ErrorIs(t, err, ErrPriceInvalid)
}
