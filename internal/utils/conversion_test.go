package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestSDKIntToFloat64(t *testing.T) {
	// 2000.000000 usd6 as a display float.
	got, err := SDKIntToFloat64(sdkmath.NewInt(2000_000000), 6)
	require.NoError(t, err)
	require.InDelta(t, 2000.0, got, 1e-9)

	got, err = SDKIntToFloat64(sdkmath.NewInt(1_500000), 6)
	require.NoError(t, err)
	require.InDelta(t, 1.5, got, 1e-9)

	got, err = SDKIntToFloat64(sdkmath.ZeroInt(), 6)
	require.NoError(t, err)
	require.Zero(t, got)

	_, err = SDKIntToFloat64(sdkmath.NewInt(1), -1)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = SDKIntToFloat64(sdkmath.Int{}, 6)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = SDKIntToFloat64(sdkmath.NewInt(-1), 6)
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestFloat64ToSDKInt(t *testing.T) {
	got, err := Float64ToSDKInt(2000.5, 8)
	require.NoError(t, err)
	require.Equal(t, "200050000000", got.String())

	got, err = Float64ToSDKInt(1.2345, 2)
	require.NoError(t, err)
	require.Equal(t, "123", got.String())

	got, err = Float64ToSDKInt(0, 6)
	require.NoError(t, err)
	require.True(t, got.IsZero())

	_, err = Float64ToSDKInt(-1, 6)
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = Float64ToSDKInt(1, 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}
