package hyperplane

import (
	"errors"
	"math"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yimingwow/hyperroute/pkg/pool/hyperplane/hyperplanetest"
)

func tradeFees(tradeBps, ownerBps uint64) Fees {
	return Fees{
		TradeFeeNumerator:        tradeBps,
		TradeFeeDenominator:      FeeBasisPointsDenominator,
		OwnerTradeFeeNumerator:   ownerBps,
		OwnerTradeFeeDenominator: FeeBasisPointsDenominator,
	}
}

func requireCurveError(t *testing.T, err error) *CurveError {
	t.Helper()
	var curveErr *CurveError
	require.True(t, errors.As(err, &curveErr), "expected CurveError, got %v", err)
	return curveErr
}

func TestConstantProductSwap(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   uint64
		reserveIn  uint64
		reserveOut uint64
		fees       Fees
		wantOut    uint64
		wantTrade  uint64
		wantOwner  uint64
	}{
		{
			name:       "half of the destination reserve",
			amountIn:   1_000_000_000,
			reserveIn:  1_000_000_000,
			reserveOut: 1_000_000,
			wantOut:    500_000,
		},
		{
			name:       "trade and owner fees come off the input",
			amountIn:   1_000_000,
			reserveIn:  1_000_000_000,
			reserveOut: 1_000_000_000,
			fees:       tradeFees(25, 5),
			wantOut:    996_006,
			wantTrade:  2_500,
			wantOwner:  500,
		},
		{
			name:       "output rounds down",
			amountIn:   1_999,
			reserveIn:  1_000_000_000,
			reserveOut: 1_000_000,
			wantOut:    1,
		},
		{
			name:       "full width reserves",
			amountIn:   math.MaxUint64,
			reserveIn:  math.MaxUint64,
			reserveOut: math.MaxUint64,
			wantOut:    math.MaxUint64 / 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Swap(ConstantProductCurve{}, tt.amountIn, tt.reserveIn, tt.reserveOut, AtoB, tt.fees)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, res.DestinationAmountSwapped)
			assert.Equal(t, tt.amountIn, res.SourceAmountSwapped)
			assert.Equal(t, tt.wantTrade, res.TradeFee)
			assert.Equal(t, tt.wantOwner, res.OwnerFee)
			assert.Equal(t, tt.wantTrade+tt.wantOwner, res.TotalFee())
		})
	}
}

func TestSwapHostFeeIsPartOfOwnerFee(t *testing.T) {
	fees := tradeFees(25, 5)
	fees.HostFeeNumerator = 20
	fees.HostFeeDenominator = 100

	res, err := Swap(ConstantProductCurve{}, 1_000_000, 1_000_000_000, 1_000_000_000, AtoB, fees)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), res.OwnerFee)
	assert.Equal(t, uint64(100), res.HostFee)
	assert.Equal(t, uint64(3_000), res.TotalFee())
}

func TestSwapMonotonicInAmount(t *testing.T) {
	const reserveIn, reserveOut = 5_000_000_000, 12_345_678
	fees := tradeFees(30, 5)

	var prev uint64
	for amount := uint64(1_000); amount < 20_000_000_000; amount = amount*3 + 7 {
		res, err := Swap(ConstantProductCurve{}, amount, reserveIn, reserveOut, AtoB, fees)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.DestinationAmountSwapped, prev, "amount %d", amount)
		prev = res.DestinationAmountSwapped
	}
}

func TestSwapMonotonicInFeeRate(t *testing.T) {
	const amount, reserveIn, reserveOut = 7_654_321, 1_000_000_000, 3_000_000_000

	prev := uint64(math.MaxUint64)
	for bps := uint64(0); bps < FeeBasisPointsDenominator; bps += 250 {
		res, err := Swap(ConstantProductCurve{}, amount, reserveIn, reserveOut, AtoB, tradeFees(bps, 0))
		require.NoError(t, err)
		assert.LessOrEqual(t, res.DestinationAmountSwapped, prev, "fee %d bps", bps)
		prev = res.DestinationAmountSwapped
	}
}

func TestSwapRoundTripNeverGainsValue(t *testing.T) {
	type reserves struct{ a, b uint64 }
	pools := []reserves{
		{1_000_000_000, 1_000_000},
		{1_000_000, 1_000_000_000},
		{123_456_789, 987_654_321},
		{math.MaxUint64 / 3, 17},
	}
	amounts := []uint64{1, 2, 999, 1_000_000, 55_555_555_555}
	for _, fees := range []Fees{{}, tradeFees(25, 5)} {
		for _, r := range pools {
			for _, a := range amounts {
				there, err := Swap(ConstantProductCurve{}, a, r.a, r.b, AtoB, fees)
				if err != nil {
					requireCurveError(t, err)
					continue
				}
				back, err := Swap(ConstantProductCurve{}, there.DestinationAmountSwapped, r.b, r.a, BtoA, fees)
				if err != nil {
					requireCurveError(t, err)
					continue
				}
				assert.LessOrEqual(t, back.DestinationAmountSwapped, a, "reserves %v amount %d", r, a)
			}
		}
	}
}

func TestStableSwapRoundTripNeverGainsValue(t *testing.T) {
	type reserves struct{ a, b uint64 }
	pools := []reserves{
		{1_049, 1_000},
		{1_000_000, 1_000_000},
		{1_000_000_000, 1_500_000_000},
		{123_456_789, 987_654_321},
	}
	amounts := []uint64{1, 2, 3, 7, 999, 1_000_000, 55_555_555}
	for _, amp := range []uint64{1, 10, 100, 2_000} {
		curve := StableCurve{Amp: amp, TokenAFactor: 1, TokenBFactor: 1}
		for _, r := range pools {
			for _, a := range amounts {
				there, err := Swap(curve, a, r.a, r.b, AtoB, Fees{})
				if err != nil {
					requireCurveError(t, err)
					continue
				}
				back, err := Swap(curve, there.DestinationAmountSwapped, r.b, r.a, BtoA, Fees{})
				if err != nil {
					requireCurveError(t, err)
					continue
				}
				assert.LessOrEqual(t, back.DestinationAmountSwapped, a, "amp %d reserves %v amount %d", amp, r, a)
			}
		}
	}
}

func TestSwapErrors(t *testing.T) {
	tests := []struct {
		name       string
		calc       Calculator
		amountIn   uint64
		reserveIn  uint64
		reserveOut uint64
		fees       Fees
	}{
		{"zero amount", ConstantProductCurve{}, 0, 1_000, 1_000, Fees{}},
		{"zero source reserve", ConstantProductCurve{}, 10, 0, 1_000, Fees{}},
		{"zero destination reserve", ConstantProductCurve{}, 10, 1_000, 0, Fees{}},
		{"no curve", nil, 10, 1_000, 1_000, Fees{}},
		{"fees above input", ConstantProductCurve{}, 10_000, 1_000, 1_000, tradeFees(6_000, 6_000)},
		{"fee fraction above one", ConstantProductCurve{}, 10, 1_000, 1_000, Fees{TradeFeeNumerator: 2, TradeFeeDenominator: 1}},
		{"fee denominator zero", ConstantProductCurve{}, 10, 1_000, 1_000, Fees{TradeFeeNumerator: 1}},
		{"output above reserve", ConstantPriceCurve{TokenBPrice: 1}, 5_000, 1_000, 1_000, Fees{}},
		{"zero output", ConstantProductCurve{}, 1, 1_000_000, 10, Fees{}},
		{"whole input taken as fees", ConstantProductCurve{}, 10, 1_000, 1_000, tradeFees(FeeBasisPointsDenominator, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Swap(tt.calc, tt.amountIn, tt.reserveIn, tt.reserveOut, AtoB, tt.fees)
			requireCurveError(t, err)
		})
	}
}

func TestConstantPriceCurve(t *testing.T) {
	curve := ConstantPriceCurve{TokenBPrice: 10}

	out, err := curve.SwapWithoutFees(1_005, 1, 1, AtoB)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), out)

	out, err = curve.SwapWithoutFees(100, 1, 1, BtoA)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), out)

	_, err = curve.SwapWithoutFees(math.MaxUint64, 1, 1, BtoA)
	requireCurveError(t, err)

	_, err = ConstantPriceCurve{}.SwapWithoutFees(100, 1, 1, AtoB)
	requireCurveError(t, err)
}

func TestOffsetCurve(t *testing.T) {
	curve := OffsetCurve{TokenBOffset: 1_000_000}

	out, err := curve.SwapWithoutFees(1_000, 1_000_000, 1_000_000, AtoB)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_998), out)

	out, err = curve.SwapWithoutFees(1_000, 1_000_000, 1_000_000, BtoA)
	require.NoError(t, err)
	assert.Equal(t, uint64(499), out)

	// the virtual reserve cannot be paid out
	_, err = Swap(OffsetCurve{TokenBOffset: 1_000_000_000}, 1_000_000_000, 1_000, 10, AtoB, Fees{})
	requireCurveError(t, err)
}

func TestDecodeCurve(t *testing.T) {
	address := solana.NewWallet().PublicKey()
	tests := []struct {
		name string
		data []byte
		want Calculator
	}{
		{"constant product", hyperplanetest.ConstantProductCurve(), ConstantProductCurve{}},
		{"constant price", hyperplanetest.ConstantPriceCurve(42), ConstantPriceCurve{TokenBPrice: 42}},
		{"offset", hyperplanetest.OffsetCurve(7), OffsetCurve{TokenBOffset: 7}},
		{"stable", hyperplanetest.StableCurve(100, 1, 1_000), StableCurve{Amp: 100, TokenAFactor: 1, TokenBFactor: 1_000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCurve(address, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, data := range [][]byte{
		nil,
		hyperplanetest.StableCurve(100, 1, 1)[:20],
		append([]byte{1, 2, 3, 4, 5, 6, 7, 8}, make([]byte, 24)...),
	} {
		_, err := DecodeCurve(address, data)
		var schemaErr *SchemaError
		assert.True(t, errors.As(err, &schemaErr), "got %v", err)
	}
}
