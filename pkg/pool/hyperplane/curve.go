package hyperplane

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg/anchor"
	"lukechampine.com/uint128"
)

type CurveType uint64

const (
	CurveTypeConstantProduct CurveType = iota + 1
	CurveTypeConstantPrice
	CurveTypeOffset
	CurveTypeStable
)

func (c CurveType) String() string {
	switch c {
	case CurveTypeConstantProduct:
		return "constant_product"
	case CurveTypeConstantPrice:
		return "constant_price"
	case CurveTypeOffset:
		return "offset"
	case CurveTypeStable:
		return "stable"
	default:
		return fmt.Sprintf("unknown(%d)", uint64(c))
	}
}

type TradeDirection uint8

const (
	AtoB TradeDirection = iota
	BtoA
)

func (d TradeDirection) String() string {
	if d == AtoB {
		return "AtoB"
	}
	return "BtoA"
}

// Calculator prices a trade for one curve variant. SourceAmount is already
// net of curve fees; the returned amount is what leaves the destination side.
type Calculator interface {
	Type() CurveType
	SwapWithoutFees(sourceAmount, reserveIn, reserveOut uint64, direction TradeDirection) (uint64, error)
}

// SwapResult is the outcome of a fee-inclusive curve swap.
type SwapResult struct {
	SourceAmountSwapped      uint64
	DestinationAmountSwapped uint64
	TradeFee                 uint64
	OwnerFee                 uint64
	// HostFee is the slice of OwnerFee paid out when a host fee account is set.
	HostFee uint64
}

// TotalFee is the part of the input kept by the pool and its owner.
func (r SwapResult) TotalFee() uint64 {
	return r.TradeFee + r.OwnerFee
}

// Swap takes trade and owner fees from amountIn, prices the remainder on the
// curve and checks the result against the destination reserve. A trade that
// yields nothing is a CurveError. Every division rounds toward zero.
func Swap(calc Calculator, amountIn, reserveIn, reserveOut uint64, direction TradeDirection, fees Fees) (SwapResult, error) {
	if calc == nil {
		return SwapResult{}, &CurveError{Reason: "no curve parameters"}
	}
	curve := calc.Type()
	switch {
	case amountIn == 0:
		return SwapResult{}, &CurveError{Curve: curve, Reason: "input amount is zero"}
	case reserveIn == 0:
		return SwapResult{}, &CurveError{Curve: curve, Reason: "source reserve is zero"}
	case reserveOut == 0:
		return SwapResult{}, &CurveError{Curve: curve, Reason: "destination reserve is zero"}
	}

	tradeFee, err := fees.TradingFee(amountIn)
	if err != nil {
		return SwapResult{}, &CurveError{Curve: curve, Reason: fmt.Sprintf("trade fee: %v", err)}
	}
	ownerFee, err := fees.OwnerTradingFee(amountIn)
	if err != nil {
		return SwapResult{}, &CurveError{Curve: curve, Reason: fmt.Sprintf("owner fee: %v", err)}
	}
	hostFee, err := fees.HostFee(ownerFee)
	if err != nil {
		return SwapResult{}, &CurveError{Curve: curve, Reason: fmt.Sprintf("host fee: %v", err)}
	}
	totalFees, carry := bits.Add64(tradeFee, ownerFee, 0)
	if carry != 0 || totalFees > amountIn {
		return SwapResult{}, &CurveError{Curve: curve, Reason: "fees exceed input amount"}
	}

	out, err := calc.SwapWithoutFees(amountIn-totalFees, reserveIn, reserveOut, direction)
	if err != nil {
		return SwapResult{}, err
	}
	if out == 0 {
		return SwapResult{}, &CurveError{Curve: curve, Reason: "trade yields zero destination tokens"}
	}
	if out > reserveOut {
		return SwapResult{}, &CurveError{
			Curve:  curve,
			Reason: fmt.Sprintf("output %d exceeds destination reserve %d", out, reserveOut),
		}
	}

	return SwapResult{
		SourceAmountSwapped:      amountIn,
		DestinationAmountSwapped: out,
		TradeFee:                 tradeFee,
		OwnerFee:                 ownerFee,
		HostFee:                  hostFee,
	}, nil
}

// ConstantProductCurve keeps reserveIn * reserveOut constant.
type ConstantProductCurve struct{}

func (ConstantProductCurve) Type() CurveType { return CurveTypeConstantProduct }

func (c ConstantProductCurve) SwapWithoutFees(sourceAmount, reserveIn, reserveOut uint64, _ TradeDirection) (uint64, error) {
	return constantProductSwap(c.Type(), sourceAmount, uint128.From64(reserveIn), uint128.From64(reserveOut))
}

// constantProductSwap computes reserveOut - ceil(k / (reserveIn + source)),
// which equals floor(reserveOut * source / (reserveIn + source)).
func constantProductSwap(curve CurveType, sourceAmount uint64, reserveIn, reserveOut uint128.Uint128) (uint64, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return 0, &CurveError{Curve: curve, Reason: "reserve is zero"}
	}
	if sourceAmount == 0 {
		return 0, nil
	}
	numerator, ok := mul64Checked(reserveOut, sourceAmount)
	if !ok {
		return 0, &CurveError{Curve: curve, Reason: "invariant overflows 128 bits"}
	}
	// reserves carry at most a 64-bit offset, so this cannot wrap
	denominator := reserveIn.Add64(sourceAmount)
	out := numerator.Div(denominator)
	if out.Hi != 0 {
		return 0, &CurveError{Curve: curve, Reason: "output overflows 64 bits"}
	}
	return out.Lo, nil
}

// ConstantPriceCurve trades token B at a fixed price in token A.
type ConstantPriceCurve struct {
	TokenBPrice uint64
}

func (ConstantPriceCurve) Type() CurveType { return CurveTypeConstantPrice }

func (c ConstantPriceCurve) SwapWithoutFees(sourceAmount, _, _ uint64, direction TradeDirection) (uint64, error) {
	if c.TokenBPrice == 0 {
		return 0, &CurveError{Curve: c.Type(), Reason: "token B price is zero"}
	}
	if direction == AtoB {
		return sourceAmount / c.TokenBPrice, nil
	}
	hi, lo := bits.Mul64(sourceAmount, c.TokenBPrice)
	if hi != 0 {
		return 0, &CurveError{Curve: c.Type(), Reason: "output overflows 64 bits"}
	}
	return lo, nil
}

// OffsetCurve is a constant product curve with a virtual amount added to
// the token B reserve.
type OffsetCurve struct {
	TokenBOffset uint64
}

func (OffsetCurve) Type() CurveType { return CurveTypeOffset }

func (c OffsetCurve) SwapWithoutFees(sourceAmount, reserveIn, reserveOut uint64, direction TradeDirection) (uint64, error) {
	in, out := uint128.From64(reserveIn), uint128.From64(reserveOut)
	if direction == AtoB {
		out = out.Add64(c.TokenBOffset)
	} else {
		in = in.Add64(c.TokenBOffset)
	}
	return constantProductSwap(c.Type(), sourceAmount, in, out)
}

func mul64Checked(a uint128.Uint128, b uint64) (uint128.Uint128, bool) {
	hiHi, hiLo := bits.Mul64(a.Hi, b)
	loHi, loLo := bits.Mul64(a.Lo, b)
	hi, carry := bits.Add64(hiLo, loHi, 0)
	if hiHi != 0 || carry != 0 {
		return uint128.Zero, false
	}
	return uint128.New(loLo, hi), true
}

var (
	ConstantProductCurveDiscriminator = anchor.AccountDiscriminator("ConstantProductCurve")
	ConstantPriceCurveDiscriminator   = anchor.AccountDiscriminator("ConstantPriceCurve")
	OffsetCurveDiscriminator          = anchor.AccountDiscriminator("OffsetCurve")
	StableCurveDiscriminator          = anchor.AccountDiscriminator("StableCurve")
)

// DecodeCurve reads a curve-parameter account into its Calculator.
func DecodeCurve(address solana.PublicKey, data []byte) (Calculator, error) {
	if len(data) < 8 {
		return nil, &SchemaError{Account: address, Reason: "curve account too short"}
	}
	disc, body := data[:8], data[8:]
	readU64 := func(n int) ([]uint64, error) {
		if len(body) < 8*n {
			return nil, &SchemaError{
				Account: address,
				Reason:  fmt.Sprintf("curve account too short: need %d parameter bytes, got %d", 8*n, len(body)),
			}
		}
		out := make([]uint64, n)
		for i := range out {
			out[i] = binary.LittleEndian.Uint64(body[8*i : 8*i+8])
		}
		return out, nil
	}

	switch {
	case bytes.Equal(disc, ConstantProductCurveDiscriminator[:]):
		return ConstantProductCurve{}, nil
	case bytes.Equal(disc, ConstantPriceCurveDiscriminator[:]):
		v, err := readU64(1)
		if err != nil {
			return nil, err
		}
		return ConstantPriceCurve{TokenBPrice: v[0]}, nil
	case bytes.Equal(disc, OffsetCurveDiscriminator[:]):
		v, err := readU64(1)
		if err != nil {
			return nil, err
		}
		return OffsetCurve{TokenBOffset: v[0]}, nil
	case bytes.Equal(disc, StableCurveDiscriminator[:]):
		v, err := readU64(3)
		if err != nil {
			return nil, err
		}
		return StableCurve{Amp: v[0], TokenAFactor: v[1], TokenBFactor: v[2]}, nil
	default:
		return nil, &SchemaError{Account: address, Reason: "unknown curve account discriminator"}
	}
}
