package hyperplane

import (
	"fmt"

	"cosmossdk.io/math"
)

const (
	MinAmp = 1
	MaxAmp = 1_000_000

	stableCoins      = 2
	stableIterations = 32
)

// StableCurve is the two-token StableSwap invariant. Reserves are scaled by
// the per-token factors so both sides share a precision before pricing.
type StableCurve struct {
	Amp          uint64
	TokenAFactor uint64
	TokenBFactor uint64
}

func (StableCurve) Type() CurveType { return CurveTypeStable }

func (c StableCurve) SwapWithoutFees(sourceAmount, reserveIn, reserveOut uint64, direction TradeDirection) (out uint64, err error) {
	if c.Amp < MinAmp || c.Amp > MaxAmp {
		return 0, &CurveError{Curve: c.Type(), Reason: fmt.Sprintf("amp %d outside [%d, %d]", c.Amp, MinAmp, MaxAmp)}
	}
	if c.TokenAFactor == 0 || c.TokenBFactor == 0 {
		return 0, &CurveError{Curve: c.Type(), Reason: "token factor is zero"}
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, &CurveError{Curve: c.Type(), Reason: "reserve is zero"}
	}
	if sourceAmount == 0 {
		return 0, nil
	}

	// math.Int panics past 256 bits; surface that as a curve error.
	defer func() {
		if r := recover(); r != nil {
			out, err = 0, &CurveError{Curve: c.Type(), Reason: fmt.Sprintf("arithmetic overflow: %v", r)}
		}
	}()

	inFactor, outFactor := c.TokenAFactor, c.TokenBFactor
	if direction == BtoA {
		inFactor, outFactor = outFactor, inFactor
	}
	x := math.NewIntFromUint64(reserveIn).Mul(math.NewIntFromUint64(inFactor))
	y := math.NewIntFromUint64(reserveOut).Mul(math.NewIntFromUint64(outFactor))
	dx := math.NewIntFromUint64(sourceAmount).Mul(math.NewIntFromUint64(inFactor))
	leverage := math.NewIntFromUint64(c.Amp).MulRaw(stableCoins)

	d, err := c.computeD(leverage, x, y)
	if err != nil {
		return 0, err
	}
	newY, err := c.computeY(leverage, x.Add(dx), d)
	if err != nil {
		return 0, err
	}
	if !newY.LT(y) {
		return 0, nil
	}
	dy := y.Sub(newY).Quo(math.NewIntFromUint64(outFactor))
	if !dy.IsUint64() {
		return 0, &CurveError{Curve: c.Type(), Reason: "output overflows 64 bits"}
	}
	return dy.Uint64(), nil
}

// computeD solves the invariant for D by Newton iteration, stopping once an
// iteration leaves D unchanged.
func (c StableCurve) computeD(leverage, x, y math.Int) (math.Int, error) {
	n := math.NewInt(stableCoins)
	sum := x.Add(y)
	if sum.IsZero() {
		return math.ZeroInt(), nil
	}
	xn, yn := x.Mul(n), y.Mul(n)

	d := sum
	for i := 0; i < stableIterations; i++ {
		dProd := d.Mul(d).Quo(xn)
		dProd = dProd.Mul(d).Quo(yn)
		prev := d

		numerator := leverage.Mul(sum).Add(dProd.Mul(n)).Mul(d)
		denominator := leverage.SubRaw(1).Mul(d).Add(dProd.Mul(n.AddRaw(1)))
		if denominator.IsZero() {
			return math.Int{}, &CurveError{Curve: c.Type(), Reason: "invariant denominator is zero"}
		}
		d = numerator.Quo(denominator)
		if d.Equal(prev) {
			break
		}
	}
	return d, nil
}

// computeY returns the destination reserve that keeps D fixed once the
// source reserve becomes newX, solving y² + b·y = c with
// c = D³ / (n²·newX·leverage) and b = newX + D/leverage. Each step rounds
// up, which keeps the output at or below the exact solution.
func (c StableCurve) computeY(leverage, newX, d math.Int) (math.Int, error) {
	cc := d.Mul(d).Mul(d).Quo(newX.MulRaw(stableCoins * stableCoins).Mul(leverage))
	b := newX.Add(d.Quo(leverage))

	y := d
	for i := 0; i < stableIterations; i++ {
		prev := y
		denominator := y.MulRaw(2).Add(b).Sub(d)
		if !denominator.IsPositive() {
			return math.Int{}, &CurveError{Curve: c.Type(), Reason: "invariant denominator is not positive"}
		}
		y = ceilDivApprox(y.Mul(y).Add(cc), denominator)
		if y.Equal(prev) {
			break
		}
	}
	return y, nil
}

// ceilDivApprox is ceil(n / d), except that a quotient below one rounds to
// one only when n is exactly one and to zero otherwise.
func ceilDivApprox(n, d math.Int) math.Int {
	q := n.Quo(d)
	if q.IsZero() {
		if n.Equal(math.OneInt()) {
			return math.OneInt()
		}
		return math.ZeroInt()
	}
	if !n.Mod(d).IsZero() {
		q = q.AddRaw(1)
	}
	return q
}
