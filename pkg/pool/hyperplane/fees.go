package hyperplane

import (
	"fmt"

	"lukechampine.com/uint128"
)

// calculateFee returns floor(amount * numerator / denominator). The fraction
// must lie in [0, 1] so the fee never exceeds the amount.
func calculateFee(amount, numerator, denominator uint64) (uint64, error) {
	if numerator == 0 || amount == 0 {
		return 0, nil
	}
	if denominator == 0 || numerator > denominator {
		return 0, fmt.Errorf("invalid fee fraction %d/%d", numerator, denominator)
	}
	fee := uint128.From64(amount).Mul64(numerator).Div64(denominator)
	return fee.Lo, nil
}

// TradingFee is the LP share charged on the input amount.
func (f Fees) TradingFee(amount uint64) (uint64, error) {
	return calculateFee(amount, f.TradeFeeNumerator, f.TradeFeeDenominator)
}

// OwnerTradingFee is the protocol share charged on the input amount.
func (f Fees) OwnerTradingFee(amount uint64) (uint64, error) {
	return calculateFee(amount, f.OwnerTradeFeeNumerator, f.OwnerTradeFeeDenominator)
}

// HostFee is the part of the owner fee paid to a host fee account.
func (f Fees) HostFee(ownerFee uint64) (uint64, error) {
	return calculateFee(ownerFee, f.HostFeeNumerator, f.HostFeeDenominator)
}

// TradeFeeRate is the combined trade and owner rate, for display only.
func (f Fees) TradeFeeRate() float64 {
	var rate float64
	if f.TradeFeeDenominator != 0 {
		rate += float64(f.TradeFeeNumerator) / float64(f.TradeFeeDenominator)
	}
	if f.OwnerTradeFeeDenominator != 0 {
		rate += float64(f.OwnerTradeFeeNumerator) / float64(f.OwnerTradeFeeDenominator)
	}
	return rate
}
