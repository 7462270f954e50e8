package core

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// FeeRatePrecision is the number of fractional digits a fee rate may carry.
	FeeRatePrecision int32 = 18

	// BasisPointsScale is the denominator used to express rates as integers (1 bp = 1/10_000).
	BasisPointsScale uint64 = 10_000

	basisPointsDigits int32 = 4
)

var (
	// MaxFeeRate caps the protocol fee at 1%.
	MaxFeeRate = decimal.New(1, -2)

	// MaxAmount is the largest representable token amount (2^128 - 1). Must not be modified.
	MaxAmount = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

	// feeDivisor = 10^FeeRatePrecision * BasisPointsScale
	feeDivisor = new(uint256.Int).Mul(
		new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(FeeRatePrecision))),
		uint256.NewInt(BasisPointsScale),
	)
)

// ValidateFeeRate checks that rate lies in [0, MaxFeeRate] and carries at most
// FeeRatePrecision fractional digits.
func ValidateFeeRate(rate decimal.Decimal) error {
	if rate.Sign() < 0 || rate.GreaterThan(MaxFeeRate) {
		return fmt.Errorf("%w: %s is outside [0, %s]", ErrInvalidFeeRate, rate, MaxFeeRate)
	}
	if !rate.Shift(FeeRatePrecision).IsInteger() {
		return fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidFeeRate, rate, FeeRatePrecision)
	}
	return nil
}

// feeNumerator converts rate into basis points expressed at the rate's native precision,
// i.e. rate * 10^FeeRatePrecision * BasisPointsScale. The result is exact for valid rates.
func feeNumerator(rate decimal.Decimal) (*uint256.Int, error) {
	scaled := rate.Shift(FeeRatePrecision + basisPointsDigits)
	if scaled.Sign() < 0 || !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFeeRate, rate)
	}
	numerator, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("fee numerator for rate %s: %w", rate, ErrArithmeticOverflow)
	}
	return numerator, nil
}

// FeeAmount returns floor(amount * rate) computed in scaled integers:
//
//	fee = amount * numerator / (10^FeeRatePrecision * BasisPointsScale)
//
// The multiplication runs in 256 bits so no 128-bit amount can overflow it; any
// overflow or zero divisor is reported as an error rather than clamped.
func FeeAmount(amount *uint256.Int, rate decimal.Decimal) (*uint256.Int, error) {
	if rate.IsZero() {
		return new(uint256.Int), nil
	}

	numerator, err := feeNumerator(rate)
	if err != nil {
		return nil, err
	}

	product, overflow := new(uint256.Int).MulOverflow(amount, numerator)
	if overflow {
		return nil, fmt.Errorf("fee on %s: %w", amount.Dec(), ErrArithmeticOverflow)
	}
	if feeDivisor.IsZero() {
		return nil, fmt.Errorf("fee on %s: %w", amount.Dec(), ErrDivideByZero)
	}

	fee := new(uint256.Int).Div(product, feeDivisor)
	if fee.Gt(MaxAmount) {
		return nil, fmt.Errorf("fee on %s: %w", amount.Dec(), ErrArithmeticOverflow)
	}
	return fee, nil
}

// checkedAdd returns x + y, failing when the sum exceeds MaxAmount.
func checkedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow || sum.Gt(MaxAmount) {
		return nil, fmt.Errorf("%s + %s: %w", x.Dec(), y.Dec(), ErrArithmeticOverflow)
	}
	return sum, nil
}
