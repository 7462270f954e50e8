package core

import (
	"fmt"

	"github.com/holiman/uint256"
)

// MustPay returns the amount paid when funds hold exactly one coin of denom with a
// non-zero amount. Anything else is ErrWrongPaymentAsset.
func MustPay(funds []Coin, denom string) (*uint256.Int, error) {
	switch len(funds) {
	case 0:
		return nil, fmt.Errorf("%w: no funds sent", ErrWrongPaymentAsset)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %d coins sent", ErrWrongPaymentAsset, len(funds))
	}

	coin := funds[0]
	if coin.Denom != denom {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrWrongPaymentAsset, coin.Denom, denom)
	}
	if coin.Amount.IsZero() {
		return nil, fmt.Errorf("%w: zero amount", ErrWrongPaymentAsset)
	}
	if coin.Amount.Gt(MaxAmount) {
		return nil, fmt.Errorf("payment of %s: %w", coin.Amount.Dec(), ErrArithmeticOverflow)
	}
	return coin.Amount.Clone(), nil
}
