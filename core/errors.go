package core

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAuctionClosed       = errors.New("auction is closed")
	ErrAuctionOpen         = errors.New("auction is still open")
	ErrWrongPaymentAsset   = errors.New("payment must be a single non-zero coin of the auction denom")
	ErrBidTooLow           = errors.New("bid must exceed the current highest bid")
	ErrNoFundsToRetract    = errors.New("no funds to retract")
	ErrAlreadyRetracted    = errors.New("funds already retracted")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrDivideByZero        = errors.New("divide by zero")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrNoBids              = errors.New("no bids were placed")
	ErrInvalidFeeRate      = errors.New("invalid fee rate")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrNotInstantiated     = errors.New("auction not instantiated")
	ErrAlreadyInstantiated = errors.New("auction already instantiated")

	// ErrNotFound is the storage substrate's "key absent" signal.
	ErrNotFound = errors.New("not found")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrAuctionClosed, "auction_closed"},
	{ErrAuctionOpen, "auction_open"},
	{ErrWrongPaymentAsset, "wrong_payment_asset"},
	{ErrBidTooLow, "bid_too_low"},
	{ErrNoFundsToRetract, "no_funds_to_retract"},
	{ErrAlreadyRetracted, "already_retracted"},
	{ErrArithmeticOverflow, "arithmetic_overflow"},
	{ErrDivideByZero, "divide_by_zero"},
	{ErrInvalidIdentity, "invalid_identity"},
	{ErrNoBids, "no_bids"},
	{ErrInvalidFeeRate, "invalid_fee_rate"},
	{ErrInvalidConfig, "invalid_config"},
	{ErrNotInstantiated, "not_instantiated"},
	{ErrAlreadyInstantiated, "already_instantiated"},
	{ErrNotFound, "not_found"},
}

// ErrorCode maps an engine error to a stable wire code. Unknown errors map to "internal".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}
