package core

import (
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Addr is a validated participant or contract identity.
type Addr string

func (a Addr) String() string { return string(a) }

// Coin is a single denomination/amount pair attached to a call or carried by a payout.
type Coin struct {
	Denom  string
	Amount uint256.Int
}

// Config is the auction configuration persisted at instantiation.
// Denom and FeeRate never change afterwards; Open flips to false exactly once.
type Config struct {
	Denom   string
	FeeRate decimal.Decimal
	Open    bool
}

// HighestBid is the cached leader of the auction. It always mirrors the
// maximum value stored in the bid ledger.
type HighestBid struct {
	Bidder Addr
	Amount uint256.Int
}

// Payout is a declarative instruction for the host to move escrowed funds.
// The engine never transfers funds itself.
type Payout struct {
	Recipient Addr
	Denom     string
	Amount    uint256.Int
}

// Attribute is an observability key/value pair attached to a response.
type Attribute struct {
	Key   string
	Value string
}

// Response is the result of a successful engine operation.
type Response struct {
	Payouts    []Payout
	Attributes []Attribute
}

func newResponse(action string) *Response {
	return &Response{Attributes: []Attribute{{Key: "action", Value: action}}}
}

func (r *Response) addAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

func (r *Response) addPayout(p Payout) *Response {
	r.Payouts = append(r.Payouts, p)
	return r
}

// Attribute returns the value of the first attribute with the given key.
func (r *Response) Attribute(key string) (string, bool) {
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// InstantiateParams carries the instantiation request.
type InstantiateParams struct {
	// Owner is optional; the contract's own address is used when empty.
	Owner   string
	Denom   string
	FeeRate decimal.Decimal
}

// BidInfo is the highest-bid query result. Bidder and Amount are nil until the first bid.
type BidInfo struct {
	Bidder   *Addr
	Amount   *uint256.Int
	IsClosed bool
}
