package auctionapi

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/cloudx-io/escrowauction/core"
)

// ToCoreCoins parses wire amounts. Negative, fractional and oversized amounts are rejected.
func ToCoreCoins(coins []Coin) ([]core.Coin, error) {
	out := make([]core.Coin, 0, len(coins))
	for _, c := range coins {
		amount, err := uint256.FromDecimal(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: amount %q for %s: %v", ErrInvalidMessage, c.Amount, c.Denom, err)
		}
		out = append(out, core.Coin{Denom: c.Denom, Amount: *amount})
	}
	return out, nil
}

func FromCoreCoin(c core.Coin) Coin {
	return Coin{Denom: c.Denom, Amount: c.Amount.Dec()}
}

// Params converts the message into engine instantiation parameters.
func (m *InstantiateMsg) Params() core.InstantiateParams {
	params := core.InstantiateParams{
		Denom:   m.RequiredNativeDenom,
		FeeRate: m.Fee,
	}
	if m.Owner != nil {
		params.Owner = *m.Owner
	}
	return params
}

// FromCoreResponse renders payouts as bank sends, one per payout, in order.
func FromCoreResponse(resp *core.Response) *Response {
	out := &Response{
		Messages:   make([]Message, 0, len(resp.Payouts)),
		Attributes: make([]Attribute, 0, len(resp.Attributes)),
	}
	for _, p := range resp.Payouts {
		out.Messages = append(out.Messages, Message{BankSend: &BankSend{
			ToAddress: p.Recipient.String(),
			Amount:    []Coin{{Denom: p.Denom, Amount: p.Amount.Dec()}},
		}})
	}
	for _, a := range resp.Attributes {
		out.Attributes = append(out.Attributes, Attribute{Key: a.Key, Value: a.Value})
	}
	return out
}

func FromBidInfo(info *core.BidInfo) BidEventInfoResponse {
	resp := BidEventInfoResponse{EventClosed: info.IsClosed}
	if info.Bidder != nil {
		addr := info.Bidder.String()
		resp.Addr = &addr
	}
	if info.Amount != nil {
		amount := info.Amount.Dec()
		resp.BidAmount = &amount
	}
	return resp
}
