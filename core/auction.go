package core

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Engine runs the escrow auction state machine against a KVStore:
//
//	Open --Close(owner)--> Closed
//
// Bid is only valid while open, Retract only once closed, and nothing reopens.
// Every operation performs all of its reads and checks before its first write, and the
// host commits or discards the whole call, so a failed call leaves no trace.
type Engine struct {
	store KVStore
	addrs AddrValidator
}

// NewEngine binds an engine to the store of the current call.
func NewEngine(store KVStore, addrs AddrValidator) *Engine {
	return &Engine{store: store, addrs: addrs}
}

// Instantiate persists the owner and configuration. The owner defaults to the
// contract's own address when params.Owner is empty.
func (e *Engine) Instantiate(contract, sender Addr, params InstantiateParams) (*Response, error) {
	if _, err := loadOwner(e.store); err == nil {
		return nil, ErrAlreadyInstantiated
	} else if !errors.Is(err, ErrNotInstantiated) {
		return nil, err
	}

	owner := contract
	if params.Owner != "" {
		validated, err := e.addrs.Validate(params.Owner)
		if err != nil {
			return nil, fmt.Errorf("owner %q: %w", params.Owner, err)
		}
		owner = validated
	}
	if params.Denom == "" {
		return nil, fmt.Errorf("%w: empty denom", ErrInvalidConfig)
	}
	if err := ValidateFeeRate(params.FeeRate); err != nil {
		return nil, err
	}

	if err := saveOwner(e.store, owner); err != nil {
		return nil, err
	}
	cfg := &Config{Denom: params.Denom, FeeRate: params.FeeRate, Open: true}
	if err := saveConfig(e.store, cfg); err != nil {
		return nil, err
	}

	return newResponse("instantiate").
		addAttribute("sender", sender.String()).
		addAttribute("owner", owner.String()), nil
}

// Bid escrows funds for caller. The caller's cumulative total must strictly exceed the
// current highest bid: matching the leader is not enough, and a losing attempt escrows
// nothing. The protocol fee is charged on the increment paid now and routed to the owner.
func (e *Engine) Bid(caller Addr, funds []Coin) (*Response, error) {
	cfg, err := loadConfig(e.store)
	if err != nil {
		return nil, err
	}
	if !cfg.Open {
		return nil, ErrAuctionClosed
	}

	paid, err := MustPay(funds, cfg.Denom)
	if err != nil {
		return nil, err
	}

	highest, err := loadHighestBid(e.store)
	if err != nil {
		return nil, err
	}
	prior, _, err := loadBid(e.store, caller)
	if err != nil {
		return nil, err
	}

	total, err := checkedAdd(prior, paid)
	if err != nil {
		return nil, err
	}
	if highest != nil && !total.Gt(&highest.Amount) {
		return nil, fmt.Errorf("%w: total %s does not exceed %s", ErrBidTooLow, total.Dec(), highest.Amount.Dec())
	}

	fee, err := FeeAmount(paid, cfg.FeeRate)
	if err != nil {
		return nil, err
	}
	var owner Addr
	var feesCharged *uint256.Int
	if !fee.IsZero() {
		if owner, err = loadOwner(e.store); err != nil {
			return nil, err
		}
		prevFees, err := loadBidFees(e.store, caller)
		if err != nil {
			return nil, err
		}
		if feesCharged, err = checkedAdd(prevFees, fee); err != nil {
			return nil, err
		}
	}

	if err := saveBid(e.store, caller, total); err != nil {
		return nil, err
	}
	if err := saveHighestBid(e.store, &HighestBid{Bidder: caller, Amount: *total}); err != nil {
		return nil, err
	}
	if feesCharged != nil {
		if err := saveBidFees(e.store, caller, feesCharged); err != nil {
			return nil, err
		}
	}

	resp := newResponse("bid").
		addAttribute("bidder", caller.String()).
		addAttribute("total_bid", total.Dec()).
		addAttribute("fee", fee.Dec())
	if !fee.IsZero() {
		resp.addPayout(Payout{Recipient: owner, Denom: cfg.Denom, Amount: *fee})
	}
	return resp, nil
}

// Close ends the auction and pays the winning bid, less the fee, to the owner.
// The winner's ledger entry is left in place; Retract refuses it.
func (e *Engine) Close(caller Addr) (*Response, error) {
	owner, err := loadOwner(e.store)
	if err != nil {
		return nil, err
	}
	if caller != owner {
		return nil, fmt.Errorf("%w: only the owner can close the auction", ErrUnauthorized)
	}

	cfg, err := loadConfig(e.store)
	if err != nil {
		return nil, err
	}
	if !cfg.Open {
		return nil, ErrAuctionClosed
	}

	highest, err := loadHighestBid(e.store)
	if err != nil {
		return nil, err
	}
	if highest == nil {
		return nil, ErrNoBids
	}

	fee, err := FeeAmount(&highest.Amount, cfg.FeeRate)
	if err != nil {
		return nil, err
	}
	payout := new(uint256.Int).Sub(&highest.Amount, fee)

	cfg.Open = false
	if err := saveConfig(e.store, cfg); err != nil {
		return nil, err
	}

	return newResponse("close").
		addAttribute("winner", highest.Bidder.String()).
		addAttribute("winning_bid", highest.Amount.Dec()).
		addAttribute("fee", fee.Dec()).
		addAttribute("payout", payout.Dec()).
		addPayout(Payout{Recipient: owner, Denom: cfg.Denom, Amount: *payout}), nil
}

// Retract returns a losing bidder's escrow once the auction is closed. receiver is
// optional; funds go to caller when it is empty. A second call fails with
// ErrAlreadyRetracted instead of paying twice.
//
// Fees charged at bid time already left custody, so the refund is the recorded total
// minus those fees. This keeps total releases within total escrow.
func (e *Engine) Retract(caller Addr, receiver string) (*Response, error) {
	cfg, err := loadConfig(e.store)
	if err != nil {
		return nil, err
	}
	if cfg.Open {
		return nil, ErrAuctionOpen
	}

	highest, err := loadHighestBid(e.store)
	if err != nil {
		return nil, err
	}
	if highest != nil && highest.Bidder == caller {
		return nil, fmt.Errorf("%w: the winning bid cannot be retracted", ErrUnauthorized)
	}

	to := caller
	if receiver != "" {
		if to, err = e.addrs.Validate(receiver); err != nil {
			return nil, fmt.Errorf("receiver %q: %w", receiver, err)
		}
	}

	amount, found, err := loadBid(e.store, caller)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoFundsToRetract
	}
	if amount.IsZero() {
		return nil, ErrAlreadyRetracted
	}

	fees, err := loadBidFees(e.store, caller)
	if err != nil {
		return nil, err
	}
	if fees.Gt(amount) {
		return nil, fmt.Errorf("fees %s exceed escrow %s: %w", fees.Dec(), amount.Dec(), ErrArithmeticOverflow)
	}
	refund := new(uint256.Int).Sub(amount, fees)

	if err := saveBid(e.store, caller, new(uint256.Int)); err != nil {
		return nil, err
	}

	return newResponse("retract").
		addAttribute("bidder", caller.String()).
		addAttribute("receiver", to.String()).
		addAttribute("amount", refund.Dec()).
		addAttribute("fees_withheld", fees.Dec()).
		addPayout(Payout{Recipient: to, Denom: cfg.Denom, Amount: *refund}), nil
}
