package core

import (
	"github.com/holiman/uint256"
)

// Querier answers read-only queries. It never writes.
type Querier struct {
	store ReadStore
	addrs AddrValidator
}

func NewQuerier(store ReadStore, addrs AddrValidator) *Querier {
	return &Querier{store: store, addrs: addrs}
}

// BidderTotalBid returns the cumulative escrow recorded for address. Unknown and
// malformed addresses report zero rather than an error.
func (q *Querier) BidderTotalBid(address string) (*uint256.Int, error) {
	addr, err := q.addrs.Validate(address)
	if err != nil {
		return new(uint256.Int), nil
	}
	amount, _, err := loadBid(q.store, addr)
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// HighestBidInfo reports the current leader and whether the auction has closed.
func (q *Querier) HighestBidInfo() (*BidInfo, error) {
	cfg, err := loadConfig(q.store)
	if err != nil {
		return nil, err
	}
	highest, err := loadHighestBid(q.store)
	if err != nil {
		return nil, err
	}

	info := &BidInfo{IsClosed: !cfg.Open}
	if highest != nil {
		bidder := highest.Bidder
		info.Bidder = &bidder
		info.Amount = highest.Amount.Clone()
	}
	return info, nil
}

// TotalParticipants counts distinct bidders, retracted ones included.
func (q *Querier) TotalParticipants() (uint64, error) {
	return countBids(q.store)
}

// Config returns the stored auction configuration.
func (q *Querier) Config() (*Config, error) {
	return loadConfig(q.store)
}

// Owner returns the auction owner.
func (q *Querier) Owner() (Addr, error) {
	return loadOwner(q.store)
}
