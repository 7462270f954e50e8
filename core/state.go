package core

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ownerKey      = []byte("owner")
	configKey     = []byte("config")
	highestBidKey = []byte("highest_bid")
	bidsPrefix    = []byte("all_bids/")
	feesPrefix    = []byte("bid_fees/")
)

type configRecord struct {
	Denom string `cbor:"required_native_denom"`
	Fee   string `cbor:"fee"`
	Open  bool   `cbor:"open_sale"`
}

type highestBidRecord struct {
	Bidder string `cbor:"bidder"`
	Amount []byte `cbor:"amount"`
}

func loadItem(store ReadStore, key []byte, v any) (bool, error) {
	raw, err := store.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := cbor.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func saveItem(store KVStore, key []byte, v any) error {
	raw, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := store.Set(key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func loadOwner(store ReadStore) (Addr, error) {
	var owner string
	found, err := loadItem(store, ownerKey, &owner)
	if err != nil {
		return "", err
	}
	if !found {
		return "", ErrNotInstantiated
	}
	return Addr(owner), nil
}

func saveOwner(store KVStore, owner Addr) error {
	return saveItem(store, ownerKey, string(owner))
}

func loadConfig(store ReadStore) (*Config, error) {
	var rec configRecord
	found, err := loadItem(store, configKey, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotInstantiated
	}
	rate, err := decimal.NewFromString(rec.Fee)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored fee rate %q: %w", rec.Fee, err)
	}
	return &Config{Denom: rec.Denom, FeeRate: rate, Open: rec.Open}, nil
}

func saveConfig(store KVStore, cfg *Config) error {
	return saveItem(store, configKey, configRecord{
		Denom: cfg.Denom,
		Fee:   cfg.FeeRate.String(),
		Open:  cfg.Open,
	})
}

// loadHighestBid returns the cached leader, or nil before the first accepted bid.
func loadHighestBid(store ReadStore) (*HighestBid, error) {
	var rec highestBidRecord
	found, err := loadItem(store, highestBidKey, &rec)
	if err != nil || !found {
		return nil, err
	}
	hb := &HighestBid{Bidder: Addr(rec.Bidder)}
	hb.Amount.SetBytes(rec.Amount)
	return hb, nil
}

func saveHighestBid(store KVStore, hb *HighestBid) error {
	return saveItem(store, highestBidKey, highestBidRecord{
		Bidder: string(hb.Bidder),
		Amount: hb.Amount.Bytes(),
	})
}

func prefixedKey(prefix []byte, addr Addr) []byte {
	key := make([]byte, 0, len(prefix)+len(addr))
	key = append(key, prefix...)
	return append(key, addr...)
}

func bidKey(addr Addr) []byte { return prefixedKey(bidsPrefix, addr) }

// loadBid reads a ledger entry. found distinguishes "never bid" from a zeroed entry.
func loadBid(store ReadStore, addr Addr) (amount *uint256.Int, found bool, err error) {
	var raw []byte
	found, err = loadItem(store, bidKey(addr), &raw)
	if err != nil || !found {
		return new(uint256.Int), found, err
	}
	return new(uint256.Int).SetBytes(raw), true, nil
}

func saveBid(store KVStore, addr Addr, amount *uint256.Int) error {
	return saveItem(store, bidKey(addr), amount.Bytes())
}

// loadBidFees returns the fees already routed to the owner out of addr's bids.
func loadBidFees(store ReadStore, addr Addr) (*uint256.Int, error) {
	var raw []byte
	if _, err := loadItem(store, prefixedKey(feesPrefix, addr), &raw); err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func saveBidFees(store KVStore, addr Addr, fees *uint256.Int) error {
	return saveItem(store, prefixedKey(feesPrefix, addr), fees.Bytes())
}

// countBids enumerates ledger keys, including retracted (zero) entries.
func countBids(store ReadStore) (uint64, error) {
	var n uint64
	err := store.Iterate(bidsPrefix, func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate bids: %w", err)
	}
	return n, nil
}
