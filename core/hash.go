package core

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// ComputeLedgerHash commits to the auction state a receipt was issued against.
//
// Formula: SHA256("open=" + open + "|highest=" + bidder + ":" + amount + "|" + addr1 + ":" + amount1 + "|" + ...)
//
// Ledger entries are taken in key order, retracted (zero) entries included. highest is
// empty before the first bid. Amounts are base-10 integers.
func ComputeLedgerHash(store ReadStore) (string, error) {
	cfg, err := loadConfig(store)
	if err != nil {
		return "", err
	}
	highest, err := loadHighestBid(store)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "open=%t|highest=", cfg.Open)
	if highest != nil {
		fmt.Fprintf(&b, "%s:%s", highest.Bidder, highest.Amount.Dec())
	}

	err = store.Iterate(bidsPrefix, func(key, value []byte) error {
		var raw []byte
		if err := cbor.Unmarshal(value, &raw); err != nil {
			return fmt.Errorf("failed to decode %s: %w", key, err)
		}
		fmt.Fprintf(&b, "|%s:%s", key[len(bidsPrefix):], new(uint256.Int).SetBytes(raw).Dec())
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to enumerate bids: %w", err)
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash), nil
}
