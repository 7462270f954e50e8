package validation

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/cloudx-io/escrowauction/core"
)

// Bech32Validator accepts lowercase bech32 identities with the configured human-readable
// prefix and a 20 or 32 byte payload.
type Bech32Validator struct {
	Prefix string
}

func NewBech32Validator(prefix string) *Bech32Validator {
	return &Bech32Validator{Prefix: prefix}
}

// Validate returns the canonical identity or an error wrapping core.ErrInvalidIdentity.
func (v *Bech32Validator) Validate(addr string) (core.Addr, error) {
	if addr != strings.ToLower(addr) {
		return "", fmt.Errorf("%w: %q is not lowercase", core.ErrInvalidIdentity, addr)
	}

	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", core.ErrInvalidIdentity, addr, err)
	}
	if hrp != v.Prefix {
		return "", fmt.Errorf("%w: %q has prefix %q, want %q", core.ErrInvalidIdentity, addr, hrp, v.Prefix)
	}

	payload, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", core.ErrInvalidIdentity, addr, err)
	}
	if n := len(payload); n != 20 && n != 32 {
		return "", fmt.Errorf("%w: %q carries %d bytes", core.ErrInvalidIdentity, addr, n)
	}
	return core.Addr(addr), nil
}

// Encode builds an identity from a raw payload. Used by tooling and tests.
func (v *Bech32Validator) Encode(payload []byte) (core.Addr, error) {
	addr, err := bech32.EncodeFromBase256(v.Prefix, payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return core.Addr(addr), nil
}
