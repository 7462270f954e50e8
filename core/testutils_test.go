package core

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

const (
	testDenom    = "uescrow"
	testContract = Addr("addr_contract")
	testOwner    = Addr("addr_owner")
)

// memStore is an ordered in-memory KVStore for engine tests.
type memStore struct {
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(key, value []byte) error {
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *memStore) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), m.data[k]); err != nil {
			return err
		}
	}
	return nil
}

// dump copies the store so tests can assert a failed call changed nothing.
func (m *memStore) dump() map[string]string {
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = string(v)
	}
	return out
}

// testAddrs accepts any identity with the "addr_" prefix.
type testAddrs struct{}

func (testAddrs) Validate(addr string) (Addr, error) {
	if !strings.HasPrefix(addr, "addr_") || len(addr) <= len("addr_") {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentity, addr)
	}
	return Addr(addr), nil
}

func coins(amount uint64) []Coin {
	return []Coin{{Denom: testDenom, Amount: *uint256.NewInt(amount)}}
}

// newTestAuction instantiates an open auction owned by testOwner.
func newTestAuction(t *testing.T, feeRate string) (*Engine, *memStore) {
	t.Helper()
	st := newMemStore()
	engine := NewEngine(st, testAddrs{})
	_, err := engine.Instantiate(testContract, testOwner, InstantiateParams{
		Owner:   string(testOwner),
		Denom:   testDenom,
		FeeRate: decimal.RequireFromString(feeRate),
	})
	assert.NoError(t, err)
	return engine, st
}

func mustBid(t *testing.T, engine *Engine, bidder Addr, amount uint64) *Response {
	t.Helper()
	resp, err := engine.Bid(bidder, coins(amount))
	assert.NoError(t, err)
	return resp
}

func mustClose(t *testing.T, engine *Engine) *Response {
	t.Helper()
	resp, err := engine.Close(testOwner)
	assert.NoError(t, err)
	return resp
}

func ledgerAmount(t *testing.T, st ReadStore, addr Addr) (string, bool) {
	t.Helper()
	amount, found, err := loadBid(st, addr)
	assert.NoError(t, err)
	return amount.Dec(), found
}
