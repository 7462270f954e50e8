package host

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/assert"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/store"
	"github.com/cloudx-io/escrowauction/validation"
)

const (
	testPrefix = "escrow"
	testDenom  = "uescrow"
)

var testValidator = validation.NewBech32Validator(testPrefix)

// testAddr derives a deterministic bech32 identity from seed.
func testAddr(t *testing.T, seed byte) string {
	t.Helper()
	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = seed
	}
	addr, err := testValidator.Encode(payload)
	assert.NoError(t, err)
	return addr.String()
}

type payoutCall struct {
	receiptID string
	msgs      []auctionapi.Message
}

// recordingDispatcher captures payouts and optionally fails them.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []payoutCall
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, receiptID string, msgs []auctionapi.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, payoutCall{receiptID: receiptID, msgs: msgs})
	return d.err
}

type testHost struct {
	runtime    *Runtime
	db         *store.DB
	keys       *KeyManager
	metrics    *Metrics
	dispatcher *recordingDispatcher
	contract   string
	owner      string
}

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	db, err := store.OpenMemory()
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	keys, err := NewKeyManager()
	assert.NoError(t, err)

	contract := testAddr(t, 0xc0)
	metrics := NewMetrics(prometheus.NewRegistry())
	dispatcher := &recordingDispatcher{}
	runtime := NewRuntime(db, testValidator, core.Addr(contract), keys, zap.NewNop(),
		WithDispatcher(dispatcher),
		WithMetrics(metrics),
		WithClock(func() time.Time { return testClock }))

	return &testHost{
		runtime:    runtime,
		db:         db,
		keys:       keys,
		metrics:    metrics,
		dispatcher: dispatcher,
		contract:   contract,
		owner:      testAddr(t, 0x01),
	}
}

// instantiate opens an auction owned by h.owner with the given fee rate.
func (h *testHost) instantiate(t *testing.T, fee string) *ExecuteResult {
	t.Helper()
	owner := h.owner
	result, err := h.runtime.Instantiate(context.Background(), h.owner, &auctionapi.InstantiateMsg{
		Owner:               &owner,
		RequiredNativeDenom: testDenom,
		Fee:                 decimal.RequireFromString(fee),
	})
	assert.NoError(t, err)
	return result
}

func (h *testHost) bid(sender string, amount string) (*ExecuteResult, error) {
	return h.runtime.Execute(context.Background(), sender,
		[]auctionapi.Coin{{Denom: testDenom, Amount: amount}},
		&auctionapi.ExecuteMsg{Bid: &auctionapi.BidMsg{}})
}

func (h *testHost) close(sender string) (*ExecuteResult, error) {
	return h.runtime.Execute(context.Background(), sender, nil,
		&auctionapi.ExecuteMsg{Close: &auctionapi.CloseMsg{}})
}

func (h *testHost) retract(sender string, friend *string) (*ExecuteResult, error) {
	return h.runtime.Execute(context.Background(), sender, nil,
		&auctionapi.ExecuteMsg{Retract: &auctionapi.RetractMsg{FriendRec: friend}})
}

func attribute(resp *auctionapi.Response, key string) string {
	for _, a := range resp.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// MockEnclaveHandle implements the Attest method for testing
type MockEnclaveHandle struct {
	AttestFunc func(options enclave.AttestationOptions) ([]byte, error)
}

func (m *MockEnclaveHandle) Attest(options enclave.AttestationOptions) ([]byte, error) {
	if m.AttestFunc != nil {
		return m.AttestFunc(options)
	}
	return nil, fmt.Errorf("mock not configured")
}

// CreateMockEnclave returns an attester producing an unsigned Nitro-shaped document
// that echoes the requested user data and nonce.
func CreateMockEnclave(t *testing.T) *MockEnclaveHandle {
	t.Helper()
	return &MockEnclaveHandle{
		AttestFunc: func(options enclave.AttestationOptions) ([]byte, error) {
			nestedDoc := map[string]any{
				"module_id": "test-enclave-12345",
				"digest":    "SHA384",
				"timestamp": uint64(1748779200000),
				"pcrs": map[uint64][]byte{
					0: {0x3b, 0x4c, 0xef},
					1: {0x4b, 0x4d, 0x5b},
					2: {0x2b, 0xdd, 0x28},
				},
				"certificate": []byte("test-certificate-data"),
				"cabundle":    [][]byte{[]byte("test-ca-cert")},
				"user_data":   options.UserData,
				"nonce":       options.Nonce,
			}

			nestedBytes, err := cbor.Marshal(nestedDoc)
			if err != nil {
				return nil, err
			}

			// AWS Nitro 4-element array: [protected, unprotected, payload, signature]
			return cbor.Marshal([]any{
				[]byte{0x01, 0x02, 0x03},
				map[string]any{},
				nestedBytes,
				[]byte{0x04, 0x05, 0x06},
			})
		},
	}
}

func mockAttesterFunc(t *testing.T) AttesterFunc {
	t.Helper()
	mock := CreateMockEnclave(t)
	return func() (EnclaveAttester, error) { return mock, nil }
}

func noAttester() (EnclaveAttester, error) {
	return nil, fmt.Errorf("NSM not available")
}
