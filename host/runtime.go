package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/auctionapi"
	"github.com/cloudx-io/escrowauction/core"
	"github.com/cloudx-io/escrowauction/store"
)

// Runtime executes wire messages against the auction. Every instantiate and execute runs
// in one exclusive store transaction: it commits only if the engine accepted the call and
// the receipt was signed, so a failed call leaves no trace. Payouts are dispatched after
// commit.
type Runtime struct {
	db         *store.DB
	addrs      core.AddrValidator
	contract   core.Addr
	keys       *KeyManager
	dispatcher PayoutDispatcher
	metrics    *Metrics
	logger     *zap.Logger
	now        func() time.Time
}

type RuntimeOption func(*Runtime)

func WithDispatcher(d PayoutDispatcher) RuntimeOption {
	return func(r *Runtime) { r.dispatcher = d }
}

func WithMetrics(m *Metrics) RuntimeOption {
	return func(r *Runtime) { r.metrics = m }
}

func WithClock(now func() time.Time) RuntimeOption {
	return func(r *Runtime) { r.now = now }
}

// NewRuntime wires a runtime. Without options it logs payouts and keeps metrics in a
// private registry.
func NewRuntime(db *store.DB, addrs core.AddrValidator, contract core.Addr, keys *KeyManager, logger *zap.Logger, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		db:       db,
		addrs:    addrs,
		contract: contract,
		keys:     keys,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dispatcher == nil {
		r.dispatcher = NewLogDispatcher(logger)
	}
	if r.metrics == nil {
		r.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return r
}

// ExecuteResult is a committed call with its signed receipt.
type ExecuteResult struct {
	Response    *auctionapi.Response
	Receipt     *auctionapi.Receipt
	ReceiptCOSE auctionapi.COSE
}

// Instantiate configures the auction. It can succeed only once per store.
func (r *Runtime) Instantiate(ctx context.Context, sender string, msg *auctionapi.InstantiateMsg) (*ExecuteResult, error) {
	const action = "instantiate"
	if msg == nil {
		return nil, r.reject(action, sender, fmt.Errorf("%w: missing instantiate message", auctionapi.ErrInvalidMessage))
	}
	caller, err := r.addrs.Validate(sender)
	if err != nil {
		return nil, r.reject(action, sender, fmt.Errorf("sender: %w", err))
	}

	return r.run(ctx, action, caller, nil, func(e *core.Engine) (*core.Response, error) {
		return e.Instantiate(r.contract, caller, msg.Params())
	})
}

// Execute runs one bid, close or retract. funds are what the sender attached to the call;
// only bids may carry funds.
func (r *Runtime) Execute(ctx context.Context, sender string, funds []auctionapi.Coin, msg *auctionapi.ExecuteMsg) (*ExecuteResult, error) {
	if msg == nil {
		return nil, r.reject("unknown", sender, fmt.Errorf("%w: missing execute message", auctionapi.ErrInvalidMessage))
	}
	action, err := msg.Action()
	if err != nil {
		return nil, r.reject("unknown", sender, err)
	}
	caller, err := r.addrs.Validate(sender)
	if err != nil {
		return nil, r.reject(action, sender, fmt.Errorf("sender: %w", err))
	}
	coins, err := auctionapi.ToCoreCoins(funds)
	if err != nil {
		return nil, r.reject(action, sender, err)
	}
	if action != "bid" && len(coins) > 0 {
		return nil, r.reject(action, sender, fmt.Errorf("%w: %s accepts no funds", core.ErrWrongPaymentAsset, action))
	}

	return r.run(ctx, action, caller, funds, func(e *core.Engine) (*core.Response, error) {
		switch action {
		case "bid":
			return e.Bid(caller, coins)
		case "close":
			return e.Close(caller)
		default:
			var receiver string
			if msg.Retract.FriendRec != nil {
				receiver = *msg.Retract.FriendRec
			}
			return e.Retract(caller, receiver)
		}
	})
}

// run executes fn in a transaction, signs the receipt before commit and dispatches
// payouts after it.
func (r *Runtime) run(ctx context.Context, action string, caller core.Addr, funds []auctionapi.Coin, fn func(*core.Engine) (*core.Response, error)) (*ExecuteResult, error) {
	txn, err := r.db.Begin()
	if err != nil {
		return nil, r.reject(action, caller.String(), err)
	}
	defer txn.Discard()

	resp, err := fn(core.NewEngine(txn, r.addrs))
	if err != nil {
		return nil, r.reject(action, caller.String(), err)
	}
	ledgerHash, err := core.ComputeLedgerHash(txn)
	if err != nil {
		return nil, r.reject(action, caller.String(), err)
	}

	wire := auctionapi.FromCoreResponse(resp)
	receipt := &auctionapi.Receipt{
		ID:         uuid.NewString(),
		Action:     action,
		Sender:     caller.String(),
		Funds:      funds,
		Messages:   wire.Messages,
		Attributes: wire.Attributes,
		LedgerHash: ledgerHash,
		Timestamp:  r.now().Unix(),
	}
	signed, err := r.keys.SignReceipt(receipt)
	if err != nil {
		return nil, r.reject(action, caller.String(), err)
	}

	if err := txn.Commit(); err != nil {
		return nil, r.reject(action, caller.String(), err)
	}
	r.metrics.observeExecution(action, "")

	r.logger.Info("Execute committed",
		zap.String("action", action),
		zap.String("sender", caller.String()),
		zap.String("receipt_id", receipt.ID),
		zap.Int("payouts", len(wire.Messages)))

	if len(wire.Messages) > 0 {
		r.metrics.payouts.WithLabelValues(action).Add(float64(len(wire.Messages)))
		if err := r.dispatcher.Dispatch(ctx, receipt.ID, wire.Messages); err != nil {
			r.logger.Error("Payout dispatch failed",
				zap.String("receipt_id", receipt.ID),
				zap.Error(err))
		}
	}

	return &ExecuteResult{Response: wire, Receipt: receipt, ReceiptCOSE: signed}, nil
}

func (r *Runtime) reject(action, sender string, err error) error {
	code := ErrorCode(err)
	r.metrics.observeExecution(action, code)
	if code == "internal" {
		r.logger.Error("Execute failed", zap.String("action", action), zap.String("sender", sender), zap.Error(err))
	} else {
		r.logger.Info("Execute rejected", zap.String("action", action), zap.String("sender", sender), zap.String("code", code), zap.Error(err))
	}
	return err
}

// Query answers a read-only query from a snapshot of committed state.
func (r *Runtime) Query(msg *auctionapi.QueryMsg) (json.RawMessage, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: missing query message", auctionapi.ErrInvalidMessage)
	}
	kind, err := msg.Kind()
	if err != nil {
		return nil, err
	}

	snap, err := r.db.Snapshot()
	if err != nil {
		return nil, err
	}
	defer snap.Release()
	q := core.NewQuerier(snap, r.addrs)

	var result any
	switch kind {
	case "bidder_total_bid":
		amount, err := q.BidderTotalBid(msg.BidderTotalBid.Address)
		if err != nil {
			return nil, err
		}
		result = amount.Dec()
	case "highest_bid_info":
		info, err := q.HighestBidInfo()
		if err != nil {
			return nil, err
		}
		result = auctionapi.FromBidInfo(info)
	default:
		n, err := q.TotalParticipants()
		if err != nil {
			return nil, err
		}
		result = n
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s result: %w", kind, err)
	}
	return data, nil
}

// ErrorCode maps runtime and engine errors to wire codes.
func ErrorCode(err error) string {
	if errors.Is(err, auctionapi.ErrInvalidMessage) {
		return "invalid_message"
	}
	return core.ErrorCode(err)
}
