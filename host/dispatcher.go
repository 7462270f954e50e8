package host

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloudx-io/escrowauction/auctionapi"
)

// PayoutDispatcher moves funds out of custody. It receives the bank sends of a call
// only after that call has committed, and its failures never roll the call back.
type PayoutDispatcher interface {
	Dispatch(ctx context.Context, receiptID string, msgs []auctionapi.Message) error
}

// LogDispatcher records payouts in the log instead of moving funds. It is the default
// when no settlement backend is attached.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, receiptID string, msgs []auctionapi.Message) error {
	for _, msg := range msgs {
		if msg.BankSend == nil {
			continue
		}
		for _, coin := range msg.BankSend.Amount {
			d.logger.Info("Payout",
				zap.String("receipt_id", receiptID),
				zap.String("to", msg.BankSend.ToAddress),
				zap.String("denom", coin.Denom),
				zap.String("amount", coin.Amount))
		}
	}
	return nil
}
