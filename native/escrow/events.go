package escrow

import (
	"encoding/hex"

	"auzchain/core/types"
)

const (
	EventTypeTradeRegistered = "escrow.trade.registered"
	EventTypeTradeValidated  = "escrow.trade.validated"
	EventTypeTradePaid       = "escrow.trade.paid"
	EventTypeTradeFinished   = "escrow.trade.finished"
	EventTypeTradeReleased   = "escrow.trade.released"
	EventTypeTradeResolved   = "escrow.trade.resolved"
)

func newTradeEvent(eventType string, t *Trade, reason string) *types.Event {
	if t == nil {
		return &types.Event{Type: eventType, Attributes: map[string]string{}}
	}
	attrs := map[string]string{
		"trade":       t.ID,
		"seller":      hex.EncodeToString(t.Seller[:]),
		"buyer":       hex.EncodeToString(t.Buyer[:]),
		"cap":         amountString(t.TradeCap),
		"sellersPart": amountString(t.SellersPart),
		"status":      t.Status.String(),
	}
	if reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
