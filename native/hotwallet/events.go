package hotwallet

import (
	"encoding/hex"
	"math/big"

	"auzchain/core/types"
)

const (
	EventTypeGoldBought    = "hotwallet.bought"
	EventTypeGoldSold      = "hotwallet.sold"
	EventTypeSaleRequested = "hotwallet.sale.requested"
	EventTypeSaleProcessed = "hotwallet.sale.processed"
)

func newBuyEvent(to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeGoldBought, Attributes: map[string]string{
		"to":     hex.EncodeToString(to[:]),
		"amount": amountString(amount),
	}}
}

func newSellEvent(seller [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeGoldSold, Attributes: map[string]string{
		"seller": hex.EncodeToString(seller[:]),
		"amount": amountString(amount),
	}}
}

func newSaleRequestEvent(req *SaleRequest) *types.Event {
	return &types.Event{Type: EventTypeSaleRequested, Attributes: map[string]string{
		"request":    req.ID,
		"requester":  hex.EncodeToString(req.Requester[:]),
		"amount":     amountString(req.Amount),
		"networkFee": amountString(req.NetworkFee),
	}}
}

func newSaleProcessedEvent(req *SaleRequest) *types.Event {
	return &types.Event{Type: EventTypeSaleProcessed, Attributes: map[string]string{
		"request":   req.ID,
		"requester": hex.EncodeToString(req.Requester[:]),
		"amount":    amountString(req.Amount),
		"status":    req.Status.String(),
	}}
}
