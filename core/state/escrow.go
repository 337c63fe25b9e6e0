package state

import (
	"errors"
	"math/big"

	"auzchain/native/escrow"
)

// storedTrade mirrors escrow.Trade with RLP-friendly field types; RLP has no
// signed integers, so timestamps travel as big integers.
type storedTrade struct {
	ID                  string
	Seller              [20]byte
	Buyer               [20]byte
	TradeCap            *big.Int
	SellersPart         *big.Int
	EvidenceRefs        []string
	CreatedAt           *big.Int
	ResolutionWindowEnd *big.Int
	Status              uint8
	ResolutionReason    string
	ResolvedForSeller   bool
}

func newStoredTrade(t *escrow.Trade) *storedTrade {
	tradeCap := big.NewInt(0)
	if t.TradeCap != nil {
		tradeCap = new(big.Int).Set(t.TradeCap)
	}
	part := big.NewInt(0)
	if t.SellersPart != nil {
		part = new(big.Int).Set(t.SellersPart)
	}
	return &storedTrade{
		ID:                  t.ID,
		Seller:              t.Seller,
		Buyer:               t.Buyer,
		TradeCap:            tradeCap,
		SellersPart:         part,
		EvidenceRefs:        append([]string(nil), t.EvidenceRefs...),
		CreatedAt:           big.NewInt(t.CreatedAt),
		ResolutionWindowEnd: big.NewInt(t.ResolutionWindowEnd),
		Status:              uint8(t.Status),
		ResolutionReason:    t.ResolutionReason,
		ResolvedForSeller:   t.ResolvedForSeller,
	}
}

func (s *storedTrade) toTrade() *escrow.Trade {
	trade := &escrow.Trade{
		ID:                s.ID,
		Seller:            s.Seller,
		Buyer:             s.Buyer,
		TradeCap:          big.NewInt(0),
		SellersPart:       big.NewInt(0),
		EvidenceRefs:      append([]string(nil), s.EvidenceRefs...),
		Status:            escrow.TradeStatus(s.Status),
		ResolutionReason:  s.ResolutionReason,
		ResolvedForSeller: s.ResolvedForSeller,
	}
	if s.TradeCap != nil {
		trade.TradeCap = new(big.Int).Set(s.TradeCap)
	}
	if s.SellersPart != nil {
		trade.SellersPart = new(big.Int).Set(s.SellersPart)
	}
	if s.CreatedAt != nil {
		trade.CreatedAt = s.CreatedAt.Int64()
	}
	if s.ResolutionWindowEnd != nil {
		trade.ResolutionWindowEnd = s.ResolutionWindowEnd.Int64()
	}
	return trade
}

func tradeKey(id string) []byte {
	return storageKey(tradePrefix, []byte(id))
}

// TradePut persists the trade record keyed by its id.
func (m *Manager) TradePut(trade *escrow.Trade) error {
	if trade == nil {
		return errors.New("state: nil trade")
	}
	return m.putRLP(tradeKey(trade.ID), newStoredTrade(trade))
}

// TradeGet loads the trade, reporting whether the id is registered.
func (m *Manager) TradeGet(id string) (*escrow.Trade, bool, error) {
	stored := new(storedTrade)
	ok, err := m.getRLP(tradeKey(id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toTrade(), true, nil
}
