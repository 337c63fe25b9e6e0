package escrow

import (
	"fmt"
	"math/big"
	"strings"
)

// TradeStatus is the lifecycle position of a custodied trade. The graph is
// strictly monotonic: registered → valid → paid → finished → released, with
// resolved as the alternate terminal reachable from paid or finished once the
// resolution window has elapsed.
type TradeStatus uint8

const (
	TradeUnknown TradeStatus = iota
	TradeRegistered
	TradeValid
	TradePaid
	TradeFinished
	TradeReleased
	TradeResolved
)

// String returns the wire name of the status.
func (s TradeStatus) String() string {
	switch s {
	case TradeRegistered:
		return "registered"
	case TradeValid:
		return "valid"
	case TradePaid:
		return "paid"
	case TradeFinished:
		return "finished"
	case TradeReleased:
		return "released"
	case TradeResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Valid reports whether the status value is within the supported range.
func (s TradeStatus) Valid() bool {
	switch s {
	case TradeRegistered, TradeValid, TradePaid, TradeFinished, TradeReleased, TradeResolved:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.
func (s TradeStatus) Terminal() bool {
	return s == TradeReleased || s == TradeResolved
}

// canTransition is the single authority on the legal transition graph. Every
// setter routes through it so no flag can flip twice or out of order.
func canTransition(from, to TradeStatus) bool {
	switch to {
	case TradeValid:
		return from == TradeRegistered
	case TradePaid:
		return from == TradeValid
	case TradeFinished:
		return from == TradePaid
	case TradeReleased:
		return from == TradeFinished
	case TradeResolved:
		return from == TradePaid || from == TradeFinished
	default:
		return false
	}
}

// Trade captures the immutable registration data and runtime status of a
// custodied exchange. Records are never deleted; terminal trades remain as an
// auditable history. TradeCap is held by the escrow vault between paid and
// finished/resolved; the settlement fee is TradeCap−SellersPart, fixed at
// registration.
type Trade struct {
	ID                  string
	Seller              [20]byte
	Buyer               [20]byte
	TradeCap            *big.Int
	SellersPart         *big.Int
	EvidenceRefs        []string
	CreatedAt           int64
	ResolutionWindowEnd int64
	Status              TradeStatus
	ResolutionReason    string
	ResolvedForSeller   bool
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (t *Trade) Clone() *Trade {
	if t == nil {
		return nil
	}
	clone := *t
	if t.TradeCap != nil {
		clone.TradeCap = new(big.Int).Set(t.TradeCap)
	} else {
		clone.TradeCap = big.NewInt(0)
	}
	if t.SellersPart != nil {
		clone.SellersPart = new(big.Int).Set(t.SellersPart)
	} else {
		clone.SellersPart = big.NewInt(0)
	}
	if t.EvidenceRefs != nil {
		clone.EvidenceRefs = append([]string(nil), t.EvidenceRefs...)
	}
	return &clone
}

// SanitizeTrade validates and normalises the supplied trade record, returning
// a cloned instance with trimmed identifiers and non-nil amounts. The
// original value is not mutated.
func SanitizeTrade(t *Trade) (*Trade, error) {
	if t == nil {
		return nil, fmt.Errorf("escrow: nil trade")
	}
	clone := t.Clone()
	clone.ID = strings.TrimSpace(clone.ID)
	if clone.ID == "" {
		return nil, fmt.Errorf("escrow: trade id required")
	}
	if clone.TradeCap.Sign() <= 0 {
		return nil, fmt.Errorf("escrow: trade cap must be positive")
	}
	if clone.SellersPart.Sign() < 0 {
		return nil, fmt.Errorf("escrow: sellers part must be non-negative")
	}
	if clone.SellersPart.Cmp(clone.TradeCap) > 0 {
		return nil, fmt.Errorf("escrow: sellers part exceeds trade cap")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("escrow: invalid trade status %d", clone.Status)
	}
	return clone, nil
}
