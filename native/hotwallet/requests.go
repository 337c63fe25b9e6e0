package hotwallet

import (
	"errors"
	"math/big"
)

// SaleStatus tracks a delegated sale request through its lifecycle. Requests
// start pending and end approved or rejected; both ends are terminal.
type SaleStatus uint8

const (
	SaleUnknown SaleStatus = iota
	SalePending
	SaleApproved
	SaleRejected
)

func (s SaleStatus) String() string {
	switch s {
	case SalePending:
		return "pending"
	case SaleApproved:
		return "approved"
	case SaleRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Valid reports whether the status is one the engine can persist.
func (s SaleStatus) Valid() bool {
	switch s {
	case SalePending, SaleApproved, SaleRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether the request can no longer be processed.
func (s SaleStatus) Terminal() bool {
	return s == SaleApproved || s == SaleRejected
}

// SaleRequest records a delegated sale awaiting an approver's decision. The
// amount sits in hot-wallet custody from creation until the request is
// rejected (refund) or approved (custody kept, proceeds settled off-chain).
type SaleRequest struct {
	ID         string
	Requester  [20]byte
	Amount     *big.Int
	NetworkFee *big.Int
	CreatedAt  int64
	Status     SaleStatus
}

// Clone returns a deep copy of the request.
func (r *SaleRequest) Clone() *SaleRequest {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Amount != nil {
		clone.Amount = new(big.Int).Set(r.Amount)
	}
	if r.NetworkFee != nil {
		clone.NetworkFee = new(big.Int).Set(r.NetworkFee)
	}
	return &clone
}

// SanitizeSaleRequest validates invariants and normalizes nil amounts.
func SanitizeSaleRequest(r *SaleRequest) (*SaleRequest, error) {
	if r == nil {
		return nil, errors.New("hotwallet: nil sale request")
	}
	sanitized := r.Clone()
	if sanitized.ID == "" {
		return nil, errors.New("hotwallet: sale request id required")
	}
	if sanitized.Amount == nil || sanitized.Amount.Sign() <= 0 {
		return nil, errors.New("hotwallet: sale amount must be positive")
	}
	if sanitized.NetworkFee == nil {
		sanitized.NetworkFee = big.NewInt(0)
	}
	if sanitized.NetworkFee.Sign() < 0 {
		return nil, errors.New("hotwallet: network fee must not be negative")
	}
	if !sanitized.Status.Valid() {
		return nil, errors.New("hotwallet: invalid sale request status")
	}
	return sanitized, nil
}
