package state

import (
	"errors"
	"math/big"

	"auzchain/native/hotwallet"
)

type storedSaleRequest struct {
	ID         string
	Requester  [20]byte
	Amount     *big.Int
	NetworkFee *big.Int
	CreatedAt  *big.Int
	Status     uint8
}

func newStoredSaleRequest(r *hotwallet.SaleRequest) *storedSaleRequest {
	amount := big.NewInt(0)
	if r.Amount != nil {
		amount = new(big.Int).Set(r.Amount)
	}
	fee := big.NewInt(0)
	if r.NetworkFee != nil {
		fee = new(big.Int).Set(r.NetworkFee)
	}
	return &storedSaleRequest{
		ID:         r.ID,
		Requester:  r.Requester,
		Amount:     amount,
		NetworkFee: fee,
		CreatedAt:  big.NewInt(r.CreatedAt),
		Status:     uint8(r.Status),
	}
}

func (s *storedSaleRequest) toSaleRequest() *hotwallet.SaleRequest {
	req := &hotwallet.SaleRequest{
		ID:         s.ID,
		Requester:  s.Requester,
		Amount:     big.NewInt(0),
		NetworkFee: big.NewInt(0),
		Status:     hotwallet.SaleStatus(s.Status),
	}
	if s.Amount != nil {
		req.Amount = new(big.Int).Set(s.Amount)
	}
	if s.NetworkFee != nil {
		req.NetworkFee = new(big.Int).Set(s.NetworkFee)
	}
	if s.CreatedAt != nil {
		req.CreatedAt = s.CreatedAt.Int64()
	}
	return req
}

func saleRequestKey(id string) []byte {
	return storageKey(saleRequestPrefix, []byte(id))
}

// SaleRequestPut persists the sale request keyed by its id.
func (m *Manager) SaleRequestPut(req *hotwallet.SaleRequest) error {
	if req == nil {
		return errors.New("state: nil sale request")
	}
	return m.putRLP(saleRequestKey(req.ID), newStoredSaleRequest(req))
}

// SaleRequestGet loads the sale request, reporting whether the id exists.
func (m *Manager) SaleRequestGet(id string) (*hotwallet.SaleRequest, bool, error) {
	stored := new(storedSaleRequest)
	ok, err := m.getRLP(saleRequestKey(id), stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toSaleRequest(), true, nil
}
