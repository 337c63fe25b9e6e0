package hotwallet

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"auzchain/native/proof"
)

const (
	opBuy         = "hotwallet.buy"
	opSell        = "hotwallet.sell"
	opSaleProcess = "hotwallet.sale_process"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// BuyParams binds a manager-authorized dispense from the hot wallet.
type BuyParams struct {
	Token  [32]byte
	To     [20]byte
	Amount *big.Int
}

func (p BuyParams) Operation() string { return opBuy }

func (p BuyParams) Hash() [32]byte {
	return proof.Digest(opBuy,
		"token="+hex.EncodeToString(p.Token[:]),
		"to="+hex.EncodeToString(p.To[:]),
		"amount="+amountString(p.Amount),
	)
}

// SellParams binds a seller's delegated sale into the signed message,
// including the network fee the relayer collects.
type SellParams struct {
	Token      [32]byte
	RequestID  string
	Seller     [20]byte
	Amount     *big.Int
	NetworkFee *big.Int
}

func (p SellParams) Operation() string { return opSell }

func (p SellParams) Hash() [32]byte {
	return proof.Digest(opSell,
		"token="+hex.EncodeToString(p.Token[:]),
		"request="+p.RequestID,
		"seller="+hex.EncodeToString(p.Seller[:]),
		"amount="+amountString(p.Amount),
		"networkFee="+amountString(p.NetworkFee),
	)
}

// SaleProcessParams binds an approver's decision on one sale request.
type SaleProcessParams struct {
	Token     [32]byte
	RequestID string
	Approve   bool
}

func (p SaleProcessParams) Operation() string { return opSaleProcess }

func (p SaleProcessParams) Hash() [32]byte {
	return proof.Digest(opSaleProcess,
		"token="+hex.EncodeToString(p.Token[:]),
		"request="+p.RequestID,
		"approve="+strconv.FormatBool(p.Approve),
	)
}

// BuyProof returns the digest a manager signs to authorize a dispense.
func BuyProof(token [32]byte, to [20]byte, amount *big.Int) [32]byte {
	return BuyParams{Token: token, To: to, Amount: amount}.Hash()
}

// SellProof returns the digest a seller signs to delegate a sale.
func SellProof(token [32]byte, id string, seller [20]byte, amount, networkFee *big.Int) [32]byte {
	return SellParams{Token: token, RequestID: id, Seller: seller, Amount: amount, NetworkFee: networkFee}.Hash()
}

// SaleProcessProof returns the digest an approver signs to decide a request.
func SaleProcessProof(token [32]byte, id string, approve bool) [32]byte {
	return SaleProcessParams{Token: token, RequestID: id, Approve: approve}.Hash()
}

// GetSaleApproveProof returns the digest approving a request, the common
// case clients ask for by name.
func GetSaleApproveProof(token [32]byte, id string) [32]byte {
	return SaleProcessProof(token, id, true)
}
