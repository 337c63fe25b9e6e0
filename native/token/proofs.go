package token

import (
	"encoding/hex"
	"math/big"

	"auzchain/native/proof"
)

const (
	opDelegateApprove  = "token.delegate_approve"
	opDelegateTransfer = "token.delegate_transfer"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// DelegateApproveParams binds every input of a delegated approval into the
// signed message.
type DelegateApproveParams struct {
	Token      [32]byte
	Owner      [20]byte
	Spender    [20]byte
	Amount     *big.Int
	NetworkFee *big.Int
}

func (p DelegateApproveParams) Operation() string { return opDelegateApprove }

func (p DelegateApproveParams) Hash() [32]byte {
	return proof.Digest(opDelegateApprove,
		"token="+hex.EncodeToString(p.Token[:]),
		"owner="+hex.EncodeToString(p.Owner[:]),
		"spender="+hex.EncodeToString(p.Spender[:]),
		"amount="+amountString(p.Amount),
		"networkFee="+amountString(p.NetworkFee),
	)
}

// DelegateTransferParams binds every input of a delegated transfer into the
// signed message.
type DelegateTransferParams struct {
	Token      [32]byte
	Owner      [20]byte
	To         [20]byte
	Amount     *big.Int
	NetworkFee *big.Int
}

func (p DelegateTransferParams) Operation() string { return opDelegateTransfer }

func (p DelegateTransferParams) Hash() [32]byte {
	return proof.Digest(opDelegateTransfer,
		"token="+hex.EncodeToString(p.Token[:]),
		"owner="+hex.EncodeToString(p.Owner[:]),
		"to="+hex.EncodeToString(p.To[:]),
		"amount="+amountString(p.Amount),
		"networkFee="+amountString(p.NetworkFee),
	)
}

// DelegateApproveProof returns the digest an owner signs to pre-authorize an
// allowance.
func DelegateApproveProof(token [32]byte, owner, spender [20]byte, amount, networkFee *big.Int) [32]byte {
	return DelegateApproveParams{Token: token, Owner: owner, Spender: spender, Amount: amount, NetworkFee: networkFee}.Hash()
}

// DelegateTransferProof returns the digest an owner signs to pre-authorize a
// transfer.
func DelegateTransferProof(token [32]byte, owner, to [20]byte, amount, networkFee *big.Int) [32]byte {
	return DelegateTransferParams{Token: token, Owner: owner, To: to, Amount: amount, NetworkFee: networkFee}.Hash()
}
