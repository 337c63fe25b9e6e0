package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"auzchain/native/proof"
)

const (
	opRegister = "escrow.register"
	opValidate = "escrow.validate"
	opPay      = "escrow.pay"
	opFinish   = "escrow.finish"
	opRelease  = "escrow.release"
	opResolve  = "escrow.resolve"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// refsString renders evidence references unambiguously: each element is
// hex-encoded before joining, so a reference containing the separator cannot
// collide with a split pair.
func refsString(refs []string) string {
	encoded := make([]string, len(refs))
	for i, ref := range refs {
		encoded[i] = hex.EncodeToString([]byte(ref))
	}
	return strings.Join(encoded, ",")
}

// RegisterParams binds every immutable field of a new trade into the
// trade-desk signed message.
type RegisterParams struct {
	Token           [32]byte
	TradeID         string
	EvidenceRefs    []string
	Seller          [20]byte
	Buyer           [20]byte
	TradeCap        *big.Int
	SellersPart     *big.Int
	ResolutionDelay int64
}

func (p RegisterParams) Operation() string { return opRegister }

func (p RegisterParams) Hash() [32]byte {
	return proof.Digest(opRegister,
		"token="+hex.EncodeToString(p.Token[:]),
		"trade="+p.TradeID,
		"refs="+refsString(p.EvidenceRefs),
		"seller="+hex.EncodeToString(p.Seller[:]),
		"buyer="+hex.EncodeToString(p.Buyer[:]),
		"cap="+amountString(p.TradeCap),
		"sellersPart="+amountString(p.SellersPart),
		"delay="+strconv.FormatInt(p.ResolutionDelay, 10),
	)
}

// ValidateParams binds a validation decision to one trade and its evidence.
type ValidateParams struct {
	Token        [32]byte
	TradeID      string
	EvidenceRefs []string
}

func (p ValidateParams) Operation() string { return opValidate }

func (p ValidateParams) Hash() [32]byte {
	return proof.Digest(opValidate,
		"token="+hex.EncodeToString(p.Token[:]),
		"trade="+p.TradeID,
		"refs="+refsString(p.EvidenceRefs),
	)
}

// PayParams is the message a buyer signs to let the vault pull the trade cap.
type PayParams struct {
	Token        [32]byte
	TradeID      string
	EvidenceRefs []string
	Buyer        [20]byte
}

func (p PayParams) Operation() string { return opPay }

func (p PayParams) Hash() [32]byte {
	return proof.Digest(opPay,
		"token="+hex.EncodeToString(p.Token[:]),
		"trade="+p.TradeID,
		"refs="+refsString(p.EvidenceRefs),
		"buyer="+hex.EncodeToString(p.Buyer[:]),
	)
}

// FinishParams binds the manager decision that delivery completed.
type FinishParams struct {
	Token        [32]byte
	TradeID      string
	EvidenceRefs []string
}

func (p FinishParams) Operation() string { return opFinish }

func (p FinishParams) Hash() [32]byte {
	return proof.Digest(opFinish,
		"token="+hex.EncodeToString(p.Token[:]),
		"trade="+p.TradeID,
		"refs="+refsString(p.EvidenceRefs),
	)
}

// ReleaseParams is the message a buyer signs to settle a finished trade.
type ReleaseParams struct {
	Token        [32]byte
	TradeID      string
	EvidenceRefs []string
	Buyer        [20]byte
}

func (p ReleaseParams) Operation() string { return opRelease }

func (p ReleaseParams) Hash() [32]byte {
	return proof.Digest(opRelease,
		"token="+hex.EncodeToString(p.Token[:]),
		"trade="+p.TradeID,
		"refs="+refsString(p.EvidenceRefs),
		"buyer="+hex.EncodeToString(p.Buyer[:]),
	)
}

// ResolveParams binds the manager's forced-settlement decision, including
// which side wins and why.
type ResolveParams struct {
	Token        [32]byte
	TradeID      string
	EvidenceRefs []string
	FavorSeller  bool
	Reason       string
}

func (p ResolveParams) Operation() string { return opResolve }

func (p ResolveParams) Hash() [32]byte {
	return proof.Digest(opResolve,
		"token="+hex.EncodeToString(p.Token[:]),
		"trade="+p.TradeID,
		"refs="+refsString(p.EvidenceRefs),
		"favorSeller="+strconv.FormatBool(p.FavorSeller),
		"reason="+p.Reason,
	)
}

// RegisterProof returns the digest a trade-desk user signs to register a
// trade.
func RegisterProof(token [32]byte, id string, refs []string, seller, buyer [20]byte, tradeCap, sellersPart *big.Int, resolutionDelay int64) [32]byte {
	return RegisterParams{
		Token: token, TradeID: id, EvidenceRefs: refs,
		Seller: seller, Buyer: buyer,
		TradeCap: tradeCap, SellersPart: sellersPart,
		ResolutionDelay: resolutionDelay,
	}.Hash()
}

// ValidateProof returns the digest a manager signs to validate a trade.
func ValidateProof(token [32]byte, id string, refs []string) [32]byte {
	return ValidateParams{Token: token, TradeID: id, EvidenceRefs: refs}.Hash()
}

// PayProof returns the digest a buyer signs to fund a trade.
func PayProof(token [32]byte, id string, refs []string, buyer [20]byte) [32]byte {
	return PayParams{Token: token, TradeID: id, EvidenceRefs: refs, Buyer: buyer}.Hash()
}

// FinishProof returns the digest a manager signs to mark delivery complete.
func FinishProof(token [32]byte, id string, refs []string) [32]byte {
	return FinishParams{Token: token, TradeID: id, EvidenceRefs: refs}.Hash()
}

// ReleaseProof returns the digest a buyer signs to settle a finished trade.
func ReleaseProof(token [32]byte, id string, refs []string, buyer [20]byte) [32]byte {
	return ReleaseParams{Token: token, TradeID: id, EvidenceRefs: refs, Buyer: buyer}.Hash()
}

// ResolveProof returns the digest a manager signs to force-settle a trade.
func ResolveProof(token [32]byte, id string, refs []string, favorSeller bool, reason string) [32]byte {
	return ResolveParams{Token: token, TradeID: id, EvidenceRefs: refs, FavorSeller: favorSeller, Reason: reason}.Hash()
}
