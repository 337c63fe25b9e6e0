package token

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"auzchain/core/types"
)

const (
	EventTypeTransfer          = "token.transfer"
	EventTypeApproval          = "token.approval"
	EventTypeMinted            = "token.minted"
	EventTypeBurned            = "token.burned"
	EventTypeCommissionUpdated = "token.commission.updated"
)

func newTransferEvent(from, to [20]byte, amount, fee *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTransfer, Attributes: map[string]string{
		"from":   hex.EncodeToString(from[:]),
		"to":     hex.EncodeToString(to[:]),
		"amount": amountString(amount),
		"fee":    amountString(fee),
	}}
}

func newApprovalEvent(owner, spender [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeApproval, Attributes: map[string]string{
		"owner":   hex.EncodeToString(owner[:]),
		"spender": hex.EncodeToString(spender[:]),
		"amount":  amountString(amount),
	}}
}

func newMintEvent(to [20]byte, amount *big.Int, barRefs []string) *types.Event {
	attrs := map[string]string{
		"to":     hex.EncodeToString(to[:]),
		"amount": amountString(amount),
	}
	if len(barRefs) > 0 {
		attrs["bars"] = strings.Join(barRefs, ",")
	}
	return &types.Event{Type: EventTypeMinted, Attributes: attrs}
}

func newBurnEvent(from [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeBurned, Attributes: map[string]string{
		"from":   hex.EncodeToString(from[:]),
		"amount": amountString(amount),
	}}
}

func newCommissionEvent(bps uint32) *types.Event {
	return &types.Event{Type: EventTypeCommissionUpdated, Attributes: map[string]string{
		"bps": strconv.FormatUint(uint64(bps), 10),
	}}
}
