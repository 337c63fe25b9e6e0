package state_test

import (
	"bytes"
	"math/big"
	"testing"

	"auzchain/core/state"
	"auzchain/native/escrow"
	"auzchain/native/hotwallet"
	"auzchain/storage"
)

func newTestManager() *state.Manager {
	return state.NewManager(storage.NewMemDB())
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func TestAccountRoundTrip(t *testing.T) {
	manager := newTestManager()
	addr := newTestAddress(0x01)

	acc, err := manager.GetAccount(addr)
	if err != nil {
		t.Fatalf("get fresh account: %v", err)
	}
	if acc.Balance.Sign() != 0 || acc.Nonce != 0 {
		t.Fatalf("fresh account not zeroed: %+v", acc)
	}

	acc.Nonce = 7
	acc.Balance = big.NewInt(123_456)
	if err := manager.PutAccount(addr, acc); err != nil {
		t.Fatalf("put account: %v", err)
	}
	loaded, err := manager.GetAccount(addr)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if loaded.Nonce != 7 || loaded.Balance.Cmp(big.NewInt(123_456)) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}

func TestAllowanceAndFlags(t *testing.T) {
	manager := newTestManager()
	owner := newTestAddress(0x01)
	spender := newTestAddress(0x02)

	allowance, err := manager.Allowance(owner, spender)
	if err != nil || allowance.Sign() != 0 {
		t.Fatalf("fresh allowance = %s err=%v", allowance, err)
	}
	if err := manager.SetAllowance(owner, spender, big.NewInt(500)); err != nil {
		t.Fatalf("set allowance: %v", err)
	}
	allowance, _ = manager.Allowance(owner, spender)
	if allowance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("allowance = %s, want 500", allowance)
	}
	// Direction matters.
	reverse, _ := manager.Allowance(spender, owner)
	if reverse.Sign() != 0 {
		t.Fatalf("reverse allowance leaked: %s", reverse)
	}

	if err := manager.SetFeeExempt(owner, true); err != nil {
		t.Fatalf("set fee exempt: %v", err)
	}
	exempt, _ := manager.FeeExempt(owner)
	if !exempt {
		t.Fatalf("fee exemption lost")
	}
	if err := manager.SetFeeExempt(owner, false); err != nil {
		t.Fatalf("clear fee exempt: %v", err)
	}
	if exempt, _ = manager.FeeExempt(owner); exempt {
		t.Fatalf("fee exemption survived clearing")
	}
}

func TestCommissionSupplyAndBars(t *testing.T) {
	manager := newTestManager()

	bps, err := manager.CommissionBps()
	if err != nil || bps != 0 {
		t.Fatalf("fresh commission = %d err=%v", bps, err)
	}
	if err := manager.SetCommissionBps(250); err != nil {
		t.Fatalf("set commission: %v", err)
	}
	if bps, _ = manager.CommissionBps(); bps != 250 {
		t.Fatalf("commission = %d, want 250", bps)
	}

	if err := manager.SetTotalSupply(big.NewInt(1_000_000)); err != nil {
		t.Fatalf("set supply: %v", err)
	}
	supply, _ := manager.TotalSupply()
	if supply.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Fatalf("supply = %s", supply)
	}

	if err := manager.AppendGoldBars([]string{"bar-001"}); err != nil {
		t.Fatalf("append bars: %v", err)
	}
	if err := manager.AppendGoldBars([]string{"bar-002", "bar-003"}); err != nil {
		t.Fatalf("append bars: %v", err)
	}
	bars, _ := manager.GoldBars()
	if len(bars) != 3 || bars[2] != "bar-003" {
		t.Fatalf("bars = %v", bars)
	}
}

func TestRolesAndProofGuard(t *testing.T) {
	manager := newTestManager()
	addr := newTestAddress(0x03)

	if ok, _ := manager.RoleHas("manager", addr); ok {
		t.Fatalf("fresh role set not empty")
	}
	if err := manager.RoleSet("manager", addr, true); err != nil {
		t.Fatalf("grant role: %v", err)
	}
	if ok, _ := manager.RoleHas("manager", addr); !ok {
		t.Fatalf("role not persisted")
	}
	if ok, _ := manager.RoleHas("minter", addr); ok {
		t.Fatalf("role leaked across names")
	}

	var token [32]byte
	token[0] = 0x42
	if ok, _ := manager.ProofConsumed(token); ok {
		t.Fatalf("fresh token marked consumed")
	}
	if err := manager.ProofConsume(token); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if ok, _ := manager.ProofConsumed(token); !ok {
		t.Fatalf("consumption not persisted")
	}
}

func TestTradeRoundTrip(t *testing.T) {
	manager := newTestManager()

	if _, ok, err := manager.TradeGet("missing"); err != nil || ok {
		t.Fatalf("missing trade: ok=%v err=%v", ok, err)
	}

	trade := &escrow.Trade{
		ID:                  "trade-1",
		Seller:              newTestAddress(0x01),
		Buyer:               newTestAddress(0x02),
		TradeCap:            big.NewInt(1000),
		SellersPart:         big.NewInt(900),
		EvidenceRefs:        []string{"doc://a", "doc://b"},
		CreatedAt:           1_700_000_000,
		ResolutionWindowEnd: 1_700_000_060,
		Status:              escrow.TradePaid,
		ResolutionReason:    "",
	}
	if err := manager.TradePut(trade); err != nil {
		t.Fatalf("put trade: %v", err)
	}
	loaded, ok, err := manager.TradeGet("trade-1")
	if err != nil || !ok {
		t.Fatalf("get trade: ok=%v err=%v", ok, err)
	}
	if loaded.Status != escrow.TradePaid {
		t.Fatalf("status = %s", loaded.Status)
	}
	if loaded.TradeCap.Cmp(big.NewInt(1000)) != 0 || loaded.SellersPart.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("amounts lost: %+v", loaded)
	}
	if loaded.CreatedAt != 1_700_000_000 || loaded.ResolutionWindowEnd != 1_700_000_060 {
		t.Fatalf("timestamps lost: %+v", loaded)
	}
	if len(loaded.EvidenceRefs) != 2 || loaded.EvidenceRefs[1] != "doc://b" {
		t.Fatalf("evidence refs lost: %v", loaded.EvidenceRefs)
	}
}

func TestSaleRequestRoundTrip(t *testing.T) {
	manager := newTestManager()

	req := &hotwallet.SaleRequest{
		ID:         "sale-1",
		Requester:  newTestAddress(0x04),
		Amount:     big.NewInt(1000),
		NetworkFee: big.NewInt(5),
		CreatedAt:  1_700_000_000,
		Status:     hotwallet.SalePending,
	}
	if err := manager.SaleRequestPut(req); err != nil {
		t.Fatalf("put request: %v", err)
	}
	loaded, ok, err := manager.SaleRequestGet("sale-1")
	if err != nil || !ok {
		t.Fatalf("get request: ok=%v err=%v", ok, err)
	}
	if loaded.Status != hotwallet.SalePending || loaded.Amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.CreatedAt != 1_700_000_000 || loaded.NetworkFee.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("metadata lost: %+v", loaded)
	}
}
