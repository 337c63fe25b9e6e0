package hotwallet

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"auzchain/crypto"
	"auzchain/native/access"
	"auzchain/native/proof"
)

type mockState struct {
	requests map[string]*SaleRequest
	consumed map[[32]byte]bool
}

func newMockState() *mockState {
	return &mockState{
		requests: make(map[string]*SaleRequest),
		consumed: make(map[[32]byte]bool),
	}
}

func (m *mockState) SaleRequestPut(req *SaleRequest) error {
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *mockState) SaleRequestGet(id string) (*SaleRequest, bool, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, false, nil
	}
	return req.Clone(), true, nil
}

func (m *mockState) ProofConsumed(token [32]byte) (bool, error) { return m.consumed[token], nil }

func (m *mockState) ProofConsume(token [32]byte) error {
	m.consumed[token] = true
	return nil
}

type mockLedger struct {
	balances   map[[20]byte]*big.Int
	allowances map[[20]byte]*big.Int
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[[20]byte]*big.Int),
	}
}

func (m *mockLedger) balance(addr [20]byte) *big.Int {
	if b, ok := m.balances[addr]; ok {
		return b
	}
	return big.NewInt(0)
}

func (m *mockLedger) setBalance(addr [20]byte, amount int64) {
	m.balances[addr] = big.NewInt(amount)
}

func (m *mockLedger) approve(owner [20]byte, amount int64) {
	m.allowances[owner] = big.NewInt(amount)
}

func (m *mockLedger) move(from, to [20]byte, amount *big.Int) error {
	if m.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("mock ledger: insufficient balance")
	}
	m.balances[from] = new(big.Int).Sub(m.balance(from), amount)
	m.balances[to] = new(big.Int).Add(m.balance(to), amount)
	return nil
}

func (m *mockLedger) BalanceOf(addr [20]byte) (*big.Int, error) {
	return new(big.Int).Set(m.balance(addr)), nil
}

func (m *mockLedger) TransferFrom(spender, owner, to [20]byte, amount *big.Int) error {
	allowance, ok := m.allowances[owner]
	if !ok || allowance.Cmp(amount) < 0 {
		return fmt.Errorf("mock ledger: insufficient allowance")
	}
	if err := m.move(owner, to, amount); err != nil {
		return err
	}
	m.allowances[owner] = new(big.Int).Sub(allowance, amount)
	return nil
}

func (m *mockLedger) TransferExempt(from, to [20]byte, amount *big.Int) error {
	return m.move(from, to, amount)
}

type mockRoles struct {
	grants map[[20]byte]map[string]bool
}

func newMockRoles() *mockRoles {
	return &mockRoles{grants: make(map[[20]byte]map[string]bool)}
}

func (m *mockRoles) grant(addr [20]byte, role string) {
	if m.grants[addr] == nil {
		m.grants[addr] = make(map[string]bool)
	}
	m.grants[addr][role] = true
}

func (m *mockRoles) HasRole(addr [20]byte, role string) (bool, error) {
	return m.grants[addr][role], nil
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

type testEnv struct {
	engine   *Engine
	state    *mockState
	ledger   *mockLedger
	roles    *mockRoles
	manager  *crypto.PrivateKey
	seller   *crypto.PrivateKey
	wallet   [20]byte
	relayer  [20]byte
	sellerAddr [20]byte
	tokenSeq byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		state:   newMockState(),
		ledger:  newMockLedger(),
		roles:   newMockRoles(),
		wallet:  newTestAddress(0xA0),
		relayer: newTestAddress(0xB0),
	}

	var err error
	if env.manager, err = crypto.GeneratePrivateKey(); err != nil {
		t.Fatalf("generate manager key: %v", err)
	}
	if env.seller, err = crypto.GeneratePrivateKey(); err != nil {
		t.Fatalf("generate seller key: %v", err)
	}
	env.sellerAddr = env.seller.PubKey().Address().Raw()

	env.roles.grant(env.manager.PubKey().Address().Raw(), access.RoleManager)
	env.roles.grant(env.relayer, access.RoleSender)

	env.engine = NewEngine(env.wallet, big.NewInt(500), big.NewInt(500))
	env.engine.SetState(env.state)
	env.engine.SetLedger(env.ledger)
	env.engine.SetVerifier(proof.NewVerifier(env.state, env.roles))
	env.engine.SetRoles(env.roles)
	env.engine.SetNowFunc(func() int64 { return 1_700_000_000 })

	env.ledger.setBalance(env.wallet, 10_000)
	env.ledger.setBalance(env.sellerAddr, 2_000)
	env.ledger.approve(env.sellerAddr, 2_000)
	return env
}

func (env *testEnv) freshToken() [32]byte {
	env.tokenSeq++
	var token [32]byte
	token[0] = env.tokenSeq
	return token
}

func (env *testEnv) sign(t *testing.T, key *crypto.PrivateKey, digest [32]byte) []byte {
	t.Helper()
	sig, err := key.SignDigest(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func (env *testEnv) requestSale(t *testing.T, id string, amount, networkFee int64) *SaleRequest {
	t.Helper()
	token := env.freshToken()
	digest := SellProof(token, id, env.sellerAddr, big.NewInt(amount), big.NewInt(networkFee))
	req, err := env.engine.PreAuthorizedSell(env.relayer, env.sign(t, env.seller, digest), token, id, env.sellerAddr, big.NewInt(amount), big.NewInt(networkFee))
	if err != nil {
		t.Fatalf("pre-authorized sell: %v", err)
	}
	return req
}

func (env *testEnv) process(t *testing.T, id string, approve bool) error {
	t.Helper()
	token := env.freshToken()
	digest := SaleProcessProof(token, id, approve)
	return env.engine.ProcessSaleRequest(env.sign(t, env.manager, digest), token, id, approve)
}

func TestBuyGoldEnforcesCapAndRole(t *testing.T) {
	env := newTestEnv(t)
	managerAddr := env.manager.PubKey().Address().Raw()
	buyer := newTestAddress(0x10)

	if err := env.engine.BuyGold(buyer, buyer, big.NewInt(100)); !errors.Is(err, ErrNotManager) {
		t.Fatalf("expected ErrNotManager, got %v", err)
	}
	if err := env.engine.BuyGold(managerAddr, buyer, big.NewInt(501)); !errors.Is(err, ErrAmountExceedsLimit) {
		t.Fatalf("expected ErrAmountExceedsLimit, got %v", err)
	}
	if err := env.engine.BuyGold(managerAddr, buyer, big.NewInt(500)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := env.ledger.balance(buyer); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("buyer balance = %s, want 500", got)
	}
}

func TestSellGoldPullsIntoWallet(t *testing.T) {
	env := newTestEnv(t)
	managerAddr := env.manager.PubKey().Address().Raw()

	if err := env.engine.SellGold(managerAddr, env.sellerAddr, big.NewInt(400)); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if got := env.ledger.balance(env.wallet); got.Cmp(big.NewInt(10_400)) != 0 {
		t.Fatalf("wallet balance = %s, want 10400", got)
	}
	if err := env.engine.SellGold(managerAddr, env.sellerAddr, big.NewInt(501)); !errors.Is(err, ErrAmountExceedsLimit) {
		t.Fatalf("expected ErrAmountExceedsLimit, got %v", err)
	}
}

func TestBuyGoldWithSignature(t *testing.T) {
	env := newTestEnv(t)
	buyer := newTestAddress(0x10)

	token := env.freshToken()
	amount := big.NewInt(5_000) // above the direct cap, fine here
	digest := BuyProof(token, buyer, amount)

	// Signed by the seller, who is not a manager.
	if err := env.engine.BuyGoldWithSignature(env.sign(t, env.seller, digest), token, buyer, amount); !errors.Is(err, proof.ErrUnauthorizedSigner) {
		t.Fatalf("expected ErrUnauthorizedSigner, got %v", err)
	}

	if err := env.engine.BuyGoldWithSignature(env.sign(t, env.manager, digest), token, buyer, amount); err != nil {
		t.Fatalf("signed buy: %v", err)
	}
	if got := env.ledger.balance(buyer); got.Cmp(amount) != 0 {
		t.Fatalf("buyer balance = %s, want %s", got, amount)
	}
}

func TestPreAuthorizedSellCustodiesFunds(t *testing.T) {
	env := newTestEnv(t)

	req := env.requestSale(t, "sale-1", 1000, 5)
	if req.Status != SalePending {
		t.Fatalf("status = %s, want pending", req.Status)
	}
	if got := env.ledger.balance(env.wallet); got.Cmp(big.NewInt(11_000)) != 0 {
		t.Fatalf("wallet custody = %s, want 11000", got)
	}
	if got := env.ledger.balance(env.relayer); got.Cmp(big.NewInt(5)) != 0 {
		t.Fatalf("relayer fee = %s, want 5", got)
	}
	if got := env.ledger.balance(env.sellerAddr); got.Cmp(big.NewInt(995)) != 0 {
		t.Fatalf("seller balance = %s, want 995", got)
	}
}

func TestPreAuthorizedSellRejectsFeeShortfall(t *testing.T) {
	env := newTestEnv(t)
	// The seller can cover the amount but not the network fee; nothing may
	// move and no request record may appear.
	env.ledger.setBalance(env.sellerAddr, 100)
	env.ledger.approve(env.sellerAddr, 100)

	token := env.freshToken()
	digest := SellProof(token, "sale-1", env.sellerAddr, big.NewInt(100), big.NewInt(10))
	_, err := env.engine.PreAuthorizedSell(env.relayer, env.sign(t, env.seller, digest), token, "sale-1", env.sellerAddr, big.NewInt(100), big.NewInt(10))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := env.ledger.balance(env.sellerAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("seller balance = %s, want untouched 100", got)
	}
	if got := env.ledger.balance(env.wallet); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("wallet balance = %s, want untouched 10000", got)
	}
	if _, err := env.engine.GetSaleRequest("sale-1"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	if used, _ := env.state.ProofConsumed(token); used {
		t.Fatalf("replay token consumed by a rejected sale")
	}

	// Topped up to cover amount plus fee, the same request goes through
	// with a fresh token.
	env.ledger.setBalance(env.sellerAddr, 110)
	req := env.requestSale(t, "sale-1", 100, 10)
	if req.Status != SalePending {
		t.Fatalf("status = %s, want pending", req.Status)
	}
	if got := env.ledger.balance(env.sellerAddr); got.Sign() != 0 {
		t.Fatalf("seller balance = %s, want 0", got)
	}
	if got := env.ledger.balance(env.wallet); got.Cmp(big.NewInt(10_100)) != 0 {
		t.Fatalf("wallet custody = %s, want 10100", got)
	}
}

func TestPreAuthorizedSellRequiresSenderRole(t *testing.T) {
	env := newTestEnv(t)
	stranger := newTestAddress(0x77)

	token := env.freshToken()
	digest := SellProof(token, "sale-1", env.sellerAddr, big.NewInt(100), big.NewInt(0))
	_, err := env.engine.PreAuthorizedSell(stranger, env.sign(t, env.seller, digest), token, "sale-1", env.sellerAddr, big.NewInt(100), big.NewInt(0))
	if !errors.Is(err, ErrNotSender) {
		t.Fatalf("expected ErrNotSender, got %v", err)
	}
}

func TestPreAuthorizedSellRejectsDuplicateID(t *testing.T) {
	env := newTestEnv(t)
	env.requestSale(t, "sale-1", 100, 0)

	token := env.freshToken()
	digest := SellProof(token, "sale-1", env.sellerAddr, big.NewInt(100), big.NewInt(0))
	_, err := env.engine.PreAuthorizedSell(env.relayer, env.sign(t, env.seller, digest), token, "sale-1", env.sellerAddr, big.NewInt(100), big.NewInt(0))
	if !errors.Is(err, ErrRequestAlreadyExists) {
		t.Fatalf("expected ErrRequestAlreadyExists, got %v", err)
	}
}

func TestProcessSaleRequestApproveIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.requestSale(t, "sale-1", 1000, 0)
	walletAfterSale := new(big.Int).Set(env.ledger.balance(env.wallet))

	if err := env.process(t, "sale-1", true); err != nil {
		t.Fatalf("approve: %v", err)
	}
	req, err := env.engine.GetSaleRequest("sale-1")
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if req.Status != SaleApproved {
		t.Fatalf("status = %s, want approved", req.Status)
	}
	// Approval keeps the custodied amount with the wallet.
	if got := env.ledger.balance(env.wallet); got.Cmp(walletAfterSale) != 0 {
		t.Fatalf("wallet balance moved on approval: %s", got)
	}
	if err := env.process(t, "sale-1", true); !errors.Is(err, ErrRequestAlreadyProcessed) {
		t.Fatalf("expected ErrRequestAlreadyProcessed, got %v", err)
	}
}

func TestProcessSaleRequestRejectRefundsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.requestSale(t, "sale-1", 1000, 0)
	sellerAfterSale := new(big.Int).Set(env.ledger.balance(env.sellerAddr))

	if err := env.process(t, "sale-1", false); err != nil {
		t.Fatalf("reject: %v", err)
	}
	want := new(big.Int).Add(sellerAfterSale, big.NewInt(1000))
	if got := env.ledger.balance(env.sellerAddr); got.Cmp(want) != 0 {
		t.Fatalf("seller refund = %s, want %s", got, want)
	}
	// A second rejection must not refund again.
	if err := env.process(t, "sale-1", false); !errors.Is(err, ErrRequestAlreadyProcessed) {
		t.Fatalf("expected ErrRequestAlreadyProcessed, got %v", err)
	}
	if got := env.ledger.balance(env.sellerAddr); got.Cmp(want) != 0 {
		t.Fatalf("double refund detected: %s", got)
	}
}

func TestProcessUnknownRequest(t *testing.T) {
	env := newTestEnv(t)
	if err := env.process(t, "missing", true); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
}
