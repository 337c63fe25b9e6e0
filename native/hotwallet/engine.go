package hotwallet

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"auzchain/core/events"
	"auzchain/core/types"
	"auzchain/native/access"
	nativecommon "auzchain/native/common"
	"auzchain/native/proof"
)

const moduleName = "hotwallet"

var (
	errNilState    = errors.New("hotwallet engine: state not configured")
	errNilLedger   = errors.New("hotwallet engine: ledger not configured")
	errNilVerifier = errors.New("hotwallet engine: proof verifier not configured")
	errNilRoles    = errors.New("hotwallet engine: role provider not configured")

	// ErrAmountExceedsLimit rejects a direct buy or sell above the per-call
	// cap. The caps do not apply to signature-gated paths.
	ErrAmountExceedsLimit = errors.New("hotwallet: amount exceeds limit")
	// ErrInsufficientFunds rejects a delegated sale whose seller cannot
	// cover the amount plus the network fee.
	ErrInsufficientFunds = errors.New("hotwallet: balance below amount plus network fee")
	// ErrRequestNotFound indicates the sale request id is unknown.
	ErrRequestNotFound = errors.New("hotwallet: sale request not found")
	// ErrRequestAlreadyExists rejects a new request with a used id.
	ErrRequestAlreadyExists = errors.New("hotwallet: sale request already exists")
	// ErrRequestAlreadyProcessed rejects processing a terminal request.
	ErrRequestAlreadyProcessed = errors.New("hotwallet: sale request already processed")
	// ErrNotManager rejects a direct-path call from a non-manager.
	ErrNotManager = errors.New("hotwallet: caller is not a manager")
	// ErrNotSender rejects a delegated submission from an unapproved relayer.
	ErrNotSender = errors.New("hotwallet: caller is not an approved sender")
)

// State is the persistence surface required by the hot-wallet engine.
type State interface {
	SaleRequestPut(req *SaleRequest) error
	SaleRequestGet(id string) (*SaleRequest, bool, error)
}

// Ledger is the fund-movement surface. Custody moves through the wallet
// address bypass the transfer commission.
type Ledger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	TransferFrom(spender, owner, to [20]byte, amount *big.Int) error
	TransferExempt(from, to [20]byte, amount *big.Int) error
}

type hotwalletEvent struct {
	evt *types.Event
}

func (e hotwalletEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Engine runs the over-the-counter buy and sell workflow against a funded
// hot wallet. Direct paths are capped and restricted to managers; delegated
// paths authenticate signed proofs and hold sold tokens in custody until an
// approver decides the request.
type Engine struct {
	state    State
	ledger   Ledger
	verifier *proof.Verifier
	roles    proof.RoleProvider
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	nowFn    func() int64
	wallet   [20]byte
	buyCap   *big.Int
	sellCap  *big.Int
}

// NewEngine creates a hot-wallet engine custodying funds at wallet, with
// per-call caps on the direct buy and sell paths. A nil cap disables the
// corresponding direct path entirely.
func NewEngine(wallet [20]byte, buyCap, sellCap *big.Int) *Engine {
	e := &Engine{
		wallet:  wallet,
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
	if buyCap != nil {
		e.buyCap = new(big.Int).Set(buyCap)
	}
	if sellCap != nil {
		e.sellCap = new(big.Int).Set(sellCap)
	}
	return e
}

// SetState configures the state backend.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the token ledger used for custody movements.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetVerifier configures the proof verifier gating delegated paths.
func (e *Engine) SetVerifier(v *proof.Verifier) { e.verifier = v }

// SetRoles configures the role provider consulted on direct paths.
func (e *Engine) SetRoles(roles proof.RoleProvider) { e.roles = roles }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Wallet returns the custody address sellers approve before a delegated sale.
func (e *Engine) Wallet() [20]byte { return e.wallet }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(hotwalletEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if e.verifier == nil {
		return errNilVerifier
	}
	return nativecommon.Guard(e.pauses, moduleName)
}

func (e *Engine) requireRole(addr [20]byte, role string, roleErr error) error {
	if e.roles == nil {
		return errNilRoles
	}
	ok, err := e.roles.HasRole(addr, role)
	if err != nil {
		return err
	}
	if !ok {
		return roleErr
	}
	return nil
}

func (e *Engine) checkCap(amount, cap *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("hotwallet: amount must be positive")
	}
	if cap == nil || amount.Cmp(cap) > 0 {
		return fmt.Errorf("%w: %s", ErrAmountExceedsLimit, amount)
	}
	return nil
}

// BuyGold is the trusted direct buy path: a manager dispenses up to the buy
// cap from the hot wallet to the buyer. No proof is consulted.
func (e *Engine) BuyGold(caller, to [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireRole(caller, access.RoleManager, ErrNotManager); err != nil {
		return err
	}
	if err := e.checkCap(amount, e.buyCap); err != nil {
		return err
	}
	if err := e.ledger.TransferExempt(e.wallet, to, amount); err != nil {
		return err
	}
	e.emit(newBuyEvent(to, amount))
	return nil
}

// SellGold is the trusted direct sell path: a manager pulls up to the sell
// cap from a seller who pre-approved the wallet. No proof is consulted.
func (e *Engine) SellGold(caller, seller [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.requireRole(caller, access.RoleManager, ErrNotManager); err != nil {
		return err
	}
	if err := e.checkCap(amount, e.sellCap); err != nil {
		return err
	}
	if err := e.ledger.TransferFrom(e.wallet, seller, e.wallet, amount); err != nil {
		return err
	}
	e.emit(newSellEvent(seller, amount))
	return nil
}

// BuyGoldWithSignature dispenses from the hot wallet on a manager-signed
// proof, letting a relayer submit the transaction. The signature path has no
// per-call cap; the manager's signature is the authorization.
func (e *Engine) BuyGoldWithSignature(sig []byte, token [32]byte, to [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("hotwallet: amount must be positive")
	}
	params := BuyParams{Token: token, To: to, Amount: amount}
	if _, err := e.verifier.Verify(params, token, sig, access.RoleManager); err != nil {
		return err
	}
	if err := e.ledger.TransferExempt(e.wallet, to, amount); err != nil {
		return err
	}
	e.emit(newBuyEvent(to, amount))
	return nil
}

// PreAuthorizedSell submits a seller-signed sale request. The relayer pulls
// the amount into hot-wallet custody via the seller's allowance, collects the
// network fee the seller agreed to, and records a pending request for a
// later ProcessSaleRequest decision. The caller must be an approved sender.
func (e *Engine) PreAuthorizedSell(caller [20]byte, sig []byte, token [32]byte, id string, seller [20]byte, amount, networkFee *big.Int) (*SaleRequest, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.requireRole(caller, access.RoleSender, ErrNotSender); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.SaleRequestGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrRequestAlreadyExists, id)
	}
	req, err := SanitizeSaleRequest(&SaleRequest{
		ID:         id,
		Requester:  seller,
		Amount:     amount,
		NetworkFee: networkFee,
		CreatedAt:  e.now(),
		Status:     SalePending,
	})
	if err != nil {
		return nil, err
	}
	// The seller must cover the pull and the fee before anything moves, so
	// a shortfall cannot strand custodied funds behind a missing record.
	balance, err := e.ledger.BalanceOf(seller)
	if err != nil {
		return nil, err
	}
	needed := new(big.Int).Add(req.Amount, req.NetworkFee)
	if balance.Cmp(needed) < 0 {
		return nil, fmt.Errorf("%w: %s < %s", ErrInsufficientFunds, balance, needed)
	}
	params := SellParams{Token: token, RequestID: id, Seller: seller, Amount: amount, NetworkFee: networkFee}
	if err := e.verifier.VerifyFrom(params, token, sig, seller); err != nil {
		return nil, err
	}
	if err := e.ledger.TransferFrom(e.wallet, seller, e.wallet, req.Amount); err != nil {
		return nil, err
	}
	if req.NetworkFee.Sign() > 0 {
		if err := e.ledger.TransferExempt(seller, caller, req.NetworkFee); err != nil {
			return nil, err
		}
	}
	if err := e.state.SaleRequestPut(req); err != nil {
		return nil, err
	}
	e.emit(newSaleRequestEvent(req))
	return req.Clone(), nil
}

// ProcessSaleRequest decides a pending sale request on a manager-signed
// proof. Approval keeps the custodied amount with the wallet; rejection
// refunds it to the requester in full. Either way the request becomes
// terminal and cannot be processed again.
func (e *Engine) ProcessSaleRequest(sig []byte, token [32]byte, id string, approve bool) error {
	if err := e.ready(); err != nil {
		return err
	}
	req, ok, err := e.state.SaleRequestGet(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	if req.Status.Terminal() {
		return fmt.Errorf("%w: %s", ErrRequestAlreadyProcessed, id)
	}
	params := SaleProcessParams{Token: token, RequestID: id, Approve: approve}
	if _, err := e.verifier.Verify(params, token, sig, access.RoleManager); err != nil {
		return err
	}
	if approve {
		req.Status = SaleApproved
	} else {
		if err := e.ledger.TransferExempt(e.wallet, req.Requester, req.Amount); err != nil {
			return err
		}
		req.Status = SaleRejected
	}
	if err := e.state.SaleRequestPut(req); err != nil {
		return err
	}
	e.emit(newSaleProcessedEvent(req))
	return nil
}

// GetSaleRequest returns a read-only projection of the request.
func (e *Engine) GetSaleRequest(id string) (*SaleRequest, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	req, ok, err := e.state.SaleRequestGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	return req.Clone(), nil
}
