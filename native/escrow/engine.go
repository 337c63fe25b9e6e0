package escrow

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

const moduleName = "escrow"

var (
	errNilState    = errors.New("escrow engine: state not configured")
	errNilLedger   = errors.New("escrow engine: ledger not configured")
	errNilVerifier = errors.New("escrow engine: proof verifier not configured")

	// ErrTradeNotFound indicates the trade id is not registered.
	ErrTradeNotFound = errors.New("escrow: trade not found")
	// ErrTradeAlreadyExists rejects registration with a used trade id.
	ErrTradeAlreadyExists = errors.New("escrow: trade already exists")
	// ErrInvalidTradeState rejects a transition the graph does not permit.
	ErrInvalidTradeState = errors.New("escrow: invalid trade state")
	// ErrTooEarlyToResolve rejects resolution before the window elapses.
	ErrTooEarlyToResolve = errors.New("escrow: too early to resolve")
	// ErrBuyerMismatch rejects a buyer-specific call naming the wrong buyer.
	ErrBuyerMismatch = errors.New("escrow: buyer mismatch")
)

// State is the persistence surface required by the escrow engine.
type State interface {
	TradePut(trade *Trade) error
	TradeGet(id string) (*Trade, bool, error)
}

// Ledger is the fund-movement surface the engine settles through. Vault
// movements bypass the transfer commission; the settlement fee agreed at
// registration is the only escrow charge.
type Ledger interface {
	TransferFrom(spender, owner, to [20]byte, amount *big.Int) error
	TransferExempt(from, to [20]byte, amount *big.Int) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Engine drives the trade lifecycle. Every transition authenticates an
// off-chain signed proof, consumes its single-use token before funds move,
// and checks the transition graph before flipping status.
type Engine struct {
	state     State
	ledger    Ledger
	verifier  *proof.Verifier
	emitter   events.Emitter
	pauses    nativecommon.PauseView
	nowFn     func() int64
	vault     [20]byte
	feeWallet [20]byte
}

// NewEngine creates an escrow engine custodying funds at the vault address
// and paying settlement fees to the fee wallet.
func NewEngine(vault, feeWallet [20]byte) *Engine {
	return &Engine{
		vault:     vault,
		feeWallet: feeWallet,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend.
func (e *Engine) SetState(state State) { e.state = state }

// SetLedger configures the token ledger used for custody movements.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetVerifier configures the proof verifier gating every transition.
func (e *Engine) SetVerifier(v *proof.Verifier) { e.verifier = v }

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

// Vault returns the custody address buyers approve before paying.
func (e *Engine) Vault() [20]byte { return e.vault }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: evt})
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

func (e *Engine) loadTrade(id string) (*Trade, error) {
	trade, ok, err := e.state.TradeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTradeNotFound
	}
	return SanitizeTrade(trade)
}

// checkTransition rejects a transition the graph does not permit without
// touching state. Every operation prechecks before its proof token is
// consumed, so an out-of-order call never burns a token.
func (e *Engine) checkTransition(trade *Trade, next TradeStatus) error {
	if !canTransition(trade.Status, next) {
		return fmt.Errorf("%w: %s -> %s for trade %s", ErrInvalidTradeState, trade.Status, next, trade.ID)
	}
	return nil
}

// advance flips the status and persists the record.
func (e *Engine) advance(trade *Trade, next TradeStatus) error {
	if err := e.checkTransition(trade, next); err != nil {
		return err
	}
	trade.Status = next
	return e.state.TradePut(trade)
}

// Register creates a trade from a trade-desk signed proof. The id must be
// unused; seller/buyer, amounts and evidence refs are immutable afterwards
// and the resolution window starts counting immediately.
func (e *Engine) Register(sig []byte, token [32]byte, id string, evidenceRefs []string, seller, buyer [20]byte, tradeCap, sellersPart *big.Int, resolutionDelay int64) (*Trade, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.TradeGet(id); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("%w: %s", ErrTradeAlreadyExists, id)
	}
	if resolutionDelay < 0 {
		return nil, fmt.Errorf("escrow: negative resolution delay")
	}
	params := RegisterParams{
		Token: token, TradeID: id, EvidenceRefs: evidenceRefs,
		Seller: seller, Buyer: buyer,
		TradeCap: tradeCap, SellersPart: sellersPart,
		ResolutionDelay: resolutionDelay,
	}
	if _, err := e.verifier.Verify(params, token, sig, access.RoleTradeDesk); err != nil {
		return nil, err
	}
	now := e.now()
	trade := &Trade{
		ID:                  id,
		Seller:              seller,
		Buyer:               buyer,
		TradeCap:            tradeCap,
		SellersPart:         sellersPart,
		EvidenceRefs:        append([]string(nil), evidenceRefs...),
		CreatedAt:           now,
		ResolutionWindowEnd: now + resolutionDelay,
		Status:              TradeRegistered,
	}
	sanitized, err := SanitizeTrade(trade)
	if err != nil {
		return nil, err
	}
	if err := e.state.TradePut(sanitized); err != nil {
		return nil, err
	}
	e.emit(newTradeEvent(EventTypeTradeRegistered, sanitized, ""))
	return sanitized.Clone(), nil
}

// Validate confirms the registered trade documents check out. Manager proof.
func (e *Engine) Validate(sig []byte, token [32]byte, id string, evidenceRefs []string) error {
	if err := e.ready(); err != nil {
		return err
	}
	trade, err := e.loadTrade(id)
	if err != nil {
		return err
	}
	if err := e.checkTransition(trade, TradeValid); err != nil {
		return err
	}
	params := ValidateParams{Token: token, TradeID: id, EvidenceRefs: evidenceRefs}
	if _, err := e.verifier.Verify(params, token, sig, access.RoleManager); err != nil {
		return err
	}
	if err := e.advance(trade, TradeValid); err != nil {
		return err
	}
	e.emit(newTradeEvent(EventTypeTradeValidated, trade, ""))
	return nil
}

// Pay pulls the trade cap from the buyer into the escrow vault. The proof
// must be signed by the trade's buyer, who has pre-authorized the vault for
// at least the cap. The token is consumed before the pull so a reentrant
// call is rejected by the replay guard.
func (e *Engine) Pay(sig []byte, token [32]byte, id string, evidenceRefs []string, buyer [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	trade, err := e.loadTrade(id)
	if err != nil {
		return err
	}
	if buyer != trade.Buyer {
		return fmt.Errorf("%w: trade %s", ErrBuyerMismatch, id)
	}
	if err := e.checkTransition(trade, TradePaid); err != nil {
		return err
	}
	params := PayParams{Token: token, TradeID: id, EvidenceRefs: evidenceRefs, Buyer: buyer}
	if err := e.verifier.VerifyFrom(params, token, sig, trade.Buyer); err != nil {
		return err
	}
	if err := e.ledger.TransferFrom(e.vault, trade.Buyer, e.vault, trade.TradeCap); err != nil {
		return err
	}
	if err := e.advance(trade, TradePaid); err != nil {
		return err
	}
	e.emit(newTradeEvent(EventTypeTradePaid, trade, ""))
	return nil
}

// Finish marks a paid trade ready for release. Manager proof. Funds do not
// move here; they stay in custody until Release or Resolve.
func (e *Engine) Finish(sig []byte, token [32]byte, id string, evidenceRefs []string) error {
	if err := e.ready(); err != nil {
		return err
	}
	trade, err := e.loadTrade(id)
	if err != nil {
		return err
	}
	if err := e.checkTransition(trade, TradeFinished); err != nil {
		return err
	}
	params := FinishParams{Token: token, TradeID: id, EvidenceRefs: evidenceRefs}
	if _, err := e.verifier.Verify(params, token, sig, access.RoleManager); err != nil {
		return err
	}
	if err := e.advance(trade, TradeFinished); err != nil {
		return err
	}
	e.emit(newTradeEvent(EventTypeTradeFinished, trade, ""))
	return nil
}

// Release settles a finished trade: the seller receives SellersPart, the fee
// wallet the remainder of the cap. The proof must be signed by the buyer.
func (e *Engine) Release(sig []byte, token [32]byte, id string, evidenceRefs []string, buyer [20]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	trade, err := e.loadTrade(id)
	if err != nil {
		return err
	}
	if buyer != trade.Buyer {
		return fmt.Errorf("%w: trade %s", ErrBuyerMismatch, id)
	}
	if err := e.checkTransition(trade, TradeReleased); err != nil {
		return err
	}
	params := ReleaseParams{Token: token, TradeID: id, EvidenceRefs: evidenceRefs, Buyer: buyer}
	if err := e.verifier.VerifyFrom(params, token, sig, trade.Buyer); err != nil {
		return err
	}
	if err := e.payout(trade); err != nil {
		return err
	}
	if err := e.advance(trade, TradeReleased); err != nil {
		return err
	}
	e.emit(newTradeEvent(EventTypeTradeReleased, trade, ""))
	return nil
}

// Resolve force-settles a disputed trade once the resolution window has
// elapsed. Manager proof. Favoring the seller pays out as a release would;
// favoring the buyer refunds the full cap from custody.
func (e *Engine) Resolve(sig []byte, token [32]byte, id string, evidenceRefs []string, favorSeller bool, reason string) error {
	if err := e.ready(); err != nil {
		return err
	}
	trade, err := e.loadTrade(id)
	if err != nil {
		return err
	}
	if err := e.checkTransition(trade, TradeResolved); err != nil {
		return err
	}
	if e.now() < trade.ResolutionWindowEnd {
		return fmt.Errorf("%w: trade %s window ends at %d", ErrTooEarlyToResolve, id, trade.ResolutionWindowEnd)
	}
	params := ResolveParams{Token: token, TradeID: id, EvidenceRefs: evidenceRefs, FavorSeller: favorSeller, Reason: reason}
	if _, err := e.verifier.Verify(params, token, sig, access.RoleManager); err != nil {
		return err
	}
	if favorSeller {
		if err := e.payout(trade); err != nil {
			return err
		}
	} else {
		if err := e.ledger.TransferExempt(e.vault, trade.Buyer, trade.TradeCap); err != nil {
			return err
		}
	}
	trade.Status = TradeResolved
	trade.ResolutionReason = reason
	trade.ResolvedForSeller = favorSeller
	if err := e.state.TradePut(trade); err != nil {
		return err
	}
	e.emit(newTradeEvent(EventTypeTradeResolved, trade, reason))
	return nil
}

// payout distributes the custodied cap: SellersPart to the seller, the
// settlement fee (cap minus sellersPart) to the fee wallet.
func (e *Engine) payout(trade *Trade) error {
	if trade.SellersPart.Sign() > 0 {
		if err := e.ledger.TransferExempt(e.vault, trade.Seller, trade.SellersPart); err != nil {
			return err
		}
	}
	fee := new(big.Int).Sub(trade.TradeCap, trade.SellersPart)
	if fee.Sign() > 0 {
		if err := e.ledger.TransferExempt(e.vault, e.feeWallet, fee); err != nil {
			return err
		}
	}
	return nil
}

// GetTrade returns a read-only projection of the trade.
func (e *Engine) GetTrade(id string) (*Trade, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	trade, ok, err := e.state.TradeGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTradeNotFound
	}
	return trade.Clone(), nil
}
