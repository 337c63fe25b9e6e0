package token

import (
	"errors"
	"fmt"
	"math/big"

	"auzchain/core/events"
	"auzchain/core/types"
	"auzchain/native/access"
	nativecommon "auzchain/native/common"
	"auzchain/native/proof"
)

const moduleName = "token"

var (
	errNilState    = errors.New("token engine: state not configured")
	errNilVerifier = errors.New("token engine: proof verifier not configured")

	// ErrInsufficientBalance rejects a transfer exceeding the payer balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance rejects a delegated transfer exceeding the
	// pre-authorized allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrNotOwner rejects administrative updates from anyone but the owner.
	ErrNotOwner = errors.New("token: caller is not the owner")
	// ErrNotMinter rejects mint and burn calls without the minter role.
	ErrNotMinter = errors.New("token: caller is not a minter")
	// ErrNotSender rejects relayed calls from addresses without the sender
	// role.
	ErrNotSender = errors.New("token: caller is not an authorized sender")
)

// State is the persistence surface required by the ledger engine.
type State interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	Allowance(owner, spender [20]byte) (*big.Int, error)
	SetAllowance(owner, spender [20]byte, amount *big.Int) error
	FeeExempt(addr [20]byte) (bool, error)
	SetFeeExempt(addr [20]byte, enabled bool) error
	AllowedContract(addr [20]byte) (bool, error)
	SetAllowedContract(addr [20]byte, enabled bool) error
	CommissionBps() (uint32, error)
	SetCommissionBps(bps uint32) error
	TotalSupply() (*big.Int, error)
	SetTotalSupply(supply *big.Int) error
	AppendGoldBars(refs []string) error
	GoldBars() ([]string, error)
}

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Engine implements the fee-bearing AUZ ledger: balances, allowances,
// commission on transfers, mint/burn against audited gold bars, and the
// delegated approve/transfer paths gated by user-signed proofs.
type Engine struct {
	state     State
	emitter   events.Emitter
	verifier  *proof.Verifier
	roles     proof.RoleProvider
	pauses    nativecommon.PauseView
	owner     [20]byte
	feeWallet [20]byte
}

// NewEngine creates a ledger engine owned by the supplied administrator. The
// fee wallet receives transfer commissions.
func NewEngine(owner, feeWallet [20]byte) *Engine {
	return &Engine{
		owner:     owner,
		feeWallet: feeWallet,
		emitter:   events.NoopEmitter{},
	}
}

// SetState configures the state backend.
func (e *Engine) SetState(state State) { e.state = state }

// SetVerifier configures the proof verifier used by the delegated paths.
func (e *Engine) SetVerifier(v *proof.Verifier) { e.verifier = v }

// SetRoles configures the role provider consulted for minter and sender
// checks.
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

// FeeWallet returns the commission recipient.
func (e *Engine) FeeWallet() [20]byte { return e.feeWallet }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(tokenEvent{evt: evt})
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return &types.Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

func (e *Engine) hasRole(addr [20]byte, role string) (bool, error) {
	if e.roles == nil {
		return false, errors.New("token engine: role provider not configured")
	}
	return e.roles.HasRole(addr, role)
}

// BalanceOf returns the current balance of the address.
func (e *Engine) BalanceOf(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(ensureAccount(acc).Balance), nil
}

// TotalSupply returns the amount of AUZ in circulation.
func (e *Engine) TotalSupply() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return nil, err
	}
	return cloneBigInt(supply), nil
}

// Allowance returns the amount the spender may move on behalf of the owner.
func (e *Engine) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	allowance, err := e.state.Allowance(owner, spender)
	if err != nil {
		return nil, err
	}
	return cloneBigInt(allowance), nil
}

// credit and debit mutate a single account record.
func (e *Engine) credit(addr [20]byte, amount *big.Int) error {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return e.state.PutAccount(addr, acc)
}

func (e *Engine) debit(addr [20]byte, amount *big.Int) error {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = ensureAccount(acc)
	if acc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return e.state.PutAccount(addr, acc)
}

// checkCovers verifies the address can pay the summed amounts without
// mutating anything.
func (e *Engine) checkCovers(addr [20]byte, amounts ...*big.Int) error {
	needed := big.NewInt(0)
	for _, amount := range amounts {
		needed.Add(needed, cloneBigInt(amount))
	}
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	if ensureAccount(acc).Balance.Cmp(needed) < 0 {
		return ErrInsufficientBalance
	}
	return nil
}

// transfer moves amount from payer to recipient; when applyFee is set the
// commission is deducted from what the recipient receives and credited to
// the fee wallet. The payer is always debited the full amount.
func (e *Engine) transfer(from, to [20]byte, amount *big.Int, applyFee bool) error {
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative transfer amount")
	}
	if amt.Sign() == 0 {
		return nil
	}
	fee := big.NewInt(0)
	if applyFee {
		computed, err := e.ComputeFee(amt, from, to)
		if err != nil {
			return err
		}
		fee = computed
	}
	if err := e.debit(from, amt); err != nil {
		return err
	}
	if err := e.credit(to, new(big.Int).Sub(amt, fee)); err != nil {
		return err
	}
	if fee.Sign() > 0 {
		if err := e.credit(e.feeWallet, fee); err != nil {
			return err
		}
	}
	e.emit(newTransferEvent(from, to, amt, fee))
	return nil
}

// Transfer moves tokens between accounts, applying the transfer commission.
func (e *Engine) Transfer(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return e.transfer(from, to, amount, true)
}

// TransferExempt moves tokens without consulting the fee engine. Escrow and
// hot-wallet vault movements settle this way.
func (e *Engine) TransferExempt(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return e.transfer(from, to, amount, false)
}

// Approve grants the spender permission to move up to amount on behalf of
// the owner.
func (e *Engine) Approve(owner, spender [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() < 0 {
		return fmt.Errorf("token: negative allowance")
	}
	if err := e.state.SetAllowance(owner, spender, amt); err != nil {
		return err
	}
	e.emit(newApprovalEvent(owner, spender, amt))
	return nil
}

// TransferFrom spends the allowance granted to the spender and moves the
// amount from the owner. The commission applies as for a direct transfer.
func (e *Engine) TransferFrom(spender, owner, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: transfer amount must be positive")
	}
	allowance, err := e.state.Allowance(owner, spender)
	if err != nil {
		return err
	}
	allowance = cloneBigInt(allowance)
	if allowance.Cmp(amt) < 0 {
		return ErrInsufficientAllowance
	}
	if err := e.transfer(owner, to, amt, true); err != nil {
		return err
	}
	return e.state.SetAllowance(owner, spender, new(big.Int).Sub(allowance, amt))
}

// Mint issues new tokens to the caller against the supplied gold bar
// references. Requires the minter role.
func (e *Engine) Mint(caller [20]byte, amount *big.Int, barRefs []string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	ok, err := e.hasRole(caller, access.RoleMinter)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMinter
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: mint amount must be positive")
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return err
	}
	if err := e.state.SetTotalSupply(new(big.Int).Add(cloneBigInt(supply), amt)); err != nil {
		return err
	}
	if len(barRefs) > 0 {
		if err := e.state.AppendGoldBars(barRefs); err != nil {
			return err
		}
	}
	if err := e.credit(caller, amt); err != nil {
		return err
	}
	e.emit(newMintEvent(caller, amt, barRefs))
	return nil
}

// Burn destroys tokens from the caller balance. Requires the minter role.
func (e *Engine) Burn(caller [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	ok, err := e.hasRole(caller, access.RoleMinter)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMinter
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return fmt.Errorf("token: burn amount must be positive")
	}
	if err := e.debit(caller, amt); err != nil {
		return err
	}
	supply, err := e.state.TotalSupply()
	if err != nil {
		return err
	}
	if err := e.state.SetTotalSupply(new(big.Int).Sub(cloneBigInt(supply), amt)); err != nil {
		return err
	}
	e.emit(newBurnEvent(caller, amt))
	return nil
}

// DelegateApprove applies an allowance the owner authorized off-chain. The
// relayer must hold the sender role and collects networkFee from the owner.
func (e *Engine) DelegateApprove(caller [20]byte, sig []byte, token [32]byte, owner, spender [20]byte, amount, networkFee *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.verifier == nil {
		return errNilVerifier
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	ok, err := e.hasRole(caller, access.RoleSender)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSender
	}
	// The owner must cover the fee before the grant persists, so a fee
	// shortfall cannot leave the allowance behind.
	if err := e.checkCovers(owner, networkFee); err != nil {
		return err
	}
	params := DelegateApproveParams{Token: token, Owner: owner, Spender: spender, Amount: amount, NetworkFee: networkFee}
	if err := e.verifier.VerifyFrom(params, token, sig, owner); err != nil {
		return err
	}
	if err := e.Approve(owner, spender, amount); err != nil {
		return err
	}
	return e.transfer(owner, caller, networkFee, false)
}

// DelegateTransfer executes a transfer the owner authorized off-chain. The
// relayer must hold the sender role and collects networkFee from the owner.
func (e *Engine) DelegateTransfer(caller [20]byte, sig []byte, token [32]byte, owner, to [20]byte, amount, networkFee *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.verifier == nil {
		return errNilVerifier
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	ok, err := e.hasRole(caller, access.RoleSender)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSender
	}
	// The owner must cover amount plus fee before anything moves, so a fee
	// shortfall cannot leave the main transfer behind.
	if err := e.checkCovers(owner, amount, networkFee); err != nil {
		return err
	}
	params := DelegateTransferParams{Token: token, Owner: owner, To: to, Amount: amount, NetworkFee: networkFee}
	if err := e.verifier.VerifyFrom(params, token, sig, owner); err != nil {
		return err
	}
	if err := e.transfer(owner, to, amount, true); err != nil {
		return err
	}
	return e.transfer(owner, caller, networkFee, false)
}

// UpdateCommission sets the transfer commission in basis points. Owner only;
// effective from the next transfer.
func (e *Engine) UpdateCommission(caller [20]byte, bps uint32) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrNotOwner
	}
	if bps > 10_000 {
		return fmt.Errorf("token: commission bps out of range")
	}
	if err := e.state.SetCommissionBps(bps); err != nil {
		return err
	}
	e.emit(newCommissionEvent(bps))
	return nil
}

// UpdateFreeOfFeeContracts toggles fee exemption for an address. Owner only.
func (e *Engine) UpdateFreeOfFeeContracts(caller, addr [20]byte, enabled bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrNotOwner
	}
	return e.state.SetFeeExempt(addr, enabled)
}

// UpdateAllowedContracts toggles allow-list membership for an address. Owner
// only.
func (e *Engine) UpdateAllowedContracts(caller, addr [20]byte, enabled bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if caller != e.owner {
		return ErrNotOwner
	}
	return e.state.SetAllowedContract(addr, enabled)
}

// GoldBars returns the audited bar references backing the supply.
func (e *Engine) GoldBars() ([]string, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.GoldBars()
}
