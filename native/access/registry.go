package access

import (
	"errors"
	"fmt"
	"strings"

	"auzchain/core/events"
	"auzchain/core/types"
	nativecommon "auzchain/native/common"
	"auzchain/native/proof"
)

// Role identifiers consumed by the proof verifier. An address may hold any
// number of them.
const (
	RoleSigner    = "signer"
	RoleSender    = "sender"
	RoleMinter    = "minter"
	RoleManager   = "manager"
	RoleTradeDesk = "tradedesk"
)

const moduleName = "access"

var (
	errNilState    = errors.New("access registry: state not configured")
	errNilVerifier = errors.New("access registry: verifier not configured")

	// ErrNotOwner rejects registry updates from anyone but the owner.
	ErrNotOwner = errors.New("access registry: caller is not the owner")
)

// EventTypeRoleUpdated is emitted whenever a grant is toggled.
const EventTypeRoleUpdated = "access.role.updated"

// Verifier checks the signed proofs behind relayed registry updates.
type Verifier interface {
	VerifyFrom(params proof.Params, token [32]byte, sig []byte, expected [20]byte) error
}

// State is the persistence surface required by the registry.
type State interface {
	RoleHas(role string, addr [20]byte) (bool, error)
	RoleSet(role string, addr [20]byte, enabled bool) error
	SignWhitelistHas(addr [20]byte) (bool, error)
	SignWhitelistSet(addr [20]byte, enabled bool) error
}

type accessEvent struct {
	evt *types.Event
}

func (e accessEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

// Registry stores role grants and answers the boolean role queries the rest
// of the system depends on. The owner address holds every role implicitly, so
// a fresh deployment is operable before any grants are made.
type Registry struct {
	state    State
	owner    [20]byte
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	verifier Verifier
}

// NewRegistry constructs a registry owned by the supplied address.
func NewRegistry(owner [20]byte) *Registry {
	return &Registry{owner: owner, emitter: events.NoopEmitter{}}
}

// SetState configures the state backend.
func (r *Registry) SetState(state State) { r.state = state }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *Registry) SetPauses(p nativecommon.PauseView) { r.pauses = p }

// SetVerifier configures the proof verifier used by signature-gated updates.
func (r *Registry) SetVerifier(v Verifier) { r.verifier = v }

// Owner returns the administrator address.
func (r *Registry) Owner() [20]byte { return r.owner }

func (r *Registry) emit(role string, addr [20]byte, enabled bool) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(accessEvent{evt: &types.Event{
		Type: EventTypeRoleUpdated,
		Attributes: map[string]string{
			"role":    role,
			"address": fmt.Sprintf("%x", addr),
			"enabled": fmt.Sprintf("%t", enabled),
		},
	}})
}

func normalizeRole(role string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(role))
	switch trimmed {
	case RoleSigner, RoleSender, RoleMinter, RoleManager, RoleTradeDesk:
		return trimmed, nil
	default:
		return "", fmt.Errorf("access registry: unknown role %q", role)
	}
}

func (r *Registry) update(caller [20]byte, role string, addr [20]byte, enabled bool) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if caller != r.owner {
		return ErrNotOwner
	}
	normalized, err := normalizeRole(role)
	if err != nil {
		return err
	}
	if err := r.state.RoleSet(normalized, addr, enabled); err != nil {
		return err
	}
	r.emit(normalized, addr, enabled)
	return nil
}

// UpdateSigners toggles the signer grant for an address.
func (r *Registry) UpdateSigners(caller, addr [20]byte, enabled bool) error {
	return r.update(caller, RoleSigner, addr, enabled)
}

// UpdateSenders toggles the sender grant for an address.
func (r *Registry) UpdateSenders(caller, addr [20]byte, enabled bool) error {
	return r.update(caller, RoleSender, addr, enabled)
}

// UpdateMinters toggles the minter grant for an address.
func (r *Registry) UpdateMinters(caller, addr [20]byte, enabled bool) error {
	return r.update(caller, RoleMinter, addr, enabled)
}

// UpdateManagers toggles the manager grant for an address.
func (r *Registry) UpdateManagers(caller, addr [20]byte, enabled bool) error {
	return r.update(caller, RoleManager, addr, enabled)
}

// UpdateTradeDeskUsers toggles the trade-desk grant for an address.
func (r *Registry) UpdateTradeDeskUsers(caller, addr [20]byte, enabled bool) error {
	return r.update(caller, RoleTradeDesk, addr, enabled)
}

// UpdateTradeDeskUsersWithSignature toggles the trade-desk grant using an
// owner-signed proof, allowing a relayer to submit the update on the owner's
// behalf. The replay token is consumed even if the grant write fails, so a
// retry needs a freshly signed proof.
func (r *Registry) UpdateTradeDeskUsersWithSignature(sig []byte, token [32]byte, addr [20]byte, enabled bool) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if r.verifier == nil {
		return errNilVerifier
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	params := TradeDeskParams{Token: token, Address: addr, Enabled: enabled}
	if err := r.verifier.VerifyFrom(params, token, sig, r.owner); err != nil {
		return err
	}
	if err := r.state.RoleSet(RoleTradeDesk, addr, enabled); err != nil {
		return err
	}
	r.emit(RoleTradeDesk, addr, enabled)
	return nil
}

// UpdateSignValidationWhitelist toggles membership in the set of contracts
// allowed to request signature checks.
func (r *Registry) UpdateSignValidationWhitelist(caller, addr [20]byte, enabled bool) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return err
	}
	if caller != r.owner {
		return ErrNotOwner
	}
	return r.state.SignWhitelistSet(addr, enabled)
}

// HasRole reports whether the address holds the role. The owner holds all
// roles implicitly.
func (r *Registry) HasRole(addr [20]byte, role string) (bool, error) {
	if r == nil || r.state == nil {
		return false, errNilState
	}
	if addr == r.owner {
		return true, nil
	}
	normalized, err := normalizeRole(role)
	if err != nil {
		return false, err
	}
	return r.state.RoleHas(normalized, addr)
}

// IsSigner reports whether the address may sign proofs on behalf of the
// backend.
func (r *Registry) IsSigner(addr [20]byte) (bool, error) { return r.HasRole(addr, RoleSigner) }

// IsSender reports whether the address may relay pre-authorized calls.
func (r *Registry) IsSender(addr [20]byte) (bool, error) { return r.HasRole(addr, RoleSender) }

// IsMinter reports whether the address may mint and burn.
func (r *Registry) IsMinter(addr [20]byte) (bool, error) { return r.HasRole(addr, RoleMinter) }

// IsManager reports whether the address holds the administrative role.
func (r *Registry) IsManager(addr [20]byte) (bool, error) { return r.HasRole(addr, RoleManager) }

// IsTradeDeskUser reports whether the address may register trades.
func (r *Registry) IsTradeDeskUser(addr [20]byte) (bool, error) {
	return r.HasRole(addr, RoleTradeDesk)
}

// IsWhitelistedForSignatureChecks reports membership in the signature-check
// whitelist.
func (r *Registry) IsWhitelistedForSignatureChecks(addr [20]byte) (bool, error) {
	if r == nil || r.state == nil {
		return false, errNilState
	}
	return r.state.SignWhitelistHas(addr)
}
