package proof

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"auzchain/crypto"
)

var (
	errNilState = errors.New("proof verifier: state not configured")
	errNilRoles = errors.New("proof verifier: role provider not configured")

	// ErrUnauthorizedSigner indicates the recovered signer lacks the role
	// required by the operation.
	ErrUnauthorizedSigner = errors.New("proof: unauthorized signer")
	// ErrProofReplayed indicates the single-use token was consumed before.
	ErrProofReplayed = errors.New("proof: token already consumed")
	// ErrInvalidProof indicates the signature does not bind the supplied
	// parameters to the expected signer.
	ErrInvalidProof = errors.New("proof: invalid proof")
)

// Params describes one proof-gated operation. Hash must cover every
// parameter that affects the resulting state change, and Operation must be
// unique per call site so a signature for one operation can never authorize
// another.
type Params interface {
	Operation() string
	Hash() [32]byte
}

// State is the replay-guard surface: a persistent set of consumed tokens.
type State interface {
	ProofConsumed(token [32]byte) (bool, error)
	ProofConsume(token [32]byte) error
}

// RoleProvider answers the boolean role queries used to authorize signers.
type RoleProvider interface {
	HasRole(addr [20]byte, role string) (bool, error)
}

// Digest builds the canonical digest for an operation: a versioned payload
// hashed with keccak256. The operation discriminator leads the payload and
// every part is length-prefixed, so the encoding is injective even when a
// caller-supplied value contains the delimiter characters.
func Digest(operation string, parts ...string) [32]byte {
	builder := strings.Builder{}
	builder.WriteString("AUZ/")
	builder.WriteString(strings.TrimSpace(operation))
	builder.WriteString("/v1")
	for _, part := range parts {
		builder.WriteString("|")
		builder.WriteString(strconv.Itoa(len(part)))
		builder.WriteString(":")
		builder.WriteString(part)
	}
	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256([]byte(builder.String())))
	return digest
}

// Recover returns the address that signed the prefixed digest of the params.
func Recover(params Params, sig []byte) ([20]byte, error) {
	var signer [20]byte
	if params == nil {
		return signer, ErrInvalidProof
	}
	if len(sig) != 65 {
		return signer, ErrInvalidProof
	}
	digest := params.Hash()
	pubKey, err := ethcrypto.SigToPub(crypto.PrefixedDigest(digest), sig)
	if err != nil {
		return signer, ErrInvalidProof
	}
	copy(signer[:], ethcrypto.PubkeyToAddress(*pubKey).Bytes())
	return signer, nil
}

// Verifier authenticates signed proofs and consumes their single-use tokens.
// It owns no other state; the decorated operation runs only after Verify
// succeeds.
type Verifier struct {
	state State
	roles RoleProvider
}

// NewVerifier constructs a verifier over the supplied replay guard and role
// provider.
func NewVerifier(state State, roles RoleProvider) *Verifier {
	return &Verifier{state: state, roles: roles}
}

func (v *Verifier) consume(token [32]byte) error {
	used, err := v.state.ProofConsumed(token)
	if err != nil {
		return err
	}
	if used {
		return ErrProofReplayed
	}
	return v.state.ProofConsume(token)
}

// Verify recovers the signer, requires it to hold the supplied role, and
// consumes the token. The token is consumed before the caller moves any
// value, so a reentrant call observes it as spent.
func (v *Verifier) Verify(params Params, token [32]byte, sig []byte, role string) ([20]byte, error) {
	var zero [20]byte
	if v == nil || v.state == nil {
		return zero, errNilState
	}
	signer, err := Recover(params, sig)
	if err != nil {
		return zero, err
	}
	if role != "" {
		if v.roles == nil {
			return zero, errNilRoles
		}
		ok, err := v.roles.HasRole(signer, role)
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, fmt.Errorf("%w: %s required for %s", ErrUnauthorizedSigner, role, params.Operation())
		}
	}
	if err := v.consume(token); err != nil {
		return zero, err
	}
	return signer, nil
}

// VerifyFrom recovers the signer and requires it to be the expected address,
// consuming the token on success. Party-specific operations (a buyer paying
// or releasing a trade) authenticate this way instead of by role.
func (v *Verifier) VerifyFrom(params Params, token [32]byte, sig []byte, expected [20]byte) error {
	if v == nil || v.state == nil {
		return errNilState
	}
	signer, err := Recover(params, sig)
	if err != nil {
		return err
	}
	if signer != expected {
		return fmt.Errorf("%w: signer mismatch for %s", ErrInvalidProof, params.Operation())
	}
	return v.consume(token)
}
