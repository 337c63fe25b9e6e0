package proof

import (
	"errors"
	"testing"

	"auzchain/crypto"
)

type mockState struct {
	consumed map[[32]byte]bool
}

func newMockState() *mockState {
	return &mockState{consumed: make(map[[32]byte]bool)}
}

func (m *mockState) ProofConsumed(token [32]byte) (bool, error) {
	return m.consumed[token], nil
}

func (m *mockState) ProofConsume(token [32]byte) error {
	m.consumed[token] = true
	return nil
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

type testParams struct {
	op    string
	parts []string
}

func (p testParams) Operation() string { return p.op }

func (p testParams) Hash() [32]byte { return Digest(p.op, p.parts...) }

func newTestKey(t *testing.T) (*crypto.PrivateKey, [20]byte) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, key.PubKey().Address().Raw()
}

func signParams(t *testing.T, key *crypto.PrivateKey, params Params) []byte {
	t.Helper()
	sig, err := key.SignDigest(params.Hash())
	if err != nil {
		t.Fatalf("sign params: %v", err)
	}
	return sig
}

func TestVerifyConsumesToken(t *testing.T) {
	key, addr := newTestKey(t)
	roles := newMockRoles()
	roles.grant(addr, "manager")
	verifier := NewVerifier(newMockState(), roles)

	params := testParams{op: "test.op", parts: []string{"a=1"}}
	token := Digest("test.token", "1")
	sig := signParams(t, key, params)

	signer, err := verifier.Verify(params, token, sig, "manager")
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if signer != addr {
		t.Fatalf("recovered signer mismatch")
	}
	if _, err := verifier.Verify(params, token, sig, "manager"); !errors.Is(err, ErrProofReplayed) {
		t.Fatalf("expected ErrProofReplayed, got %v", err)
	}
}

func TestVerifyRejectsUnauthorizedSigner(t *testing.T) {
	key, addr := newTestKey(t)
	roles := newMockRoles()
	verifier := NewVerifier(newMockState(), roles)

	params := testParams{op: "test.op"}
	token := Digest("test.token", "2")
	sig := signParams(t, key, params)

	if _, err := verifier.Verify(params, token, sig, "manager"); !errors.Is(err, ErrUnauthorizedSigner) {
		t.Fatalf("expected ErrUnauthorizedSigner, got %v", err)
	}

	roles.grant(addr, "manager")
	if _, err := verifier.Verify(params, token, sig, "manager"); err != nil {
		t.Fatalf("verify after grant: %v", err)
	}
}

func TestVerifyFromBindsParameters(t *testing.T) {
	key, addr := newTestKey(t)
	verifier := NewVerifier(newMockState(), newMockRoles())

	signed := testParams{op: "test.op", parts: []string{"amount=100"}}
	sig := signParams(t, key, signed)
	token := Digest("test.token", "3")

	altered := testParams{op: "test.op", parts: []string{"amount=101"}}
	if err := verifier.VerifyFrom(altered, token, sig, addr); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof for altered params, got %v", err)
	}
	if err := verifier.VerifyFrom(signed, token, sig, addr); err != nil {
		t.Fatalf("verify original params: %v", err)
	}
}

func TestVerifyFromRejectsWrongSigner(t *testing.T) {
	key, _ := newTestKey(t)
	_, other := newTestKey(t)
	verifier := NewVerifier(newMockState(), newMockRoles())

	params := testParams{op: "test.op"}
	sig := signParams(t, key, params)
	token := Digest("test.token", "4")

	if err := verifier.VerifyFrom(params, token, sig, other); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestRecoverRejectsMalformedSignature(t *testing.T) {
	params := testParams{op: "test.op"}
	if _, err := Recover(params, []byte("short")); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("expected ErrInvalidProof, got %v", err)
	}
}

func TestDigestDiscriminatesOperations(t *testing.T) {
	a := Digest("escrow.pay", "trade=1")
	b := Digest("escrow.release", "trade=1")
	if a == b {
		t.Fatalf("different operations produced identical digests")
	}
}

func TestDigestBindsPartBoundaries(t *testing.T) {
	// A delimiter embedded in one part must not hash like two parts.
	a := Digest("escrow.register", "trade=a|refs=b", "refs=c")
	b := Digest("escrow.register", "trade=a", "refs=b|refs=c")
	if a == b {
		t.Fatalf("shifted part boundary produced identical digests")
	}

	c := Digest("escrow.register", "trade=a", "refs=b")
	d := Digest("escrow.register", "trade=a", "refs=b", "")
	if c == d {
		t.Fatalf("trailing empty part produced identical digests")
	}
}
