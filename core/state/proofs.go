package state

// ProofConsumed reports whether the single-use token was spent before.
// Consumed tokens persist indefinitely.
func (m *Manager) ProofConsumed(token [32]byte) (bool, error) {
	return m.getFlag(proofPrefix, token[:])
}

// ProofConsume marks the token as spent.
func (m *Manager) ProofConsume(token [32]byte) error {
	return m.setFlag(proofPrefix, token[:], true)
}
