package state

func roleStorageKey(role string, addr [20]byte) []byte {
	suffix := make([]byte, len(role)+1+len(addr))
	copy(suffix, role)
	suffix[len(role)] = '/'
	copy(suffix[len(role)+1:], addr[:])
	return storageKey(rolePrefix, suffix)
}

// RoleHas reports whether the address holds the role.
func (m *Manager) RoleHas(role string, addr [20]byte) (bool, error) {
	var enabled bool
	ok, err := m.getRLP(roleStorageKey(role, addr), &enabled)
	if err != nil || !ok {
		return false, err
	}
	return enabled, nil
}

// RoleSet grants or revokes the role for the address.
func (m *Manager) RoleSet(role string, addr [20]byte, enabled bool) error {
	return m.putRLP(roleStorageKey(role, addr), enabled)
}

// SignWhitelistHas reports whether the address is exempt from signature
// validation checks.
func (m *Manager) SignWhitelistHas(addr [20]byte) (bool, error) {
	return m.getFlag(signWhitelistPrefix, addr[:])
}

// SignWhitelistSet toggles the address's signature-check exemption.
func (m *Manager) SignWhitelistSet(addr [20]byte, enabled bool) error {
	return m.setFlag(signWhitelistPrefix, addr[:], enabled)
}
