package state

import (
	"math/big"
)

func allowanceKey(owner, spender [20]byte) []byte {
	suffix := make([]byte, len(owner)+len(spender))
	copy(suffix, owner[:])
	copy(suffix[len(owner):], spender[:])
	return storageKey(allowancePrefix, suffix)
}

// Allowance returns the amount spender may pull from owner, zero when none
// was granted.
func (m *Manager) Allowance(owner, spender [20]byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.getRLP(allowanceKey(owner, spender), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetAllowance overwrites the allowance owner grants spender.
func (m *Manager) SetAllowance(owner, spender [20]byte, amount *big.Int) error {
	value := big.NewInt(0)
	if amount != nil {
		value = new(big.Int).Set(amount)
	}
	return m.putRLP(allowanceKey(owner, spender), value)
}

// FeeExempt reports whether the address is excluded from the transfer
// commission.
func (m *Manager) FeeExempt(addr [20]byte) (bool, error) {
	return m.getFlag(feeExemptPrefix, addr[:])
}

// SetFeeExempt toggles the address's commission exemption.
func (m *Manager) SetFeeExempt(addr [20]byte, enabled bool) error {
	return m.setFlag(feeExemptPrefix, addr[:], enabled)
}

// AllowedContract reports whether the address is an allow-listed contract,
// which transfers commission-free like a fee-exempt account.
func (m *Manager) AllowedContract(addr [20]byte) (bool, error) {
	return m.getFlag(allowedPrefix, addr[:])
}

// SetAllowedContract toggles the address's allow-list membership.
func (m *Manager) SetAllowedContract(addr [20]byte, enabled bool) error {
	return m.setFlag(allowedPrefix, addr[:], enabled)
}

// CommissionBps returns the transfer commission in basis points, zero when
// never configured.
func (m *Manager) CommissionBps() (uint32, error) {
	var bps uint32
	ok, err := m.getRLP(storageKey(commissionKeyBytes, nil), &bps)
	if err != nil || !ok {
		return 0, err
	}
	return bps, nil
}

// SetCommissionBps persists the transfer commission.
func (m *Manager) SetCommissionBps(bps uint32) error {
	return m.putRLP(storageKey(commissionKeyBytes, nil), bps)
}

// TotalSupply returns the circulating supply, zero when nothing was minted.
func (m *Manager) TotalSupply() (*big.Int, error) {
	supply := new(big.Int)
	ok, err := m.getRLP(storageKey(totalSupplyKeyBytes, nil), supply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return supply, nil
}

// SetTotalSupply persists the circulating supply.
func (m *Manager) SetTotalSupply(supply *big.Int) error {
	value := big.NewInt(0)
	if supply != nil {
		value = new(big.Int).Set(supply)
	}
	return m.putRLP(storageKey(totalSupplyKeyBytes, nil), value)
}

// GoldBars returns the audit trail of bar references recorded at mint time.
func (m *Manager) GoldBars() ([]string, error) {
	var bars []string
	if _, err := m.getRLP(storageKey(goldBarsKeyBytes, nil), &bars); err != nil {
		return nil, err
	}
	return bars, nil
}

// AppendGoldBars extends the audit trail; entries are never removed.
func (m *Manager) AppendGoldBars(refs []string) error {
	if len(refs) == 0 {
		return nil
	}
	bars, err := m.GoldBars()
	if err != nil {
		return err
	}
	bars = append(bars, refs...)
	return m.putRLP(storageKey(goldBarsKeyBytes, nil), bars)
}
