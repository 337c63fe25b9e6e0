package token

import "math/big"

// ComputeFee returns the transfer commission for moving amount between payer
// and counterpart: amount*commissionBps/10000, rounded down. The fee is zero
// when either party is fee-exempt or an allow-listed contract. Deterministic
// and side-effect free given current state.
func (e *Engine) ComputeFee(amount *big.Int, payer, counterpart [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	exempt, err := e.feeExempt(payer)
	if err != nil {
		return nil, err
	}
	if !exempt {
		exempt, err = e.feeExempt(counterpart)
		if err != nil {
			return nil, err
		}
	}
	if exempt {
		return big.NewInt(0), nil
	}
	bps, err := e.state.CommissionBps()
	if err != nil {
		return nil, err
	}
	if bps == 0 {
		return big.NewInt(0), nil
	}
	fee := new(big.Int).Mul(amt, new(big.Int).SetUint64(uint64(bps)))
	fee.Div(fee, big.NewInt(10_000))
	return fee, nil
}

func (e *Engine) feeExempt(addr [20]byte) (bool, error) {
	exempt, err := e.state.FeeExempt(addr)
	if err != nil {
		return false, err
	}
	if exempt {
		return true, nil
	}
	return e.state.AllowedContract(addr)
}
