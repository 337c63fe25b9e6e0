package types

import "math/big"

// Account is the per-address ledger record. Balance is denominated in the
// smallest AUZ unit (8 decimals).
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}
