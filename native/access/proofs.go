package access

import (
	"encoding/hex"
	"strconv"

	"auzchain/native/proof"
)

const opTradeDeskUpdate = "access.tradedesk_update"

// TradeDeskParams binds a trade-desk grant update to its replay token so the
// owner can authorize the change offline and a relayer can submit it.
type TradeDeskParams struct {
	Token   [32]byte
	Address [20]byte
	Enabled bool
}

func (p TradeDeskParams) Operation() string { return opTradeDeskUpdate }

func (p TradeDeskParams) Hash() [32]byte {
	return proof.Digest(opTradeDeskUpdate,
		"token="+hex.EncodeToString(p.Token[:]),
		"address="+hex.EncodeToString(p.Address[:]),
		"enabled="+strconv.FormatBool(p.Enabled),
	)
}

// TradeDeskProof returns the digest the owner signs to toggle the trade-desk
// grant for an address.
func TradeDeskProof(token [32]byte, addr [20]byte, enabled bool) [32]byte {
	return TradeDeskParams{Token: token, Address: addr, Enabled: enabled}.Hash()
}
