package state

var (
	accountPrefix       = []byte("account/")
	allowancePrefix     = []byte("token/allowance/")
	feeExemptPrefix     = []byte("token/fee-exempt/")
	allowedPrefix       = []byte("token/allowed-contract/")
	commissionKeyBytes  = []byte("token/commission-bps")
	totalSupplyKeyBytes = []byte("token/total-supply")
	goldBarsKeyBytes    = []byte("token/gold-bars")
	rolePrefix          = []byte("access/role/")
	signWhitelistPrefix = []byte("access/sign-whitelist/")
	proofPrefix         = []byte("proof/consumed/")
	tradePrefix         = []byte("escrow/trade/")
	saleRequestPrefix   = []byte("hotwallet/sale/")
)
