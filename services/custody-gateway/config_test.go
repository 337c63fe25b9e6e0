package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auzd.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	owner := addr(fixedAddress(0x01))
	vault := addr(fixedAddress(0xAA))
	wallet := addr(fixedAddress(0xA0))
	feeWallet := addr(fixedAddress(0xFE))

	path := writeConfig(t, fmt.Sprintf(`
listen_address = ":9000"
data_dir = "/var/lib/auzd"
env = "prod"
log_level = "debug"

[token]
owner = %q
fee_wallet = %q
commission_bps = 150

[escrow]
vault = %q
fee_wallet = %q

[hotwallet]
wallet = %q
buy_cap = "500000000"
sell_cap = "250000000"
`, owner, feeWallet, vault, feeWallet, wallet))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, uint32(150), cfg.Token.CommissionBps)

	raw, err := ParseAddress(cfg.Escrow.Vault)
	require.NoError(t, err)
	require.Equal(t, fixedAddress(0xAA), raw)

	buyCap, err := ParseCap(cfg.HotWallet.BuyCap)
	require.NoError(t, err)
	require.Equal(t, "500000000", buyCap.String())
}

func TestLoadConfigRejectsBadAddress(t *testing.T) {
	path := writeConfig(t, `
listen_address = ":9000"
data_dir = "/var/lib/auzd"

[token]
owner = "not-a-bech32-address"
fee_wallet = "also-wrong"

[escrow]
vault = ""
fee_wallet = ""

[hotwallet]
wallet = ""
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsExcessCommission(t *testing.T) {
	owner := addr(fixedAddress(0x01))
	path := writeConfig(t, fmt.Sprintf(`
listen_address = ":9000"
data_dir = "/var/lib/auzd"

[token]
owner = %q
fee_wallet = %q
commission_bps = 10001

[escrow]
vault = %q
fee_wallet = %q

[hotwallet]
wallet = %q
`, owner, owner, owner, owner, owner))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestParseCap(t *testing.T) {
	amount, err := ParseCap("")
	require.NoError(t, err)
	require.Nil(t, amount)

	_, err = ParseCap("-5")
	require.Error(t, err)

	_, err = ParseCap("12.5")
	require.Error(t, err)
}
