package gateway

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"

	"auzchain/crypto"
)

// Config is the daemon configuration, loaded from TOML.
type Config struct {
	ListenAddress string `toml:"listen_address"`
	DataDir       string `toml:"data_dir"`
	Env           string `toml:"env"`
	LogLevel      string `toml:"log_level"`

	Token     TokenConfig     `toml:"token"`
	Escrow    EscrowConfig    `toml:"escrow"`
	HotWallet HotWalletConfig `toml:"hotwallet"`
}

// TokenConfig configures the AUZ ledger engine.
type TokenConfig struct {
	Owner         string `toml:"owner"`
	FeeWallet     string `toml:"fee_wallet"`
	CommissionBps uint32 `toml:"commission_bps"`
}

// EscrowConfig configures the trade engine's custody addresses.
type EscrowConfig struct {
	Vault     string `toml:"vault"`
	FeeWallet string `toml:"fee_wallet"`
}

// HotWalletConfig configures the over-the-counter engine. Caps are decimal
// strings in the token's smallest unit; an empty cap disables the
// corresponding direct path.
type HotWalletConfig struct {
	Wallet  string `toml:"wallet"`
	BuyCap  string `toml:"buy_cap"`
	SellCap string `toml:"sell_cap"`
}

// DefaultConfig returns the baseline configuration a fresh deployment edits.
func DefaultConfig() Config {
	return Config{
		ListenAddress: ":8645",
		DataDir:       "./auzd-data",
		Env:           "dev",
		LogLevel:      "info",
		Token:         TokenConfig{CommissionBps: 100},
	}
}

// LoadConfig reads the TOML file at path over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the addresses and caps parse.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.New("config: listen_address required")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return errors.New("config: data_dir required")
	}
	if c.Token.CommissionBps > 10_000 {
		return errors.New("config: token.commission_bps must not exceed 10000")
	}
	for field, value := range map[string]string{
		"token.owner":       c.Token.Owner,
		"token.fee_wallet":  c.Token.FeeWallet,
		"escrow.vault":      c.Escrow.Vault,
		"escrow.fee_wallet": c.Escrow.FeeWallet,
		"hotwallet.wallet":  c.HotWallet.Wallet,
	} {
		if _, err := ParseAddress(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	for field, value := range map[string]string{
		"hotwallet.buy_cap":  c.HotWallet.BuyCap,
		"hotwallet.sell_cap": c.HotWallet.SellCap,
	} {
		if _, err := ParseCap(value); err != nil {
			return fmt.Errorf("config: %s: %w", field, err)
		}
	}
	return nil
}

// ParseAddress decodes a bech32 address into its raw form.
func ParseAddress(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	return addr.Raw(), nil
}

// ParseCap parses a decimal cap string; empty means no cap (path disabled).
func ParseCap(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}
