package state

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"auzchain/core/types"
	"auzchain/storage"
)

// Manager reads and writes ledger state through a key-value database. Keys
// are keccak hashes of prefixed payloads so records of different kinds can
// never collide. The manager itself is not concurrency-safe; callers
// serialize state-changing operations the way the ledger serializes
// transactions.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func storageKey(prefix []byte, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return ethcrypto.Keccak256(buf)
}

// getRLP decodes the value at key into out, reporting whether the key
// existed.
func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) getFlag(prefix []byte, suffix []byte) (bool, error) {
	var flag bool
	ok, err := m.getRLP(storageKey(prefix, suffix), &flag)
	if err != nil || !ok {
		return false, err
	}
	return flag, nil
}

func (m *Manager) setFlag(prefix []byte, suffix []byte, enabled bool) error {
	return m.putRLP(storageKey(prefix, suffix), enabled)
}

type storedAccount struct {
	Nonce   uint64
	Balance *big.Int
}

func accountKey(addr [20]byte) []byte {
	return storageKey(accountPrefix, addr[:])
}

// GetAccount loads an account, returning a zero-balance account for
// addresses never seen before.
func (m *Manager) GetAccount(addr [20]byte) (*types.Account, error) {
	stored := new(storedAccount)
	ok, err := m.getRLP(accountKey(addr), stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	balance := big.NewInt(0)
	if stored.Balance != nil {
		balance = new(big.Int).Set(stored.Balance)
	}
	return &types.Account{Nonce: stored.Nonce, Balance: balance}, nil
}

// PutAccount persists the account record.
func (m *Manager) PutAccount(addr [20]byte, account *types.Account) error {
	if account == nil {
		return errors.New("state: nil account")
	}
	balance := big.NewInt(0)
	if account.Balance != nil {
		balance = new(big.Int).Set(account.Balance)
	}
	return m.putRLP(accountKey(addr), &storedAccount{Nonce: account.Nonce, Balance: balance})
}
