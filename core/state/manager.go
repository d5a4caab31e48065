package state

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"claimgate/storage"
)

// Manager persists RLP-encoded records under keccak-hashed namespaced keys.
// It backs the narrow per-engine state interfaces (registry, campaign, reward)
// with one shared key-value substrate.
type Manager struct {
	db storage.Database

	// mu serializes read-modify-write helpers (list appends, role grants).
	// Claim-protocol atomicity is the campaign engine's lock, not this one.
	mu sync.Mutex
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	kvPrefix   = []byte("kv:")
	rolePrefix = []byte("role:")
)

func kvKey(key []byte) []byte {
	buf := make([]byte, len(kvPrefix)+len(key))
	copy(buf, kvPrefix)
	copy(buf[len(kvPrefix):], key)
	return ethcrypto.Keccak256(buf)
}

func roleKey(role string, addr []byte) []byte {
	buf := make([]byte, 0, len(rolePrefix)+len(role)+1+len(addr))
	buf = append(buf, rolePrefix...)
	buf = append(buf, role...)
	buf = append(buf, ':')
	buf = append(buf, addr...)
	return ethcrypto.Keccak256(buf)
}

// KVGet decodes the record stored under key into out. The boolean reports
// whether a record existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

// KVPut encodes value with RLP and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVDelete removes the record stored under key, if any.
func (m *Manager) KVDelete(key []byte) error {
	return m.db.Delete(kvKey(key))
}

// KVHas reports whether a record exists under key.
func (m *Manager) KVHas(key []byte) (bool, error) {
	return m.db.Has(kvKey(key))
}

// KVAppend appends value to the byte-string list stored under key, creating
// the list when absent. Readers are expected to dedupe.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list [][]byte
	data, err := m.db.Get(kvKey(key))
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	case len(data) > 0:
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return fmt.Errorf("state: decode list %q: %w", key, err)
		}
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	list = append(list, cp)
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVGetList decodes the list stored under key into out. Missing lists leave
// out untouched.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("state: decode list %q: %w", key, err)
	}
	return nil
}

// HasRole reports whether addr holds the named role.
func (m *Manager) HasRole(role string, addr []byte) bool {
	normalized := normalizeRole(role)
	if normalized == "" || len(addr) == 0 {
		return false
	}
	ok, err := m.db.Has(roleKey(normalized, addr))
	return err == nil && ok
}

// GrantRole marks addr as holding the named role.
func (m *Manager) GrantRole(role string, addr [20]byte) error {
	normalized := normalizeRole(role)
	if normalized == "" {
		return errors.New("state: role must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Put(roleKey(normalized, addr[:]), []byte{1})
}

// RevokeRole removes the role from addr.
func (m *Manager) RevokeRole(role string, addr [20]byte) error {
	normalized := normalizeRole(role)
	if normalized == "" {
		return errors.New("state: role must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Delete(roleKey(normalized, addr[:]))
}

func normalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
