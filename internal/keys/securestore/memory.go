package securestore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"

	"seqrpay/internal/keys"
	dErrors "seqrpay/pkg/domain-errors"
)

// MemoryStore keeps keys in process memory. Keys vanish on exit.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*ecdsa.PrivateKey
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*ecdsa.PrivateKey)}
}

func (m *MemoryStore) Generate(_ context.Context, identity string) (*keys.SigningHandle, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "generate P-256 key")
	}
	m.mu.Lock()
	m.keys[identity] = priv
	m.mu.Unlock()
	return keys.NewSigningHandle(identity, priv)
}

func (m *MemoryStore) Load(_ context.Context, identity string) (*keys.SigningHandle, error) {
	m.mu.RLock()
	priv, ok := m.keys[identity]
	m.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeKeyNotFound, "no private key for "+identity)
	}
	return keys.NewSigningHandle(identity, priv)
}

// Remove drops identity's key, simulating secure storage loss.
func (m *MemoryStore) Remove(identity string) {
	m.mu.Lock()
	delete(m.keys, identity)
	m.mu.Unlock()
}

var _ keys.SecureStore = (*MemoryStore)(nil)
