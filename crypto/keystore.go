package crypto

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshwire/message"
)

var (
	// ErrNoSessionKeys is returned when no keys are registered for a session.
	ErrNoSessionKeys = errors.New("crypto: no keys for session")
	// ErrNilSessionKeys is returned when Put is given no keys.
	ErrNilSessionKeys = errors.New("crypto: nil session keys")
)

type storeKey struct {
	sessionType message.SessionType
	sessionID   message.SessionID
}

// KeyStore maps sessions to their keys. It is safe for concurrent use.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[storeKey]*SessionKeys
}

// NewKeyStore creates an empty key store.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[storeKey]*SessionKeys)}
}

// Put registers keys for a session, replacing and wiping any previous keys.
// The store keeps its own copy.
func (ks *KeyStore) Put(sessionType message.SessionType, id message.SessionID, keys *SessionKeys) error {
	if keys == nil {
		return ErrNilSessionKeys
	}
	cp := *keys
	k := storeKey{sessionType: sessionType, sessionID: id}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if old, ok := ks.keys[k]; ok {
		Wipe(old)
	}
	ks.keys[k] = &cp

	NewLogger("KeyStore.Put").WithFields(logrus.Fields{
		"session_type": sessionType.String(),
		"session_id":   id,
	}).Debug("Registered session keys")
	return nil
}

// Get returns a copy of the keys for a session.
func (ks *KeyStore) Get(sessionType message.SessionType, id message.SessionID) (SessionKeys, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	keys, ok := ks.keys[storeKey{sessionType: sessionType, sessionID: id}]
	if !ok {
		return SessionKeys{}, fmt.Errorf("%w: %s session 0x%04x", ErrNoSessionKeys, sessionType, uint16(id))
	}
	return *keys, nil
}

// Delete wipes and forgets the keys of a session.
func (ks *KeyStore) Delete(sessionType message.SessionType, id message.SessionID) {
	k := storeKey{sessionType: sessionType, sessionID: id}

	ks.mu.Lock()
	defer ks.mu.Unlock()
	if old, ok := ks.keys[k]; ok {
		Wipe(old)
		delete(ks.keys, k)
	}
}

// Len returns the number of registered sessions.
func (ks *KeyStore) Len() int {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return len(ks.keys)
}
