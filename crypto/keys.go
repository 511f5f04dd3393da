package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the size of each session key.
const KeySize = 32

var sessionKeysInfo = []byte("meshwire session keys v1")

// ErrEmptySecret is returned when key derivation is given no input secret.
var ErrEmptySecret = errors.New("crypto: empty session secret")

// SessionKeys holds the symmetric keys of one secure session.
type SessionKeys struct {
	EncryptKey [KeySize]byte
	MICKey     [KeySize]byte
}

// DeriveSessionKeys expands secret into a pair of session keys using
// HKDF-SHA256. salt may be nil.
func DeriveSessionKeys(secret, salt []byte) (*SessionKeys, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	r := hkdf.New(sha256.New, secret, salt, sessionKeysInfo)
	keys := &SessionKeys{}
	if _, err := io.ReadFull(r, keys.EncryptKey[:]); err != nil {
		return nil, fmt.Errorf("crypto: derive encryption key: %w", err)
	}
	if _, err := io.ReadFull(r, keys.MICKey[:]); err != nil {
		Wipe(keys)
		return nil, fmt.Errorf("crypto: derive integrity key: %w", err)
	}
	return keys, nil
}

// Wipe zeroes the key material in keys. It is a no-op for nil.
func Wipe(keys *SessionKeys) {
	if keys == nil {
		return
	}
	ZeroBytes(keys.EncryptKey[:])
	ZeroBytes(keys.MICKey[:])
}

// ZeroBytes overwrites data with zeros.
func ZeroBytes(data []byte) {
	zeros := make([]byte, len(data))
	// Keeps the compiler from treating the overwrite as dead.
	subtle.ConstantTimeCopy(1, data, zeros)
	runtime.KeepAlive(data)
}
