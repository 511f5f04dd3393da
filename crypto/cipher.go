package crypto

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/chacha20"

	"github.com/opd-ai/meshwire/message"
)

// NonceSize is the size of the per-message nonce: the message counter
// followed by the source node id, both little-endian.
const NonceSize = 12

// SessionCipher encrypts and authenticates messages with keys from a
// KeyStore. It implements message.Crypter and is safe for concurrent use.
type SessionCipher struct {
	store *KeyStore
}

// NewSessionCipher creates a cipher backed by store.
func NewSessionCipher(store *KeyStore) *SessionCipher {
	return &SessionCipher{store: store}
}

// Nonce builds the nonce for the message described by sc.
func Nonce(sc message.SecurityContext) [NonceSize]byte {
	var n [NonceSize]byte
	binary.LittleEndian.PutUint32(n[0:4], sc.MessageCounter)
	binary.LittleEndian.PutUint64(n[4:12], uint64(sc.SourceNodeID))
	return n
}

// Encrypt implements message.Crypter.
func (c *SessionCipher) Encrypt(plaintext []byte, sc message.SecurityContext) ([]byte, error) {
	keys, err := c.store.Get(sc.SessionType, sc.SessionID)
	if err != nil {
		return nil, err
	}
	defer Wipe(&keys)

	out := make([]byte, len(plaintext))
	if err := xorStream(keys.EncryptKey[:], sc, out, plaintext); err != nil {
		return nil, err
	}
	return out, nil
}

// Decrypt implements message.Crypter.
func (c *SessionCipher) Decrypt(ciphertext []byte, sc message.SecurityContext) ([]byte, error) {
	keys, err := c.store.Get(sc.SessionType, sc.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", message.ErrDecryptionFailed, err)
	}
	defer Wipe(&keys)

	out := make([]byte, len(ciphertext))
	if err := xorStream(keys.EncryptKey[:], sc, out, ciphertext); err != nil {
		return nil, fmt.Errorf("%w: %v", message.ErrDecryptionFailed, err)
	}
	return out, nil
}

// ComputeMIC implements message.Crypter.
func (c *SessionCipher) ComputeMIC(header, ciphertext []byte, sc message.SecurityContext) ([]byte, error) {
	keys, err := c.store.Get(sc.SessionType, sc.SessionID)
	if err != nil {
		return nil, err
	}
	defer Wipe(&keys)
	return mic(keys.MICKey[:], header, ciphertext, sc)
}

// VerifyMIC implements message.Crypter. The comparison runs in constant time.
func (c *SessionCipher) VerifyMIC(header, ciphertext, got []byte, sc message.SecurityContext) error {
	keys, err := c.store.Get(sc.SessionType, sc.SessionID)
	if err != nil {
		return fmt.Errorf("%w: %v", message.ErrIntegrityCheckFailed, err)
	}
	defer Wipe(&keys)

	want, err := mic(keys.MICKey[:], header, ciphertext, sc)
	if err != nil {
		return fmt.Errorf("%w: %v", message.ErrIntegrityCheckFailed, err)
	}
	if subtle.ConstantTimeCompare(want, got) != 1 {
		NewLogger("VerifyMIC").WithFields(SecureFieldHash(got, "mic")).
			WithField("session_id", sc.SessionID).
			WithField("message_counter", sc.MessageCounter).
			Warn("Integrity check mismatch")
		return message.ErrIntegrityCheckFailed
	}
	return nil
}

func xorStream(key []byte, sc message.SecurityContext, dst, src []byte) error {
	nonce := Nonce(sc)
	s, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		return err
	}
	s.XORKeyStream(dst, src)
	return nil
}

func mic(key, header, ciphertext []byte, sc message.SecurityContext) ([]byte, error) {
	h, err := blake2s.New128(key)
	if err != nil {
		return nil, err
	}
	nonce := Nonce(sc)
	h.Write(nonce[:])
	h.Write(header)
	h.Write(ciphertext)
	return h.Sum(nil), nil
}
