package crypto

import (
	"bytes"
	"crypto/sha256"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"

	"github.com/opd-ai/meshwire/message"
)

func testKeys(t *testing.T, seed byte) *SessionKeys {
	t.Helper()
	keys, err := DeriveSessionKeys(bytes.Repeat([]byte{seed}, 32), []byte("salt"))
	require.NoError(t, err)
	return keys
}

func TestDeriveSessionKeys(t *testing.T) {
	secret := []byte("shared session secret")
	keys, err := DeriveSessionKeys(secret, nil)
	require.NoError(t, err)

	want := make([]byte, 2*KeySize)
	_, err = io.ReadFull(hkdf.New(sha256.New, secret, nil, sessionKeysInfo), want)
	require.NoError(t, err)
	assert.Equal(t, want[:KeySize], keys.EncryptKey[:])
	assert.Equal(t, want[KeySize:], keys.MICKey[:])
	assert.NotEqual(t, keys.EncryptKey, keys.MICKey)

	again, err := DeriveSessionKeys(secret, nil)
	require.NoError(t, err)
	assert.Equal(t, keys, again, "derivation is deterministic")

	salted, err := DeriveSessionKeys(secret, []byte("other"))
	require.NoError(t, err)
	assert.NotEqual(t, keys.EncryptKey, salted.EncryptKey)

	_, err = DeriveSessionKeys(nil, nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestWipe(t *testing.T) {
	keys := testKeys(t, 1)
	Wipe(keys)
	assert.Equal(t, [KeySize]byte{}, keys.EncryptKey)
	assert.Equal(t, [KeySize]byte{}, keys.MICKey)
	Wipe(nil)
}

func TestKeyStore(t *testing.T) {
	ks := NewKeyStore()
	keys := testKeys(t, 2)

	_, err := ks.Get(message.SessionTypeUnicast, 1)
	assert.ErrorIs(t, err, ErrNoSessionKeys)
	assert.ErrorIs(t, ks.Put(message.SessionTypeUnicast, 1, nil), ErrNilSessionKeys)
	assert.Equal(t, 0, ks.Len())

	require.NoError(t, ks.Put(message.SessionTypeUnicast, 1, keys))
	got, err := ks.Get(message.SessionTypeUnicast, 1)
	require.NoError(t, err)
	assert.Equal(t, *keys, got)

	_, err = ks.Get(message.SessionTypeGroup, 1)
	assert.ErrorIs(t, err, ErrNoSessionKeys, "session type is part of the key")

	Wipe(keys)
	got, err = ks.Get(message.SessionTypeUnicast, 1)
	require.NoError(t, err)
	assert.NotEqual(t, [KeySize]byte{}, got.EncryptKey, "store keeps its own copy")

	ks.Delete(message.SessionTypeUnicast, 1)
	assert.Equal(t, 0, ks.Len())
	_, err = ks.Get(message.SessionTypeUnicast, 1)
	assert.ErrorIs(t, err, ErrNoSessionKeys)
}

func TestNonceLayout(t *testing.T) {
	n := Nonce(message.SecurityContext{MessageCounter: 0x04030201, SourceNodeID: 0x0c0b0a0908070605})
	assert.Equal(t, [NonceSize]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, n)
}

func TestSessionCipherRoundTrip(t *testing.T) {
	ks := NewKeyStore()
	require.NoError(t, ks.Put(message.SessionTypeUnicast, 0x42, testKeys(t, 3)))
	c := NewSessionCipher(ks)
	sc := message.SecurityContext{SessionID: 0x42, MessageCounter: 7, SourceNodeID: 99}

	plaintext := []byte("hello mesh")
	ct, err := c.Encrypt(plaintext, sc)
	require.NoError(t, err)
	assert.Len(t, ct, len(plaintext))
	assert.NotEqual(t, plaintext, ct)

	pt, err := c.Decrypt(ct, sc)
	require.NoError(t, err)
	assert.Equal(t, plaintext, pt)

	sc2 := sc
	sc2.MessageCounter++
	ct2, err := c.Encrypt(plaintext, sc2)
	require.NoError(t, err)
	assert.NotEqual(t, ct, ct2, "nonce depends on the counter")

	header := []byte{0x00, 0x42, 0x00, 0x00}
	tag, err := c.ComputeMIC(header, ct, sc)
	require.NoError(t, err)
	assert.Len(t, tag, message.DefaultOptions().MICSize)
	require.NoError(t, c.VerifyMIC(header, ct, tag, sc))

	bad := append([]byte(nil), tag...)
	bad[0] ^= 0x80
	assert.ErrorIs(t, c.VerifyMIC(header, ct, bad, sc), message.ErrIntegrityCheckFailed)
	assert.ErrorIs(t, c.VerifyMIC([]byte{0x01}, ct, tag, sc), message.ErrIntegrityCheckFailed)
	assert.ErrorIs(t, c.VerifyMIC(header, ct, tag[:8], sc), message.ErrIntegrityCheckFailed)
	assert.ErrorIs(t, c.VerifyMIC(header, ct, tag, sc2), message.ErrIntegrityCheckFailed)
}

func TestSessionCipherUnknownSession(t *testing.T) {
	c := NewSessionCipher(NewKeyStore())
	sc := message.SecurityContext{SessionID: 5}

	_, err := c.Encrypt([]byte("x"), sc)
	assert.ErrorIs(t, err, ErrNoSessionKeys)
	_, err = c.Decrypt([]byte("x"), sc)
	assert.ErrorIs(t, err, message.ErrDecryptionFailed)
	assert.ErrorIs(t, c.VerifyMIC(nil, nil, make([]byte, 16), sc), message.ErrIntegrityCheckFailed)
}

func handshakePair(t *testing.T) (*Handshake, *Handshake) {
	t.Helper()
	initiator, err := NewHandshake(Initiator)
	require.NoError(t, err)
	responder, err := NewHandshake(Responder)
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage([]byte("hi"))
	require.NoError(t, err)
	payload, err := responder.ReadMessage(msg1)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), payload)
	assert.False(t, responder.IsComplete())

	msg2, err := responder.WriteMessage(nil)
	require.NoError(t, err)
	assert.True(t, responder.IsComplete())
	_, err = initiator.ReadMessage(msg2)
	require.NoError(t, err)
	assert.True(t, initiator.IsComplete())
	return initiator, responder
}

func TestHandshake(t *testing.T) {
	initiator, responder := handshakePair(t)

	s1, err := initiator.SessionSecret()
	require.NoError(t, err)
	s2, err := responder.SessionSecret()
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Len(t, s1, 2*KeySize)

	_, err = initiator.WriteMessage(nil)
	assert.ErrorIs(t, err, ErrHandshakeComplete)
	_, err = responder.ReadMessage(nil)
	assert.ErrorIs(t, err, ErrHandshakeComplete)

	other, _ := handshakePair(t)
	s3, err := other.SessionSecret()
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3, "fresh ephemeral keys give a fresh secret")
}

// observedBinding rebuilds the Noise NN handshake hash from the two wire
// messages alone.
func observedBinding(msg1, msg2 []byte) []byte {
	mix := func(h, data []byte) []byte {
		sum := sha256.Sum256(append(append([]byte(nil), h...), data...))
		return sum[:]
	}
	h := []byte("Noise_NN_25519_ChaChaPoly_SHA256")
	h = mix(h, nil)
	h = mix(h, msg1[:32])
	h = mix(h, msg1[32:])
	h = mix(h, msg2[:32])
	h = mix(h, msg2[32:])
	return h
}

func TestHandshakeSecretNotDerivableFromWire(t *testing.T) {
	initiator, err := NewHandshake(Initiator)
	require.NoError(t, err)
	responder, err := NewHandshake(Responder)
	require.NoError(t, err)

	msg1, err := initiator.WriteMessage([]byte("hi"))
	require.NoError(t, err)
	_, err = responder.ReadMessage(msg1)
	require.NoError(t, err)
	msg2, err := responder.WriteMessage(nil)
	require.NoError(t, err)
	_, err = initiator.ReadMessage(msg2)
	require.NoError(t, err)

	binding, err := initiator.ChannelBinding()
	require.NoError(t, err)
	public := observedBinding(msg1, msg2)
	require.Equal(t, public, binding, "the channel binding is public")

	secret, err := initiator.SessionSecret()
	require.NoError(t, err)
	assert.NotEqual(t, public, secret)
	assert.False(t, bytes.Contains(secret, public))

	keys, err := initiator.SessionKeys()
	require.NoError(t, err)
	for _, salt := range [][]byte{nil, public} {
		guess, err := DeriveSessionKeys(public, salt)
		require.NoError(t, err)
		assert.NotEqual(t, guess.EncryptKey, keys.EncryptKey)
		assert.NotEqual(t, guess.MICKey, keys.MICKey)
	}

	other, err := responder.SessionKeys()
	require.NoError(t, err)
	assert.Equal(t, keys, other)

	initiator.Wipe()
	wiped, err := initiator.SessionSecret()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 2*KeySize), wiped)
}

func TestHandshakeOrdering(t *testing.T) {
	responder, err := NewHandshake(Responder)
	require.NoError(t, err)
	_, err = responder.WriteMessage(nil)
	assert.ErrorIs(t, err, ErrWrongTurn)

	_, err = responder.SessionSecret()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
	_, err = responder.SessionKeys()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)
	_, err = responder.ChannelBinding()
	assert.ErrorIs(t, err, ErrHandshakeNotComplete)

	_, err = responder.ReadMessage([]byte{0x01})
	assert.Error(t, err, "short message is rejected")
}

func TestSecuredMessageAfterHandshake(t *testing.T) {
	initiator, responder := handshakePair(t)
	const session message.SessionID = 0x1234

	sender, receiver := NewKeyStore(), NewKeyStore()
	k1, err := initiator.SessionKeys()
	require.NoError(t, err)
	require.NoError(t, sender.Put(message.SessionTypeUnicast, session, k1))
	k2, err := responder.SessionKeys()
	require.NoError(t, err)
	require.NoError(t, receiver.Put(message.SessionTypeUnicast, session, k2))

	out, err := message.NewCodec(message.DefaultOptions(), NewSessionCipher(sender))
	require.NoError(t, err)
	in, err := message.NewCodec(message.DefaultOptions(), NewSessionCipher(receiver))
	require.NoError(t, err)

	m := &message.Message{}
	m.Header.SessionID = session
	m.Header.MessageCounter = 100
	m.Header.SetSourceNodeID(0x1122334455667788)
	pm := &message.ProtocolMessage{Opcode: 0x08, ExchangeID: 3, ProtocolID: message.ProtocolInteractionModel}
	pm.ExchangeFlags.SetI(true)
	pm.Payload = []byte("attribute report")
	m.Payload.Protocol = pm

	wire, err := out.Encode(m)
	require.NoError(t, err)
	assert.NotContains(t, string(wire), "attribute report")

	decoded, err := in.Decode(wire)
	require.NoError(t, err)
	assert.Equal(t, pm, decoded.Payload.Protocol)

	wire[len(wire)-1] ^= 0x01
	_, err = in.Decode(wire)
	assert.ErrorIs(t, err, message.ErrIntegrityCheckFailed)
}

func TestSessionCipherConcurrent(t *testing.T) {
	ks := NewKeyStore()
	c := NewSessionCipher(ks)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id message.SessionID) {
			defer wg.Done()
			keys, err := DeriveSessionKeys([]byte{byte(id) + 1}, nil)
			if !assert.NoError(t, err) {
				return
			}
			if !assert.NoError(t, ks.Put(message.SessionTypeUnicast, id, keys)) {
				return
			}
			sc := message.SecurityContext{SessionID: id, MessageCounter: uint32(id)}
			ct, err := c.Encrypt([]byte("payload"), sc)
			if !assert.NoError(t, err) {
				return
			}
			pt, err := c.Decrypt(ct, sc)
			assert.NoError(t, err)
			assert.Equal(t, []byte("payload"), pt)
		}(message.SessionID(i + 1))
	}
	wg.Wait()
	assert.Equal(t, 8, ks.Len())
}

func TestSecureFieldHash(t *testing.T) {
	f := SecureFieldHash([]byte{0xde, 0xad}, "mic")
	assert.Equal(t, "dead", f["mic_preview"])
	assert.Equal(t, 2, f["mic_size"])

	f = SecureFieldHash(bytes.Repeat([]byte{0xab}, 16), "ct")
	assert.Equal(t, "abababababababab...", f["ct_preview"])
	assert.Equal(t, "nil", SecureFieldHash(nil, "x")["x_preview"])
}
