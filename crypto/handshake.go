package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/flynn/noise"
)

var (
	// ErrHandshakeNotComplete indicates the handshake is still in progress
	ErrHandshakeNotComplete = errors.New("crypto: handshake not complete")
	// ErrHandshakeComplete indicates the handshake already finished
	ErrHandshakeComplete = errors.New("crypto: handshake already complete")
	// ErrWrongTurn indicates a message was written or read out of order
	ErrWrongTurn = errors.New("crypto: handshake message out of turn")
)

// HandshakeRole says which side of the exchange a Handshake plays.
type HandshakeRole uint8

const (
	// Initiator sends the first handshake message.
	Initiator HandshakeRole = iota
	// Responder answers it.
	Responder
)

func (r HandshakeRole) String() string {
	if r == Initiator {
		return "initiator"
	}
	return "responder"
}

// Handshake runs a two-message Noise NN exchange:
//
//	-> e
//	<- e, ee
//
// The initiator writes then reads; the responder reads then writes. The
// session secret is taken from the split cipher states, which depend on the
// ee DH result. The channel binding is public and only salts the derivation.
type Handshake struct {
	role     HandshakeRole
	state    *noise.HandshakeState
	complete bool
	secret   []byte
	binding  []byte
}

// NewHandshake creates a handshake for role using crypto/rand.
func NewHandshake(role HandshakeRole) (*Handshake, error) {
	return NewHandshakeWithRandom(role, rand.Reader)
}

// NewHandshakeWithRandom creates a handshake drawing ephemeral keys from r.
func NewHandshakeWithRandom(role HandshakeRole, r io.Reader) (*Handshake, error) {
	state, err := noise.NewHandshakeState(noise.Config{
		CipherSuite: noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256),
		Random:      r,
		Pattern:     noise.HandshakeNN,
		Initiator:   role == Initiator,
	})
	if err != nil {
		return nil, fmt.Errorf("crypto: create handshake state: %w", err)
	}
	return &Handshake{role: role, state: state}, nil
}

// WriteMessage produces this side's handshake message carrying payload.
func (h *Handshake) WriteMessage(payload []byte) ([]byte, error) {
	if h.complete {
		return nil, ErrHandshakeComplete
	}
	out, cs1, cs2, err := h.state.WriteMessage(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongTurn, err)
	}
	if cs1 != nil {
		h.finish(cs1, cs2)
	}
	return out, nil
}

// ReadMessage consumes the peer's handshake message and returns its payload.
func (h *Handshake) ReadMessage(msg []byte) ([]byte, error) {
	if h.complete {
		return nil, ErrHandshakeComplete
	}
	payload, cs1, cs2, err := h.state.ReadMessage(nil, msg)
	if err != nil {
		NewLogger("Handshake.ReadMessage").
			WithError(err, "read").
			WithField("role", h.role.String()).
			Warn("Rejected handshake message")
		return nil, fmt.Errorf("crypto: read handshake message: %w", err)
	}
	if cs1 != nil {
		h.finish(cs1, cs2)
	}
	return payload, nil
}

// finish records the split keys. Both sides receive the cipher states in
// the same order, so the concatenation is identical on each end.
func (h *Handshake) finish(cs1, cs2 *noise.CipherState) {
	k1, k2 := cs1.UnsafeKey(), cs2.UnsafeKey()
	h.secret = make([]byte, 0, len(k1)+len(k2))
	h.secret = append(h.secret, k1[:]...)
	h.secret = append(h.secret, k2[:]...)
	ZeroBytes(k1[:])
	ZeroBytes(k2[:])

	h.complete = true
	h.binding = append([]byte(nil), h.state.ChannelBinding()...)
	NewLogger("Handshake").WithField("role", h.role.String()).Debug("Handshake complete")
}

// IsComplete reports whether both messages have been exchanged.
func (h *Handshake) IsComplete() bool {
	return h.complete
}

// SessionSecret returns the shared secret of the completed handshake: the
// two transport keys Noise derived from the DH exchange. Both sides obtain
// the same value.
func (h *Handshake) SessionSecret() ([]byte, error) {
	if !h.complete {
		return nil, ErrHandshakeNotComplete
	}
	return append([]byte(nil), h.secret...), nil
}

// ChannelBinding returns the handshake hash. It is computable by anyone who
// saw the handshake messages and must not be used as key material.
func (h *Handshake) ChannelBinding() ([]byte, error) {
	if !h.complete {
		return nil, ErrHandshakeNotComplete
	}
	return append([]byte(nil), h.binding...), nil
}

// SessionKeys derives the session keys from the completed handshake, with
// the channel binding as HKDF salt.
func (h *Handshake) SessionKeys() (*SessionKeys, error) {
	secret, err := h.SessionSecret()
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(secret)
	return DeriveSessionKeys(secret, h.binding)
}

// Wipe zeroes the session secret held by h.
func (h *Handshake) Wipe() {
	ZeroBytes(h.secret)
}
