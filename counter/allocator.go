package counter

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshwire/message"
)

// InitMax is the upper bound of a freshly initialised counter (2^28), which
// leaves most of the 32-bit space for the session's lifetime.
const InitMax = 1 << 28

type space struct {
	next      uint32
	exhausted bool
}

type sessionKey struct {
	sessionType message.SessionType
	sessionID   message.SessionID
}

// Allocator hands out strictly increasing counters per counter space. It is
// safe for concurrent use.
type Allocator struct {
	mu       sync.Mutex
	global   map[message.MessageCounterType]*space
	sessions map[sessionKey]*space
	random   io.Reader
	logger   *logrus.Logger
}

// NewAllocator creates an allocator seeded from crypto/rand.
func NewAllocator() *Allocator {
	return NewAllocatorWithSource(rand.Reader)
}

// NewAllocatorWithSource creates an allocator that draws initial counter
// values from r.
func NewAllocatorWithSource(r io.Reader) *Allocator {
	return &Allocator{
		global:   make(map[message.MessageCounterType]*space),
		sessions: make(map[sessionKey]*space),
		random:   r,
		logger:   logrus.StandardLogger(),
	}
}

// AllocateCounter returns the next counter of the space selected by ct. For
// SecureSession the space is scoped to sc's session.
func (a *Allocator) AllocateCounter(ct message.MessageCounterType, sc message.SecurityContext) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, err := a.spaceFor(ct, sc)
	if err != nil {
		return 0, err
	}
	if s.exhausted {
		a.logger.WithFields(logrus.Fields{
			"counter_type": ct.String(),
			"session_id":   sc.SessionID,
		}).Warn("Message counter space exhausted")
		return 0, fmt.Errorf("%w: %s", message.ErrCounterExhausted, ct)
	}

	v := s.next
	if v == math.MaxUint32 {
		s.exhausted = true
	} else {
		s.next++
	}
	return v, nil
}

// ReleaseSession forgets the counter of a closed secure session.
func (a *Allocator) ReleaseSession(sessionType message.SessionType, id message.SessionID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionKey{sessionType: sessionType, sessionID: id})
}

func (a *Allocator) spaceFor(ct message.MessageCounterType, sc message.SecurityContext) (*space, error) {
	switch ct {
	case message.GlobalUnencrypted, message.GlobalEncryptedData, message.GlobalEncryptedControl:
		if s, ok := a.global[ct]; ok {
			return s, nil
		}
		s, err := a.newSpace()
		if err != nil {
			return nil, err
		}
		a.global[ct] = s
		return s, nil
	case message.SecureSession:
		key := sessionKey{sessionType: sc.SessionType, sessionID: sc.SessionID}
		if s, ok := a.sessions[key]; ok {
			return s, nil
		}
		s, err := a.newSpace()
		if err != nil {
			return nil, err
		}
		a.sessions[key] = s
		return s, nil
	default:
		return nil, fmt.Errorf("counter: unknown counter type %s", ct)
	}
}

func (a *Allocator) newSpace() (*space, error) {
	var b [4]byte
	if _, err := io.ReadFull(a.random, b[:]); err != nil {
		return nil, fmt.Errorf("counter: failed to seed counter: %w", err)
	}
	return &space{next: binary.LittleEndian.Uint32(b[:])%InitMax + 1}, nil
}
