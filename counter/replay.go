package counter

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshwire/message"
)

// peerKey names one sender's counter space. Secure sessions are keyed by
// session; the global spaces are keyed by source node.
type peerKey struct {
	counterType message.MessageCounterType
	sessionType message.SessionType
	sessionID   message.SessionID
	source      message.NodeID
}

func peerKeyFor(sc message.SecurityContext) peerKey {
	ct := message.CounterTypeFor(sc)
	if ct == message.SecureSession {
		return peerKey{counterType: ct, sessionType: sc.SessionType, sessionID: sc.SessionID}
	}
	return peerKey{counterType: ct, source: sc.SourceNodeID}
}

// ReplayGuard tracks received counters with one ReceptionWindow per peer
// and counter space. It is safe for concurrent use.
type ReplayGuard struct {
	mu      sync.Mutex
	windows map[peerKey]*ReceptionWindow
	logger  *logrus.Logger
}

// NewReplayGuard creates an empty guard.
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{
		windows: make(map[peerKey]*ReceptionWindow),
		logger:  logrus.StandardLogger(),
	}
}

// Check records the counter of a decoded header, or reports
// ErrReplayDetected or ErrCounterBehindWindow.
func (g *ReplayGuard) Check(h *message.MessageHeader) error {
	if h == nil {
		return fmt.Errorf("%w: header", message.ErrNilMessage)
	}
	sc := message.ContextFromHeader(h)
	key := peerKeyFor(sc)

	g.mu.Lock()
	w, ok := g.windows[key]
	if !ok {
		w = &ReceptionWindow{}
		g.windows[key] = w
	}
	g.mu.Unlock()

	if err := w.Accept(h.MessageCounter); err != nil {
		g.logger.WithFields(logrus.Fields{
			"function":     "Check",
			"counter_type": key.counterType.String(),
			"session_id":   sc.SessionID,
			"source":       sc.SourceNodeID,
			"counter":      h.MessageCounter,
		}).Warn("Dropped message counter")
		return err
	}
	return nil
}

// ReleaseSession forgets the window of a closed secure session.
func (g *ReplayGuard) ReleaseSession(sessionType message.SessionType, id message.SessionID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.windows, peerKey{counterType: message.SecureSession, sessionType: sessionType, sessionID: id})
}

// Len returns the number of tracked windows.
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.windows)
}
