package message

// SecurityContext is the per-message view of the session a message belongs
// to. It is what the Crypter and CounterAllocator receive; key lookup and
// counter state live behind those interfaces.
type SecurityContext struct {
	SessionID      SessionID
	SessionType    SessionType
	MessageCounter uint32
	SourceNodeID   NodeID
	Control        bool
	Privacy        bool
}

// ContextFromHeader extracts the security context carried by h. A missing
// source node id is reported as 0.
func ContextFromHeader(h *MessageHeader) SecurityContext {
	sc := SecurityContext{
		SessionID:      h.SessionID,
		SessionType:    h.SecurityFlags.SessionType(),
		MessageCounter: h.MessageCounter,
		Control:        h.SecurityFlags.C(),
		Privacy:        h.SecurityFlags.P(),
	}
	if h.SourceNodeID != nil {
		sc.SourceNodeID = *h.SourceNodeID
	}
	return sc
}

// Secured reports whether messages in this context are encrypted and carry
// an integrity check. Only unicast session 0 is unsecured.
func (sc SecurityContext) Secured() bool {
	return !(sc.SessionType == SessionTypeUnicast && sc.SessionID == 0)
}

// RequiresSourceNodeID reports whether messages in this context must carry
// a Source Node ID. Keys of group (and reserved) sessions are shared between
// senders, so the source node id keeps their nonces apart.
func (sc SecurityContext) RequiresSourceNodeID() bool {
	return sc.Secured() && sc.SessionType != SessionTypeUnicast
}

// CounterTypeFor selects the counter space a message counter is drawn from:
//
//	unicast session 0              GlobalUnencrypted
//	group (or reserved), C set     GlobalEncryptedControl
//	group (or reserved), C clear   GlobalEncryptedData
//	unicast session != 0           SecureSession
func CounterTypeFor(sc SecurityContext) MessageCounterType {
	switch {
	case !sc.Secured():
		return GlobalUnencrypted
	case sc.SessionType == SessionTypeUnicast:
		return SecureSession
	case sc.Control:
		return GlobalEncryptedControl
	default:
		return GlobalEncryptedData
	}
}

// Crypter is the cryptographic collaborator for secured messages. header is
// the encoded header without the stream length prefix; the integrity check
// covers it together with the ciphertext.
type Crypter interface {
	Encrypt(plaintext []byte, sc SecurityContext) ([]byte, error)
	Decrypt(ciphertext []byte, sc SecurityContext) ([]byte, error)
	ComputeMIC(header, ciphertext []byte, sc SecurityContext) ([]byte, error)
	VerifyMIC(header, ciphertext, mic []byte, sc SecurityContext) error
}

// CounterAllocator hands out message counters. Implementations must never
// return the same value twice within one counter space and session, and
// report exhaustion with an error wrapping ErrCounterExhausted.
type CounterAllocator interface {
	AllocateCounter(ct MessageCounterType, sc SecurityContext) (uint32, error)
}
