package message

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/meshwire/limits"
)

// MessagePayload wraps the protocol message. On the wire it is the
// ciphertext of the encoded ProtocolMessage for secured sessions.
type MessagePayload struct {
	Protocol *ProtocolMessage
}

// MessageFooter carries the integrity check of secured messages.
type MessageFooter struct {
	MIC []byte
}

// Message is one complete unit exchanged with the transport.
type Message struct {
	Header  MessageHeader
	Payload MessagePayload
	Footer  MessageFooter
}

// Codec assembles and disassembles complete messages. It holds only
// configuration and is safe for concurrent use as long as its Crypter is.
type Codec struct {
	opts    Options
	crypter Crypter
}

// NewCodec validates opts and returns a Codec. crypter may be nil when only
// unsecured messages are handled.
func NewCodec(opts Options, crypter Crypter) (*Codec, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Codec{opts: opts, crypter: crypter}, nil
}

// Options returns the codec configuration.
func (c *Codec) Options() Options {
	return c.opts
}

// headerOptions frames the header without the stream prefix; the codec
// writes and checks Message Length itself.
func (c *Codec) headerOptions() Options {
	opts := c.opts
	opts.Stream = false
	return opts
}

// Encode produces Header ∥ Payload ∥ Footer. For secured sessions the
// payload is encrypted and the MIC computed through the Crypter; any MIC
// already in m.Footer is replaced. m is not modified.
func (c *Codec) Encode(m *Message) ([]byte, error) {
	if m == nil || m.Payload.Protocol == nil {
		return nil, fmt.Errorf("%w: message payload", ErrNilMessage)
	}

	h := m.Header
	h.MessageLength = nil
	hb, err := EncodeHeader(&h, c.headerOptions())
	if err != nil {
		return nil, err
	}
	plaintext, err := EncodeProtocolMessage(m.Payload.Protocol)
	if err != nil {
		return nil, err
	}

	sc := ContextFromHeader(&h)
	body := plaintext
	var mic []byte

	if sc.RequiresSourceNodeID() && h.SourceNodeID == nil {
		return nil, fmt.Errorf("%w: %w on %s session", ErrFieldMismatch, ErrMissingSourceNodeID, sc.SessionType)
	}
	if sc.Secured() {
		if c.crypter == nil {
			return nil, ErrMissingCrypter
		}
		if body, err = c.crypter.Encrypt(plaintext, sc); err != nil {
			return nil, fmt.Errorf("message: encrypt payload: %w", err)
		}
		if mic, err = c.crypter.ComputeMIC(hb, body, sc); err != nil {
			return nil, fmt.Errorf("message: compute integrity check: %w", err)
		}
		if len(mic) != c.opts.MICSize {
			return nil, fmt.Errorf("%w: crypter produced %d byte MIC, want %d", ErrFieldMismatch, len(mic), c.opts.MICSize)
		}
	} else if m.Footer.MIC != nil {
		return nil, mismatch(FieldIntegrityCheck, "present on unsecured session")
	}

	prefix := 0
	if c.opts.Stream {
		prefix = limits.MessageLengthSize
	}
	out := make([]byte, prefix, prefix+len(hb)+len(body)+len(mic))
	out = append(out, hb...)
	out = append(out, body...)
	out = append(out, mic...)

	if c.opts.Stream {
		if err := limits.ValidateStreamBody(out[prefix:]); err != nil {
			return nil, fmt.Errorf("message: body does not fit Message Length: %w", err)
		}
		binary.LittleEndian.PutUint16(out, uint16(len(out)-prefix))
	}
	if err := limits.ValidateMessageSize(out, c.opts.MaxMessageSize); err != nil {
		return nil, fmt.Errorf("message: encode: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Encode",
		"session_id": h.SessionID,
		"counter":    h.MessageCounter,
		"secured":    sc.Secured(),
		"size":       len(out),
	}).Debug("Encoded message")

	return out, nil
}

// Decode parses a complete message. For secured sessions the MIC is
// verified before the payload is decrypted, and no ProtocolMessage is
// returned unless both succeed.
func (c *Codec) Decode(data []byte) (*Message, error) {
	if err := limits.ValidateMessageSize(data, c.opts.MaxMessageSize); err != nil {
		if errors.Is(err, ErrMessageEmpty) {
			err = fmt.Errorf("%w: %w", ErrTruncatedInput, err)
		}
		return c.rejected(err, "size")
	}

	var length *uint16
	body := data
	if c.opts.Stream {
		d := &decoder{buf: data}
		n, err := d.readU16(FieldMessageLength)
		if err != nil {
			return nil, err
		}
		body = data[limits.MessageLengthSize:]
		switch {
		case len(body) < int(n):
			return nil, &FieldError{Field: FieldMessageLength, Offset: 0, Want: int(n), Have: len(body), Err: ErrTruncatedInput}
		case len(body) > int(n):
			return nil, &FieldError{Field: FieldMessageLength, Offset: limits.MessageLengthSize + int(n), Have: len(body) - int(n), Err: ErrTrailingBytes}
		}
		length = &n
	}

	offset := len(data) - len(body)
	h, n, err := DecodeHeader(body, c.headerOptions())
	if err != nil {
		return c.rejected(offsetError(err, offset), "header")
	}
	h.MessageLength = length

	hb, rest := body[:n], body[n:]
	sc := ContextFromHeader(h)
	m := &Message{Header: *h}

	if !sc.Secured() {
		pm, err := DecodeProtocolMessage(rest)
		if err != nil {
			return c.rejected(offsetError(err, offset+n), "protocol message")
		}
		m.Payload.Protocol = pm
		return m, nil
	}

	if sc.RequiresSourceNodeID() && h.SourceNodeID == nil {
		return c.rejected(&FieldError{Field: FieldSourceNodeID, Offset: offset, Err: ErrMissingSourceNodeID}, "header")
	}
	if c.crypter == nil {
		return nil, ErrMissingCrypter
	}
	if len(rest) < c.opts.MICSize {
		return c.rejected(&FieldError{
			Field:  FieldIntegrityCheck,
			Offset: offset + n,
			Want:   c.opts.MICSize,
			Have:   len(rest),
			Err:    ErrTruncatedInput,
		}, "footer")
	}
	split := len(rest) - c.opts.MICSize
	ciphertext, mic := rest[:split], rest[split:]

	if err := c.crypter.VerifyMIC(hb, ciphertext, mic, sc); err != nil {
		return c.rejected(wrapKind(err, ErrIntegrityCheckFailed), "integrity check")
	}
	plaintext, err := c.crypter.Decrypt(ciphertext, sc)
	if err != nil {
		return c.rejected(wrapKind(err, ErrDecryptionFailed), "decrypt")
	}
	pm, err := DecodeProtocolMessage(plaintext)
	if err != nil {
		return c.rejected(err, "protocol message")
	}

	m.Payload.Protocol = pm
	m.Footer.MIC = append([]byte(nil), mic...)
	return m, nil
}

// Seal allocates a counter for h from the counter space its security
// context selects and encodes h with pm.
func (c *Codec) Seal(h MessageHeader, pm *ProtocolMessage, alloc CounterAllocator) ([]byte, error) {
	if alloc == nil {
		return nil, errors.New("message: nil counter allocator")
	}
	sc := ContextFromHeader(&h)
	ct := CounterTypeFor(sc)
	counter, err := alloc.AllocateCounter(ct, sc)
	if err != nil {
		return nil, wrapKind(err, ErrCounterExhausted)
	}
	h.MessageCounter = counter
	return c.Encode(&Message{Header: h, Payload: MessagePayload{Protocol: pm}})
}

func (c *Codec) rejected(err error, stage string) (*Message, error) {
	logrus.WithFields(logrus.Fields{
		"function": "Decode",
		"stage":    stage,
		"error":    err.Error(),
	}).Debug("Rejected message")
	return nil, err
}

// wrapKind makes sure err matches kind under errors.Is.
func wrapKind(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %v", kind, err)
}

// offsetError shifts a FieldError produced on a sub-slice so its offset is
// relative to the full message.
func offsetError(err error, base int) error {
	var fe *FieldError
	if errors.As(err, &fe) {
		shifted := *fe
		shifted.Offset += base
		return &shifted
	}
	return err
}
