package message

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/meshwire/limits"
)

// ProtocolMessage is the structure carried inside the message payload. For
// secured sessions it is the plaintext handed to the Crypter.
type ProtocolMessage struct {
	ExchangeFlags ExchangeFlags
	Opcode        uint8
	ExchangeID    uint16
	ProtocolID    ProtocolID

	// ProtocolVendorID is present iff ExchangeFlags.V().
	ProtocolVendorID *uint16

	// AckedMessageCounter is present iff ExchangeFlags.A().
	AckedMessageCounter *uint32

	// SecuredExtensions is present iff ExchangeFlags.SX().
	SecuredExtensions []byte

	// Payload is the application data. It has no length field and runs to
	// the end of the plaintext. Nil when no bytes remain.
	Payload []byte
}

// SetVendorID stores the vendor id and sets the V flag.
func (p *ProtocolMessage) SetVendorID(id uint16) {
	p.ProtocolVendorID = &id
	p.ExchangeFlags.SetV(true)
}

// SetAcknowledgedCounter stores the acknowledged counter and sets the A flag.
func (p *ProtocolMessage) SetAcknowledgedCounter(counter uint32) {
	p.AckedMessageCounter = &counter
	p.ExchangeFlags.SetA(true)
}

// SetSecuredExtensions stores ext and sets the SX flag. A nil ext clears both.
func (p *ProtocolMessage) SetSecuredExtensions(ext []byte) {
	p.SecuredExtensions = ext
	p.ExchangeFlags.SetSX(ext != nil)
}

// Size returns the encoded length of the protocol message.
func (p *ProtocolMessage) Size() int {
	size := limits.MinProtocolHeaderSize
	if p.ExchangeFlags.V() {
		size += 2
	}
	if p.ExchangeFlags.A() {
		size += 4
	}
	if p.ExchangeFlags.SX() {
		size += limits.ExtensionLengthSize + len(p.SecuredExtensions)
	}
	return size + len(p.Payload)
}

func (p *ProtocolMessage) validate() error {
	if p.ExchangeFlags.V() != (p.ProtocolVendorID != nil) {
		return mismatch(FieldProtocolVendorID, "present=%t with V=%t", p.ProtocolVendorID != nil, p.ExchangeFlags.V())
	}
	if p.ExchangeFlags.A() != (p.AckedMessageCounter != nil) {
		return mismatch(FieldAckedMessageCounter, "present=%t with A=%t", p.AckedMessageCounter != nil, p.ExchangeFlags.A())
	}
	if p.ExchangeFlags.SX() != (p.SecuredExtensions != nil) {
		return mismatch(FieldSecuredExtensions, "present=%t with SX=%t", p.SecuredExtensions != nil, p.ExchangeFlags.SX())
	}
	return nil
}

// EncodeProtocolMessage serializes p into its plaintext form.
func EncodeProtocolMessage(p *ProtocolMessage) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: protocol message", ErrNilMessage)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, p.Size())
	buf = append(buf, p.ExchangeFlags.Byte(), p.Opcode)
	buf = binary.LittleEndian.AppendUint16(buf, p.ExchangeID)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(p.ProtocolID))

	if p.ProtocolVendorID != nil {
		buf = binary.LittleEndian.AppendUint16(buf, *p.ProtocolVendorID)
	}
	if p.AckedMessageCounter != nil {
		buf = binary.LittleEndian.AppendUint32(buf, *p.AckedMessageCounter)
	}
	if p.ExchangeFlags.SX() {
		var err error
		if buf, err = appendBlock(buf, FieldSecuredExtensions, p.SecuredExtensions); err != nil {
			return nil, err
		}
	}
	return append(buf, p.Payload...), nil
}

// DecodeProtocolMessage parses a plaintext span. The span must be exactly
// what the decryption step produced: everything after the flag-driven
// fields is taken as payload.
func DecodeProtocolMessage(plaintext []byte) (*ProtocolMessage, error) {
	d := &decoder{buf: plaintext}
	p := &ProtocolMessage{}

	b, err := d.readU8(FieldExchangeFlags)
	if err != nil {
		return nil, err
	}
	p.ExchangeFlags = ExchangeFlags(b)

	if p.Opcode, err = d.readU8(FieldProtocolOpcode); err != nil {
		return nil, err
	}
	if p.ExchangeID, err = d.readU16(FieldExchangeID); err != nil {
		return nil, err
	}
	pid, err := d.readU16(FieldProtocolID)
	if err != nil {
		return nil, err
	}
	p.ProtocolID = ProtocolID(pid)

	if p.ExchangeFlags.V() {
		vid, err := d.readU16(FieldProtocolVendorID)
		if err != nil {
			return nil, err
		}
		p.ProtocolVendorID = &vid
	}
	if p.ExchangeFlags.A() {
		ack, err := d.readU32(FieldAckedMessageCounter)
		if err != nil {
			return nil, err
		}
		p.AckedMessageCounter = &ack
	}
	if p.ExchangeFlags.SX() {
		if p.SecuredExtensions, err = d.readBlock(FieldSecuredExtensions); err != nil {
			return nil, err
		}
	}

	p.Payload = d.rest()
	return p, nil
}
