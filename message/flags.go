package message

import (
	"fmt"
	"strings"
)

func setBit(b, mask byte, on bool) byte {
	if on {
		return b | mask
	}
	return b &^ mask
}

// MessageFlags is the first byte of every message header.
//
//	bit 7..4  Version
//	bit 3     reserved
//	bit 2     S: Source Node ID present
//	bit 1..0  DSIZ
//
// Bits without an accessor are carried through unchanged.
type MessageFlags uint8

const (
	messageFlagSource   = 0x04
	messageVersionShift = 4
	messageVersionMask  = 0xF0
)

// Byte returns the raw flag byte.
func (f MessageFlags) Byte() byte { return byte(f) }

// DSIZ returns the destination size code.
func (f MessageFlags) DSIZ() DSIZ { return DSIZFromByte(byte(f)) }

// SetDSIZ writes bits 1..0.
func (f *MessageFlags) SetDSIZ(d DSIZ) {
	*f = MessageFlags(byte(*f)&^dsizMask | d.Byte())
}

// S reports whether the Source Node ID field is present.
func (f MessageFlags) S() bool { return byte(f)&messageFlagSource != 0 }

// SetS writes bit 2.
func (f *MessageFlags) SetS(on bool) {
	*f = MessageFlags(setBit(byte(*f), messageFlagSource, on))
}

// Version returns the 4-bit message format version.
func (f MessageFlags) Version() uint8 {
	return byte(f) >> messageVersionShift
}

// SetVersion writes bits 7..4. Only the low four bits of v are used.
func (f *MessageFlags) SetVersion(v uint8) {
	*f = MessageFlags(byte(*f)&^messageVersionMask | (v<<messageVersionShift)&messageVersionMask)
}

func (f MessageFlags) String() string {
	return fmt.Sprintf("MessageFlags(0x%02x version=%d S=%t DSIZ=%s)", byte(f), f.Version(), f.S(), f.DSIZ())
}

// SecurityFlags is the security byte of a message header.
//
//	bit 7     P: privacy
//	bit 6     C: control message
//	bit 5     MX: message extensions present
//	bit 4..2  reserved
//	bit 1..0  SessionType
type SecurityFlags uint8

const (
	securityFlagPrivacy    = 0x80
	securityFlagControl    = 0x40
	securityFlagExtensions = 0x20
)

// Byte returns the raw flag byte.
func (f SecurityFlags) Byte() byte { return byte(f) }

// P reports the privacy flag.
func (f SecurityFlags) P() bool { return byte(f)&securityFlagPrivacy != 0 }

// SetP writes bit 7.
func (f *SecurityFlags) SetP(on bool) {
	*f = SecurityFlags(setBit(byte(*f), securityFlagPrivacy, on))
}

// C reports the control message flag.
func (f SecurityFlags) C() bool { return byte(f)&securityFlagControl != 0 }

// SetC writes bit 6.
func (f *SecurityFlags) SetC(on bool) {
	*f = SecurityFlags(setBit(byte(*f), securityFlagControl, on))
}

// MX reports whether the Message Extensions block is present.
func (f SecurityFlags) MX() bool { return byte(f)&securityFlagExtensions != 0 }

// SetMX writes bit 5.
func (f *SecurityFlags) SetMX(on bool) {
	*f = SecurityFlags(setBit(byte(*f), securityFlagExtensions, on))
}

// SessionType returns the session type from bits 1..0.
func (f SecurityFlags) SessionType() SessionType { return SessionTypeFromByte(byte(f)) }

// SetSessionType writes bits 1..0. SessionTypeReserved is written as 3.
func (f *SecurityFlags) SetSessionType(s SessionType) {
	*f = SecurityFlags(byte(*f)&^sessionTypeMask | s.Byte())
}

func (f SecurityFlags) String() string {
	return fmt.Sprintf("SecurityFlags(0x%02x P=%t C=%t MX=%t session=%s)", byte(f), f.P(), f.C(), f.MX(), f.SessionType())
}

// ExchangeFlags is the first byte of a protocol message.
//
//	bit 7..5  reserved
//	bit 4     V: protocol vendor id present
//	bit 3     SX: secured extensions present
//	bit 2     R: reliability requested
//	bit 1     A: acknowledgement, acked counter present
//	bit 0     I: sent by the exchange initiator
type ExchangeFlags uint8

const (
	exchangeFlagInitiator         = 0x01
	exchangeFlagAcknowledgement   = 0x02
	exchangeFlagReliability       = 0x04
	exchangeFlagSecuredExtensions = 0x08
	exchangeFlagVendor            = 0x10
)

// Byte returns the raw flag byte.
func (f ExchangeFlags) Byte() byte { return byte(f) }

// I reports the initiator flag.
func (f ExchangeFlags) I() bool { return byte(f)&exchangeFlagInitiator != 0 }

// SetI writes bit 0.
func (f *ExchangeFlags) SetI(on bool) {
	*f = ExchangeFlags(setBit(byte(*f), exchangeFlagInitiator, on))
}

// A reports the acknowledgement flag.
func (f ExchangeFlags) A() bool { return byte(f)&exchangeFlagAcknowledgement != 0 }

// SetA writes bit 1.
func (f *ExchangeFlags) SetA(on bool) {
	*f = ExchangeFlags(setBit(byte(*f), exchangeFlagAcknowledgement, on))
}

// R reports the reliability flag.
func (f ExchangeFlags) R() bool { return byte(f)&exchangeFlagReliability != 0 }

// SetR writes bit 2.
func (f *ExchangeFlags) SetR(on bool) {
	*f = ExchangeFlags(setBit(byte(*f), exchangeFlagReliability, on))
}

// SX reports whether the Secured Extensions block is present.
func (f ExchangeFlags) SX() bool { return byte(f)&exchangeFlagSecuredExtensions != 0 }

// SetSX writes bit 3.
func (f *ExchangeFlags) SetSX(on bool) {
	*f = ExchangeFlags(setBit(byte(*f), exchangeFlagSecuredExtensions, on))
}

// V reports whether the Protocol Vendor ID is present.
func (f ExchangeFlags) V() bool { return byte(f)&exchangeFlagVendor != 0 }

// SetV writes bit 4.
func (f *ExchangeFlags) SetV(on bool) {
	*f = ExchangeFlags(setBit(byte(*f), exchangeFlagVendor, on))
}

func (f ExchangeFlags) String() string {
	var set []string
	for _, bit := range []struct {
		name string
		on   bool
	}{{"I", f.I()}, {"A", f.A()}, {"R", f.R()}, {"SX", f.SX()}, {"V", f.V()}} {
		if bit.on {
			set = append(set, bit.name)
		}
	}
	return fmt.Sprintf("ExchangeFlags(0x%02x %s)", byte(f), strings.Join(set, "|"))
}
