package message

import (
	"fmt"

	"github.com/opd-ai/meshwire/limits"
)

// DSIZ indicates the size and meaning of the Destination Node ID field.
// It occupies bits 1..0 of MessageFlags.
type DSIZ uint8

const (
	// DSIZNotPresent means no Destination Node ID field.
	DSIZNotPresent DSIZ = 0
	// DSIZNodeID means a 64-bit Node ID destination.
	DSIZNodeID DSIZ = 1
	// DSIZGroupID means a 16-bit Group ID destination.
	DSIZGroupID DSIZ = 2
	// DSIZReserved is reserved for future use.
	DSIZReserved DSIZ = 3
)

const dsizMask = 0x03

// DSIZFromByte decodes the low two bits of b. It is defined for every byte.
func DSIZFromByte(b byte) DSIZ {
	switch b & dsizMask {
	case 0:
		return DSIZNotPresent
	case 1:
		return DSIZNodeID
	case 2:
		return DSIZGroupID
	default:
		return DSIZReserved
	}
}

// Byte returns the two-bit wire pattern. Any value other than the three
// defined ones encodes as the reserved slot 3.
func (d DSIZ) Byte() byte {
	switch d {
	case DSIZNotPresent:
		return 0
	case DSIZNodeID:
		return 1
	case DSIZGroupID:
		return 2
	default:
		return 3
	}
}

// Size returns the width in bytes of the destination field for this DSIZ.
// Reserved has no defined field and reports 0.
func (d DSIZ) Size() int {
	switch d {
	case DSIZNodeID:
		return limits.NodeIDSize
	case DSIZGroupID:
		return limits.GroupIDSize
	default:
		return 0
	}
}

func (d DSIZ) String() string {
	switch d {
	case DSIZNotPresent:
		return "NotPresent"
	case DSIZNodeID:
		return "NodeID"
	case DSIZGroupID:
		return "GroupID"
	default:
		return "Reserved"
	}
}

// SessionType identifies the kind of session a message belongs to.
// It occupies bits 1..0 of SecurityFlags.
type SessionType uint8

const (
	// SessionTypeUnicast is a unicast session. Session ID 0 is the unsecured session.
	SessionTypeUnicast SessionType = 0
	// SessionTypeGroup is a group session secured with group keys.
	SessionTypeGroup SessionType = 1
	// SessionTypeReserved covers wire values 2 and 3.
	SessionTypeReserved SessionType = 3
)

const sessionTypeMask = 0x03

// SessionTypeFromByte decodes the low two bits of b. Both 2 and 3 decode to
// SessionTypeReserved.
func SessionTypeFromByte(b byte) SessionType {
	switch b & sessionTypeMask {
	case 0:
		return SessionTypeUnicast
	case 1:
		return SessionTypeGroup
	default:
		return SessionTypeReserved
	}
}

// Byte returns the two-bit wire pattern. SessionTypeReserved always encodes
// as 3, so a wire value of 2 does not survive a trip through the enum.
// This canonicalisation is part of the wire convention; keep it.
func (s SessionType) Byte() byte {
	switch s {
	case SessionTypeUnicast:
		return 0
	case SessionTypeGroup:
		return 1
	default:
		return 3
	}
}

func (s SessionType) String() string {
	switch s {
	case SessionTypeUnicast:
		return "Unicast"
	case SessionTypeGroup:
		return "Group"
	default:
		return "Reserved"
	}
}

// MessageCounterType names the counter space a message counter is drawn
// from. It is not encoded on the wire.
type MessageCounterType uint8

const (
	GlobalUnencrypted MessageCounterType = iota
	GlobalEncryptedData
	GlobalEncryptedControl
	SecureSession
)

func (t MessageCounterType) String() string {
	switch t {
	case GlobalUnencrypted:
		return "GlobalUnencrypted"
	case GlobalEncryptedData:
		return "GlobalEncryptedData"
	case GlobalEncryptedControl:
		return "GlobalEncryptedControl"
	case SecureSession:
		return "SecureSession"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// ProtocolID identifies the protocol that defines a message opcode.
type ProtocolID uint16

const (
	ProtocolSecureChannel             ProtocolID = 0x0000
	ProtocolInteractionModel          ProtocolID = 0x0001
	ProtocolBDX                       ProtocolID = 0x0002
	ProtocolUserDirectedCommissioning ProtocolID = 0x0003
	ProtocolForTesting                ProtocolID = 0x0004
)

func (p ProtocolID) String() string {
	switch p {
	case ProtocolSecureChannel:
		return "SecureChannel"
	case ProtocolInteractionModel:
		return "InteractionModel"
	case ProtocolBDX:
		return "BDX"
	case ProtocolUserDirectedCommissioning:
		return "UDC"
	case ProtocolForTesting:
		return "Testing"
	default:
		return fmt.Sprintf("Protocol(0x%04x)", uint16(p))
	}
}
