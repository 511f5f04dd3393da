package message

import (
	"encoding/binary"
	"fmt"

	"github.com/opd-ai/meshwire/limits"
)

// SessionID identifies the session a message belongs to.
type SessionID uint16

// NodeID identifies a single device endpoint.
type NodeID uint64

// GroupID identifies a multicast group of endpoints.
type GroupID uint16

// DestinationNodeID is either a Node ID or a Group ID. The zero value is
// neither and is rejected by the encoder.
type DestinationNodeID struct {
	kind  DSIZ
	node  NodeID
	group GroupID
}

// NodeDestination returns a 64-bit Node ID destination.
func NodeDestination(id NodeID) DestinationNodeID {
	return DestinationNodeID{kind: DSIZNodeID, node: id}
}

// GroupDestination returns a 16-bit Group ID destination.
func GroupDestination(id GroupID) DestinationNodeID {
	return DestinationNodeID{kind: DSIZGroupID, group: id}
}

// DSIZ returns the DSIZ value that selects this variant.
func (d DestinationNodeID) DSIZ() DSIZ { return d.kind }

// NodeID returns the node id and whether this is the Node variant.
func (d DestinationNodeID) NodeID() (NodeID, bool) {
	return d.node, d.kind == DSIZNodeID
}

// GroupID returns the group id and whether this is the Group variant.
func (d DestinationNodeID) GroupID() (GroupID, bool) {
	return d.group, d.kind == DSIZGroupID
}

func (d DestinationNodeID) String() string {
	switch d.kind {
	case DSIZNodeID:
		return fmt.Sprintf("Node(0x%016x)", uint64(d.node))
	case DSIZGroupID:
		return fmt.Sprintf("Group(0x%04x)", uint16(d.group))
	default:
		return "None"
	}
}

// MessageHeader is the clear-text envelope of a message.
//
// Optional fields are pointers or nil slices. Their presence must agree with
// the flag that governs them; the Set* helpers keep both in step.
type MessageHeader struct {
	// MessageLength is the number of bytes following the length field.
	// Present only with stream framing.
	MessageLength *uint16

	Flags          MessageFlags
	SessionID      SessionID
	SecurityFlags  SecurityFlags
	MessageCounter uint32

	// SourceNodeID is present iff Flags.S().
	SourceNodeID *NodeID

	// DestNodeID is present iff Flags.DSIZ() is NodeID or GroupID and must
	// be the matching variant.
	DestNodeID *DestinationNodeID

	// MessageExtensions is present iff SecurityFlags.MX(). An empty
	// non-nil slice encodes as a zero-length block.
	MessageExtensions []byte
}

// SetSourceNodeID stores id and sets the S flag.
func (h *MessageHeader) SetSourceNodeID(id NodeID) {
	h.SourceNodeID = &id
	h.Flags.SetS(true)
}

// ClearSourceNodeID removes the source and clears the S flag.
func (h *MessageHeader) ClearSourceNodeID() {
	h.SourceNodeID = nil
	h.Flags.SetS(false)
}

// SetDestination stores d and writes the matching DSIZ.
func (h *MessageHeader) SetDestination(d DestinationNodeID) {
	h.DestNodeID = &d
	h.Flags.SetDSIZ(d.DSIZ())
}

// ClearDestination removes the destination and writes DSIZNotPresent.
func (h *MessageHeader) ClearDestination() {
	h.DestNodeID = nil
	h.Flags.SetDSIZ(DSIZNotPresent)
}

// SetMessageExtensions stores ext and sets the MX flag. A nil ext clears both.
func (h *MessageHeader) SetMessageExtensions(ext []byte) {
	h.MessageExtensions = ext
	h.SecurityFlags.SetMX(ext != nil)
}

// Size returns the encoded header length under opts.
func (h *MessageHeader) Size(opts Options) int {
	size := limits.MinHeaderSize
	if opts.Stream {
		size += limits.MessageLengthSize
	}
	if h.Flags.S() {
		size += limits.NodeIDSize
	}
	size += h.Flags.DSIZ().Size()
	if h.SecurityFlags.MX() {
		size += limits.ExtensionLengthSize + len(h.MessageExtensions)
	}
	return size
}

func (h *MessageHeader) validate(opts Options) error {
	if v := h.Flags.Version(); v > opts.MaxVersion {
		return fmt.Errorf("%w: version %d above %d", ErrUnsupportedVersion, v, opts.MaxVersion)
	}
	if opts.Stream != (h.MessageLength != nil) {
		return mismatch(FieldMessageLength, "present=%t with stream framing=%t", h.MessageLength != nil, opts.Stream)
	}
	if h.Flags.S() != (h.SourceNodeID != nil) {
		return mismatch(FieldSourceNodeID, "present=%t with S=%t", h.SourceNodeID != nil, h.Flags.S())
	}

	switch dsiz := h.Flags.DSIZ(); dsiz {
	case DSIZNodeID, DSIZGroupID:
		if h.DestNodeID == nil || h.DestNodeID.DSIZ() != dsiz {
			return mismatch(FieldDestNodeID, "%v does not match DSIZ %s", h.DestNodeID, dsiz)
		}
	default:
		if dsiz == DSIZReserved && opts.StrictReserved {
			return fmt.Errorf("%w: reserved DSIZ", ErrInvalidFixedValue)
		}
		if h.DestNodeID != nil {
			return mismatch(FieldDestNodeID, "%s present with DSIZ %s", h.DestNodeID, dsiz)
		}
	}

	if h.SecurityFlags.SessionType() == SessionTypeReserved && opts.StrictReserved {
		return fmt.Errorf("%w: reserved session type", ErrInvalidFixedValue)
	}
	if h.SecurityFlags.MX() != (h.MessageExtensions != nil) {
		return mismatch(FieldMessageExtensions, "present=%t with MX=%t", h.MessageExtensions != nil, h.SecurityFlags.MX())
	}
	return nil
}

// EncodeHeader serializes h. It fails if an optional field disagrees with
// the flag that governs it.
func EncodeHeader(h *MessageHeader, opts Options) ([]byte, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: header", ErrNilMessage)
	}
	out, err := AppendHeader(make([]byte, 0, h.Size(opts)), h, opts)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AppendHeader appends the encoding of h to dst. On error dst is returned
// unchanged.
func AppendHeader(dst []byte, h *MessageHeader, opts Options) ([]byte, error) {
	if h == nil {
		return dst, fmt.Errorf("%w: header", ErrNilMessage)
	}
	if err := h.validate(opts); err != nil {
		return dst, err
	}
	orig := dst

	if opts.Stream {
		dst = binary.LittleEndian.AppendUint16(dst, *h.MessageLength)
	}
	dst = append(dst, h.Flags.Byte())
	dst = binary.LittleEndian.AppendUint16(dst, uint16(h.SessionID))
	dst = append(dst, h.SecurityFlags.Byte())
	dst = binary.LittleEndian.AppendUint32(dst, h.MessageCounter)

	if h.SourceNodeID != nil {
		dst = binary.LittleEndian.AppendUint64(dst, uint64(*h.SourceNodeID))
	}
	if h.DestNodeID != nil {
		switch h.DestNodeID.kind {
		case DSIZNodeID:
			dst = binary.LittleEndian.AppendUint64(dst, uint64(h.DestNodeID.node))
		case DSIZGroupID:
			dst = binary.LittleEndian.AppendUint16(dst, uint16(h.DestNodeID.group))
		}
	}
	if h.SecurityFlags.MX() {
		var err error
		if dst, err = appendBlock(dst, FieldMessageExtensions, h.MessageExtensions); err != nil {
			return orig, err
		}
	}
	return dst, nil
}

// DecodeHeader reads a header from the front of data and returns it with
// the number of bytes consumed. Bytes after the header are payload and are
// left alone.
func DecodeHeader(data []byte, opts Options) (*MessageHeader, int, error) {
	d := &decoder{buf: data}
	h := &MessageHeader{}

	if opts.Stream {
		length, err := d.readU16(FieldMessageLength)
		if err != nil {
			return nil, 0, err
		}
		h.MessageLength = &length
	}

	b, err := d.readU8(FieldMessageFlags)
	if err != nil {
		return nil, 0, err
	}
	h.Flags = MessageFlags(b)
	if v := h.Flags.Version(); v > opts.MaxVersion {
		return nil, 0, &FieldError{Field: FieldMessageFlags, Offset: d.off - 1, Err: ErrUnsupportedVersion}
	}

	sid, err := d.readU16(FieldSessionID)
	if err != nil {
		return nil, 0, err
	}
	h.SessionID = SessionID(sid)

	if b, err = d.readU8(FieldSecurityFlags); err != nil {
		return nil, 0, err
	}
	h.SecurityFlags = SecurityFlags(b)
	if opts.StrictReserved && h.SecurityFlags.SessionType() == SessionTypeReserved {
		return nil, 0, &FieldError{Field: FieldSecurityFlags, Offset: d.off - 1, Err: ErrInvalidFixedValue}
	}

	if h.MessageCounter, err = d.readU32(FieldMessageCounter); err != nil {
		return nil, 0, err
	}

	if h.Flags.S() {
		src, err := d.readU64(FieldSourceNodeID)
		if err != nil {
			return nil, 0, err
		}
		id := NodeID(src)
		h.SourceNodeID = &id
	}

	switch h.Flags.DSIZ() {
	case DSIZNodeID:
		v, err := d.readU64(FieldDestNodeID)
		if err != nil {
			return nil, 0, err
		}
		dest := NodeDestination(NodeID(v))
		h.DestNodeID = &dest
	case DSIZGroupID:
		v, err := d.readU16(FieldDestNodeID)
		if err != nil {
			return nil, 0, err
		}
		dest := GroupDestination(GroupID(v))
		h.DestNodeID = &dest
	case DSIZReserved:
		if opts.StrictReserved {
			return nil, 0, &FieldError{Field: FieldMessageFlags, Offset: flagsOffset(opts), Err: ErrInvalidFixedValue}
		}
	}

	if h.SecurityFlags.MX() {
		if h.MessageExtensions, err = d.readBlock(FieldMessageExtensions); err != nil {
			return nil, 0, err
		}
	}

	return h, d.off, nil
}

// ParseHeader decodes data that must hold exactly one header and nothing else.
func ParseHeader(data []byte, opts Options) (*MessageHeader, error) {
	h, n, err := DecodeHeader(data, opts)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, &FieldError{Field: FieldHeader, Offset: n, Have: len(data) - n, Err: ErrTrailingBytes}
	}
	return h, nil
}

func flagsOffset(opts Options) int {
	if opts.Stream {
		return limits.MessageLengthSize
	}
	return 0
}
