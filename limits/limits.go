package limits

import (
	"errors"
	"fmt"
)

const (
	// MinHeaderSize is the fixed part of a message header:
	// flags(1) + session id(2) + security flags(1) + counter(4).
	MinHeaderSize = 8

	// MinProtocolHeaderSize is the fixed part of a protocol message:
	// exchange flags(1) + opcode(1) + exchange id(2) + protocol id(2).
	MinProtocolHeaderSize = 6

	// MessageLengthSize is the width of the stream transport length prefix.
	MessageLengthSize = 2

	// NodeIDSize is the width of a 64-bit Node ID.
	NodeIDSize = 8

	// GroupIDSize is the width of a 16-bit Group ID.
	GroupIDSize = 2

	// ExtensionLengthSize is the width of the length prefix in front of
	// message extensions and secured extensions.
	ExtensionLengthSize = 2

	// MaxExtensionBlock is the largest extension block a 16-bit prefix can describe.
	MaxExtensionBlock = 0xFFFF

	// MICSize is the default Message Integrity Check length (128-bit tag).
	MICSize = 16

	// MaxUDPMessage is the IPv6 minimum MTU, the datagram ceiling.
	MaxUDPMessage = 1280

	// MaxStreamMessage is the largest body the Message Length prefix can describe.
	MaxStreamMessage = 0xFFFF
)

var (
	// ErrMessageEmpty indicates an empty message was provided
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates message exceeds maximum size
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessageSize validates a message against the specified maximum size.
// Returns an error with context including the actual and maximum sizes.
func ValidateMessageSize(message []byte, maxSize int) error {
	if len(message) == 0 {
		return ErrMessageEmpty
	}
	return ValidateSize(len(message), maxSize)
}

// ValidateSize checks a length that is known before the bytes are
// available, such as one announced by a length prefix.
func ValidateSize(size, maxSize int) error {
	if size > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, size, maxSize)
	}
	return nil
}

// ValidateStreamBody validates a message body (everything after the length
// prefix) against MaxStreamMessage.
func ValidateStreamBody(body []byte) error {
	if len(body) == 0 {
		return ErrMessageEmpty
	}
	if len(body) > MaxStreamMessage {
		return fmt.Errorf("%w: stream body size %d exceeds limit %d", ErrMessageTooLarge, len(body), MaxStreamMessage)
	}
	return nil
}

// ValidateExtensionBlock checks that an extension block fits its 16-bit
// length prefix. Empty blocks are legal.
func ValidateExtensionBlock(block []byte) error {
	if len(block) > MaxExtensionBlock {
		return fmt.Errorf("%w: extension block size %d exceeds limit %d", ErrMessageTooLarge, len(block), MaxExtensionBlock)
	}
	return nil
}
