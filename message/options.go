package message

import (
	"errors"
	"fmt"

	"github.com/opd-ai/meshwire/limits"
)

// MaxSupportedVersion is the highest message format version this package
// encodes and decodes.
const MaxSupportedVersion uint8 = 1

// Options controls how messages are framed.
type Options struct {
	// Stream selects stream transport framing: a 16-bit Message Length
	// precedes the header. Datagram transports leave it false.
	Stream bool

	// MaxVersion is the highest accepted message format version.
	MaxVersion uint8

	// StrictReserved rejects reserved DSIZ and SessionType patterns with
	// ErrInvalidFixedValue. When false they are carried through and a
	// reserved DSIZ is treated as "no destination field".
	StrictReserved bool

	// MICSize is the integrity check length of secured messages.
	MICSize int

	// MaxMessageSize bounds the encoded message, length prefix included.
	MaxMessageSize int
}

// DefaultOptions returns datagram framing with the IPv6 minimum MTU as the
// size limit.
func DefaultOptions() Options {
	return Options{
		Stream:         false,
		MaxVersion:     MaxSupportedVersion,
		StrictReserved: false,
		MICSize:        limits.MICSize,
		MaxMessageSize: limits.MaxUDPMessage,
	}
}

// StreamOptions returns stream framing sized to the Message Length prefix.
func StreamOptions() Options {
	opts := DefaultOptions()
	opts.Stream = true
	opts.MaxMessageSize = limits.MessageLengthSize + limits.MaxStreamMessage
	return opts
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if o.MaxVersion > MaxSupportedVersion {
		return fmt.Errorf("%w: max version %d above supported %d", ErrUnsupportedVersion, o.MaxVersion, MaxSupportedVersion)
	}
	if o.MICSize <= 0 {
		return errors.New("message: MIC size must be positive")
	}
	if o.MaxMessageSize < limits.MinHeaderSize {
		return fmt.Errorf("message: max message size %d below minimum header size %d", o.MaxMessageSize, limits.MinHeaderSize)
	}
	if o.Stream && o.MaxMessageSize > limits.MessageLengthSize+limits.MaxStreamMessage {
		return fmt.Errorf("message: max message size %d not describable by a 16-bit length", o.MaxMessageSize)
	}
	return nil
}
