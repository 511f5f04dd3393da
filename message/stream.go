package message

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/meshwire/limits"
)

// ReadStreamMessage reads one length-prefixed message from r and returns it
// with its prefix, ready for a stream Codec. Messages above maxSize bytes
// (prefix included) are rejected before the body is read.
func ReadStreamMessage(r io.Reader, maxSize int) ([]byte, error) {
	var prefix [limits.MessageLengthSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: message length prefix", ErrTruncatedInput)
		}
		return nil, err
	}

	n := int(binary.LittleEndian.Uint16(prefix[:]))
	if err := limits.ValidateSize(limits.MessageLengthSize+n, maxSize); err != nil {
		return nil, fmt.Errorf("message: stream read: %w", err)
	}

	buf := make([]byte, limits.MessageLengthSize+n)
	copy(buf, prefix[:])
	if _, err := io.ReadFull(r, buf[limits.MessageLengthSize:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: message body", ErrTruncatedInput)
		}
		return nil, err
	}
	return buf, nil
}

// WriteStreamMessage writes a message produced by a stream Codec. The
// length prefix must agree with the buffer.
func WriteStreamMessage(w io.Writer, encoded []byte) error {
	if len(encoded) < limits.MessageLengthSize {
		return fmt.Errorf("%w: message length prefix", ErrTruncatedInput)
	}
	n := int(binary.LittleEndian.Uint16(encoded))
	if body := len(encoded) - limits.MessageLengthSize; body != n {
		return mismatch(FieldMessageLength, "prefix says %d bytes, buffer holds %d", n, body)
	}
	_, err := w.Write(encoded)
	return err
}
