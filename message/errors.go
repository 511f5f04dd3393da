package message

import (
	"errors"
	"fmt"

	"github.com/opd-ai/meshwire/limits"
)

// Decode and assembly errors.
var (
	// ErrTruncatedInput reports fewer bytes than a flag-indicated field requires.
	ErrTruncatedInput = errors.New("message: truncated input")

	// ErrTrailingBytes reports unconsumed bytes after an exactly framed structure.
	ErrTrailingBytes = errors.New("message: trailing bytes")

	// ErrInvalidFixedValue reports a reserved or mandated value that cannot be accepted.
	ErrInvalidFixedValue = errors.New("message: invalid fixed value")

	// ErrUnsupportedVersion reports a protocol version outside the accepted range.
	ErrUnsupportedVersion = errors.New("message: unsupported version")

	// ErrDecryptionFailed reports that the payload could not be decrypted.
	ErrDecryptionFailed = errors.New("message: decryption failed")

	// ErrIntegrityCheckFailed reports a message integrity check mismatch.
	ErrIntegrityCheckFailed = errors.New("message: integrity check failed")

	// ErrCounterExhausted reports that a counter space has no values left.
	ErrCounterExhausted = errors.New("message: message counter exhausted")

	// ErrMessageEmpty reports a zero-length message.
	ErrMessageEmpty = limits.ErrMessageEmpty

	// ErrMissingSourceNodeID reports a group session message without a
	// Source Node ID. Group keys are shared, so the source is part of the nonce.
	ErrMissingSourceNodeID = errors.New("message: group session requires source node id")
)

// Encode errors.
var (
	// ErrFieldMismatch reports an optional field inconsistent with the flag that governs it.
	ErrFieldMismatch = errors.New("message: field inconsistent with flags")

	// ErrMessageTooLarge reports a message above the configured size limit.
	ErrMessageTooLarge = limits.ErrMessageTooLarge

	// ErrMissingCrypter reports a secured message handled by a codec without a Crypter.
	ErrMissingCrypter = errors.New("message: secured session requires a crypter")

	// ErrNilMessage reports a nil header, protocol message or message.
	ErrNilMessage = errors.New("message: nil message")
)

// Field names used in FieldError.
const (
	FieldMessageLength       = "message_length"
	FieldMessageFlags        = "message_flags"
	FieldSessionID           = "session_id"
	FieldSecurityFlags       = "security_flags"
	FieldMessageCounter      = "message_counter"
	FieldSourceNodeID        = "source_node_id"
	FieldDestNodeID          = "dest_node_id"
	FieldMessageExtensions   = "message_extensions"
	FieldExchangeFlags       = "exchange_flags"
	FieldProtocolOpcode      = "protocol_opcode"
	FieldExchangeID          = "exchange_id"
	FieldProtocolID          = "protocol_id"
	FieldProtocolVendorID    = "protocol_vendor_id"
	FieldAckedMessageCounter = "acknowledged_message_counter"
	FieldSecuredExtensions   = "secured_extensions"
	FieldIntegrityCheck      = "message_integrity_check"
	FieldHeader              = "header"
)

// FieldError locates a decode failure. Err is one of the package error kinds,
// so callers can use errors.Is on a FieldError directly.
type FieldError struct {
	Field  string
	Offset int
	Want   int
	Have   int
	Err    error
}

func (e *FieldError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("%v: %s at offset %d needs %d bytes, %d available", e.Err, e.Field, e.Offset, e.Want, e.Have)
	}
	return fmt.Sprintf("%v: %s at offset %d", e.Err, e.Field, e.Offset)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func mismatch(field, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrFieldMismatch, field, fmt.Sprintf(format, args...))
}
