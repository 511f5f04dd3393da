// Package limits provides centralized size constants and validation functions
// for the meshwire message format. Every codec in this module consults these
// values so that encode and decode paths enforce the same bounds.
//
// # Size Hierarchy
//
//   - MinHeaderSize (8 bytes): Message Flags, Session ID, Security Flags and
//     Message Counter. Every message carries at least this much header.
//
//   - MinProtocolHeaderSize (6 bytes): Exchange Flags, Opcode, Exchange ID and
//     Protocol ID at the start of the (decrypted) payload.
//
//   - MaxUDPMessage (1280 bytes): the IPv6 minimum MTU. Datagram transports
//     must not carry a message larger than this.
//
//   - MaxStreamMessage (65535 bytes): the largest body the 16-bit Message
//     Length prefix can describe on stream transports.
//
//   - MaxExtensionBlock (65535 bytes): the largest message or secured
//     extension block the 16-bit length prefix can describe.
//
// # Validation Functions
//
//	err := limits.ValidateMessageSize(encoded, limits.MaxUDPMessage)
//	if err != nil {
//	    // ErrMessageEmpty or ErrMessageTooLarge
//	}
//
// ValidateSize checks an announced length before the bytes are read, and
// ValidateStreamBody checks what follows a Message Length prefix.
package limits
