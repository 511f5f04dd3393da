// Package message implements the on-wire framing of meshwire messages.
//
// A message is split into three parts:
//
//	[Header][Payload][Footer]
//
// The Header carries routing and security metadata in clear text. The
// Payload carries a nested ProtocolMessage which, for secured sessions, is
// encrypted by an external Crypter before transport. The Footer carries the
// Message Integrity Check (MIC) for secured sessions and is empty otherwise.
//
// # Conditional Fields
//
// Most optional fields have no tag of their own. Their presence is decided by
// flag bits that appear earlier in the same structure:
//
//   - MessageFlags.S selects the 64-bit Source Node ID.
//   - MessageFlags.DSIZ selects no destination, a 64-bit Node ID or a 16-bit Group ID.
//   - SecurityFlags.MX selects a length-prefixed Message Extensions block.
//   - ExchangeFlags.V selects the Protocol Vendor ID.
//   - ExchangeFlags.A selects the Acknowledged Message Counter.
//   - ExchangeFlags.SX selects a length-prefixed Secured Extensions block.
//
// Decoders read the flag byte first and then consume exactly the bytes the
// flags imply. Running out of input for a field whose presence is indicated
// is reported as ErrTruncatedInput through a *FieldError naming the field.
//
// # Reserved Values
//
// DSIZ value 3 and SessionType values 2 and 3 are reserved. Flag bytes keep
// every bit they were constructed with, so decode followed by encode is
// byte-exact. Converting a reserved
// pattern to its enum and back is not: both SessionType 2 and 3 decode to
// SessionTypeReserved, which always encodes as 3.
//
// # Example
//
//	codec, err := message.NewCodec(message.DefaultOptions(), cipher)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var h message.MessageHeader
//	h.SessionID = 0x0042
//	h.SetSourceNodeID(0x1122334455667788)
//	h.SetDestination(message.GroupDestination(0x00AB))
//
//	pm := &message.ProtocolMessage{Opcode: 0x01, ExchangeID: 7}
//	encoded, err := codec.Seal(h, pm, allocator)
//
// Encoding and decoding keep no state between calls and are safe for
// concurrent use.
package message
