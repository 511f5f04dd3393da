package message

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProtocolMessageAcknowledged(t *testing.T) {
	data := []byte{
		0b0000_0011,            // I, A
		0x05,                   // opcode
		0x34, 0x12,             // exchange id
		0x01, 0x00,             // protocol id
		0x78, 0x56, 0x34, 0x12, // acked counter
	}

	pm, err := DecodeProtocolMessage(data)
	require.NoError(t, err)
	assert.True(t, pm.ExchangeFlags.I())
	assert.True(t, pm.ExchangeFlags.A())
	assert.Equal(t, uint8(0x05), pm.Opcode)
	assert.Equal(t, uint16(0x1234), pm.ExchangeID)
	assert.Equal(t, ProtocolInteractionModel, pm.ProtocolID)
	require.NotNil(t, pm.AckedMessageCounter)
	assert.Equal(t, uint32(0x12345678), *pm.AckedMessageCounter)
	assert.Nil(t, pm.Payload, "pure acknowledgement has no payload")

	// Same bytes with A clear: the trailing four bytes are payload.
	data[0] = 0b0000_0001
	pm, err = DecodeProtocolMessage(data)
	require.NoError(t, err)
	assert.Nil(t, pm.AckedMessageCounter)
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, pm.Payload)
}

func TestProtocolMessageFieldOrder(t *testing.T) {
	pm := &ProtocolMessage{Opcode: 0x02, ExchangeID: 0x0A0B, ProtocolID: 0x0C0D}
	pm.ExchangeFlags.SetI(true)
	pm.ExchangeFlags.SetR(true)
	pm.SetVendorID(0xFFF1)
	pm.SetAcknowledgedCounter(0x01020304)
	pm.SetSecuredExtensions([]byte{0xAA})
	pm.Payload = []byte("hi")

	encoded, err := EncodeProtocolMessage(pm)
	require.NoError(t, err)

	want := []byte{
		0x1D,                   // I | R | SX | V
		0x02,                   // opcode
		0x0B, 0x0A,             // exchange id
		0x0D, 0x0C,             // protocol id
		0xF1, 0xFF,             // vendor id
		0x04, 0x03, 0x02, 0x01, // acked counter
		0x01, 0x00, 0xAA,       // secured extensions
		'h', 'i',
	}
	assert.Equal(t, want, encoded)
	assert.Equal(t, len(want), pm.Size())

	decoded, err := DecodeProtocolMessage(encoded)
	require.NoError(t, err)
	assert.Equal(t, pm, decoded)
}

func TestProtocolMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		build func(pm *ProtocolMessage)
	}{
		{"bare", func(pm *ProtocolMessage) {}},
		{"payload only", func(pm *ProtocolMessage) { pm.Payload = []byte{1, 2, 3, 4} }},
		{"vendor", func(pm *ProtocolMessage) { pm.SetVendorID(0x1234) }},
		{"empty secured extensions", func(pm *ProtocolMessage) { pm.SetSecuredExtensions([]byte{}) }},
		{"reserved exchange bits", func(pm *ProtocolMessage) {
			pm.ExchangeFlags = ExchangeFlags(0xE0)
			pm.Payload = []byte{9}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := &ProtocolMessage{Opcode: 0x10, ExchangeID: 0x0001, ProtocolID: ProtocolSecureChannel}
			tt.build(pm)

			encoded, err := EncodeProtocolMessage(pm)
			require.NoError(t, err)
			decoded, err := DecodeProtocolMessage(encoded)
			require.NoError(t, err)
			assert.Equal(t, pm, decoded)
		})
	}
}

func TestProtocolMessageEmptyPayloadDecodesAbsent(t *testing.T) {
	pm := &ProtocolMessage{Payload: []byte{}}
	encoded, err := EncodeProtocolMessage(pm)
	require.NoError(t, err)
	assert.Len(t, encoded, 6)

	decoded, err := DecodeProtocolMessage(encoded)
	require.NoError(t, err)
	assert.Nil(t, decoded.Payload)
}

func TestDecodeProtocolMessageTruncation(t *testing.T) {
	pm := &ProtocolMessage{}
	pm.SetVendorID(1)
	pm.SetAcknowledgedCounter(2)
	pm.SetSecuredExtensions([]byte{3, 3, 3})

	encoded, err := EncodeProtocolMessage(pm)
	require.NoError(t, err)
	require.Len(t, encoded, 6+2+4+2+3)

	fieldAt := func(cut int) string {
		switch {
		case cut < 1:
			return FieldExchangeFlags
		case cut < 2:
			return FieldProtocolOpcode
		case cut < 4:
			return FieldExchangeID
		case cut < 6:
			return FieldProtocolID
		case cut < 8:
			return FieldProtocolVendorID
		case cut < 12:
			return FieldAckedMessageCounter
		default:
			return FieldSecuredExtensions
		}
	}

	for cut := 0; cut < len(encoded); cut++ {
		_, err := DecodeProtocolMessage(encoded[:cut])
		assert.ErrorIs(t, err, ErrTruncatedInput, "cut at %d", cut)

		var fe *FieldError
		require.True(t, errors.As(err, &fe), "cut at %d", cut)
		assert.Equal(t, fieldAt(cut), fe.Field, "cut at %d", cut)
	}
}

func TestEncodeProtocolMessageRejectsInconsistentFields(t *testing.T) {
	tests := []struct {
		name  string
		build func(pm *ProtocolMessage)
	}{
		{"V without vendor", func(pm *ProtocolMessage) { pm.ExchangeFlags.SetV(true) }},
		{"vendor without V", func(pm *ProtocolMessage) { pm.ProtocolVendorID = ptr(uint16(1)) }},
		{"A without counter", func(pm *ProtocolMessage) { pm.ExchangeFlags.SetA(true) }},
		{"counter without A", func(pm *ProtocolMessage) { pm.AckedMessageCounter = ptr(uint32(1)) }},
		{"SX without extensions", func(pm *ProtocolMessage) { pm.ExchangeFlags.SetSX(true) }},
		{"extensions without SX", func(pm *ProtocolMessage) { pm.SecuredExtensions = []byte{1} }},
		{"oversized extensions", func(pm *ProtocolMessage) { pm.SetSecuredExtensions(make([]byte, 1<<16)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := &ProtocolMessage{}
			tt.build(pm)
			_, err := EncodeProtocolMessage(pm)
			assert.ErrorIs(t, err, ErrFieldMismatch)
		})
	}

	_, err := EncodeProtocolMessage(nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

func TestDecodedProtocolMessageDoesNotAliasInput(t *testing.T) {
	data := []byte{0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x7F, 0x55}
	pm, err := DecodeProtocolMessage(data)
	require.NoError(t, err)

	for i := range data {
		data[i] = 0
	}
	assert.Equal(t, []byte{0x7F}, pm.SecuredExtensions)
	assert.Equal(t, []byte{0x55}, pm.Payload)
}
