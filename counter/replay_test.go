package counter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/meshwire/message"
)

func TestReplayGuardWithCodec(t *testing.T) {
	codec, err := message.NewCodec(message.DefaultOptions(), nil)
	require.NoError(t, err)
	alloc := NewAllocatorWithSource(bytes.NewReader(make([]byte, 8)))
	guard := NewReplayGuard()

	var h message.MessageHeader
	h.SetSourceNodeID(0xAA)

	var wire [][]byte
	for i := 0; i < 3; i++ {
		encoded, err := codec.Seal(h, &message.ProtocolMessage{Opcode: uint8(i)}, alloc)
		require.NoError(t, err)
		wire = append(wire, encoded)
	}

	receive := func(data []byte) error {
		m, err := codec.Decode(data)
		require.NoError(t, err)
		return guard.Check(&m.Header)
	}

	require.NoError(t, receive(wire[2]))
	require.NoError(t, receive(wire[0]), "reordered delivery is accepted")
	assert.ErrorIs(t, receive(wire[2]), ErrReplayDetected)
	assert.ErrorIs(t, receive(wire[0]), ErrReplayDetected)
	require.NoError(t, receive(wire[1]))
	assert.Equal(t, 1, guard.Len())
}

func TestReplayGuardSeparatesPeers(t *testing.T) {
	guard := NewReplayGuard()

	header := func(source message.NodeID, st message.SessionType, id message.SessionID, control bool) *message.MessageHeader {
		h := &message.MessageHeader{SessionID: id, MessageCounter: 50}
		h.SetSourceNodeID(source)
		h.SecurityFlags.SetSessionType(st)
		h.SecurityFlags.SetC(control)
		return h
	}

	headers := []*message.MessageHeader{
		header(1, message.SessionTypeUnicast, 0, false),
		header(2, message.SessionTypeUnicast, 0, false),
		header(1, message.SessionTypeGroup, 7, false),
		header(1, message.SessionTypeGroup, 7, true),
		header(2, message.SessionTypeGroup, 7, false),
		header(1, message.SessionTypeUnicast, 3, false),
		header(1, message.SessionTypeUnicast, 4, false),
	}
	for _, h := range headers {
		require.NoError(t, guard.Check(h), "same counter in a different space is fresh")
	}
	assert.Equal(t, len(headers), guard.Len())

	assert.ErrorIs(t, guard.Check(header(1, message.SessionTypeGroup, 9, false)), ErrReplayDetected,
		"group data counters are per sender, not per group")
	assert.ErrorIs(t, guard.Check(header(9, message.SessionTypeUnicast, 3, false)), ErrReplayDetected,
		"secure session counters are per session")

	guard.ReleaseSession(message.SessionTypeUnicast, 3)
	assert.Equal(t, len(headers)-1, guard.Len())
	require.NoError(t, guard.Check(header(1, message.SessionTypeUnicast, 3, false)))

	assert.ErrorIs(t, guard.Check(nil), message.ErrNilMessage)
}
