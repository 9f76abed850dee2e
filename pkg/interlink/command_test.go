package interlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func packetFor(t *testing.T, cmd uint16, seq byte, body []byte) Packet {
	t.Helper()
	pkt, ok := NewPacket(cmd, FlagAckReq, seq, body)
	require.True(t, ok)
	return pkt
}

func TestParseCommandPower(t *testing.T) {
	pkt := packetFor(t, CmdPower, 1, []byte{0x01})
	cmd, ok := ParseCommand(&pkt)
	require.True(t, ok)
	assert.Equal(t, CommandPower, cmd.Type)
	assert.Equal(t, byte(0x01), cmd.Power.Instruction)
	assert.Equal(t, byte(1), cmd.Seq)
	assert.Equal(t, byte(FlagAckReq), cmd.Flags)
}

func TestParseCommandPage(t *testing.T) {
	pkt := packetFor(t, CmdPage, 2, []byte{0x03})
	cmd, ok := ParseCommand(&pkt)
	require.True(t, ok)
	assert.Equal(t, CommandPage, cmd.Type)
	assert.Equal(t, byte(0x03), cmd.Page.Page)
}

func TestParseCommandTextVariants(t *testing.T) {
	cases := []struct {
		id   uint16
		want CommandType
	}{
		{CmdMsg, CommandMsg},
		{CmdWarn, CommandWarn},
		{CmdErr, CommandErr},
	}
	for _, tc := range cases {
		pkt := packetFor(t, tc.id, 0, []byte("low battery"))
		cmd, ok := ParseCommand(&pkt)
		require.True(t, ok)
		assert.Equal(t, tc.want, cmd.Type)
		assert.Equal(t, "low battery", cmd.Text)
	}
}

func TestParseCommandInit(t *testing.T) {
	pkt := packetFor(t, CmdInit, 3, append([]byte{42}, "loading maps"...))
	cmd, ok := ParseCommand(&pkt)
	require.True(t, ok)
	assert.Equal(t, CommandInit, cmd.Type)
	assert.Equal(t, byte(42), cmd.Init.Percent)
	assert.Equal(t, "loading maps", cmd.Init.Message)
}

func TestParseCommandInitMessageTruncated(t *testing.T) {
	long := append([]byte{100}, "a very long progress description"...)
	pkt := packetFor(t, CmdInit, 3, long)
	cmd, ok := ParseCommand(&pkt)
	require.True(t, ok)
	assert.Len(t, cmd.Init.Message, initMessageMax)
}

func TestParseCommandNavigation(t *testing.T) {
	cases := []struct {
		id   uint16
		want CommandType
	}{
		{CmdInitComp, CommandInitComp},
		{CmdMoveLeft, CommandMoveLeft},
		{CmdMoveRight, CommandMoveRight},
		{CmdMoveUp, CommandMoveUp},
		{CmdMoveDown, CommandMoveDown},
		{CmdBack, CommandBack},
		{CmdEnter, CommandEnter},
	}
	for _, tc := range cases {
		pkt := packetFor(t, tc.id, 0, nil)
		cmd, ok := ParseCommand(&pkt)
		require.True(t, ok, "cmd 0x%04x", tc.id)
		assert.Equal(t, tc.want, cmd.Type)
	}
}

func TestParseCommandRejectsUnknownID(t *testing.T) {
	pkt := packetFor(t, 0x00FF, 0, nil)
	cmd, ok := ParseCommand(&pkt)
	assert.False(t, ok)
	assert.Equal(t, CommandUnknown, cmd.Type)
	// Header fields still come through for logging.
	assert.Equal(t, uint16(0x00FF), cmd.Cmd)
}

func TestParseCommandRejectsShortBody(t *testing.T) {
	for _, id := range []uint16{CmdPower, CmdPage, CmdInit} {
		pkt := packetFor(t, id, 0, nil)
		_, ok := ParseCommand(&pkt)
		assert.False(t, ok, "cmd 0x%04x", id)
	}
}
