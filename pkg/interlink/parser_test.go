package interlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// feed pushes a byte sequence through the parser and collects everything
// it emits.
func feed(p *Parser, data []byte) []Packet {
	var out []Packet
	for _, b := range data {
		if pkt, ok := p.Feed(b); ok {
			out = append(out, pkt)
		}
	}
	return out
}

func mustFrame(t *testing.T, cmd uint16, flags byte, seq byte, body []byte) []byte {
	t.Helper()
	pkt, ok := NewPacket(cmd, flags, seq, body)
	require.True(t, ok)
	return pkt.Encode()
}

func TestParserAcceptsEmptyBodyFrame(t *testing.T) {
	var stats DropStats
	p := NewParser(&stats)

	frame := mustFrame(t, 0x0001, 0, 0, nil)
	require.Len(t, frame, 10)

	// Nothing may be emitted before the trailing CRC byte arrives.
	for _, b := range frame[:len(frame)-1] {
		_, ok := p.Feed(b)
		assert.False(t, ok)
	}
	pkt, ok := p.Feed(frame[len(frame)-1])
	require.True(t, ok)

	assert.Equal(t, byte(Version), pkt.Ver)
	assert.Equal(t, byte(0), pkt.Flags)
	assert.Equal(t, uint16(0x0001), pkt.Cmd)
	assert.Equal(t, byte(0), pkt.Seq)
	assert.Equal(t, byte(0), pkt.Len)
	assert.Equal(t, DropStats{PacketsAccepted: 1}, stats)
}

func TestParserCountsCrcFailure(t *testing.T) {
	var stats DropStats
	p := NewParser(&stats)

	frame := mustFrame(t, 0x0001, 0, 0, nil)
	frame[len(frame)-1] ^= 0x01

	assert.Empty(t, feed(p, frame))
	assert.Equal(t, uint32(1), stats.CrcFailures)
	assert.Equal(t, uint32(0), stats.PacketsAccepted)
}

func TestParserResyncsAfterGarbage(t *testing.T) {
	var stats DropStats
	p := NewParser(&stats)

	frame := mustFrame(t, 0x0001, 0, 0, nil)
	input := append([]byte{0x00, 0xFF, 0xAA}, frame...)

	packets := feed(p, input)
	require.Len(t, packets, 1)
	assert.Equal(t, uint16(0x0001), packets[0].Cmd)

	// The two garbage bytes count as sync misses; the doubled 0xAA does
	// not, because the second 0xAA keeps the parser in SeekSync2.
	assert.Equal(t, uint32(2), stats.SyncMisses)
	assert.Equal(t, uint32(1), stats.PacketsAccepted)
}

func TestParserRejectsOversizedLength(t *testing.T) {
	var stats DropStats
	p := NewParser(&stats)

	// Header announces a 0x41-byte body with MaxPayload at 64.
	assert.Empty(t, feed(p, []byte{0xAA, 0x55, 0x01, 0x00, 0x42, 0x00, 0x00, 0x41}))
	assert.Equal(t, uint32(1), stats.LengthOverflow)

	// The parser is back at SeekSync1: a clean frame right after parses.
	packets := feed(p, mustFrame(t, 0x0001, 0, 0, nil))
	require.Len(t, packets, 1)
	assert.Equal(t, uint32(1), stats.PacketsAccepted)
}

func TestParserRejectsBadVersion(t *testing.T) {
	var stats DropStats
	p := NewParser(&stats)

	assert.Empty(t, feed(p, []byte{0xAA, 0x55, 0x02, 0x00, 0x01, 0x00, 0x00, 0x00}))
	assert.Equal(t, uint32(1), stats.InvalidVersion)

	packets := feed(p, mustFrame(t, 0x0001, 0, 0, nil))
	require.Len(t, packets, 1)
}

func TestParserSingleBitFlipsAreCaught(t *testing.T) {
	var stats DropStats
	p := NewParser(&stats)

	frame := mustFrame(t, 0x0102, 0x01, 7, []byte{0xDE, 0xAD})
	require.Len(t, frame, 12)

	// Flip every bit of the flags, cmd, seq and body bytes. Version and
	// length flips derail the parse differently and have their own tests.
	flips := 0
	for _, idx := range []int{3, 4, 5, 6, 8, 9} {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), frame...)
			mutated[idx] ^= 1 << bit
			assert.Empty(t, feed(p, mutated), "byte %d bit %d", idx, bit)
			flips++
		}
	}
	assert.Equal(t, uint32(flips), stats.CrcFailures)
	assert.Equal(t, uint32(0), stats.PacketsAccepted)
}

func TestParserLengthBitFlipsNeverEmit(t *testing.T) {
	frame := mustFrame(t, 0x0102, 0x01, 7, []byte{0xDE, 0xAD})

	for bit := 0; bit < 8; bit++ {
		var stats DropStats
		p := NewParser(&stats)
		mutated := append([]byte(nil), frame...)
		mutated[7] ^= 1 << bit
		assert.Empty(t, feed(p, mutated), "len bit %d", bit)
		assert.Equal(t, uint32(0), stats.PacketsAccepted)
	}
}

func TestParserRoundTripAfterGarbagePrefix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var stats DropStats
		p := NewParser(&stats)

		pkt, ok := NewPacket(
			rapid.Uint16().Draw(t, "cmd"),
			rapid.Byte().Draw(t, "flags"),
			rapid.Byte().Draw(t, "seq"),
			rapid.SliceOfN(rapid.Byte(), 0, MaxPayload).Draw(t, "body"),
		)
		require.True(t, ok)

		// Garbage free of sync-start bytes so every prefix byte is a
		// plain miss and cannot eat into the real frame.
		garbage := rapid.SliceOfN(
			rapid.Byte().Filter(func(b byte) bool { return b != Sync1 }),
			0, 32,
		).Draw(t, "garbage")

		packets := feed(p, append(append([]byte(nil), garbage...), pkt.Encode()...))
		require.Len(t, packets, 1)

		got := packets[0]
		assert.Equal(t, pkt.Ver, got.Ver)
		assert.Equal(t, pkt.Flags, got.Flags)
		assert.Equal(t, pkt.Cmd, got.Cmd)
		assert.Equal(t, pkt.Seq, got.Seq)
		assert.Equal(t, pkt.Len, got.Len)
		assert.Equal(t, pkt.Payload(), got.Payload())

		assert.Equal(t, uint32(len(garbage)), stats.SyncMisses)
		assert.Equal(t, uint32(1), stats.PacketsAccepted)
	})
}

func TestParserBackToBackFrames(t *testing.T) {
	var stats DropStats
	p := NewParser(&stats)

	input := append(mustFrame(t, CmdPage, FlagAckReq, 1, []byte{3}),
		mustFrame(t, CmdEnter, 0, 2, nil)...)

	packets := feed(p, input)
	require.Len(t, packets, 2)
	assert.Equal(t, CmdPage, packets[0].Cmd)
	assert.Equal(t, CmdEnter, packets[1].Cmd)
	assert.Equal(t, uint32(2), stats.PacketsAccepted)
	assert.Equal(t, uint32(0), stats.SyncMisses)
}
