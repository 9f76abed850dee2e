// Package interlink implements the framed request/response protocol spoken
// between the main board and the dashboard display over a UART link. It
// turns the raw byte stream into integrity-checked packets and layers
// at-most-once request semantics with bounded retries on top.
package interlink

import (
	"github.com/librescoot/interlink-service/pkg/crc16"
)

// Frame sync word and protocol version.
const (
	Sync1   = 0xAA
	Sync2   = 0x55
	Version = 0x01
)

// Flag bits, carried in the low nibble of the flags byte. The upper nibble
// is reserved and always zero on the wire.
const (
	FlagAckReq = 0x01 // sender expects an ACK or response
	FlagIsAck  = 0x02 // bare acknowledgement
	FlagIsResp = 0x04 // data response
	FlagIsErr  = 0x08 // ACK/response carries an error
)

// Sizing knobs. All queues and tables are fixed-capacity so the engine
// never allocates on the data path.
const (
	MaxPayload  = 64 // largest body a single frame can carry
	RxQueueSize = 4  // packets buffered when no callback is registered
	MaxPending  = 4  // outstanding tracked requests
)

const (
	fixedHeaderSize = 6  // ver, flags, cmd_lo, cmd_hi, seq, len
	frameOverhead   = 10 // sync word + fixed header + CRC
)

// Packet is the in-memory form of one frame. The body is a fixed array so
// packets can be copied and queued without heap allocation; only the first
// Len bytes are meaningful.
type Packet struct {
	Ver   byte
	Flags byte
	Cmd   uint16
	Seq   byte
	Len   byte
	Body  [MaxPayload]byte
	CRC   uint16
}

// Payload returns the valid portion of the body.
func (p *Packet) Payload() []byte {
	return p.Body[:p.Len]
}

// ComputeCRC calculates the CRC-16/ARC over the six fixed header bytes and
// the body, exactly as they appear on the wire. The sync word and the CRC
// itself are not covered.
func (p *Packet) ComputeCRC() uint16 {
	crc := crc16.Update(0x0000, p.Ver)
	crc = crc16.Update(crc, p.Flags)
	crc = crc16.Update(crc, byte(p.Cmd&0xFF))
	crc = crc16.Update(crc, byte(p.Cmd>>8))
	crc = crc16.Update(crc, p.Seq)
	crc = crc16.Update(crc, p.Len)
	return crc16.Sum(crc, p.Body[:p.Len])
}

// header serialises the sync word and fixed header in wire order. Multi-byte
// fields are little-endian.
func (p *Packet) header() [2 + fixedHeaderSize]byte {
	return [2 + fixedHeaderSize]byte{
		Sync1, Sync2,
		p.Ver, p.Flags,
		byte(p.Cmd & 0xFF), byte(p.Cmd >> 8),
		p.Seq, p.Len,
	}
}

// trailer serialises the CRC in wire order.
func (p *Packet) trailer() [2]byte {
	return [2]byte{byte(p.CRC & 0xFF), byte(p.CRC >> 8)}
}

// decodeHeader fills the fixed header fields from the six bytes following
// the sync word.
func (p *Packet) decodeHeader(hdr [fixedHeaderSize]byte) {
	p.Ver = hdr[0]
	p.Flags = hdr[1]
	p.Cmd = uint16(hdr[2]) | uint16(hdr[3])<<8
	p.Seq = hdr[4]
	p.Len = hdr[5]
}

// Encode serialises the packet into one contiguous frame, computing the CRC
// from the current field values. The engine itself transmits header, body
// and trailer separately to avoid staging a full frame; Encode exists for
// peers and tests that want the whole thing at once.
func (p *Packet) Encode() []byte {
	p.CRC = p.ComputeCRC()
	buf := make([]byte, 0, frameOverhead+int(p.Len))
	hdr := p.header()
	buf = append(buf, hdr[:]...)
	buf = append(buf, p.Body[:p.Len]...)
	tr := p.trailer()
	return append(buf, tr[:]...)
}

// NewPacket builds a packet from loose fields, clamping the flags to the
// low nibble and copying the body. Bodies longer than MaxPayload are
// rejected with false.
func NewPacket(cmd uint16, flags byte, seq byte, body []byte) (Packet, bool) {
	var p Packet
	if len(body) > MaxPayload {
		return p, false
	}
	p.Ver = Version
	p.Flags = flags & 0x0F
	p.Cmd = cmd
	p.Seq = seq
	p.Len = byte(len(body))
	copy(p.Body[:], body)
	p.CRC = p.ComputeCRC()
	return p, true
}
