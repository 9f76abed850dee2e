package interlink

// Parser states.
const (
	stateSeekSync1 = iota
	stateSeekSync2
	stateReadFixedHeader
	stateReadBody
	stateReadCrc
)

// DropStats counts everything the link discards. Counters only ever
// increase; they are uint32 and wrap modulo 2^32 on very long uptimes.
type DropStats struct {
	SyncMisses      uint32
	CrcFailures     uint32
	InvalidVersion  uint32
	LengthOverflow  uint32
	QueueOverflow   uint32
	PacketsAccepted uint32
}

// Parser is the byte-driven frame decoder. It consumes the stream one byte
// at a time and emits a packet the moment the trailing CRC byte arrives;
// nothing is buffered across a dropped frame, so the very next 0xAA can
// start a new one.
type Parser struct {
	state     int
	hdr       [fixedHeaderSize]byte
	hdrIndex  int
	bodyIndex int
	crcBytes  [2]byte
	crcIndex  int
	current   Packet
	stats     *DropStats
}

// NewParser returns a parser that accounts drops in stats.
func NewParser(stats *DropStats) *Parser {
	return &Parser{stats: stats}
}

// Feed consumes one byte. The returned packet is valid only when ok is true.
func (p *Parser) Feed(b byte) (Packet, bool) {
	switch p.state {
	case stateSeekSync1:
		if b == Sync1 {
			p.state = stateSeekSync2
		} else {
			p.stats.SyncMisses++
		}

	case stateSeekSync2:
		switch b {
		case Sync2:
			p.state = stateReadFixedHeader
			p.hdrIndex = 0
		case Sync1:
			// A repeated 0xAA is itself a valid sync prefix; stay here so
			// the next 0x55 still frames correctly.
		default:
			p.stats.SyncMisses++
			p.state = stateSeekSync1
		}

	case stateReadFixedHeader:
		p.hdr[p.hdrIndex] = b
		p.hdrIndex++
		if p.hdrIndex < fixedHeaderSize {
			break
		}
		p.current.decodeHeader(p.hdr)
		if p.current.Ver != Version {
			p.stats.InvalidVersion++
			p.reset()
			break
		}
		if int(p.current.Len) > MaxPayload {
			p.stats.LengthOverflow++
			p.reset()
			break
		}
		p.bodyIndex = 0
		if p.current.Len == 0 {
			p.state = stateReadCrc
			p.crcIndex = 0
		} else {
			p.state = stateReadBody
		}

	case stateReadBody:
		p.current.Body[p.bodyIndex] = b
		p.bodyIndex++
		if p.bodyIndex >= int(p.current.Len) {
			p.state = stateReadCrc
			p.crcIndex = 0
		}

	case stateReadCrc:
		p.crcBytes[p.crcIndex] = b
		p.crcIndex++
		if p.crcIndex < 2 {
			break
		}
		p.current.CRC = uint16(p.crcBytes[0]) | uint16(p.crcBytes[1])<<8
		if p.current.ComputeCRC() == p.current.CRC {
			p.stats.PacketsAccepted++
			pkt := p.current
			p.reset()
			return pkt, true
		}
		p.stats.CrcFailures++
		p.reset()
	}

	return Packet{}, false
}

// reset returns the parser to SeekSync1 and clears the staging packet.
// Called both after an accepted frame and on any drop.
func (p *Parser) reset() {
	p.state = stateSeekSync1
	p.hdrIndex = 0
	p.bodyIndex = 0
	p.crcIndex = 0
	p.current = Packet{}
}
