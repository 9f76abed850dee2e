package interlink

import "time"

// ByteStream is the transport the link runs over. Reads must not block:
// ReadByte reports false when nothing is buffered. Write and Flush are
// expected to return promptly.
type ByteStream interface {
	Available() int
	ReadByte() (byte, bool)
	Write(p []byte) (int, error)
	Flush() error
}

// DirectionLine drives an RS-485 transceiver's driver-enable pin. The link
// asserts transmit for the duration of a send and releases it after the
// turnaround delay. A nil line means full-duplex wiring.
type DirectionLine interface {
	Set(transmit bool) error
}

// PacketCallback observes every accepted packet, including ACKs and
// responses already consumed by the request tracker. While a callback is
// registered the RX queue is bypassed entirely. Callbacks must not fail;
// the packet is a copy the callback may keep.
type PacketCallback func(pkt Packet)

// Link is the protocol engine. It owns the transport, the parser, the
// request tracker and the receive queue. All methods must be called from a
// single goroutine; the engine holds no locks.
type Link struct {
	stream     ByteStream
	dir        DirectionLine
	turnaround time.Duration

	callback PacketCallback

	parser *Parser
	stats  DropStats

	rxQueue [RxQueueSize]Packet
	rxHead  int
	rxTail  int
	rxCount int

	pending [MaxPending]pendingRequest
	results resultQueue

	now   func() uint32
	sleep func(time.Duration)
}

// New creates a link over the given stream. The default clock is
// milliseconds since the link was created.
func New(stream ByteStream) *Link {
	l := &Link{
		stream: stream,
		sleep:  time.Sleep,
	}
	epoch := time.Now()
	l.now = func() uint32 {
		return uint32(time.Since(epoch).Milliseconds())
	}
	l.parser = NewParser(&l.stats)
	return l
}

// SetDirectionLine configures half-duplex direction control. The turnaround
// delay is how long the driver stays asserted after the last byte is
// flushed, so it clears the wire before the bus is released.
func (l *Link) SetDirectionLine(dir DirectionLine, turnaround time.Duration) {
	l.dir = dir
	l.turnaround = turnaround
}

// SetClock overrides the millisecond clock. Tick still takes an explicit
// timestamp; the clock feeds SendRequest and the blocking wait.
func (l *Link) SetClock(now func() uint32) {
	l.now = now
}

// SetPacketCallback registers a callback invoked for each accepted packet
// instead of queueing it. Pass nil to return to queued delivery.
func (l *Link) SetPacketCallback(cb PacketCallback) {
	l.callback = cb
}

// Now returns the link's current millisecond clock, for hosts that drive
// Tick themselves.
func (l *Link) Now() uint32 {
	return l.now()
}

// Stats returns a snapshot of the drop counters.
func (l *Link) Stats() DropStats {
	return l.stats
}

// Poll drains the transport through the parser. Call it frequently from
// the host's main loop; it never blocks.
func (l *Link) Poll() {
	for l.stream.Available() > 0 {
		b, ok := l.stream.ReadByte()
		if !ok {
			return
		}
		if pkt, accepted := l.parser.Feed(b); accepted {
			l.emit(pkt)
		}
	}
}

// emit routes one accepted packet: the tracker sees it first, then it goes
// to the callback or the RX queue. Packets reach this point strictly in the
// order their final CRC byte arrived.
func (l *Link) emit(pkt Packet) {
	l.handleIncoming(&pkt)
	if l.callback != nil {
		l.callback(pkt)
		return
	}
	if l.rxCount < RxQueueSize {
		l.rxQueue[l.rxHead] = pkt
		l.rxHead = (l.rxHead + 1) % RxQueueSize
		l.rxCount++
	} else {
		l.stats.QueueOverflow++
	}
}

// AvailablePacket reports whether ReadPacket would succeed.
func (l *Link) AvailablePacket() bool {
	return l.rxCount > 0
}

// ReadPacket pops the oldest queued packet.
func (l *Link) ReadPacket() (Packet, bool) {
	if l.rxCount == 0 {
		return Packet{}, false
	}
	pkt := l.rxQueue[l.rxTail]
	l.rxTail = (l.rxTail + 1) % RxQueueSize
	l.rxCount--
	return pkt, true
}

// Send transmits one frame and returns the number of bytes written.
// Oversized bodies are refused with 0 before the transport is touched.
// Flags are clamped to the low nibble.
func (l *Link) Send(cmd uint16, flags byte, seq byte, body []byte) int {
	pkt, ok := NewPacket(cmd, flags, seq, body)
	if !ok {
		return 0
	}

	if l.dir != nil {
		l.dir.Set(true)
	}

	written := 0
	hdr := pkt.header()
	n, _ := l.stream.Write(hdr[:])
	written += n
	if pkt.Len > 0 {
		n, _ = l.stream.Write(pkt.Body[:pkt.Len])
		written += n
	}
	tr := pkt.trailer()
	n, _ = l.stream.Write(tr[:])
	written += n

	l.stream.Flush()
	if l.dir != nil {
		if l.turnaround > 0 {
			l.sleep(l.turnaround)
		}
		l.dir.Set(false)
	}

	return written
}

// SendAck acknowledges (cmd, seq). Error ACKs carry a one-byte error code.
func (l *Link) SendAck(cmd uint16, seq byte, isError bool, errorCode byte) int {
	flags := byte(FlagIsAck)
	var body []byte
	if isError {
		flags |= FlagIsErr
		body = []byte{errorCode}
	}
	return l.Send(cmd, flags, seq, body)
}

// SendResponse answers (cmd, seq) with a data body.
func (l *Link) SendResponse(cmd uint16, seq byte, body []byte, isError bool) int {
	flags := byte(FlagIsResp)
	if isError {
		flags |= FlagIsErr
	}
	return l.Send(cmd, flags, seq, body)
}

// SendRequest transmits an AckReq frame and tracks it for retries. It fails
// when the body is oversized, the pending table is full, or the transport
// wrote nothing. Keeping (cmd, seq) tags unique among requests in flight is
// the caller's job; a reply retires the first matching slot in table order.
func (l *Link) SendRequest(cmd uint16, seq byte, body []byte, timeoutMs uint32, retries uint8) bool {
	if len(body) > MaxPayload {
		return false
	}
	req := l.claimSlot(cmd, seq, body, timeoutMs, retries)
	if req == nil {
		return false
	}
	if l.Send(cmd, FlagAckReq, seq, body) == 0 {
		req.active = false
		return false
	}
	return true
}

// SendRequestAndWait is the blocking convenience form: it polls, ticks and
// yields a millisecond at a time until the result for exactly (cmd, seq)
// arrives or timeoutMs*(retries+1) elapses. Results for other requests seen
// while waiting go back into the result queue in their order of appearance.
func (l *Link) SendRequestAndWait(cmd uint16, seq byte, body []byte, timeoutMs uint32, retries uint8) (RequestResult, bool) {
	if !l.SendRequest(cmd, seq, body, timeoutMs, retries) {
		return RequestResult{}, false
	}

	start := l.now()
	budget := timeoutMs * (uint32(retries) + 1)
	var held resultQueue
	defer func() {
		for r, ok := l.results.pop(); ok; r, ok = l.results.pop() {
			held.push(r)
		}
		l.results = held
	}()
	for {
		l.Poll()
		l.Tick(l.now())
		for r, ok := l.PollRequestResult(); ok; r, ok = l.PollRequestResult() {
			if r.Cmd == cmd && r.Seq == seq {
				return r, true
			}
			held.push(r)
		}
		if l.now()-start >= budget {
			return RequestResult{Status: RequestTimeout, Cmd: cmd, Seq: seq}, false
		}
		l.sleep(time.Millisecond)
	}
}
