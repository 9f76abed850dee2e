package interlink

// RequestStatus is the terminal outcome of a tracked request.
type RequestStatus uint8

const (
	RequestPending RequestStatus = iota
	RequestAck
	RequestResponse
	RequestTimeout
	RequestUnexpected
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"
	case RequestAck:
		return "ack"
	case RequestResponse:
		return "response"
	case RequestTimeout:
		return "timeout"
	case RequestUnexpected:
		return "unexpected"
	default:
		return "invalid"
	}
}

// RequestResult reports how a tracked request ended. Response holds a copy
// of the peer's packet for Ack, Response and Unexpected outcomes.
type RequestResult struct {
	Status   RequestStatus
	Cmd      uint16
	Seq      byte
	Response Packet
}

// pendingRequest is one slot in the fixed request table. The payload is
// copied in so the caller's buffer need not outlive the call.
type pendingRequest struct {
	active      bool
	cmd         uint16
	seq         byte
	retriesLeft uint8
	timeoutMs   uint32
	lastSendMs  uint32
	payloadLen  byte
	payload     [MaxPayload]byte
}

// resultQueue is the FIFO of terminal request outcomes, sized to the
// pending table so every slot can report once.
type resultQueue struct {
	results [MaxPending]RequestResult
	head    int
	tail    int
	count   int
}

func (q *resultQueue) push(r RequestResult) bool {
	if q.count >= MaxPending {
		return false
	}
	q.results[q.head] = r
	q.head = (q.head + 1) % MaxPending
	q.count++
	return true
}

func (q *resultQueue) pop() (RequestResult, bool) {
	if q.count == 0 {
		return RequestResult{}, false
	}
	r := q.results[q.tail]
	q.tail = (q.tail + 1) % MaxPending
	q.count--
	return r, true
}

// findPending returns the active slot matching (cmd, seq), or nil.
func (l *Link) findPending(cmd uint16, seq byte) *pendingRequest {
	for i := range l.pending {
		if l.pending[i].active && l.pending[i].cmd == cmd && l.pending[i].seq == seq {
			return &l.pending[i]
		}
	}
	return nil
}

// claimSlot reserves the first inactive slot for (cmd, seq) and copies the
// body into it. Returns nil when the table is full.
func (l *Link) claimSlot(cmd uint16, seq byte, body []byte, timeoutMs uint32, retries uint8) *pendingRequest {
	for i := range l.pending {
		req := &l.pending[i]
		if req.active {
			continue
		}
		req.active = true
		req.cmd = cmd
		req.seq = seq
		req.retriesLeft = retries
		req.timeoutMs = timeoutMs
		req.lastSendMs = l.now()
		req.payloadLen = byte(len(body))
		copy(req.payload[:], body)
		return req
	}
	return nil
}

// handleIncoming matches an accepted packet against the pending table.
// Packets that are neither ACKs nor responses are ignored here; everything
// else produces exactly one result, which is dropped if the result queue is
// full. An ACK terminates the request even if
// the peer later sends a response with the same tag; that response is then
// reported as unexpected.
func (l *Link) handleIncoming(pkt *Packet) {
	if pkt.Flags&(FlagIsAck|FlagIsResp) == 0 {
		return
	}

	req := l.findPending(pkt.Cmd, pkt.Seq)
	if req == nil {
		l.results.push(RequestResult{
			Status:   RequestUnexpected,
			Cmd:      pkt.Cmd,
			Seq:      pkt.Seq,
			Response: *pkt,
		})
		return
	}

	status := RequestResponse
	if pkt.Flags&FlagIsAck != 0 {
		status = RequestAck
	}
	l.results.push(RequestResult{
		Status:   status,
		Cmd:      pkt.Cmd,
		Seq:      pkt.Seq,
		Response: *pkt,
	})
	req.active = false
}

// Tick advances retry and timeout handling for all pending requests. The
// caller supplies the clock so hosts and tests control time; subtraction is
// unsigned, so a wrapping millisecond counter is fine within one timeout
// window.
func (l *Link) Tick(nowMs uint32) {
	for i := range l.pending {
		req := &l.pending[i]
		if !req.active {
			continue
		}
		if nowMs-req.lastSendMs < req.timeoutMs {
			continue
		}
		if req.retriesLeft > 0 {
			req.retriesLeft--
			req.lastSendMs = nowMs
			l.Send(req.cmd, FlagAckReq, req.seq, req.payload[:req.payloadLen])
		} else {
			l.results.push(RequestResult{
				Status: RequestTimeout,
				Cmd:    req.cmd,
				Seq:    req.seq,
			})
			req.active = false
		}
	}
}

// PollRequestResult drains one completed request outcome.
func (l *Link) PollRequestResult() (RequestResult, bool) {
	return l.results.pop()
}
