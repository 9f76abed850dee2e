package service

import (
	"encoding/hex"
	"log"

	"github.com/fxamacker/cbor/v2"
	"github.com/librescoot/interlink-service/pkg/interlink"
)

// resultMessage is the CBOR shape published on ChannelResults.
type resultMessage struct {
	Status string `cbor:"status"`
	Cmd    uint16 `cbor:"cmd"`
	Seq    uint8  `cbor:"seq"`
	Error  bool   `cbor:"error,omitempty"`
	Body   []byte `cbor:"body,omitempty"`
}

// handlePacket processes one packet delivered through the RX queue. ACKs
// and responses are skipped here; the tracker has already consumed them and
// they surface as request results.
func (s *Service) handlePacket(pkt interlink.Packet) {
	if pkt.Flags&(interlink.FlagIsAck|interlink.FlagIsResp) != 0 {
		return
	}
	if pkt.Flags&interlink.FlagAckReq != 0 {
		if s.link.SendAck(pkt.Cmd, pkt.Seq, false, 0) == 0 {
			log.Printf("Failed to ACK command 0x%04x seq %d", pkt.Cmd, pkt.Seq)
		}
	}

	cmd, ok := interlink.ParseCommand(&pkt)
	if !ok {
		log.Printf("Undecodable command 0x%04x seq %d payload %s",
			pkt.Cmd, pkt.Seq, hex.EncodeToString(pkt.Payload()))
		return
	}

	switch cmd.Type {
	case interlink.CommandPower:
		if err := s.redis.Mirror(KeyLink, "power", int(cmd.Power.Instruction)); err != nil {
			log.Printf("Failed to publish power instruction: %v", err)
		}

	case interlink.CommandPage:
		if err := s.redis.Mirror(KeyLink, "page", int(cmd.Page.Page)); err != nil {
			log.Printf("Failed to publish page selection: %v", err)
		}

	case interlink.CommandMsg, interlink.CommandWarn, interlink.CommandErr:
		if err := s.redis.Notify(ChannelMessages, cmd.Type.String()+":"+cmd.Text); err != nil {
			log.Printf("Failed to publish display message: %v", err)
		}

	case interlink.CommandInit:
		if err := s.redis.Set(KeyLink, "init:percent", int(cmd.Init.Percent)); err != nil {
			log.Printf("Failed to write init progress: %v", err)
		}
		if err := s.redis.Mirror(KeyLink, "init:message", cmd.Init.Message); err != nil {
			log.Printf("Failed to publish init progress: %v", err)
		}

	case interlink.CommandInitComp:
		if err := s.redis.Mirror(KeyLink, "init", "complete"); err != nil {
			log.Printf("Failed to publish init completion: %v", err)
		}

	case interlink.CommandMoveLeft, interlink.CommandMoveRight,
		interlink.CommandMoveUp, interlink.CommandMoveDown,
		interlink.CommandBack, interlink.CommandEnter:
		if err := s.redis.Notify(ChannelEvents, "button:"+cmd.Type.String()); err != nil {
			log.Printf("Failed to publish button event: %v", err)
		}
	}
}

// publishResult reports a tracked request outcome on ChannelResults.
func (s *Service) publishResult(result interlink.RequestResult) {
	msg := resultMessage{
		Status: result.Status.String(),
		Cmd:    result.Cmd,
		Seq:    result.Seq,
	}
	if result.Status == interlink.RequestAck || result.Status == interlink.RequestResponse ||
		result.Status == interlink.RequestUnexpected {
		msg.Error = result.Response.Flags&interlink.FlagIsErr != 0
		if result.Response.Len > 0 {
			msg.Body = append([]byte(nil), result.Response.Payload()...)
		}
	}

	data, err := cbor.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal request result: %v", err)
		return
	}
	if err := s.redis.Notify(ChannelResults, string(data)); err != nil {
		log.Printf("Failed to publish request result: %v", err)
	}

	if result.Status == interlink.RequestTimeout {
		log.Printf("Request 0x%04x seq %d timed out", result.Cmd, result.Seq)
	}
}

// publishStats mirrors the drop counters into the link hash.
func (s *Service) publishStats() {
	stats := s.link.Stats()
	fields := map[string]uint32{
		"stats:sync-misses":      stats.SyncMisses,
		"stats:crc-failures":     stats.CrcFailures,
		"stats:invalid-version":  stats.InvalidVersion,
		"stats:length-overflow":  stats.LengthOverflow,
		"stats:queue-overflow":   stats.QueueOverflow,
		"stats:packets-accepted": stats.PacketsAccepted,
	}
	for field, value := range fields {
		if err := s.redis.Set(KeyLink, field, int(value)); err != nil {
			log.Printf("Failed to write %s: %v", field, err)
			return
		}
	}
}
