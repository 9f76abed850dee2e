package service

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/librescoot/interlink-service/pkg/interlink"
)

// requestMessage is the CBOR shape accepted on the command list. Seq is
// assigned by the service; timeout and retries fall back to defaults when
// omitted.
type requestMessage struct {
	Cmd       uint16 `cbor:"cmd"`
	Body      []byte `cbor:"body,omitempty"`
	TimeoutMs uint32 `cbor:"timeout_ms,omitempty"`
	Retries   *uint8 `cbor:"retries,omitempty"`
}

// WatchRedisCommands drains the command list and turns each descriptor into
// a tracked request. Run it in its own goroutine.
func (s *Service) WatchRedisCommands() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		entry, ok, err := s.redis.PopCommand(time.Second, KeyCommandList)
		if err != nil {
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			// Pop timed out; loop so Stop is noticed.
			continue
		}

		var msg requestMessage
		if err := cbor.Unmarshal([]byte(entry), &msg); err != nil {
			log.Printf("Failed to decode command list entry: %v", err)
			continue
		}

		timeoutMs := msg.TimeoutMs
		if timeoutMs == 0 {
			timeoutMs = DefaultRequestTimeoutMs
		}
		retries := uint8(DefaultRequestRetries)
		if msg.Retries != nil {
			retries = *msg.Retries
		}

		s.enqueueRequest(msg.Cmd, msg.Body, timeoutMs, retries)
	}
}

// SubscribeToRedisChannels reacts to writes on the link hash: other
// services set the target fields and this service forwards them to the
// display as tracked requests.
func (s *Service) SubscribeToRedisChannels() {
	go func() {
		pubsub, closeFunc := s.redis.Watch(KeyLink)
		defer closeFunc()

		for {
			select {
			case <-s.stopCh:
				return
			case msg, ok := <-pubsub:
				if !ok {
					return
				}
				// Payload is "field:value"; we re-read the hash so a burst
				// of writes collapses onto the latest value.
				field, _, found := cutField(msg.Payload)
				if !found {
					continue
				}
				switch field {
				case "page:target":
					s.forwardIntField(field, interlink.CmdPage)
				case "power:target":
					s.forwardIntField(field, interlink.CmdPower)
				}
			}
		}
	}()
}

// forwardIntField reads a one-byte hash field and sends it as the body of
// the given command.
func (s *Service) forwardIntField(field string, cmd uint16) {
	val, err := s.redis.Get(KeyLink, field)
	if err != nil {
		log.Printf("Failed to read %s: %v", field, err)
		return
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 || n > 255 {
		log.Printf("Invalid %s value %q", field, val)
		return
	}
	s.enqueueRequest(cmd, []byte{byte(n)}, DefaultRequestTimeoutMs, DefaultRequestRetries)
}

// cutField splits a "field:value" pub/sub payload at the last colon, so
// fields that themselves contain colons survive.
func cutField(payload string) (field, value string, found bool) {
	i := strings.LastIndex(payload, ":")
	if i < 0 {
		return "", "", false
	}
	return payload[:i], payload[i+1:], true
}
