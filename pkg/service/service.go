// Package service bridges the display link to Redis: accepted packets are
// mirrored into hashes and pub/sub channels, and other services submit
// requests through a Redis command list.
package service

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/librescoot/interlink-service/pkg/interlink"
	redisclient "github.com/librescoot/interlink-service/pkg/redis"
)

// sendJob is one queued outbound request. The watcher and subscription
// goroutines never touch the link directly; they hand jobs to the pump so
// the engine stays single-threaded.
type sendJob struct {
	cmd       uint16
	seq       byte
	body      []byte
	timeoutMs uint32
	retries   uint8
}

// Service represents the display link service
type Service struct {
	link   *interlink.Link
	redis  *redisclient.Client
	sendCh chan sendJob
	stopCh chan struct{}
	seq    uint32
}

// New creates a new Service instance
func New(redisClient *redisclient.Client, link *interlink.Link) *Service {
	return &Service{
		link:   link,
		redis:  redisClient,
		sendCh: make(chan sendJob, 16),
		stopCh: make(chan struct{}),
	}
}

// nextSeq hands out request correlation tags. Atomic because callers on the
// watcher and subscription goroutines allocate tags before queueing a job.
func (s *Service) nextSeq() byte {
	return byte(atomic.AddUint32(&s.seq, 1))
}

// enqueueRequest queues an outbound request for the pump. Jobs are dropped
// with a log line if the pump has fallen behind.
func (s *Service) enqueueRequest(cmd uint16, body []byte, timeoutMs uint32, retries uint8) {
	job := sendJob{
		cmd:       cmd,
		seq:       s.nextSeq(),
		body:      body,
		timeoutMs: timeoutMs,
		retries:   retries,
	}
	select {
	case s.sendCh <- job:
	default:
		log.Printf("Send queue full, dropping request 0x%04x seq %d", cmd, job.seq)
	}
}

// Run is the cooperative pump: the single goroutine that polls the parser,
// advances retries, drains received packets and results, and performs all
// transmissions. It returns when Stop is called.
func (s *Service) Run() {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	lastStats := s.link.Now()

	for {
		select {
		case <-s.stopCh:
			return

		case job := <-s.sendCh:
			if !s.link.SendRequest(job.cmd, job.seq, job.body, job.timeoutMs, job.retries) {
				log.Printf("Request 0x%04x seq %d rejected (oversized body, pending table full or write failed)", job.cmd, job.seq)
			}

		case <-ticker.C:
			s.link.Poll()
			now := s.link.Now()
			s.link.Tick(now)

			for {
				pkt, ok := s.link.ReadPacket()
				if !ok {
					break
				}
				s.handlePacket(pkt)
			}

			for {
				result, ok := s.link.PollRequestResult()
				if !ok {
					break
				}
				s.publishResult(result)
			}

			if now-lastStats >= statsIntervalMs {
				lastStats = now
				s.publishStats()
			}
		}
	}
}

// Stop stops the service
func (s *Service) Stop() {
	close(s.stopCh)
}
