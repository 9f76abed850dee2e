package service

import (
	"fmt"

	"github.com/librescoot/interlink-service/pkg/interlink"
)

// SendPower asks the display to change power state.
func (s *Service) SendPower(instruction byte) {
	s.enqueueRequest(interlink.CmdPower, []byte{instruction}, DefaultRequestTimeoutMs, DefaultRequestRetries)
}

// SendPage asks the display to switch to the given page.
func (s *Service) SendPage(page byte) {
	s.enqueueRequest(interlink.CmdPage, []byte{page}, DefaultRequestTimeoutMs, DefaultRequestRetries)
}

// SendMessage shows a free-text message on the display.
func (s *Service) SendMessage(text string) error {
	if len(text) > interlink.MaxPayload {
		return fmt.Errorf("message of %d bytes exceeds frame payload limit", len(text))
	}
	s.enqueueRequest(interlink.CmdMsg, []byte(text), DefaultRequestTimeoutMs, DefaultRequestRetries)
	return nil
}

// SendInitProgress reports boot progress to the display.
func (s *Service) SendInitProgress(percent byte, message string) error {
	body := append([]byte{percent}, message...)
	if len(body) > interlink.MaxPayload {
		return fmt.Errorf("init message of %d bytes exceeds frame payload limit", len(message))
	}
	s.enqueueRequest(interlink.CmdInit, body, DefaultRequestTimeoutMs, DefaultRequestRetries)
	return nil
}

// SendInitComplete tells the display that startup has finished.
func (s *Service) SendInitComplete() {
	s.enqueueRequest(interlink.CmdInitComp, nil, DefaultRequestTimeoutMs, DefaultRequestRetries)
}
