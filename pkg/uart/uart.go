// Package uart adapts a serial port to the link engine's non-blocking byte
// stream. A reader goroutine pulls from the port into a buffered channel so
// the engine's poll loop never blocks on the device.
package uart

import (
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

// rxBufferSize is the number of bytes buffered between the reader goroutine
// and the poll loop; a few full-size frames worth.
const rxBufferSize = 512

// Stream is a serial port wrapped for the link engine.
type Stream struct {
	port     serial.Port
	rx       chan byte
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// Open opens the serial device at the given baud rate, 8N1.
func Open(devicePath string, baudRate int) (*Stream, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %v", err)
	}

	s := &Stream{
		port:     port,
		rx:       make(chan byte, rxBufferSize),
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.readLoop()

	return s, nil
}

// readLoop continuously reads from the serial port into the rx buffer.
func (s *Stream) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, 64)
	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		n, err := s.port.Read(buf)
		if err != nil {
			select {
			case <-s.stopChan:
				return
			default:
			}
			log.Printf("Error reading from serial port: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		for _, b := range buf[:n] {
			select {
			case s.rx <- b:
			default:
				// The poll loop has stalled; dropping here keeps the port
				// draining and the parser will resync on the next frame.
			}
		}
	}
}

// Available returns the number of buffered bytes.
func (s *Stream) Available() int {
	return len(s.rx)
}

// ReadByte pops one buffered byte without blocking.
func (s *Stream) ReadByte() (byte, bool) {
	select {
	case b := <-s.rx:
		return b, true
	default:
		return 0, false
	}
}

// Write sends bytes to the port.
func (s *Stream) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// Flush blocks until the output buffer has been handed to the hardware.
func (s *Stream) Flush() error {
	return s.port.Drain()
}

// Close stops the reader and closes the port.
func (s *Stream) Close() error {
	close(s.stopChan)
	err := s.port.Close()
	s.wg.Wait()
	return err
}
