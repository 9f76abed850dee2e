// Package gpio drives the RS-485 direction (DE/RE) line through the Linux
// GPIO character device.
package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// DirectionLine owns one output line of a GPIO chip. Most transceivers
// assert DE high, but the polarity is configurable for inverting drivers.
type DirectionLine struct {
	line       *gpiocdev.Line
	activeHigh bool
}

// NewDirectionLine requests the line and parks it at the receive level.
func NewDirectionLine(chip string, offset int, activeHigh bool) (*DirectionLine, error) {
	d := &DirectionLine{activeHigh: activeHigh}
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(d.level(false)))
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO line %s:%d: %v", chip, offset, err)
	}
	d.line = line
	return d, nil
}

func (d *DirectionLine) level(transmit bool) int {
	if transmit == d.activeHigh {
		return 1
	}
	return 0
}

// Set drives the line to the transmit or receive level.
func (d *DirectionLine) Set(transmit bool) error {
	return d.line.SetValue(d.level(transmit))
}

// Close releases the line, leaving it at its last value.
func (d *DirectionLine) Close() error {
	return d.line.Close()
}
