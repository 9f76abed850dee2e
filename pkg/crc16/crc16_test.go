package crc16

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumKnownValues(t *testing.T) {
	// Standard CRC-16/ARC check value.
	assert.Equal(t, uint16(0xBB3D), Checksum([]byte("123456789")))

	// An empty buffer stays at the initial value.
	assert.Equal(t, uint16(0x0000), Checksum(nil))

	// InterLink header for cmd=0x0001, seq=0, len=0.
	assert.Equal(t, uint16(0x2D00), Checksum([]byte{0x01, 0x00, 0x01, 0x00, 0x00, 0x00}))
}

func TestUpdateMatchesChecksum(t *testing.T) {
	data := []byte{0xAA, 0x55, 0x00, 0x01, 0xFF, 0x7E, 0x42}
	crc := uint16(0x0000)
	for _, b := range data {
		crc = Update(crc, b)
	}
	assert.Equal(t, Checksum(data), crc)
}

func TestSumResumesAcrossSlices(t *testing.T) {
	data := []byte("interlink frame body")
	split := Sum(Sum(0x0000, data[:7]), data[7:])
	assert.Equal(t, Checksum(data), split)
}
