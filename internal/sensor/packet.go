package sensor

import (
	"encoding/binary"
	"fmt"
)

// Packet framing.
const (
	startCode      uint16 = 0xEF01
	DefaultAddress uint32 = 0xFFFFFFFF

	// header: start(2) + address(4) + type(1) + length(2)
	headerSize   = 9
	checksumSize = 2
	maxPayload   = 256
)

// Packet identifiers.
const (
	packetCommand byte = 0x01
	packetAck     byte = 0x07
)

// Instruction codes.
const (
	cmdGetImage       byte = 0x01
	cmdImage2Tz       byte = 0x02
	cmdSearch         byte = 0x04
	cmdRegModel       byte = 0x05
	cmdStore          byte = 0x06
	cmdDelete         byte = 0x0C
	cmdEmpty          byte = 0x0D
	cmdReadSysPara    byte = 0x0F
	cmdVerifyPassword byte = 0x13
	cmdReadIndexTable byte = 0x1F
	cmdAuraLED        byte = 0x35
)

// packet is one decoded frame.
type packet struct {
	address uint32
	kind    byte
	payload []byte
}

// checksum is the low 16 bits of the sum of type, both length bytes and payload.
func checksum(kind byte, length uint16, payload []byte) uint16 {
	sum := uint32(kind) + uint32(length>>8) + uint32(length&0xFF)
	for _, b := range payload {
		sum += uint32(b)
	}
	return uint16(sum)
}

// encode serialises p into a wire frame.
func (p packet) encode() []byte {
	length := uint16(len(p.payload) + checksumSize)
	buf := make([]byte, 0, headerSize+len(p.payload)+checksumSize)
	buf = binary.BigEndian.AppendUint16(buf, startCode)
	buf = binary.BigEndian.AppendUint32(buf, p.address)
	buf = append(buf, p.kind)
	buf = binary.BigEndian.AppendUint16(buf, length)
	buf = append(buf, p.payload...)
	buf = binary.BigEndian.AppendUint16(buf, checksum(p.kind, length, p.payload))
	return buf
}

// parseHeader validates the fixed nine-byte header and returns the address,
// packet type and the number of bytes (payload plus checksum) that follow.
func parseHeader(h []byte) (uint32, byte, int, error) {
	if len(h) != headerSize {
		return 0, 0, 0, fmt.Errorf("%w: short header (%d bytes)", ErrUnexpectedResponse, len(h))
	}
	if binary.BigEndian.Uint16(h[0:2]) != startCode {
		return 0, 0, 0, fmt.Errorf("%w: bad start code % X", ErrUnexpectedResponse, h[0:2])
	}
	length := int(binary.BigEndian.Uint16(h[7:9]))
	if length < checksumSize || length > maxPayload+checksumSize {
		return 0, 0, 0, fmt.Errorf("%w: bad length %d", ErrUnexpectedResponse, length)
	}
	return binary.BigEndian.Uint32(h[2:6]), h[6], length, nil
}

// decodeBody verifies the checksum over the remainder of a frame and returns
// the payload.
func decodeBody(kind byte, body []byte) ([]byte, error) {
	n := len(body) - checksumSize
	payload := body[:n]
	want := binary.BigEndian.Uint16(body[n:])
	if got := checksum(kind, uint16(len(body)), payload); got != want {
		return nil, fmt.Errorf("%w: got 0x%04X want 0x%04X", ErrChecksum, got, want)
	}
	return payload, nil
}

// decodeIndexTable expands one page of the template index bitmap into slot IDs.
// Bit b of byte i on page p marks slot p*256 + i*8 + b as occupied.
func decodeIndexTable(page int, bitmap []byte) []int {
	var ids []int
	for i, b := range bitmap {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				ids = append(ids, page*256+i*8+bit)
			}
		}
	}
	return ids
}
