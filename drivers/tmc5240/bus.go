package tmc5240

// Bus transports for the controller's 32-bit register file.
// The chip speaks 40-bit datagrams over SPI or a CRC-guarded single-wire
// UART frame; both carry the same register address space.

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

var (
	ErrNilPort    = errors.New("tmc5240: nil port")
	ErrBadReply   = errors.New("tmc5240: malformed reply datagram")
	ErrReplyCRC   = errors.New("tmc5240: reply CRC mismatch")
	ErrShortReply = errors.New("tmc5240: short reply")
)

// Bus moves register values to and from the controller.
type Bus interface {
	WriteRegister(addr uint8, value uint32) error
	ReadRegister(addr uint8) (uint32, error)
}

// SPIBus frames registers as 40-bit datagrams: one address byte (bit 7 set
// for writes) followed by the 32-bit value, big-endian per the datasheet.
type SPIBus struct {
	conn spi.Conn
}

// NewSPIBus connects to the controller on an SPI port. The chip samples on
// the second clock edge with the clock idling high (mode 3).
func NewSPIBus(p spi.Port) (*SPIBus, error) {
	if p == nil {
		return nil, ErrNilPort
	}
	conn, err := p.Connect(4*physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		return nil, fmt.Errorf("tmc5240: spi connect: %w", err)
	}
	return &SPIBus{conn: conn}, nil
}

func (b *SPIBus) WriteRegister(addr uint8, value uint32) error {
	var w, r [5]byte
	w[0] = addr | writeBit
	binary.BigEndian.PutUint32(w[1:], value)
	return b.conn.Tx(w[:], r[:])
}

// ReadRegister issues two datagrams: the chip's read pipeline returns the
// requested register in the transfer after the request.
func (b *SPIBus) ReadRegister(addr uint8) (uint32, error) {
	var w, r [5]byte
	w[0] = addr &^ writeBit
	if err := b.conn.Tx(w[:], r[:]); err != nil {
		return 0, err
	}
	if err := b.conn.Tx(w[:], r[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(r[1:]), nil
}

// UART framing per the datasheet's single-wire protocol.
const (
	uartSync      = 0x05
	uartReplyAddr = 0xFF
)

// UARTBus frames registers as sync/addr/register datagrams with a CRC8
// trailer. The node address distinguishes chips sharing the wire.
type UARTBus struct {
	rw   io.ReadWriter
	node uint8
}

// NewUARTBus wraps an open byte stream, typically a serial port.
func NewUARTBus(rw io.ReadWriter, node uint8) (*UARTBus, error) {
	if rw == nil {
		return nil, ErrNilPort
	}
	return &UARTBus{rw: rw, node: node}, nil
}

// OpenUART opens a serial device and returns a bus bound to one node.
func OpenUART(device string, baud int, node uint8) (*UARTBus, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("tmc5240: open %s: %w", device, err)
	}
	return NewUARTBus(port, node)
}

func (b *UARTBus) WriteRegister(addr uint8, value uint32) error {
	var frame [8]byte
	frame[0] = uartSync
	frame[1] = b.node
	frame[2] = addr | writeBit
	binary.BigEndian.PutUint32(frame[3:7], value)
	frame[7] = crc8(frame[:7])
	_, err := b.rw.Write(frame[:])
	return err
}

func (b *UARTBus) ReadRegister(addr uint8) (uint32, error) {
	req := [4]byte{uartSync, b.node, addr &^ writeBit, 0}
	req[3] = crc8(req[:3])
	if _, err := b.rw.Write(req[:]); err != nil {
		return 0, err
	}

	var reply [8]byte
	if _, err := io.ReadFull(b.rw, reply[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrShortReply, err)
	}
	if reply[0] != uartSync || reply[1] != uartReplyAddr || reply[2] != addr&^writeBit {
		return 0, ErrBadReply
	}
	if crc8(reply[:7]) != reply[7] {
		return 0, ErrReplyCRC
	}
	return binary.BigEndian.Uint32(reply[3:7]), nil
}

// crc8 is the serial checksum from the datasheet: x^8 + x^2 + x + 1,
// bytes processed LSB first.
func crc8(buf []byte) byte {
	var crc byte
	for _, b := range buf {
		for i := 0; i < 8; i++ {
			if (crc>>7)^(b&1) != 0 {
				crc = (crc << 1) ^ 0x07
			} else {
				crc <<= 1
			}
			b >>= 1
		}
	}
	return crc
}
