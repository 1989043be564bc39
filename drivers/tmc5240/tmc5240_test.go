package tmc5240

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"

	"stepkit/core"
)

// mockBus is an in-memory register file recording the write order.
type mockBus struct {
	regs    map[uint8]uint32
	writes  []uint8
	readErr error
}

func newMockBus() *mockBus {
	return &mockBus{regs: make(map[uint8]uint32)}
}

func (m *mockBus) WriteRegister(addr uint8, value uint32) error {
	m.regs[addr] = value
	m.writes = append(m.writes, addr)
	return nil
}

func (m *mockBus) ReadRegister(addr uint8) (uint32, error) {
	if m.readErr != nil {
		return 0, m.readErr
	}
	return m.regs[addr], nil
}

func TestNewDefaults(t *testing.T) {
	d, err := New(newMockBus(), Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(defaultVMax), d.cfg.VMax)
	assert.Equal(t, uint32(defaultAMax), d.cfg.AMax)
	assert.Equal(t, uint32(defaultDMax), d.cfg.DMax)

	_, err = New(nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNilPort)
}

func TestInitBringUp(t *testing.T) {
	bus := newMockBus()
	d, err := New(bus, Config{VMax: 0x4000, AMax: 0x800, DMax: 0x900}, nil)
	require.NoError(t, err)
	require.NoError(t, d.Init())

	assert.Equal(t, uint32(defaultGCONF), bus.regs[RegGCONF])
	assert.Equal(t, uint32(defaultCHOPCONF), bus.regs[RegCHOPCONF])
	assert.Equal(t, uint32(0x4000), bus.regs[RegVMAX])
	assert.Equal(t, uint32(0x800), bus.regs[RegAMAX])
	assert.Equal(t, uint32(0x900), bus.regs[RegDMAX])
	assert.Equal(t, uint32(RampModePosition), bus.regs[RegRAMPMODE])
	assert.Equal(t, uint32(0), bus.regs[RegXACTUAL])

	// Ramp limits must be in place before positioning mode is selected.
	assert.Greater(t, indexOf(bus.writes, RegRAMPMODE), indexOf(bus.writes, RegVMAX))
}

func indexOf(writes []uint8, addr uint8) int {
	for i, w := range writes {
		if w == addr {
			return i
		}
	}
	return -1
}

func TestMoveToAndCompletion(t *testing.T) {
	bus := newMockBus()
	d, _ := New(bus, Config{}, nil)

	d.MoveTo(-1500)
	assert.Equal(t, uint32(RampModePosition), bus.regs[RegRAMPMODE])
	assert.Equal(t, int32(-1500), int32(bus.regs[RegXTARGET]))

	assert.False(t, d.PositionReached())
	bus.regs[RegRAMPSTAT] = RampStatPositionReached | RampStatVZero
	assert.True(t, d.PositionReached())

	// A dead bus must not fake completion.
	bus.readErr = ErrShortReply
	assert.False(t, d.PositionReached())
}

func TestPositionFeedback(t *testing.T) {
	bus := newMockBus()
	d, _ := New(bus, Config{}, nil)

	xactual := int32(-42)
	bus.regs[RegXACTUAL] = uint32(xactual)
	assert.Equal(t, int32(-42), d.Position())
}

func TestHaltRampsToZero(t *testing.T) {
	bus := newMockBus()
	d, _ := New(bus, Config{}, nil)

	d.Halt()
	assert.Equal(t, uint32(0), bus.regs[RegVMAX])
	assert.Equal(t, uint32(RampModeVelocityPos), bus.regs[RegRAMPMODE])
}

func TestRampControl(t *testing.T) {
	bus := newMockBus()
	d, _ := New(bus, Config{}, nil)

	d.SetVelocity(40000)
	assert.Equal(t, uint32(40000), bus.regs[RegVMAX])

	d.SetAcceleration(3000)
	assert.Equal(t, uint32(3000), bus.regs[RegAMAX])
	assert.Equal(t, uint32(3000), bus.regs[RegDMAX])
}

func TestDrivesAnAxis(t *testing.T) {
	bus := newMockBus()
	d, err := New(bus, Config{}, nil)
	require.NoError(t, err)

	axis, err := core.NewAxis(0, d)
	require.NoError(t, err)

	axis.Enable(true)
	axis.MoveTo(1000)
	assert.True(t, axis.Busy())
	assert.True(t, axis.Update(100))

	bus.regs[RegRAMPSTAT] = RampStatPositionReached
	assert.False(t, axis.Update(100))
	assert.False(t, axis.Busy())
}

// mockSPIConn records full-duplex transfers and plays back scripted replies.
type mockSPIConn struct {
	sent    [][]byte
	replies [][]byte
}

func (m *mockSPIConn) String() string { return "mockspi" }

func (m *mockSPIConn) Tx(w, r []byte) error {
	m.sent = append(m.sent, append([]byte(nil), w...))
	if len(m.replies) > 0 {
		copy(r, m.replies[0])
		m.replies = m.replies[1:]
	}
	return nil
}

func (m *mockSPIConn) TxPackets(p []spi.Packet) error { return nil }
func (m *mockSPIConn) Duplex() conn.Duplex            { return conn.Full }

func TestSPIDatagramFraming(t *testing.T) {
	c := &mockSPIConn{}
	bus := &SPIBus{conn: c}

	require.NoError(t, bus.WriteRegister(RegXTARGET, 0x01020304))
	require.Len(t, c.sent, 1)
	assert.Equal(t, []byte{RegXTARGET | writeBit, 0x01, 0x02, 0x03, 0x04}, c.sent[0])

	// Reads are pipelined: the value arrives in the second transfer.
	c.sent = nil
	c.replies = [][]byte{
		{0x00, 0xDE, 0xAD, 0xBE, 0xEF}, // stale pipeline contents
		{0x00, 0x00, 0x00, 0x12, 0x34},
	}
	v, err := bus.ReadRegister(RegXACTUAL)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), v)
	require.Len(t, c.sent, 2)
	assert.Equal(t, byte(RegXACTUAL), c.sent[0][0], "read datagram must not set the write bit")
}

// duplexPipe is a ReadWriter with scripted read bytes and captured writes.
type duplexPipe struct {
	wrote bytes.Buffer
	read  bytes.Buffer
}

func (p *duplexPipe) Write(b []byte) (int, error) { return p.wrote.Write(b) }
func (p *duplexPipe) Read(b []byte) (int, error)  { return p.read.Read(b) }

func TestUARTWriteFraming(t *testing.T) {
	pipe := &duplexPipe{}
	bus, err := NewUARTBus(pipe, 1)
	require.NoError(t, err)

	require.NoError(t, bus.WriteRegister(RegVMAX, 0x0000AABB))

	frame := pipe.wrote.Bytes()
	require.Len(t, frame, 8)
	assert.Equal(t, byte(uartSync), frame[0])
	assert.Equal(t, byte(1), frame[1])
	assert.Equal(t, byte(RegVMAX|writeBit), frame[2])
	assert.Equal(t, uint32(0x0000AABB), binary.BigEndian.Uint32(frame[3:7]))
	assert.Equal(t, crc8(frame[:7]), frame[7])
}

func TestUARTReadReply(t *testing.T) {
	pipe := &duplexPipe{}
	bus, _ := NewUARTBus(pipe, 3)

	reply := []byte{uartSync, uartReplyAddr, RegXACTUAL, 0x00, 0x00, 0x00, 0x2A, 0x00}
	reply[7] = crc8(reply[:7])
	pipe.read.Write(reply)

	v, err := bus.ReadRegister(RegXACTUAL)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2A), v)

	// Request frame: sync, node, register, CRC.
	req := pipe.wrote.Bytes()
	require.Len(t, req, 4)
	assert.Equal(t, byte(3), req[1])
	assert.Equal(t, crc8(req[:3]), req[3])
}

func TestUARTReadRejectsCorruptReply(t *testing.T) {
	pipe := &duplexPipe{}
	bus, _ := NewUARTBus(pipe, 0)

	reply := []byte{uartSync, uartReplyAddr, RegXACTUAL, 0, 0, 0, 0x2A, 0}
	reply[7] = crc8(reply[:7]) ^ 0xFF
	pipe.read.Write(reply)

	_, err := bus.ReadRegister(RegXACTUAL)
	assert.ErrorIs(t, err, ErrReplyCRC)

	// Truncated reply.
	pipe2 := &duplexPipe{}
	bus2, _ := NewUARTBus(pipe2, 0)
	pipe2.read.Write([]byte{uartSync, uartReplyAddr})
	_, err = bus2.ReadRegister(RegXACTUAL)
	assert.ErrorIs(t, err, ErrShortReply)
}
