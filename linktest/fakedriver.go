// Package linktest supplies fixed test fixtures and a loopback transport
// pair for exercising the datagram, fragment and session layers without a
// real radio, the way the teacher's "testing" package and network/pipe
// supply fixtures and an in-memory ipx.ReadWriteCloser for its tests.
package linktest

import (
	"sync"

	"github.com/cubesat-gs/satlink/transport"
)

// FakeDriver is an in-memory transport.Driver. Frames written to one
// FakeDriver's FIFO are delivered to its peer's receive queue, simulating
// the chip-to-chip path over the air. TXDone is always immediately true:
// there is no transmit latency to simulate in-process.
type FakeDriver struct {
	mu       sync.Mutex
	peer     *FakeDriver
	rxQueue  [][]byte
	mode     transport.Mode
	rssi     float64
	snr      float64
	crcError bool

	// Drop, if set, is consulted before a frame is delivered to the
	// peer; returning true discards the frame in flight (simulating a
	// lost-over-the-air frame, e.g. for an ACK-loss test scenario).
	Drop func(frame []byte) bool

	// Tamper, if set, is applied to a frame's bytes in flight before
	// delivery, simulating over-the-air bit corruption.
	Tamper func(frame []byte) []byte
}

// NewLoopbackPair returns two FakeDrivers wired to each other.
func NewLoopbackPair() (a, b *FakeDriver) {
	a = &FakeDriver{rssi: -60, snr: 9}
	b = &FakeDriver{rssi: -60, snr: 9}
	a.peer, b.peer = b, a
	return a, b
}

// WriteFIFO implements transport.Driver.
func (f *FakeDriver) WriteFIFO(data []byte) error {
	frame := append([]byte{}, data...)
	if f.Drop != nil && f.Drop(frame) {
		return nil
	}
	if f.Tamper != nil {
		frame = f.Tamper(frame)
	}
	f.peer.mu.Lock()
	defer f.peer.mu.Unlock()
	f.peer.rxQueue = append(f.peer.rxQueue, frame)
	return nil
}

// ReadUntilFIFOEmpty implements transport.Driver.
func (f *FakeDriver) ReadUntilFIFOEmpty() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.rxQueue) == 0 {
		return nil, nil
	}
	next := f.rxQueue[0]
	f.rxQueue = f.rxQueue[1:]
	return next, nil
}

// TXDone implements transport.Driver; writes are synchronous, so always true.
func (f *FakeDriver) TXDone() bool { return true }

// RXDone implements transport.Driver.
func (f *FakeDriver) RXDone() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rxQueue) > 0
}

// RSSI implements transport.Driver.
func (f *FakeDriver) RSSI() float64 { return f.rssi }

// SNR implements transport.Driver.
func (f *FakeDriver) SNR() float64 { return f.snr }

// CRCError implements transport.Driver.
func (f *FakeDriver) CRCError() bool { return f.crcError }

// SetMode implements transport.Driver.
func (f *FakeDriver) SetMode(m transport.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
	return nil
}

// Mode returns the last mode set, for test assertions.
func (f *FakeDriver) Mode() transport.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

var _ transport.Driver = (*FakeDriver)(nil)
