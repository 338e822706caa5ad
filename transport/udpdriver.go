package transport

import (
	"net"
	"sync"
)

// UDPDriver is a transport.Driver backed by a UDP socket instead of an
// RFM9x chip's SPI registers, the software-loopback stand-in the teacher's
// own server/client code uses net.UDPConn for instead of requiring real
// phone-line or radio hardware (server/server.go, client/uplink). It lets
// the ground-station and satellite-simulator binaries exercise the full
// protocol stack across two processes without any SPI driver implementation,
// which stays outside this module's scope.
type UDPDriver struct {
	conn *net.UDPConn
	peer *net.UDPAddr

	mu      sync.Mutex
	rxQueue [][]byte
	mode    Mode
	rssi    float64
	snr     float64

	closed chan struct{}
}

// NewUDPDriver opens a UDP socket bound to localAddr (e.g. ":9100") that
// sends to and receives from peerAddr. RSSI/SNR are fixed at reasonable
// values since there is no real radio link to measure.
func NewUDPDriver(localAddr, peerAddr string) (*UDPDriver, error) {
	local, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, err
	}
	peer, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", local)
	if err != nil {
		return nil, err
	}
	d := &UDPDriver{
		conn:   conn,
		peer:   peer,
		rssi:   -60,
		snr:    9,
		closed: make(chan struct{}),
	}
	go d.readLoop()
	return d, nil
}

func (d *UDPDriver) readLoop() {
	buf := make([]byte, 1500)
	for {
		n, _, err := d.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-d.closed:
				return
			default:
				continue
			}
		}
		frame := append([]byte{}, buf[:n]...)
		d.mu.Lock()
		d.rxQueue = append(d.rxQueue, frame)
		d.mu.Unlock()
	}
}

// WriteFIFO implements transport.Driver.
func (d *UDPDriver) WriteFIFO(data []byte) error {
	_, err := d.conn.WriteToUDP(data, d.peer)
	return err
}

// ReadUntilFIFOEmpty implements transport.Driver.
func (d *UDPDriver) ReadUntilFIFOEmpty() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rxQueue) == 0 {
		return nil, nil
	}
	next := d.rxQueue[0]
	d.rxQueue = d.rxQueue[1:]
	return next, nil
}

// TXDone implements transport.Driver; a UDP send is synchronous, so always true.
func (d *UDPDriver) TXDone() bool { return true }

// RXDone implements transport.Driver.
func (d *UDPDriver) RXDone() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rxQueue) > 0
}

// RSSI implements transport.Driver.
func (d *UDPDriver) RSSI() float64 { return d.rssi }

// SNR implements transport.Driver.
func (d *UDPDriver) SNR() float64 { return d.snr }

// CRCError implements transport.Driver; UDP's own checksum already rejects
// corrupt datagrams before they reach ReadUntilFIFOEmpty.
func (d *UDPDriver) CRCError() bool { return false }

// SetMode implements transport.Driver.
func (d *UDPDriver) SetMode(m Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = m
	return nil
}

// Close releases the underlying socket.
func (d *UDPDriver) Close() error {
	close(d.closed)
	return d.conn.Close()
}

var _ Driver = (*UDPDriver)(nil)
