// Package monitor mirrors on-air frames onto a kernel TAP device as
// synthetic Ethernet frames, so link traffic is inspectable with ordinary
// packet-capture tooling (Wireshark, tcpdump) without touching the radio
// SPI bus. Adapted from the teacher's phys package, which wraps IPX
// packets in Ethernet frames for a TAP device; here the payload is a
// whole on-air satlink frame instead of an IPX packet, tagged with a
// private Ethertype instead of ethernet.IPX1.
package monitor

import (
	"net"

	"github.com/songgao/packets/ethernet"
	"github.com/songgao/water"

	"github.com/cubesat-gs/satlink/frame"
)

// satlinkEthertype is a locally-assigned Ethertype (within IEEE 802's
// "experimental" range) tagging mirrored frames so a capture filter can
// isolate them from other traffic on the TAP device.
const satlinkEthertype = ethernet.Ethertype(0x88b5)

// TapBridge mirrors on-air frames onto a TAP interface. It never
// participates in delivery: Mirror is called for observation only, after
// the real send/receive has already happened.
type TapBridge struct {
	ifce *water.Interface
}

// NewTapBridge creates a TAP interface for mirroring. cfg.DeviceType is
// forced to water.TAP.
func NewTapBridge(cfg water.Config) (*TapBridge, error) {
	cfg.DeviceType = water.TAP
	ifce, err := water.New(cfg)
	if err != nil {
		return nil, err
	}
	return &TapBridge{ifce: ifce}, nil
}

func nodeMAC(node byte) net.HardwareAddr {
	return net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, node}
}

// Mirror writes raw (the complete bytes of one on-air frame, as produced
// by frame.Encode) onto the TAP device as an Ethernet frame whose
// source/destination addresses are synthesized from hdr's from/to node
// bytes.
func (b *TapBridge) Mirror(hdr frame.Header, raw []byte) error {
	var eth ethernet.Frame
	eth.Prepare(nodeMAC(hdr.To), nodeMAC(hdr.From), ethernet.NotTagged, satlinkEthertype, len(raw))
	copy(eth.Payload(), raw)
	_, err := b.ifce.Write(eth)
	return err
}

// Close releases the underlying TAP interface.
func (b *TapBridge) Close() error {
	return b.ifce.Close()
}
