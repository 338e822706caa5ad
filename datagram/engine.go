// Package datagram implements the stop-and-wait reliable datagram engine:
// frame send/receive over a transport.Driver with retries, sequence
// numbering, duplicate suppression and ACK synthesis (§4.D), and the
// mode/timing state machine that drives it (§4.E).
package datagram

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/cubesat-gs/satlink/frame"
	"github.com/cubesat-gs/satlink/transport"
)

// Devices groups the radio driver(s) an Engine drives. RX may be left nil
// for the common half-duplex case where one chip serves both roles; a
// separate, non-nil RX models a dual-radio ground station, where Transmit
// idles the RX device and activates the TX device and vice versa (§4.E).
type Devices struct {
	TX     transport.Driver
	RX     transport.Driver
	Switch transport.Switcher
}

func (d Devices) rx() transport.Driver {
	if d.RX != nil {
		return d.RX
	}
	return d.TX
}

func (d Devices) dualRadio() bool { return d.RX != nil }

func (d Devices) setMode(mode transport.Mode) error {
	switch mode {
	case transport.Listen:
		if err := d.rx().SetMode(transport.Listen); err != nil {
			return err
		}
		if d.dualRadio() {
			if err := d.TX.SetMode(transport.Idle); err != nil {
				return err
			}
		}
	case transport.Transmit:
		if err := d.TX.SetMode(transport.Transmit); err != nil {
			return err
		}
		if d.dualRadio() {
			if err := d.rx().SetMode(transport.Idle); err != nil {
				return err
			}
		}
	default:
		if err := d.TX.SetMode(transport.Idle); err != nil {
			return err
		}
		if d.dualRadio() {
			if err := d.rx().SetMode(transport.Idle); err != nil {
				return err
			}
		}
	}
	return transport.ApplySwitch(d.Switch, mode)
}

// SendOptions overrides per-send header fields. A nil field uses the
// Engine's current default (Config's Destination and Node for To and From,
// the current sequence number for ID, zero for Flags); overrides never
// mutate the Engine.
type SendOptions struct {
	To, From, ID, Flags *byte
}

func (o *SendOptions) resolve(cfg *transport.Config, seq byte) frame.Header {
	hdr := frame.Header{To: cfg.Destination, From: cfg.Node, ID: seq, Flags: 0}
	if o == nil {
		return hdr
	}
	if o.To != nil {
		hdr.To = *o.To
	}
	if o.From != nil {
		hdr.From = *o.From
	}
	if o.ID != nil {
		hdr.ID = *o.ID
	}
	if o.Flags != nil {
		hdr.Flags = *o.Flags
	}
	return hdr
}

// Engine is the reliable datagram engine. One Engine exclusively owns one
// Devices value, the local sequence number, and per-source duplicate
// tracking; there is no global or shared state (§9 design notes).
type Engine struct {
	devices Devices
	variant frame.Variant
	cfg     *transport.Config
	clock    transport.Clock
	ticks    TickClock
	yield    func()
	logger   *log.Logger
	observer FrameObserver
	monitor  Monitor

	mode transport.Mode

	sequenceNumber byte
	seenIDs        map[byte]byte

	lastRSSI, lastSNR float64
	checksumErrors    uint64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithClock supplies a wall-clock source. Defaults to transport.SystemClock.
func WithClock(c transport.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithTickClock supplies a board tick-counter source. When set, deadlines
// are computed with tick-rollover-corrected arithmetic instead of the wall
// clock (§4.D "Timing").
func WithTickClock(c TickClock) Option { return func(e *Engine) { e.ticks = c } }

// WithYield overrides the cooperative-yield hook called on every polling
// iteration of a suspension point (§5). Defaults to a short sleep.
func WithYield(fn func()) Option { return func(e *Engine) { e.yield = fn } }

// WithLogger attaches a logger for diagnostic messages; nil (the default)
// disables logging.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// FrameObserver receives frame-level events for metrics/monitoring
// sidecars (e.g. metrics.LinkCollector's per-link counters). All methods
// are called synchronously from the Engine's own goroutine; a nil
// FrameObserver (the default) disables these calls entirely.
type FrameObserver interface {
	ObserveTXFrame()
	ObserveRXFrame()
	ObserveAckRetry()
}

// WithObserver attaches a FrameObserver for TX/RX/retry counters.
func WithObserver(o FrameObserver) Option { return func(e *Engine) { e.observer = o } }

// WithMonitor attaches a Monitor that mirrors every encoded/decoded frame
// for out-of-band inspection (e.g. monitor.TapBridge).
func WithMonitor(m Monitor) Option { return func(e *Engine) { e.monitor = m } }

// Monitor observes raw on-air bytes for passive inspection; it never
// affects delivery.
type Monitor interface {
	Mirror(hdr frame.Header, raw []byte) error
}

const defaultPollInterval = time.Millisecond

// New creates an Engine over devices using variant's wire format and cfg
// for its runtime parameters. cfg is not copied: live configuration changes
// are visible to the Engine, but must only be made while no send/receive is
// in progress (§5).
func New(devices Devices, variant frame.Variant, cfg *transport.Config, opts ...Option) *Engine {
	e := &Engine{
		devices: devices,
		variant: variant,
		cfg:     cfg,
		clock:   transport.SystemClock,
		yield:   func() { time.Sleep(defaultPollInterval) },
		seenIDs: make(map[byte]byte),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// LastRSSI returns the signal strength captured by the most recent
// successful Receive.
func (e *Engine) LastRSSI() float64 { return e.lastRSSI }

// LastSNR returns the signal-to-noise ratio captured by the most recent
// successful Receive (LoRa only; 0 for FSK).
func (e *Engine) LastSNR() float64 { return e.lastSNR }

// ChecksumErrors returns the running count of frames dropped for failing
// checksum verification.
func (e *Engine) ChecksumErrors() uint64 { return e.checksumErrors }

// deadlinePassed reports whether the deadline, measured from start, has
// passed, using the tick clock if one was supplied, else the wall clock.
func (e *Engine) deadlinePassed(start time.Time, startTicks uint32, timeout time.Duration) bool {
	if e.ticks != nil {
		elapsedMS := diffTicks(e.ticks.Ticks(), startTicks)
		return elapsedMS >= int32(timeout/time.Millisecond)
	}
	return e.clock.Now().Sub(start) >= timeout
}

func (e *Engine) now() (time.Time, uint32) {
	var t uint32
	if e.ticks != nil {
		t = e.ticks.Ticks()
	}
	return e.clock.Now(), t
}

func (e *Engine) setMode(mode transport.Mode) error {
	if err := e.devices.setMode(mode); err != nil {
		return err
	}
	e.mode = mode
	return nil
}

func (e *Engine) endMode(keepListening bool) error {
	if keepListening {
		return e.setMode(transport.Listen)
	}
	return e.setMode(transport.Idle)
}

// Send encodes data as a frame (using the Engine's current header defaults,
// overridden per-field by opts) and transmits it, polling tx_done under the
// configured transmit deadline. It returns true iff transmission completed
// before the deadline. opts may be nil.
func (e *Engine) Send(ctx context.Context, data []byte, keepListening bool, opts *SendOptions) (bool, error) {
	if err := e.setMode(transport.Idle); err != nil {
		return false, err
	}
	hdr := opts.resolve(e.cfg, e.sequenceNumber)
	raw, err := frame.Encode(e.variant, hdr, data, e.cfg.Checksum)
	if err != nil {
		return false, err
	}
	if err := e.devices.TX.WriteFIFO(raw); err != nil {
		return false, err
	}
	if err := e.setMode(transport.Transmit); err != nil {
		return false, err
	}

	if e.monitor != nil {
		if err := e.monitor.Mirror(hdr, raw); err != nil {
			e.logf("datagram: monitor mirror failed: %v", err)
		}
	}

	start, startTicks := e.now()
	for {
		if e.devices.TX.TXDone() {
			if err := e.endMode(keepListening); err != nil {
				return false, err
			}
			if e.observer != nil {
				e.observer.ObserveTXFrame()
			}
			return true, nil
		}
		if e.deadlinePassed(start, startTicks, e.cfg.XmitTimeout) {
			e.logf("datagram: tx timeout after %s", e.cfg.XmitTimeout)
			if err := e.endMode(keepListening); err != nil {
				return false, err
			}
			return false, ErrTxTimeout
		}
		select {
		case <-ctx.Done():
			e.endMode(keepListening)
			return false, ctx.Err()
		default:
		}
		e.yield()
	}
}

// Received is a decoded frame returned by Receive, with the header included
// when withHeader was requested.
type Received struct {
	Header  frame.Header
	Payload []byte
}

// Receive switches to listen mode and polls rx_done until timeout (or the
// Engine's configured ReceiveTimeout, if timeout is nil) elapses. On a valid
// frame it applies the address filter, optionally synthesizes an ACK, and
// applies duplicate suppression, returning ErrAddressFiltered or
// ErrDuplicateFrame for frames that are recovered from silently rather than
// delivered. withHeader controls whether the returned Received carries a
// meaningful Header; when false, only Payload is populated.
func (e *Engine) Receive(ctx context.Context, keepListening, withHeader, withAck bool, timeout *time.Duration) (Received, error) {
	if err := e.setMode(transport.Listen); err != nil {
		return Received{}, err
	}
	deadline := e.cfg.ReceiveTimeout
	if timeout != nil {
		deadline = *timeout
	}

	start, startTicks := e.now()
	for !e.devices.rx().RXDone() {
		if e.deadlinePassed(start, startTicks, deadline) {
			e.endMode(keepListening)
			return Received{}, ErrRxTimeout
		}
		select {
		case <-ctx.Done():
			e.endMode(keepListening)
			return Received{}, ctx.Err()
		default:
		}
		e.yield()
	}

	e.lastRSSI = e.devices.rx().RSSI()
	if e.variant == frame.LoRa {
		e.lastSNR = e.devices.rx().SNR()
	}

	raw, err := e.devices.rx().ReadUntilFIFOEmpty()
	if err != nil {
		e.endMode(keepListening)
		return Received{}, err
	}
	hdr, payload, err := frame.Decode(e.variant, raw, e.cfg.Checksum, &e.checksumErrors)
	if err != nil {
		e.endMode(keepListening)
		if errors.Is(err, frame.ErrChecksumMismatch) {
			return Received{}, frame.ErrChecksumMismatch
		}
		return Received{}, err
	}

	if e.monitor != nil {
		if err := e.monitor.Mirror(hdr, raw); err != nil {
			e.logf("datagram: monitor mirror failed: %v", err)
		}
	}

	if e.cfg.Node != frame.Broadcast && hdr.To != frame.Broadcast && hdr.To != e.cfg.Node {
		e.endMode(keepListening)
		return Received{}, ErrAddressFiltered
	}

	var duplicate bool
	dataFrame := !hdr.IsAck() && hdr.To != frame.Broadcast
	if dataFrame {
		if last, ok := e.seenIDs[hdr.From]; ok && last == hdr.ID && hdr.IsRetry() {
			duplicate = true
		}
		e.seenIDs[hdr.From] = hdr.ID
	}

	if withAck && dataFrame {
		if e.cfg.AckDelay > 0 {
			time.Sleep(e.cfg.AckDelay)
		}
		ackID := hdr.ID
		ackFlags := hdr.Flags | frame.FlagAck
		ackTo, ackFrom := hdr.From, hdr.To
		if _, err := e.Send(ctx, []byte("!"), true, &SendOptions{To: &ackTo, From: &ackFrom, ID: &ackID, Flags: &ackFlags}); err != nil {
			e.logf("datagram: failed to send ack: %v", err)
		}
	}

	if err := e.endMode(keepListening); err != nil {
		return Received{}, err
	}
	if duplicate {
		return Received{}, ErrDuplicateFrame
	}

	if e.observer != nil {
		e.observer.ObserveRXFrame()
	}
	result := Received{Payload: payload}
	if withHeader {
		result.Header = hdr
	}
	return result, nil
}

// SendWithAck implements stop-and-wait delivery of a single frame: it
// advances the sequence number, transmits, and waits for a matching ACK,
// retrying with the RETRY flag set and a randomized backoff between
// attempts, up to AckRetries times. A broadcast destination succeeds
// immediately after one send, without waiting for any ACK (§4.D, §8 law 8).
func (e *Engine) SendWithAck(ctx context.Context, data []byte) (bool, error) {
	e.sequenceNumber++
	identifier := e.sequenceNumber
	flags := byte(0)

	for attempt := 0; attempt < e.cfg.AckRetries; attempt++ {
		ok, err := e.Send(ctx, data, true, &SendOptions{ID: &identifier, Flags: &flags})
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if e.cfg.Destination == frame.Broadcast {
			return true, nil
		}

		ackWait := e.cfg.AckWait
		received, err := e.Receive(ctx, true, true, false, &ackWait)
		if err == nil && received.Header.IsAck() && received.Header.ID == identifier {
			return true, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		if attempt < e.cfg.AckRetries-1 {
			backoff := time.Duration(rand.Int63n(int64(e.cfg.AckWait) + 1))
			time.Sleep(backoff)
			if e.observer != nil {
				e.observer.ObserveAckRetry()
			}
		}
		flags = frame.FlagRetry
	}
	e.setMode(transport.Idle)
	return false, ErrAckMissing
}
