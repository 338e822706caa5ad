package datagram

// TickClock is a capability probe for a board-level millisecond tick
// counter that wraps modulo 2^29, as found on microcontroller radio
// boards (see the design notes on "optional dependencies and try-import
// fallbacks": this is supplied explicitly at Engine construction, never
// detected at runtime). When no TickClock is supplied, the Engine falls
// back to wall-clock deadlines via transport.Clock, which is the common
// case on a Go host.
type TickClock interface {
	// Ticks returns the current tick count, 0 <= Ticks() < 1<<29.
	Ticks() uint32
}

const tickModulus = 1 << 29
const tickHalfPeriod = tickModulus / 2

// diffTicks returns now-then as a signed difference, correcting for
// rollover of a counter that wraps modulo 2^29: a raw difference whose
// magnitude exceeds the half period is assumed to have wrapped and is
// folded back into range.
func diffTicks(now, then uint32) int32 {
	d := int32((now - then) % tickModulus)
	if d > tickHalfPeriod {
		d -= tickModulus
	} else if d < -tickHalfPeriod {
		d += tickModulus
	}
	return d
}
