package transport

import (
	"flag"
	"time"
)

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Bandwidth is one bin of the chip-defined receiver bandwidth set.
type Bandwidth float64

// Accepted RX bandwidth bins, per §4.I. Not exhaustive of every chip
// variant's register table, but representative of the RFM9x family.
var Bandwidths = []Bandwidth{
	2600, 3100, 3900, 5200, 6300, 7800, 10400, 12500, 15600,
	20800, 25000, 31300, 41700, 50000, 62500, 83300, 100000, 125000, 166700, 200000, 250000,
}

// NearestBandwidth returns the element of Bandwidths closest to hz.
func NearestBandwidth(hz float64) Bandwidth {
	best := Bandwidths[0]
	bestDiff := hz - float64(best)
	if bestDiff < 0 {
		bestDiff = -bestDiff
	}
	for _, b := range Bandwidths[1:] {
		diff := hz - float64(b)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = b, diff
		}
	}
	return best
}

// Config holds the runtime-adjustable radio parameters from §4.I. All
// setters clamp or reject values at the documented boundary; none of them
// are safe to call while a send or receive is in progress (§5).
type Config struct {
	FrequencyMHz       float64
	PowerDBm           int
	BitrateBPS         float64
	DeviationHz        float64
	PreambleLength     int
	AckDelay           time.Duration
	AckWait            time.Duration
	LNAGain            int
	RXBandwidth        Bandwidth
	AFCEnable          bool
	Node               byte
	Destination        byte
	Checksum           bool
	ReceiveTimeout     time.Duration
	XmitTimeout        time.Duration
	AckRetries         int
}

// DefaultConfig returns a Config with the spec's default timings (§4.D) and
// a conservative middle-of-range radio configuration.
func DefaultConfig() Config {
	return Config{
		FrequencyMHz:   915.0,
		PowerDBm:       13,
		BitrateBPS:     49230,
		DeviationHz:    25000,
		PreambleLength: 8,
		AckDelay:       10 * time.Millisecond,
		AckWait:        200 * time.Millisecond,
		LNAGain:        1,
		RXBandwidth:    125000,
		Node:           0,
		Destination:    0xff,
		Checksum:       true,
		ReceiveTimeout: 500 * time.Millisecond,
		XmitTimeout:    2 * time.Second,
		AckRetries:     5,
	}
}

// SetFrequency clamps to 240.0-960.0 MHz.
func (c *Config) SetFrequency(mhz float64) { c.FrequencyMHz = clamp(mhz, 240.0, 960.0) }

// SetPower clamps to 5-23 dBm.
func (c *Config) SetPower(dbm int) {
	c.PowerDBm = int(clamp(float64(dbm), 5, 23))
}

// SetBitrate clamps to 500-300000 bps.
func (c *Config) SetBitrate(bps float64) { c.BitrateBPS = clamp(bps, 500, 300000) }

// SetDeviation clamps to 600-200000 Hz.
func (c *Config) SetDeviation(hz float64) { c.DeviationHz = clamp(hz, 600, 200000) }

// SetPreambleLength clamps to 3-65536.
func (c *Config) SetPreambleLength(n int) {
	c.PreambleLength = int(clamp(float64(n), 3, 65536))
}

// SetAckDelay clamps to 0.0-10.0s.
func (c *Config) SetAckDelay(d time.Duration) {
	c.AckDelay = clampDuration(d, 0, 10*time.Second)
}

// SetAckWait clamps to 0.0-100.0s.
func (c *Config) SetAckWait(d time.Duration) {
	c.AckWait = clampDuration(d, 0, 100*time.Second)
}

// SetLNAGain clamps to 1-6 (1 is max gain, 6 is min gain).
func (c *Config) SetLNAGain(g int) {
	c.LNAGain = int(clamp(float64(g), 1, 6))
}

// SetRXBandwidth snaps hz to the nearest chip-defined bin.
func (c *Config) SetRXBandwidth(hz float64) { c.RXBandwidth = NearestBandwidth(hz) }

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}

// Flags registers the configuration surface as command-line flags, mirroring
// the teacher's phys.RegisterFlags pattern. The shell/CLI that parses these
// flags is outside this package's scope; Flags only binds the variables.
type Flags struct {
	cfg *Config
}

// RegisterFlags binds cfg's fields to a new flag.FlagSet (or flag.CommandLine
// if fs is nil) and returns a Flags handle for re-reading the parsed values.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) *Flags {
	if fs == nil {
		fs = flag.CommandLine
	}
	fs.Float64Var(&cfg.FrequencyMHz, "frequency_mhz", cfg.FrequencyMHz, "Center frequency in MHz (240-960).")
	fs.IntVar(&cfg.PowerDBm, "power_dbm", cfg.PowerDBm, "Transmit power in dBm (5-23).")
	fs.Float64Var(&cfg.BitrateBPS, "bitrate_bps", cfg.BitrateBPS, "FSK bitrate in bits/sec (500-300000).")
	fs.DurationVar(&cfg.AckWait, "ack_wait", cfg.AckWait, "Time to wait for an ACK before retrying (0-100s).")
	fs.DurationVar(&cfg.AckDelay, "ack_delay", cfg.AckDelay, "Delay before sending a synthesized ACK (0-10s).")
	fs.IntVar(&cfg.AckRetries, "ack_retries", cfg.AckRetries, "Number of send_with_ack attempts before giving up.")
	fs.BoolVar(&cfg.Checksum, "checksum", cfg.Checksum, "Append/verify a BSD checksum trailer on every frame.")
	return &Flags{cfg: cfg}
}

// Apply clamps the range-limited fields that RegisterFlags binds (frequency,
// power, bitrate, ACK delay and ACK wait) to their documented ranges, useful
// after flag.Parse has populated raw values directly into the struct. Other
// fields of the Config are left as they are.
func (f *Flags) Apply() {
	c := f.cfg
	c.SetFrequency(c.FrequencyMHz)
	c.SetPower(c.PowerDBm)
	c.SetBitrate(c.BitrateBPS)
	c.SetAckDelay(c.AckDelay)
	c.SetAckWait(c.AckWait)
}
