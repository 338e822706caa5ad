// Package beacon decodes a satellite's periodic telemetry record (§4.H).
// The exact field schema is data-defined and lives outside the link-layer
// core; this package fixes a representative layout of the kind a cubesat
// beacon typically carries (battery/bus telemetry, uptime, boot count,
// last reset cause) so that REQUEST_BEACON has something concrete to
// decode end to end.
package beacon

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

// RecordLength is the fixed size in bytes of an encoded Record.
const RecordLength = 40

// ErrShortRecord is returned by Decode when the input is smaller than
// RecordLength.
var ErrShortRecord = errors.New("beacon: record too short")

// Record is a decoded beacon telemetry snapshot.
type Record struct {
	BatteryVoltage  float32
	BatteryCurrent  float32
	BusVoltage5V    float32
	BusVoltage3V3   float32
	BoardTempC      float32
	UptimeSeconds   uint32
	BootCount       uint32
	LastResetCause  uint32
	RadioTXCount    uint32
	RadioRXCount    uint32
}

// Decode parses a fixed-layout telemetry record from b. Extra trailing
// bytes beyond RecordLength are ignored.
func Decode(b []byte) (Record, error) {
	if len(b) < RecordLength {
		return Record{}, ErrShortRecord
	}
	var r Record
	r.BatteryVoltage = decodeFloat32(b[0:4])
	r.BatteryCurrent = decodeFloat32(b[4:8])
	r.BusVoltage5V = decodeFloat32(b[8:12])
	r.BusVoltage3V3 = decodeFloat32(b[12:16])
	r.BoardTempC = decodeFloat32(b[16:20])
	r.UptimeSeconds = binary.LittleEndian.Uint32(b[20:24])
	r.BootCount = binary.LittleEndian.Uint32(b[24:28])
	r.LastResetCause = binary.LittleEndian.Uint32(b[28:32])
	r.RadioTXCount = binary.LittleEndian.Uint32(b[32:36])
	r.RadioRXCount = binary.LittleEndian.Uint32(b[36:40])
	return r, nil
}

// Encode is the inverse of Decode, used by the satellite-side Server to
// build a synthetic beacon for tests and simulators.
func (r Record) Encode() []byte {
	out := make([]byte, RecordLength)
	encodeFloat32(out[0:4], r.BatteryVoltage)
	encodeFloat32(out[4:8], r.BatteryCurrent)
	encodeFloat32(out[8:12], r.BusVoltage5V)
	encodeFloat32(out[12:16], r.BusVoltage3V3)
	encodeFloat32(out[16:20], r.BoardTempC)
	binary.LittleEndian.PutUint32(out[20:24], r.UptimeSeconds)
	binary.LittleEndian.PutUint32(out[24:28], r.BootCount)
	binary.LittleEndian.PutUint32(out[28:32], r.LastResetCause)
	binary.LittleEndian.PutUint32(out[32:36], r.RadioTXCount)
	binary.LittleEndian.PutUint32(out[36:40], r.RadioRXCount)
	return out
}

func decodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func encodeFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// String renders a label-dotted table for human display, the same shape
// as the teacher's Statistics.String().
func (r Record) String() string {
	var sb strings.Builder
	rows := []struct {
		label string
		value string
	}{
		{"battery.voltage", fmt.Sprintf("%.3f V", r.BatteryVoltage)},
		{"battery.current", fmt.Sprintf("%.3f A", r.BatteryCurrent)},
		{"bus.5v", fmt.Sprintf("%.3f V", r.BusVoltage5V)},
		{"bus.3v3", fmt.Sprintf("%.3f V", r.BusVoltage3V3)},
		{"board.temp_c", fmt.Sprintf("%.1f", r.BoardTempC)},
		{"uptime_s", fmt.Sprintf("%d", r.UptimeSeconds)},
		{"boot_count", fmt.Sprintf("%d", r.BootCount)},
		{"last_reset_cause", fmt.Sprintf("%d", r.LastResetCause)},
		{"radio.tx_count", fmt.Sprintf("%d", r.RadioTXCount)},
		{"radio.rx_count", fmt.Sprintf("%d", r.RadioRXCount)},
	}
	for i, row := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%-20s %s", row.label+":", row.value)
	}
	return sb.String()
}
