package beacon

import (
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	want := Record{
		BatteryVoltage: 7.412,
		BatteryCurrent: 0.231,
		BusVoltage5V:   5.01,
		BusVoltage3V3:  3.29,
		BoardTempC:     21.5,
		UptimeSeconds:  123456,
		BootCount:      7,
		LastResetCause: 2,
		RadioTXCount:   400,
		RadioRXCount:   390,
	}
	got, err := Decode(want.Encode())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeShortRecord(t *testing.T) {
	if _, err := Decode(make([]byte, RecordLength-1)); err != ErrShortRecord {
		t.Errorf("err = %v, want ErrShortRecord", err)
	}
}

func TestStringContainsLabels(t *testing.T) {
	r := Record{UptimeSeconds: 42}
	s := r.String()
	if !strings.Contains(s, "uptime_s:") {
		t.Errorf("String() = %q, missing uptime_s label", s)
	}
}
