package fragment

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cubesat-gs/satlink/datagram"
)

func TestMemoryMessageSplitsAndTagsFragments(t *testing.T) {
	msg := NewMemoryMessage([]byte("ABCDEFGHIJ"), 5) // chunkSize = 4
	var got []struct {
		opcode Opcode
		body   string
	}
	for !msg.Done() {
		data, withAck := msg.Packet()
		if !withAck {
			t.Fatalf("fragment not sent with ack")
		}
		got = append(got, struct {
			opcode Opcode
			body   string
		}{Opcode(data[0]), string(data[1:])})
	}
	want := []struct {
		opcode Opcode
		body   string
	}{
		{MemoryBufferedStart, "ABCD"},
		{MemoryBufferedMid, "EFGH"},
		{MemoryBufferedEnd, "IJ"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMemoryMessageSingleFragment(t *testing.T) {
	msg := NewMemoryMessage([]byte("hi"), 57)
	data, _ := msg.Packet()
	if Opcode(data[0]) != MemoryBufferedEnd {
		t.Errorf("opcode = %v, want MemoryBufferedEnd", Opcode(data[0]))
	}
	if !msg.Done() {
		t.Error("expected single-fragment message to be Done after one Packet()")
	}
}

func TestAtomicMessage(t *testing.T) {
	msg := NewAtomicMessage(Beacon, []byte("telemetry"), false)
	if msg.Done() {
		t.Fatal("atomic message reports Done before Packet()")
	}
	data, withAck := msg.Packet()
	if withAck {
		t.Error("expected withAck=false to be preserved")
	}
	if Opcode(data[0]) != Beacon || string(data[1:]) != "telemetry" {
		t.Errorf("packet = %v, want [Beacon]telemetry", data)
	}
	if !msg.Done() {
		t.Error("expected Done() after single Packet()")
	}
}

// scriptedReceiver replays a fixed sequence of frames for Reassembler tests
// without needing a live datagram.Engine/transport.Driver pair.
type scriptedReceiver struct {
	frames []datagram.Received
	errs   []error
	i      int
}

func (s *scriptedReceiver) Receive(ctx context.Context, keepListening, withHeader, withAck bool, timeout *time.Duration) (datagram.Received, error) {
	if s.i >= len(s.frames) {
		return datagram.Received{}, context.DeadlineExceeded
	}
	r, err := s.frames[s.i], s.errs[s.i]
	s.i++
	return r, err
}

func payload(opcode Opcode, body string) datagram.Received {
	return datagram.Received{Payload: append([]byte{byte(opcode)}, []byte(body)...)}
}

func TestReassemblerJoinsFragmentsSkippingDuplicateMid(t *testing.T) {
	recv := &scriptedReceiver{
		frames: []datagram.Received{
			payload(MemoryBufferedStart, "AAAA"),
			payload(MemoryBufferedMid, "BBBB"),
			payload(MemoryBufferedMid, "BBBB"), // exact repeat, must be skipped
			payload(MemoryBufferedMid, "CCCC"),
			payload(MemoryBufferedEnd, "DDDD"),
		},
		errs: make([]error, 5),
	}

	r := NewReassembler()
	opcode, data, err := r.Receive(context.Background(), recv, nil)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if opcode != MemoryBufferedStart {
		t.Errorf("opcode = %v, want MemoryBufferedStart (the family's start opcode signals completion)", opcode)
	}
	if !bytes.Equal(data, []byte("AAAABBBBCCCCDDDD")) {
		t.Errorf("data = %q, want %q", data, "AAAABBBBCCCCDDDD")
	}
}

func TestReassemblerPassesThroughAtomicFrame(t *testing.T) {
	recv := &scriptedReceiver{
		frames: []datagram.Received{payload(Beacon, "hello")},
		errs:   make([]error, 1),
	}
	r := NewReassembler()
	opcode, data, err := r.Receive(context.Background(), recv, nil)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if opcode != Beacon || string(data) != "hello" {
		t.Errorf("got (%v, %q), want (Beacon, %q)", opcode, data, "hello")
	}
}

func TestReassemblerTooManyFailures(t *testing.T) {
	frames := make([]datagram.Received, defaultMaxRxFails)
	errs := make([]error, defaultMaxRxFails)
	for i := range errs {
		errs[i] = datagram.ErrRxTimeout // no frame ever arrives
	}
	recv := &scriptedReceiver{frames: frames, errs: errs}
	r := NewReassembler()
	_, _, err := r.Receive(context.Background(), recv, nil)
	if err != ErrTooManyFailures {
		t.Errorf("err = %v, want ErrTooManyFailures", err)
	}
}
