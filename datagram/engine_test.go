package datagram

import (
	"context"
	"testing"
	"time"

	"github.com/cubesat-gs/satlink/frame"
	"github.com/cubesat-gs/satlink/linktest"
	"github.com/cubesat-gs/satlink/transport"
)

func newPair(t *testing.T, cfgA, cfgB *transport.Config) (*Engine, *Engine, *linktest.FakeDriver, *linktest.FakeDriver) {
	t.Helper()
	da, db := linktest.NewLoopbackPair()
	a := New(Devices{TX: da, RX: da}, frame.FSK, cfgA)
	b := New(Devices{TX: db, RX: db}, frame.FSK, cfgB)
	return a, b, da, db
}

func twoNodeConfigs() (*transport.Config, *transport.Config) {
	cfgA := linktest.FastConfig()
	cfgA.Node = 1
	cfgA.Destination = 2
	cfgB := linktest.FastConfig()
	cfgB.Node = 2
	cfgB.Destination = 1
	return &cfgA, &cfgB
}

func TestAckSynthesis(t *testing.T) {
	cfgA, cfgB := twoNodeConfigs()
	a, b, _, _ := newPair(t, cfgA, cfgB)
	ctx := context.Background()

	ok, err := a.Send(ctx, []byte("hello"), true, nil)
	if err != nil || !ok {
		t.Fatalf("Send = %v, %v", ok, err)
	}

	received, err := b.Receive(ctx, true, true, true, nil)
	if err != nil {
		t.Fatalf("b.Receive = %v", err)
	}
	if string(received.Payload) != "hello" {
		t.Errorf("payload = %q, want %q", received.Payload, "hello")
	}

	ack, err := a.Receive(ctx, true, true, false, nil)
	if err != nil {
		t.Fatalf("a.Receive (ack) = %v", err)
	}
	if !ack.Header.IsAck() {
		t.Errorf("expected ACK flag set, got flags=%#x", ack.Header.Flags)
	}
	if ack.Header.To != 1 || ack.Header.From != 2 {
		t.Errorf("ack header = %+v, want To=1 From=2 (swapped)", ack.Header)
	}
}

func TestAddressFilter(t *testing.T) {
	cfgA, cfgB := twoNodeConfigs()
	cfgB.Node = 99 // B is listening for node 99, not node 2
	a, b, _, _ := newPair(t, cfgA, cfgB)
	ctx := context.Background()

	if ok, err := a.Send(ctx, []byte("x"), true, nil); err != nil || !ok {
		t.Fatalf("Send = %v, %v", ok, err)
	}
	if _, err := b.Receive(ctx, true, false, false, nil); err != ErrAddressFiltered {
		t.Errorf("Receive = %v, want ErrAddressFiltered", err)
	}
}

func TestDuplicateSuppression(t *testing.T) {
	cfgA, cfgB := twoNodeConfigs()
	a, b, _, _ := newPair(t, cfgA, cfgB)
	ctx := context.Background()

	id := byte(7)
	flags := byte(0)
	a.Send(ctx, []byte("first"), true, &SendOptions{ID: &id, Flags: &flags})
	r1, err := b.Receive(ctx, true, false, false, nil)
	if err != nil || string(r1.Payload) != "first" {
		t.Fatalf("first receive = %+v, %v", r1, err)
	}

	flags = frame.FlagRetry
	a.Send(ctx, []byte("first"), true, &SendOptions{ID: &id, Flags: &flags})
	if _, err := b.Receive(ctx, true, false, false, nil); err != ErrDuplicateFrame {
		t.Errorf("second receive = %v, want ErrDuplicateFrame", err)
	}
}

func TestSendWithAckBroadcastFastPath(t *testing.T) {
	cfgA, cfgB := twoNodeConfigs()
	cfgA.Destination = frame.Broadcast
	a, _, _, _ := newPair(t, cfgA, cfgB)
	ok, err := a.SendWithAck(context.Background(), []byte("beacon"))
	if err != nil || !ok {
		t.Fatalf("SendWithAck(broadcast) = %v, %v", ok, err)
	}
}

func TestSendWithAckLostAckRetried(t *testing.T) {
	cfgA, cfgB := twoNodeConfigs()
	cfgA.AckWait = 200 * time.Millisecond
	cfgB.ReceiveTimeout = 200 * time.Millisecond
	a, b, _, db := newPair(t, cfgA, cfgB)
	ctx := context.Background()

	droppedOnce := false
	db.Drop = func(f []byte) bool {
		// Drop only the first ACK frame (flags byte at index 4, after
		// the FSK length byte) so the sender must retry.
		if !droppedOnce && len(f) >= 5 && f[4]&frame.FlagAck != 0 {
			droppedOnce = true
			return true
		}
		return false
	}

	recvErrs := make(chan error, 1)
	go func() {
		// The first delivery is acked but the ack is lost; the
		// second delivery carries the RETRY flag and may look like a
		// duplicate to the receiver, which is fine — only the
		// sender's view of ack success matters here.
		for i := 0; i < 2; i++ {
			if _, err := b.Receive(ctx, true, true, true, nil); err != nil && err != ErrDuplicateFrame {
				recvErrs <- err
				return
			}
		}
		recvErrs <- nil
	}()

	ok, err := a.SendWithAck(ctx, []byte("payload"))
	if err != nil || !ok {
		t.Fatalf("SendWithAck = %v, %v, want true, nil", ok, err)
	}
	if recvErr := <-recvErrs; recvErr != nil {
		t.Fatalf("b.Receive: %v", recvErr)
	}
	if !droppedOnce {
		t.Fatal("test bug: ack was never dropped")
	}
}

func TestChecksumCorruptionDropsFrame(t *testing.T) {
	cfgA, cfgB := twoNodeConfigs()
	cfgA.Checksum = true
	cfgB.Checksum = true
	a, b, da, _ := newPair(t, cfgA, cfgB)
	ctx := context.Background()

	da.Tamper = func(f []byte) []byte {
		f[len(f)-1] ^= 0x01
		return f
	}

	a.Send(ctx, []byte("payload"), true, nil)
	if _, err := b.Receive(ctx, true, false, false, nil); err != frame.ErrChecksumMismatch {
		t.Errorf("Receive(corrupted) = %v, want ErrChecksumMismatch", err)
	}
	if b.ChecksumErrors() != 1 {
		t.Errorf("ChecksumErrors = %d, want 1", b.ChecksumErrors())
	}
}
