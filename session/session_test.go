package session

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/cubesat-gs/satlink/beacon"
	"github.com/cubesat-gs/satlink/datagram"
	"github.com/cubesat-gs/satlink/frame"
	"github.com/cubesat-gs/satlink/linktest"
)

func newClientServer(t *testing.T) (*Client, *Server, func()) {
	t.Helper()
	cfgGround := linktest.FastConfig()
	cfgGround.Node = 1
	cfgGround.Destination = 2
	cfgGround.AckWait = 200 * time.Millisecond
	cfgGround.ReceiveTimeout = 200 * time.Millisecond

	cfgSat := linktest.FastConfig()
	cfgSat.Node = 2
	cfgSat.Destination = 1
	cfgSat.AckWait = 200 * time.Millisecond
	cfgSat.ReceiveTimeout = 200 * time.Millisecond

	dGround, dSat := linktest.NewLoopbackPair()
	ground := datagram.New(datagram.Devices{TX: dGround, RX: dGround}, frame.FSK, &cfgGround)
	sat := datagram.New(datagram.Devices{TX: dSat, RX: dSat}, frame.FSK, &cfgSat)

	registry := DefaultRegistry()
	client := NewClient(ground, ground, registry, frame.FSK.MaxPayload())
	server := NewServer(sat, sat, registry, frame.FSK.MaxPayload())

	stop := func() {}
	return client, server, stop
}

// runServerOnce drives exactly one ServeOne call on a background goroutine
// so the test's foreground goroutine can drive the Client synchronously.
func runServerOnce(t *testing.T, server *Server, ctx context.Context, done chan<- error) {
	t.Helper()
	go func() { done <- server.ServeOne(ctx) }()
}

func TestRequestBeaconRoundTrip(t *testing.T) {
	client, server, _ := newClientServer(t)
	want := beacon.Record{UptimeSeconds: 555, BootCount: 3}
	server.beaconFn = func() beacon.Record { return want }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	runServerOnce(t, server, ctx, done)

	got, err := client.RequestBeacon(ctx)
	if err != nil {
		t.Fatalf("RequestBeacon: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if serveErr := <-done; serveErr != nil {
		t.Fatalf("ServeOne: %v", serveErr)
	}
}

func TestSetAndGetRTCUTime(t *testing.T) {
	client, server, _ := newClientServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	want := time.Unix(1700000000, 0).UTC()

	done := make(chan error, 1)
	runServerOnce(t, server, ctx, done)
	if ok, err := client.SetRTCUTime(ctx, want); err != nil || !ok {
		t.Fatalf("SetRTCUTime = %v, %v", ok, err)
	}
	if serveErr := <-done; serveErr != nil {
		t.Fatalf("ServeOne (set): %v", serveErr)
	}

	runServerOnce(t, server, ctx, done)
	got, err := client.GetRTCUTime(ctx)
	if err != nil {
		t.Fatalf("GetRTCUTime: %v", err)
	}
	if diff := got.Sub(want); diff < -2*time.Second || diff > 2*time.Second {
		t.Errorf("got %v, want within 2s of %v", got, want)
	}
	if serveErr := <-done; serveErr != nil {
		t.Fatalf("ServeOne (get): %v", serveErr)
	}
}

func TestMoveFileSuccess(t *testing.T) {
	client, server, _ := newClientServer(t)
	server.PutFile("/sd/source.bin", []byte("payload"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	runServerOnce(t, server, ctx, done)

	ok, err := client.MoveFile(ctx, "/sd/source.bin", "/sd/target.bin")
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if !ok {
		t.Error("MoveFile reported failure")
	}
	if serveErr := <-done; serveErr != nil {
		t.Fatalf("ServeOne: %v", serveErr)
	}
	if data, ok := server.File("/sd/target.bin"); !ok || !bytes.Equal(data, []byte("payload")) {
		t.Errorf("target file = %q, %v", data, ok)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	client, server, _ := newClientServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	runServerOnce(t, server, ctx, done)

	ok, err := client.MoveFile(ctx, "/sd/missing.bin", "/sd/target.bin")
	if err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if ok {
		t.Error("expected MoveFile to report failure for missing source")
	}
	if serveErr := <-done; serveErr != nil {
		t.Fatalf("ServeOne: %v", serveErr)
	}
}

// serverLoop drives ServeOne in a loop until ctx is cancelled, tolerating
// the transient ErrTooManyFailures the way Serve does, for tests that need
// the server to answer a multi-fragment exchange without the test
// hand-driving each ServeOne call.
func serverLoop(server *Server, ctx context.Context) {
	server.Serve(ctx)
}

func TestUploadFile(t *testing.T) {
	client, server, _ := newClientServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go serverLoop(server, ctx)

	payload := bytes.Repeat([]byte("0123456789"), 20) // bigger than one fragment
	ok, err := client.UploadFile(ctx, bytes.NewReader(payload), "/sd/uploaded.bin")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if !ok {
		t.Fatal("UploadFile reported failure")
	}
	if data, ok := server.File("/sd/uploaded.bin"); !ok || !bytes.Equal(data, payload) {
		t.Errorf("uploaded file mismatch: got %d bytes, want %d", len(data), len(payload))
	}
}
