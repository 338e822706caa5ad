package station

import (
	"context"
	"testing"
	"time"

	"github.com/cubesat-gs/satlink/datagram"
	"github.com/cubesat-gs/satlink/frame"
	"github.com/cubesat-gs/satlink/linktest"
	"github.com/cubesat-gs/satlink/session"
)

func TestRunStopsOnContextCancel(t *testing.T) {
	driver, _ := linktest.NewLoopbackPair()
	cfg := linktest.FastConfig()
	cfg.Node = 2
	engine := datagram.New(datagram.Devices{TX: driver}, frame.FSK, &cfg)
	server := session.NewServer(engine, engine, session.DefaultRegistry(), frame.FSK.MaxPayload())

	st := New(server)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- st.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on context cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context was cancelled")
	}
}

func TestAlsoRunnableIsStarted(t *testing.T) {
	driver, _ := linktest.NewLoopbackPair()
	cfg := linktest.FastConfig()
	engine := datagram.New(datagram.Devices{TX: driver}, frame.FSK, &cfg)
	server := session.NewServer(engine, engine, session.DefaultRegistry(), frame.FSK.MaxPayload())

	started := make(chan struct{})
	st := New(server).Also(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	go st.Run(ctx)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("extra runnable was never started")
	}
}
