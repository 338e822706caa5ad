package linktest

import "github.com/cubesat-gs/satlink/transport"

// FastConfig returns a transport.Config with short timings appropriate for
// in-process loopback tests, where there is no real radio latency to wait
// out.
func FastConfig() transport.Config {
	cfg := transport.DefaultConfig()
	cfg.AckWait = 0
	cfg.AckDelay = 0
	cfg.ReceiveTimeout = 0
	cfg.XmitTimeout = 0
	return cfg
}

// Fragments is a fixed sequence of payloads used to exercise the
// fragmentation/reassembly layer, matching testable property 9: reassembly
// of START(A), MID(B), MID(B), MID(C), END(D) should yield A‖B‖C‖D.
var Fragments = [][]byte{
	[]byte("AAAA"),
	[]byte("BBBB"),
	[]byte("BBBB"), // duplicate of the previous MID fragment
	[]byte("CCCC"),
	[]byte("DDDD"),
}
