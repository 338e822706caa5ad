// Command groundstation drives the ground-station side of the command/
// response protocol against a satellite-sim peer (or a real transport.Driver
// substituted for transport.NewUDPDriver), the way the teacher's
// standalone/ programs wire a module against a concrete transport and run
// it to completion.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/cubesat-gs/satlink/datagram"
	"github.com/cubesat-gs/satlink/frame"
	"github.com/cubesat-gs/satlink/session"
	"github.com/cubesat-gs/satlink/transport"
)

var (
	localAddr = flag.String("local_addr", ":9100", "UDP address to bind for the software radio loopback.")
	peerAddr  = flag.String("peer_addr", "127.0.0.1:9200", "UDP address of the satellite-sim peer.")
	node      = flag.Int("node", 1, "This station's node address (0-254).")
	dest      = flag.Int("destination", 2, "Destination node address to command.")
	variant   = flag.String("variant", "fsk", "Radio variant: fsk or lora.")
	command   = flag.String("command", "request_beacon", "Command to issue: request_beacon, get_rtc, set_rtc, move_file, request_file.")
	arg1      = flag.String("arg1", "", "First string argument for move_file/request_file.")
	arg2      = flag.String("arg2", "", "Second string argument for move_file (destination path).")
)

func parseVariant(s string) frame.Variant {
	if s == "lora" {
		return frame.LoRa
	}
	return frame.FSK
}

func main() {
	logger := log.New(os.Stderr, "groundstation: ", log.LstdFlags)

	cfg := transport.DefaultConfig()
	fs := transport.RegisterFlags(nil, &cfg)
	flag.Parse()
	fs.Apply()
	cfg.Node = byte(*node)
	cfg.Destination = byte(*dest)

	driver, err := transport.NewUDPDriver(*localAddr, *peerAddr)
	if err != nil {
		logger.Fatalf("failed to open software radio link: %v", err)
	}
	defer driver.Close()

	v := parseVariant(*variant)
	engine := datagram.New(datagram.Devices{TX: driver}, v, &cfg, datagram.WithLogger(logger))
	client := session.NewClient(engine, engine, session.DefaultRegistry(), v.MaxPayload())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch *command {
	case "request_beacon":
		rec, err := client.RequestBeacon(ctx)
		if err != nil {
			logger.Fatalf("request_beacon failed: %v", err)
		}
		logger.Printf("beacon:\n%s", rec.String())

	case "get_rtc":
		t, err := client.GetRTCUTime(ctx)
		if err != nil {
			logger.Fatalf("get_rtc failed: %v", err)
		}
		logger.Printf("satellite clock: %s", t.Format(time.RFC3339))

	case "set_rtc":
		if _, err := client.SetRTCUTime(ctx, time.Now().UTC()); err != nil {
			logger.Fatalf("set_rtc failed: %v", err)
		}
		logger.Printf("satellite clock synchronized")

	case "move_file":
		if *arg1 == "" || *arg2 == "" {
			logger.Fatalf("move_file requires -arg1 (source) and -arg2 (destination)")
		}
		ok, err := client.MoveFile(ctx, *arg1, *arg2)
		if err != nil {
			logger.Fatalf("move_file failed: %v", err)
		}
		logger.Printf("move_file succeeded: %v", ok)

	case "request_file":
		if *arg1 == "" {
			logger.Fatalf("request_file requires -arg1 (path)")
		}
		_, data, err := client.RequestFile(ctx, *arg1)
		if err != nil {
			logger.Fatalf("request_file failed: %v", err)
		}
		logger.Printf("received %d bytes", len(data))

	default:
		logger.Fatalf("unknown -command %q", *command)
	}
}
