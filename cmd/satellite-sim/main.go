// Command satellite-sim simulates the satellite side of the link: a
// session.Server answering commands over a software radio link, with an
// optional Prometheus metrics endpoint and TAP frame mirror, composed under
// one station.Station the way the teacher composes server modules under
// module/aggregate.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/songgao/water"

	"github.com/cubesat-gs/satlink/beacon"
	"github.com/cubesat-gs/satlink/datagram"
	"github.com/cubesat-gs/satlink/frame"
	"github.com/cubesat-gs/satlink/metrics"
	"github.com/cubesat-gs/satlink/monitor"
	"github.com/cubesat-gs/satlink/obslog"
	"github.com/cubesat-gs/satlink/session"
	"github.com/cubesat-gs/satlink/station"
	"github.com/cubesat-gs/satlink/transport"
)

var (
	localAddr   = flag.String("local_addr", ":9200", "UDP address to bind for the software radio loopback.")
	peerAddr    = flag.String("peer_addr", "127.0.0.1:9100", "UDP address of the ground-station peer.")
	node        = flag.Int("node", 2, "This station's node address (0-254).")
	variant     = flag.String("variant", "fsk", "Radio variant: fsk or lora.")
	metricsAddr = flag.String("metrics_addr", "", "If set, serve Prometheus metrics on this address (e.g. :9090).")
	tapDevice   = flag.String("tap_device", "", "If set, mirror every on-air frame onto this TAP device name.")
	useSyslog   = flag.Bool("syslog", false, "Send log output to the system log instead of stderr.")
)

// newLogger returns the stderr logger unless -syslog is set, in which case
// it tries obslog.NewSyslogLogger first and falls back to stderr (with a
// warning) if the system log is unreachable.
func newLogger() *log.Logger {
	stderr := log.New(os.Stderr, "satellite-sim: ", log.LstdFlags)
	if !*useSyslog {
		return stderr
	}
	syslogger, err := obslog.NewSyslogLogger(obslog.Info, log.LstdFlags)
	if err != nil {
		stderr.Printf("failed to open syslog, falling back to stderr: %v", err)
		return stderr
	}
	return syslogger
}

// linkStats counts TX/RX frames locally (for the simulated beacon's
// RadioTXCount/RadioRXCount fields) while also forwarding each event to a
// metrics.LinkObserver, composing both sinks behind one datagram.FrameObserver.
type linkStats struct {
	tx, rx, retries uint64
	forward         datagram.FrameObserver
}

func (s *linkStats) ObserveTXFrame() {
	atomic.AddUint64(&s.tx, 1)
	if s.forward != nil {
		s.forward.ObserveTXFrame()
	}
}

func (s *linkStats) ObserveRXFrame() {
	atomic.AddUint64(&s.rx, 1)
	if s.forward != nil {
		s.forward.ObserveRXFrame()
	}
}

func (s *linkStats) ObserveAckRetry() {
	atomic.AddUint64(&s.retries, 1)
	if s.forward != nil {
		s.forward.ObserveAckRetry()
	}
}

func parseVariant(s string) frame.Variant {
	if s == "lora" {
		return frame.LoRa
	}
	return frame.FSK
}

func main() {
	cfg := transport.DefaultConfig()
	fs := transport.RegisterFlags(nil, &cfg)
	flag.Parse()
	fs.Apply()
	cfg.Node = byte(*node)
	cfg.Destination = frame.Broadcast

	logger := newLogger()

	driver, err := transport.NewUDPDriver(*localAddr, *peerAddr)
	if err != nil {
		logger.Fatalf("failed to open software radio link: %v", err)
	}
	defer driver.Close()

	v := parseVariant(*variant)
	stats := &linkStats{}
	opts := []datagram.Option{datagram.WithLogger(logger), datagram.WithObserver(stats)}

	var collector *metrics.LinkCollector
	if *metricsAddr != "" {
		collector = metrics.NewLinkCollector(prometheus.Labels{"node": *variant})
		stats.forward = metrics.NewLinkObserver(collector, "downlink")
	}

	if *tapDevice != "" {
		var tapCfg water.Config
		// PlatformSpecificParams doesn't carry a Name field on every
		// OS; set it through reflection rather than build tags.
		psp := reflect.ValueOf(&tapCfg.PlatformSpecificParams).Elem()
		if _, ok := psp.Type().FieldByName("Name"); ok {
			psp.FieldByName("Name").SetString(*tapDevice)
		}
		bridge, err := monitor.NewTapBridge(tapCfg)
		if err != nil {
			logger.Fatalf("failed to open TAP device %q: %v", *tapDevice, err)
		}
		defer bridge.Close()
		opts = append(opts, datagram.WithMonitor(bridge))
	}

	engine := datagram.New(datagram.Devices{TX: driver}, v, &cfg, opts...)
	if collector != nil {
		collector.Add("downlink", engine)
	}

	start := time.Now()
	beaconFn := func() beacon.Record {
		return beacon.Record{
			BatteryVoltage: 3.7,
			BatteryCurrent: 0.42,
			BusVoltage5V:   5.02,
			BusVoltage3V3:  3.31,
			BoardTempC:     21.5,
			UptimeSeconds:  uint32(time.Since(start).Seconds()),
			BootCount:      1,
			LastResetCause: 0,
			RadioTXCount:   uint32(atomic.LoadUint64(&stats.tx)),
			RadioRXCount:   uint32(atomic.LoadUint64(&stats.rx)),
		}
	}

	server := session.NewServer(engine, engine, session.DefaultRegistry(), v.MaxPayload(),
		session.WithLogger(logger), session.WithBeacon(beaconFn))

	st := station.New(server)
	st.Logger = logger
	if collector != nil {
		st.WithMetrics(*metricsAddr, collector)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalf("station exited: %v", err)
	}
}
