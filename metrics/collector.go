// Package metrics exposes link-layer health as Prometheus metrics: a
// custom prometheus.Collector in the same Describe/Collect shape as the
// go-tcpinfo exporter's TCPInfoCollector, reading live values from a
// datagram.Engine on each scrape rather than pushing updates eagerly.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LinkSource is the subset of *datagram.Engine a LinkCollector scrapes.
type LinkSource interface {
	LastRSSI() float64
	LastSNR() float64
	ChecksumErrors() uint64
}

// LinkCollector is a prometheus.Collector exposing per-device signal and
// error counters for one or more registered radio links, mirroring
// go-tcpinfo's TCPInfoCollector: a map of tracked sources plus
// Add/Remove, consulted fresh on every Collect call instead of cached.
type LinkCollector struct {
	sourcesMu sync.Mutex
	sources   map[string]LinkSource

	rssiDesc           *prometheus.Desc
	snrDesc            *prometheus.Desc
	checksumErrorsDesc *prometheus.Desc
	ackRetriesDesc     *prometheus.Desc
	txFramesDesc       *prometheus.Desc
	rxFramesDesc       *prometheus.Desc

	countersMu sync.Mutex
	ackRetries map[string]uint64
	txFrames   map[string]uint64
	rxFrames   map[string]uint64
}

// NewLinkCollector returns an empty LinkCollector; links are registered
// with Add.
func NewLinkCollector(constLabels prometheus.Labels) *LinkCollector {
	return &LinkCollector{
		sources:    make(map[string]LinkSource),
		ackRetries: make(map[string]uint64),
		txFrames:   make(map[string]uint64),
		rxFrames:   make(map[string]uint64),
		rssiDesc: prometheus.NewDesc(
			"satlink_rssi_dbm", "Last received signal strength indicator, in dBm.",
			[]string{"link"}, constLabels),
		snrDesc: prometheus.NewDesc(
			"satlink_snr_db", "Last LoRa signal-to-noise ratio, in dB (0 for FSK links).",
			[]string{"link"}, constLabels),
		checksumErrorsDesc: prometheus.NewDesc(
			"satlink_checksum_errors_total", "Frames dropped for failing checksum verification.",
			[]string{"link"}, constLabels),
		ackRetriesDesc: prometheus.NewDesc(
			"satlink_ack_retries_total", "send_with_ack attempts beyond the first.",
			[]string{"link"}, constLabels),
		txFramesDesc: prometheus.NewDesc(
			"satlink_tx_frames_total", "Frames transmitted.",
			[]string{"link"}, constLabels),
		rxFramesDesc: prometheus.NewDesc(
			"satlink_rx_frames_total", "Frames delivered to the application.",
			[]string{"link"}, constLabels),
	}
}

// Add registers source under name, replacing any previous registration
// with that name.
func (c *LinkCollector) Add(name string, source LinkSource) {
	c.sourcesMu.Lock()
	defer c.sourcesMu.Unlock()
	c.sources[name] = source
}

// Remove unregisters name.
func (c *LinkCollector) Remove(name string) {
	c.sourcesMu.Lock()
	defer c.sourcesMu.Unlock()
	delete(c.sources, name)
}

// RecordAckRetry increments the ack-retry counter for name, called by the
// component driving send_with_ack whenever it sets the RETRY flag.
func (c *LinkCollector) RecordAckRetry(name string) {
	c.countersMu.Lock()
	defer c.countersMu.Unlock()
	c.ackRetries[name]++
}

// RecordTXFrame increments the transmitted-frame counter for name.
func (c *LinkCollector) RecordTXFrame(name string) {
	c.countersMu.Lock()
	defer c.countersMu.Unlock()
	c.txFrames[name]++
}

// RecordRXFrame increments the delivered-frame counter for name.
func (c *LinkCollector) RecordRXFrame(name string) {
	c.countersMu.Lock()
	defer c.countersMu.Unlock()
	c.rxFrames[name]++
}

// Describe implements prometheus.Collector.
func (c *LinkCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rssiDesc
	ch <- c.snrDesc
	ch <- c.checksumErrorsDesc
	ch <- c.ackRetriesDesc
	ch <- c.txFramesDesc
	ch <- c.rxFramesDesc
}

// Collect implements prometheus.Collector.
func (c *LinkCollector) Collect(ch chan<- prometheus.Metric) {
	c.sourcesMu.Lock()
	snapshot := make(map[string]LinkSource, len(c.sources))
	for name, src := range c.sources {
		snapshot[name] = src
	}
	c.sourcesMu.Unlock()

	c.countersMu.Lock()
	defer c.countersMu.Unlock()
	for name, src := range snapshot {
		ch <- prometheus.MustNewConstMetric(c.rssiDesc, prometheus.GaugeValue, src.LastRSSI(), name)
		ch <- prometheus.MustNewConstMetric(c.snrDesc, prometheus.GaugeValue, src.LastSNR(), name)
		ch <- prometheus.MustNewConstMetric(c.checksumErrorsDesc, prometheus.CounterValue, float64(src.ChecksumErrors()), name)
		ch <- prometheus.MustNewConstMetric(c.ackRetriesDesc, prometheus.CounterValue, float64(c.ackRetries[name]), name)
		ch <- prometheus.MustNewConstMetric(c.txFramesDesc, prometheus.CounterValue, float64(c.txFrames[name]), name)
		ch <- prometheus.MustNewConstMetric(c.rxFramesDesc, prometheus.CounterValue, float64(c.rxFrames[name]), name)
	}
}

var _ prometheus.Collector = (*LinkCollector)(nil)
